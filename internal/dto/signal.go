package dto

import (
	"encoding/json"
	"time"
)

type TouchDTO struct {
	Kind    string          `json:"kind" validate:"required,max=128"`
	Payload json.RawMessage `json:"payload"`
}

type TouchResponseDTO struct {
	Version uint64 `json:"version"`
}

type SignalResponseDTO struct {
	Kind      string          `json:"kind"`
	Version   uint64          `json:"version"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
