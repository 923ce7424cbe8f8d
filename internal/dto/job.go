package dto

import (
	"encoding/json"
	"time"
)

type EnqueueDTO struct {
	Type           string          `json:"type" validate:"required"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,max=256"`
	Priority       int             `json:"priority" validate:"gte=-100,lte=100"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
	AvailableAt    *time.Time      `json:"available_at,omitempty"`
}

type EnqueueResponseDTO struct {
	JobID string `json:"job_id"`
}

type JobResponseDTO struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	Type           string          `json:"type"`
	IdempotencyKey string          `json:"idempotency_key"`
	Priority       int             `json:"priority"`
	Payload        json.RawMessage `json:"payload"`
	Status         string          `json:"status"`
	AvailableAt    time.Time       `json:"available_at"`
	LockedAt       *time.Time      `json:"locked_at,omitempty"`
	Attempts       int             `json:"attempts"`
	LastError      *string         `json:"last_error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
