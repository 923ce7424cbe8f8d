package models

import (
	"time"

	"gorm.io/datatypes"
)

// Job is one persisted unit of deferred work. The queue never interprets
// Payload; Type selects the handler a worker dispatches to.
//
// The composite unique index on (tenant_id, idempotency_key) is what makes
// enqueue idempotent: producers may retry freely, the store keeps at most
// one logical job per key per tenant.
type Job struct {
	ID             string         `gorm:"type:varchar(64);primaryKey"`
	TenantID       string         `gorm:"type:varchar(64);not null;index:idx_jobs_claim,priority:1;uniqueIndex:uniq_jobs_idem,priority:1"`
	Type           string         `gorm:"type:varchar(255);not null"`
	IdempotencyKey string         `gorm:"type:varchar(256);not null;uniqueIndex:uniq_jobs_idem,priority:2"`
	Priority       int            `gorm:"not null;default:0"`
	Payload        datatypes.JSON `gorm:"type:jsonb"`
	Status         string         `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_jobs_claim,priority:2"`
	AvailableAt    time.Time      `gorm:"not null;index:idx_jobs_claim,priority:3"`
	LockedAt       *time.Time
	Attempts       int       `gorm:"not null;default:0"`
	LastError      *string   `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Job) TableName() string { return "jobs" }
