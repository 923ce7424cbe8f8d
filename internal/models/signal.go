package models

import (
	"time"

	"gorm.io/datatypes"
)

// TenantSignal is one append-only change notification. Version increases
// strictly per (tenant_id, kind); the unique index is the serialization
// point that keeps concurrent writers from reusing a version.
type TenantSignal struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`
	TenantID  string         `gorm:"type:varchar(64);not null;uniqueIndex:uniq_signals_version,priority:1"`
	Kind      string         `gorm:"type:varchar(128);not null;uniqueIndex:uniq_signals_version,priority:2"`
	Version   uint64         `gorm:"not null;uniqueIndex:uniq_signals_version,priority:3"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
}

func (TenantSignal) TableName() string { return "tenant_signals" }
