package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// touchAttempts bounds the version-conflict retry loop. Past it, Touch
// reports a transient failure instead of dropping the event or reusing a
// version.
const touchAttempts = 5

// ErrTouchContention is returned when concurrent writers kept winning the
// version race for the whole retry budget. Safe to retry.
var ErrTouchContention = errors.New("signal version contention, retry")

type SignalRepository struct {
	db *gorm.DB
}

func NewSignalRepository(db *gorm.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Touch appends one signal with version = previous max + 1 for the
// (tenant, kind) pair. The unique index on (tenant_id, kind, version) is
// the single serialization point: when two writers compute the same next
// version, one insert hits the index and retries with a fresh read.
func (r *SignalRepository) Touch(ctx context.Context, tenantID, kind string, payload datatypes.JSON) (uint64, error) {
	for attempt := 0; attempt < touchAttempts; attempt++ {
		var maxVersion uint64
		err := r.db.WithContext(ctx).Model(&models.TenantSignal{}).
			Select("COALESCE(MAX(version), 0)").
			Where("tenant_id = ? AND kind = ?", tenantID, kind).
			Scan(&maxVersion).Error
		if err != nil {
			return 0, fmt.Errorf("read max signal version: %w", err)
		}

		sig := models.TenantSignal{
			TenantID: tenantID,
			Kind:     kind,
			Version:  maxVersion + 1,
			Payload:  payload,
		}
		err = r.db.WithContext(ctx).Create(&sig).Error
		if err == nil {
			return sig.Version, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			slog.Debug("signal version conflict, retrying",
				"tenant", tenantID, "kind", kind, "version", sig.Version, "attempt", attempt+1)
			continue
		}
		return 0, fmt.Errorf("insert signal: %w", err)
	}
	return 0, ErrTouchContention
}

// PollSince returns signals with version > sinceVersion in ascending
// version order, capped at limit. When no version cursor is supplied
// (sinceVersion == 0 and sinceTime set), the time cursor applies instead.
// Never blocks; an empty result means nothing new.
func (r *SignalRepository) PollSince(ctx context.Context, tenantID, kind string, sinceVersion uint64, sinceTime time.Time, limit int) ([]models.TenantSignal, error) {
	if limit < 1 {
		limit = 100
	}

	q := r.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ?", tenantID, kind)
	if sinceVersion > 0 || sinceTime.IsZero() {
		q = q.Where("version > ?", sinceVersion)
	} else {
		q = q.Where("created_at > ?", sinceTime)
	}

	var signals []models.TenantSignal
	err := q.Order("version asc").Limit(limit).Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("poll signals: %w", err)
	}
	return signals, nil
}

// Trim drops signals older than the retention window. Run by the worker
// janitor; subscribers are expected to be far past the trimmed range.
func (r *SignalRepository) Trim(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&models.TenantSignal{})
	if res.Error != nil {
		return 0, fmt.Errorf("trim signals: %w", res.Error)
	}
	return res.RowsAffected, nil
}
