package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"gorm.io/gorm"
)

// Read-only aggregate queries backing the queue health snapshot. The
// percentile work happens in the store (percentile_cont on Postgres, an
// ordered OFFSET selection on sqlite); nothing here scans individual rows
// in process memory.

// FailureInfo is the most recent non-cancelled failure.
type FailureInfo struct {
	At      time.Time
	Message string
}

// ProcessingAggregates summarizes jobs that reached a terminal status with
// a known locked_at inside the window. Null-able fields stay null when no
// qualifying data exists.
type ProcessingAggregates struct {
	Total       int64
	Completed   int64
	Failed      int64
	MeanSeconds sql.NullFloat64
	P50Seconds  sql.NullFloat64
	P95Seconds  sql.NullFloat64
}

func (r *JobRepository) CountDuePending(ctx context.Context, tenantID string, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("tenant_id = ? AND status = ? AND available_at <= ?",
			tenantID, string(config.JobStatusPending), now).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count due pending: %w", err)
	}
	return n, nil
}

func (r *JobRepository) CountScheduledPending(ctx context.Context, tenantID string, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("tenant_id = ? AND status = ? AND available_at > ?",
			tenantID, string(config.JobStatusPending), now).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count scheduled pending: %w", err)
	}
	return n, nil
}

// OldestDuePending returns the earliest available_at among due pending
// jobs, or nil when the due backlog is empty.
func (r *JobRepository) OldestDuePending(ctx context.Context, tenantID string, now time.Time) (*time.Time, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Select("available_at").
		Where("tenant_id = ? AND status = ? AND available_at <= ?",
			tenantID, string(config.JobStatusPending), now).
		Order("available_at asc").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("oldest due pending: %w", err)
	}
	at := job.AvailableAt
	return &at, nil
}

func (r *JobRepository) CountStaleProcessing(ctx context.Context, tenantID string, lockTimeout time.Duration, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("tenant_id = ? AND status = ? AND locked_at < ?",
			tenantID, string(config.JobStatusProcessing), now.Add(-lockTimeout)).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count stale processing: %w", err)
	}
	return n, nil
}

// CountFailedSince counts failures in the window, excluding jobs carrying
// the operator-cancel sentinel.
func (r *JobRepository) CountFailedSince(ctx context.Context, tenantID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("tenant_id = ? AND status = ? AND updated_at >= ? AND (last_error IS NULL OR last_error <> ?)",
			tenantID, string(config.JobStatusFailed), since, config.CancelSentinel).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count failed since: %w", err)
	}
	return n, nil
}

func (r *JobRepository) LatestFailure(ctx context.Context, tenantID string, since time.Time) (*FailureInfo, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Select("updated_at", "last_error").
		Where("tenant_id = ? AND status = ? AND updated_at >= ? AND (last_error IS NULL OR last_error <> ?)",
			tenantID, string(config.JobStatusFailed), since, config.CancelSentinel).
		Order("updated_at desc").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest failure: %w", err)
	}
	info := FailureInfo{At: job.UpdatedAt}
	if job.LastError != nil {
		info.Message = *job.LastError
	}
	return &info, nil
}

// durationExpr is the per-job processing latency (updated_at - locked_at)
// in seconds, spelled in the backing store's dialect.
func (r *JobRepository) durationExpr() string {
	if r.db.Dialector.Name() == "postgres" {
		return "EXTRACT(EPOCH FROM (updated_at - locked_at))"
	}
	return "(julianday(updated_at) - julianday(locked_at)) * 86400.0"
}

// ProcessingStats aggregates terminal jobs inside the window that have a
// known locked_at. Counts and mean come from one aggregate round trip, the
// two percentiles from store-side percentile computation.
func (r *JobRepository) ProcessingStats(ctx context.Context, tenantID string, since time.Time) (*ProcessingAggregates, error) {
	dur := r.durationExpr()
	terminal := []string{string(config.JobStatusCompleted), string(config.JobStatusFailed)}

	var agg struct {
		Total       int64
		Completed   sql.NullFloat64
		Failed      sql.NullFloat64
		MeanSeconds sql.NullFloat64
	}
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select(fmt.Sprintf(`COUNT(*) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed,
			AVG(%s) AS mean_seconds`, dur),
			string(config.JobStatusCompleted), string(config.JobStatusFailed)).
		Where("tenant_id = ? AND status IN ? AND updated_at >= ? AND locked_at IS NOT NULL",
			tenantID, terminal, since).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("processing aggregates: %w", err)
	}

	out := &ProcessingAggregates{
		Total:       agg.Total,
		MeanSeconds: agg.MeanSeconds,
	}
	if agg.Completed.Valid && !math.IsNaN(agg.Completed.Float64) {
		out.Completed = int64(agg.Completed.Float64)
	}
	if agg.Failed.Valid && !math.IsNaN(agg.Failed.Float64) {
		out.Failed = int64(agg.Failed.Float64)
	}
	if out.Total == 0 {
		return out, nil
	}

	p50, err := r.percentile(ctx, tenantID, since, terminal, 0.50, out.Total)
	if err != nil {
		return nil, err
	}
	p95, err := r.percentile(ctx, tenantID, since, terminal, 0.95, out.Total)
	if err != nil {
		return nil, err
	}
	out.P50Seconds = p50
	out.P95Seconds = p95
	return out, nil
}

func (r *JobRepository) percentile(ctx context.Context, tenantID string, since time.Time, terminal []string, q float64, total int64) (sql.NullFloat64, error) {
	dur := r.durationExpr()
	var val sql.NullFloat64

	if r.db.Dialector.Name() == "postgres" {
		err := r.db.WithContext(ctx).Model(&models.Job{}).
			Select(fmt.Sprintf("percentile_cont(?) WITHIN GROUP (ORDER BY %s)", dur), q).
			Where("tenant_id = ? AND status IN ? AND updated_at >= ? AND locked_at IS NOT NULL",
				tenantID, terminal, since).
			Scan(&val).Error
		if err != nil {
			return val, fmt.Errorf("percentile_cont: %w", err)
		}
		return val, nil
	}

	// Nearest-rank fallback for stores without analytic aggregates.
	offset := int64(math.Ceil(q*float64(total))) - 1
	if offset < 0 {
		offset = 0
	}
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Select(fmt.Sprintf("%s AS seconds", dur)).
		Where("tenant_id = ? AND status IN ? AND updated_at >= ? AND locked_at IS NOT NULL",
			tenantID, terminal, since).
		Order("seconds asc").
		Offset(int(offset)).
		Limit(1).
		Scan(&val).Error
	if err != nil {
		return val, fmt.Errorf("percentile by rank: %w", err)
	}
	return val, nil
}
