package health

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/storage/postgres"
)

// failureWindow is the trailing window for failure and throughput stats.
const failureWindow = 24 * time.Hour

// Aggregator is the read-only slice of the job repository the snapshot
// consumes. The store does the heavy aggregation (including percentiles);
// this service only reshapes and validates its output.
type Aggregator interface {
	CountDuePending(ctx context.Context, tenantID string, now time.Time) (int64, error)
	CountScheduledPending(ctx context.Context, tenantID string, now time.Time) (int64, error)
	OldestDuePending(ctx context.Context, tenantID string, now time.Time) (*time.Time, error)
	CountStaleProcessing(ctx context.Context, tenantID string, lockTimeout time.Duration, now time.Time) (int64, error)
	CountFailedSince(ctx context.Context, tenantID string, since time.Time) (int64, error)
	LatestFailure(ctx context.Context, tenantID string, since time.Time) (*postgres.FailureInfo, error)
	ProcessingStats(ctx context.Context, tenantID string, since time.Time) (*postgres.ProcessingAggregates, error)
}

// Snapshot is the point-in-time observability report for one tenant's
// queue. Fields are null, not zero, when there is no qualifying data.
type Snapshot struct {
	TenantID    string    `json:"tenant_id"`
	GeneratedAt time.Time `json:"generated_at"`

	DuePending       int64 `json:"due_pending"`
	ScheduledPending int64 `json:"scheduled_pending"`

	OldestDuePendingAt         *time.Time `json:"oldest_due_pending_at"`
	OldestDuePendingAgeSeconds *float64   `json:"oldest_due_pending_age_seconds"`

	StaleProcessing int64 `json:"stale_processing"`

	Failed24h     int64          `json:"failed_24h"`
	LatestFailure *FailureReport `json:"latest_failure"`

	Processing24h *ProcessingReport `json:"processing_24h"`
}

type FailureReport struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// ProcessingReport covers jobs that reached a terminal status with a known
// locked_at in the trailing 24h.
type ProcessingReport struct {
	Total       int64    `json:"total"`
	Completed   int64    `json:"completed"`
	Failed      int64    `json:"failed"`
	FailureRate float64  `json:"failure_rate"`
	MeanSeconds *float64 `json:"mean_seconds"`
	P50Seconds  *float64 `json:"p50_seconds"`
	P95Seconds  *float64 `json:"p95_seconds"`
}

// Service computes snapshots. Read-only; never mutates queue state.
type Service struct {
	agg         Aggregator
	lockTimeout time.Duration
}

func NewService(agg Aggregator, lockTimeout time.Duration) *Service {
	return &Service{agg: agg, lockTimeout: lockTimeout}
}

// ComputeSnapshot builds the full report for one tenant as of now.
func (s *Service) ComputeSnapshot(ctx context.Context, tenantID string, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{TenantID: tenantID, GeneratedAt: now}
	since := now.Add(-failureWindow)

	duePending, err := s.agg.CountDuePending(ctx, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("due pending: %w", err)
	}
	snap.DuePending = clampCount(duePending)

	scheduled, err := s.agg.CountScheduledPending(ctx, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("scheduled pending: %w", err)
	}
	snap.ScheduledPending = clampCount(scheduled)

	oldest, err := s.agg.OldestDuePending(ctx, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("oldest due pending: %w", err)
	}
	if oldest != nil {
		snap.OldestDuePendingAt = oldest
		age := round2(clampSeconds(now.Sub(*oldest).Seconds()))
		snap.OldestDuePendingAgeSeconds = &age
	}

	stale, err := s.agg.CountStaleProcessing(ctx, tenantID, s.lockTimeout, now)
	if err != nil {
		return nil, fmt.Errorf("stale processing: %w", err)
	}
	snap.StaleProcessing = clampCount(stale)

	failed, err := s.agg.CountFailedSince(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("failed 24h: %w", err)
	}
	snap.Failed24h = clampCount(failed)

	latest, err := s.agg.LatestFailure(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("latest failure: %w", err)
	}
	if latest != nil {
		snap.LatestFailure = &FailureReport{At: latest.At, Message: latest.Message}
	}

	stats, err := s.agg.ProcessingStats(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("processing stats: %w", err)
	}
	if stats != nil && stats.Total > 0 {
		report := &ProcessingReport{
			Total:       clampCount(stats.Total),
			Completed:   clampCount(stats.Completed),
			Failed:      clampCount(stats.Failed),
			MeanSeconds: sanitizeSeconds(stats.MeanSeconds),
			P50Seconds:  sanitizeSeconds(stats.P50Seconds),
			P95Seconds:  sanitizeSeconds(stats.P95Seconds),
		}
		report.FailureRate = round2(float64(report.Failed) / float64(report.Total))
		snap.Processing24h = report
	}

	return snap, nil
}

// The aggregation source can hand back negative or non-finite numbers
// depending on the store's numeric representation; clamp and round before
// anything leaves the server.

func clampCount(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func clampSeconds(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sanitizeSeconds(v sql.NullFloat64) *float64 {
	if !v.Valid || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
		return nil
	}
	out := round2(clampSeconds(v.Float64))
	return &out
}
