package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Insert persists a new job. When another row already holds the same
// (tenant_id, idempotency_key) the insert is a silent no-op and the
// existing job's id is returned, so producers may retry enqueue freely.
func (r *JobRepository) Insert(ctx context.Context, job *models.Job) (string, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(job)
	if res.Error != nil {
		return "", fmt.Errorf("insert job: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return job.ID, nil
	}

	// Duplicate key: fetch the id the earlier enqueue produced.
	var existing models.Job
	err := r.db.WithContext(ctx).
		Select("id").
		Where("tenant_id = ? AND idempotency_key = ?", job.TenantID, job.IdempotencyKey).
		First(&existing).Error
	if err != nil {
		return "", fmt.Errorf("lookup existing job for idempotency key: %w", err)
	}
	slog.Debug("enqueue collapsed to existing job",
		"tenant", job.TenantID, "idempotency_key", job.IdempotencyKey, "job_id", existing.ID)
	return existing.ID, nil
}

// Get retrieves a single job by id scoped to its tenant.
func (r *JobRepository) Get(ctx context.Context, tenantID, id string) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// ClaimDue atomically claims up to limit due pending jobs for the tenant.
//
// Candidates are read in (priority, available_at) order, then each one is
// taken with a conditional UPDATE guarded on status = PENDING. A concurrent
// claimer that wins the row makes our update affect zero rows; we skip it
// and move to the next candidate. No in-memory locks, the store's atomic
// conditional update is the only synchronization primitive.
func (r *JobRepository) ClaimDue(ctx context.Context, tenantID string, limit int, now time.Time) ([]models.Job, error) {
	if limit < 1 {
		return nil, nil
	}

	var candidates []models.Job
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND available_at <= ?",
			tenantID, string(config.JobStatusPending), now).
		Order("priority asc, available_at asc").
		Limit(limit * 2).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("select claim candidates: %w", err)
	}

	claimed := make([]models.Job, 0, limit)
	for _, cand := range candidates {
		if len(claimed) >= limit {
			break
		}
		res := r.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND status = ?", cand.ID, string(config.JobStatusPending)).
			Updates(map[string]any{
				"status":     string(config.JobStatusProcessing),
				"locked_at":  now,
				"attempts":   gorm.Expr("attempts + ?", 1),
				"updated_at": now,
			})
		if res.Error != nil {
			return claimed, fmt.Errorf("claim job %s: %w", cand.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race to another worker; not an error.
			continue
		}
		cand.Status = string(config.JobStatusProcessing)
		lockedAt := now
		cand.LockedAt = &lockedAt
		cand.Attempts++
		cand.UpdatedAt = now
		claimed = append(claimed, cand)
	}
	return claimed, nil
}

// Complete transitions PROCESSING -> COMPLETED. Returns false when the job
// is no longer PROCESSING (a worker completing a job it lost to the stale
// reclaimer, or a double complete); callers treat that as lost-the-race.
func (r *JobRepository) Complete(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, string(config.JobStatusProcessing)).
		Updates(map[string]any{
			"status":     string(config.JobStatusCompleted),
			"last_error": nil,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("complete job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Requeue sends a PROCESSING job back to PENDING for a later retry.
// locked_at is cleared; the terminal transitions keep it so processing
// latency stays measurable as updated_at - locked_at.
func (r *JobRepository) Requeue(ctx context.Context, id string, nextRun time.Time, errMsg string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, string(config.JobStatusProcessing)).
		Updates(map[string]any{
			"status":       string(config.JobStatusPending),
			"available_at": nextRun,
			"locked_at":    nil,
			"last_error":   errMsg,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("requeue job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed transitions PROCESSING -> FAILED, terminal.
func (r *JobRepository) MarkFailed(ctx context.Context, id string, errMsg string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, string(config.JobStatusProcessing)).
		Updates(map[string]any{
			"status":     string(config.JobStatusFailed),
			"last_error": errMsg,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark job failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReclaimStale repairs jobs whose worker died mid-processing. Rows locked
// longer than lockTimeout go back to PENDING; rows that already burned
// attemptLimit claim attempts go to FAILED instead, which stops poison jobs
// from looping through reclaim forever. Each reclaim is logged as an
// operational event.
func (r *JobRepository) ReclaimStale(ctx context.Context, tenantID string, lockTimeout time.Duration, attemptLimit int, now time.Time) (int, error) {
	cutoff := now.Add(-lockTimeout)

	var stale []models.Job
	err := r.db.WithContext(ctx).
		Select("id", "attempts", "type").
		Where("tenant_id = ? AND status = ? AND locked_at < ?",
			tenantID, string(config.JobStatusProcessing), cutoff).
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("select stale jobs: %w", err)
	}

	reclaimed := 0
	for _, j := range stale {
		updates := map[string]any{"updated_at": now}
		if j.Attempts >= attemptLimit {
			updates["status"] = string(config.JobStatusFailed)
			updates["last_error"] = fmt.Sprintf("stale lock reclaimed %d times, giving up", j.Attempts)
		} else {
			updates["status"] = string(config.JobStatusPending)
			updates["locked_at"] = nil
			updates["available_at"] = now
		}

		res := r.db.WithContext(ctx).Model(&models.Job{}).
			Where("id = ? AND status = ? AND locked_at < ?",
				j.ID, string(config.JobStatusProcessing), cutoff).
			Updates(updates)
		if res.Error != nil {
			return reclaimed, fmt.Errorf("reclaim job %s: %w", j.ID, res.Error)
		}
		if res.RowsAffected > 0 {
			reclaimed++
			slog.Warn("reclaimed stale job",
				"tenant", tenantID, "job_id", j.ID, "type", j.Type, "attempts", j.Attempts,
				"terminal", j.Attempts >= attemptLimit)
		}
	}
	return reclaimed, nil
}

// Cancel is the operator path: a PENDING or PROCESSING job goes to FAILED
// with the sentinel error, which the health snapshot excludes from alerting.
func (r *JobRepository) Cancel(ctx context.Context, tenantID, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("tenant_id = ? AND id = ? AND status IN ?",
			tenantID, id,
			[]string{string(config.JobStatusPending), string(config.JobStatusProcessing)}).
		Updates(map[string]any{
			"status":     string(config.JobStatusFailed),
			"last_error": config.CancelSentinel,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("cancel job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Replay re-enters a terminal FAILED job into the pipeline. Explicit
// operator action is the only way a FAILED job runs again.
func (r *JobRepository) Replay(ctx context.Context, tenantID, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("tenant_id = ? AND id = ? AND status = ?",
			tenantID, id, string(config.JobStatusFailed)).
		Updates(map[string]any{
			"status":       string(config.JobStatusPending),
			"available_at": now,
			"locked_at":    nil,
			"last_error":   nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("replay job: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
