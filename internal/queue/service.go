package queue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/common"
	"github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the job queue engine. It owns validation and retry policy;
// all concurrency correctness is delegated to the repository's atomic
// conditional updates.
type Service struct {
	repo              JobRepoInterface
	policies          *PolicyRegistry
	lockTimeout       time.Duration
	staleReclaimLimit int
	now               func() time.Time
}

func NewService(repo JobRepoInterface, policies *PolicyRegistry, lockTimeout time.Duration, staleReclaimLimit int) *Service {
	if policies == nil {
		policies = NewPolicyRegistry()
	}
	return &Service{
		repo:              repo,
		policies:          policies,
		lockTimeout:       lockTimeout,
		staleReclaimLimit: staleReclaimLimit,
		now:               time.Now,
	}
}

var _ ServiceInterface = (*Service)(nil)

// Enqueue validates the request, then inserts. Duplicate idempotency keys
// collapse to success with the existing job's id, so producer retries are
// always safe.
func (s *Service) Enqueue(ctx context.Context, tenantID string, req *dto.EnqueueDTO) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", common.Errf(http.StatusRequestTimeout, "request canceled or timed out")
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return "", common.ErrValidation("idempotency_key must not be empty")
	}
	if len(key) > config.MaxIdempotencyKeyLen {
		return "", common.ErrValidation("idempotency_key exceeds %d chars", config.MaxIdempotencyKeyLen)
	}

	if !slices.Contains(config.AllowedJobTypes, req.Type) {
		return "", common.NewAPIError(
			http.StatusBadRequest,
			"invalid job type",
			map[string]any{
				"provided": req.Type,
				"allowed":  config.AllowedJobTypes,
			},
		)
	}

	if !json.Valid(req.Payload) {
		return "", common.ErrValidation("payload must be valid JSON")
	}
	if err := validateTypedPayload(req.Type, req.Payload); err != nil {
		return "", err
	}

	now := s.now()
	availableAt := now
	if req.AvailableAt != nil {
		availableAt = *req.AvailableAt
	}

	job := models.Job{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Type:           req.Type,
		IdempotencyKey: key,
		Priority:       req.Priority,
		Payload:        datatypes.JSON(req.Payload),
		Status:         string(config.JobStatusPending),
		AvailableAt:    availableAt,
	}

	id, err := s.repo.Insert(ctx, &job)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", common.Errf(http.StatusRequestTimeout, "request timed out")
		default:
			return "", common.Errf(http.StatusInternalServerError, "failed to enqueue job")
		}
	}
	return id, nil
}

// GetJob retrieves a job scoped to the tenant.
func (s *Service) GetJob(ctx context.Context, tenantID, id string) (*dto.JobResponseDTO, error) {
	job, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.Errf(http.StatusNotFound, "job not found")
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
		}
		return nil, common.Errf(http.StatusInternalServerError, "failed to get job")
	}

	return &dto.JobResponseDTO{
		ID:             job.ID,
		TenantID:       job.TenantID,
		Type:           job.Type,
		IdempotencyKey: job.IdempotencyKey,
		Priority:       job.Priority,
		Payload:        json.RawMessage(job.Payload),
		Status:         job.Status,
		AvailableAt:    job.AvailableAt,
		LockedAt:       job.LockedAt,
		Attempts:       job.Attempts,
		LastError:      job.LastError,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}, nil
}

// Claim hands out up to limit due jobs. Never blocks; an empty slice means
// nothing is due and the caller controls its own poll cadence.
func (s *Service) Claim(ctx context.Context, tenantID string, limit int) ([]models.Job, error) {
	return s.repo.ClaimDue(ctx, tenantID, limit, s.now())
}

// Complete marks a PROCESSING job done. False means the worker no longer
// owns the job (stale reclaim or double complete) — not an error.
func (s *Service) Complete(ctx context.Context, jobID string) (bool, error) {
	return s.repo.Complete(ctx, jobID, s.now())
}

// Fail applies the job type's retry policy: requeue with backoff while
// attempts remain, terminal FAILED once they are exhausted.
func (s *Service) Fail(ctx context.Context, tenantID, jobID, errMsg string) (bool, error) {
	job, err := s.repo.Get(ctx, tenantID, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	now := s.now()
	policy := s.policies.For(job.Type)
	if job.Attempts < policy.MaxAttempts {
		nextRun := now.Add(policy.Backoff(job.Attempts))
		return s.repo.Requeue(ctx, jobID, nextRun, errMsg, now)
	}
	return s.repo.MarkFailed(ctx, jobID, errMsg, now)
}

// ReclaimStale is the queue's timeout mechanism for workers that died
// mid-job.
func (s *Service) ReclaimStale(ctx context.Context, tenantID string) (int, error) {
	return s.repo.ReclaimStale(ctx, tenantID, s.lockTimeout, s.staleReclaimLimit, s.now())
}

// Cancel is an operator action; the sentinel keeps it out of alerting.
func (s *Service) Cancel(ctx context.Context, tenantID, jobID string) (bool, error) {
	return s.repo.Cancel(ctx, tenantID, jobID, s.now())
}

// Replay re-enters a FAILED job into the pipeline.
func (s *Service) Replay(ctx context.Context, tenantID, jobID string) (bool, error) {
	return s.repo.Replay(ctx, tenantID, jobID, s.now())
}

func validateTypedPayload(jobType string, raw json.RawMessage) error {
	switch jobType {
	case config.JobTypeSendEmail:
		return validatePayload[dto.SendEmailPayload](raw)
	case config.JobTypeSendNotification:
		return validatePayload[dto.SendNotificationPayload](raw)
	case config.JobTypeMaintenance:
		return validatePayload[dto.MaintenancePayload](raw)
	}
	return nil
}
