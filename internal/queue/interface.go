package queue

import (
	"context"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
)

// JobRepoInterface defines the store contract the queue engine rests on.
// Claim, Complete, Requeue, MarkFailed and friends are atomic conditional
// updates reporting affected rows; "zero rows" means lost the race, never
// an error.
type JobRepoInterface interface {
	Insert(ctx context.Context, job *models.Job) (string, error)
	Get(ctx context.Context, tenantID, id string) (*models.Job, error)
	ClaimDue(ctx context.Context, tenantID string, limit int, now time.Time) ([]models.Job, error)
	Complete(ctx context.Context, id string, now time.Time) (bool, error)
	Requeue(ctx context.Context, id string, nextRun time.Time, errMsg string, now time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, errMsg string, now time.Time) (bool, error)
	ReclaimStale(ctx context.Context, tenantID string, lockTimeout time.Duration, attemptLimit int, now time.Time) (int, error)
	Cancel(ctx context.Context, tenantID, id string, now time.Time) (bool, error)
	Replay(ctx context.Context, tenantID, id string, now time.Time) (bool, error)
}

// ServiceInterface is the engine surface producers, workers and operators
// consume.
type ServiceInterface interface {
	Enqueue(ctx context.Context, tenantID string, req *dto.EnqueueDTO) (string, error)
	GetJob(ctx context.Context, tenantID, id string) (*dto.JobResponseDTO, error)
	Claim(ctx context.Context, tenantID string, limit int) ([]models.Job, error)
	Complete(ctx context.Context, jobID string) (bool, error)
	Fail(ctx context.Context, tenantID, jobID, errMsg string) (bool, error)
	ReclaimStale(ctx context.Context, tenantID string) (int, error)
	Cancel(ctx context.Context, tenantID, jobID string) (bool, error)
	Replay(ctx context.Context, tenantID, jobID string) (bool, error)
}
