package mocks

import (
	"context"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/stretchr/testify/mock"
)

type JobRepoMock struct {
	mock.Mock
}

func (m *JobRepoMock) Insert(ctx context.Context, job *models.Job) (string, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.Error(1)
}

func (m *JobRepoMock) Get(ctx context.Context, tenantID, id string) (*models.Job, error) {
	args := m.Called(ctx, tenantID, id)

	job, _ := args.Get(0).(*models.Job)
	return job, args.Error(1)
}

func (m *JobRepoMock) ClaimDue(ctx context.Context, tenantID string, limit int, now time.Time) ([]models.Job, error) {
	args := m.Called(ctx, tenantID, limit, now)

	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *JobRepoMock) Complete(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) Requeue(ctx context.Context, id string, nextRun time.Time, errMsg string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, nextRun, errMsg, now)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) MarkFailed(ctx context.Context, id string, errMsg string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, errMsg, now)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) ReclaimStale(ctx context.Context, tenantID string, lockTimeout time.Duration, attemptLimit int, now time.Time) (int, error) {
	args := m.Called(ctx, tenantID, lockTimeout, attemptLimit, now)
	return args.Int(0), args.Error(1)
}

func (m *JobRepoMock) Cancel(ctx context.Context, tenantID, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *JobRepoMock) Replay(ctx context.Context, tenantID, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, id, now)
	return args.Bool(0), args.Error(1)
}
