package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// seedTerminalJob inserts a job already in a terminal state with a fixed
// processing window. Timestamps go in through raw SQL so gorm does not
// overwrite updated_at.
func seedTerminalJob(t *testing.T, db *gorm.DB, tenantID, status string, lockedAt, updatedAt time.Time, lastError *string) string {
	t.Helper()
	id := uuid.NewString()
	err := db.Exec(`INSERT INTO jobs
		(id, tenant_id, type, idempotency_key, priority, payload, status, available_at, locked_at, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, '{}', ?, ?, ?, 1, ?, ?, ?)`,
		id, tenantID, config.JobTypeSendEmail, uuid.NewString(), status,
		lockedAt, lockedAt, lastError, lockedAt, updatedAt).Error
	require.NoError(t, err)
	return id
}

func TestJobRepository_PendingCounts(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now()

	oldest := now.Add(-10 * time.Minute)
	for _, at := range []time.Time{oldest, now.Add(-time.Minute), now.Add(time.Hour)} {
		_, err := repo.Insert(ctx, newTestJob("tenant-a", uuid.NewString(), 0, at))
		require.NoError(t, err)
	}
	_, err := repo.Insert(ctx, newTestJob("tenant-b", uuid.NewString(), 0, oldest))
	require.NoError(t, err)

	due, err := repo.CountDuePending(ctx, "tenant-a", now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, due)

	scheduled, err := repo.CountScheduledPending(ctx, "tenant-a", now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, scheduled)

	at, err := repo.OldestDuePending(ctx, "tenant-a", now)
	require.NoError(t, err)
	require.NotNil(t, at)
	assert.WithinDuration(t, oldest, *at, time.Second)
}

func TestJobRepository_OldestDuePending_EmptyBacklog(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)

	at, err := repo.OldestDuePending(context.Background(), "tenant-a", time.Now())
	require.NoError(t, err)
	assert.Nil(t, at)
}

func TestJobRepository_CountStaleProcessing(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now()
	lockTimeout := 5 * time.Minute

	for _, j := range []*models.Job{
		newTestJob("tenant-a", "a", 0, now.Add(-time.Hour)),
		newTestJob("tenant-a", "b", 0, now.Add(-time.Hour)),
	} {
		_, err := repo.Insert(ctx, j)
		require.NoError(t, err)
	}
	claimed, err := repo.ClaimDue(ctx, "tenant-a", 2, now)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	require.NoError(t, db.Exec("UPDATE jobs SET locked_at = ? WHERE id = ?",
		now.Add(-10*time.Minute), claimed[0].ID).Error)

	stale, err := repo.CountStaleProcessing(ctx, "tenant-a", lockTimeout, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stale)
}

func TestJobRepository_FailureWindowExcludesOperatorCancels(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	realErr := "smtp rejected"
	cancelMsg := config.CancelSentinel
	oldErr := "ancient failure"

	seedTerminalJob(t, db, "tenant-a", string(config.JobStatusFailed),
		now.Add(-2*time.Hour), now.Add(-time.Hour), &realErr)
	seedTerminalJob(t, db, "tenant-a", string(config.JobStatusFailed),
		now.Add(-3*time.Hour), now.Add(-30*time.Minute), &cancelMsg)
	seedTerminalJob(t, db, "tenant-a", string(config.JobStatusFailed),
		now.Add(-48*time.Hour), now.Add(-40*time.Hour), &oldErr)

	n, err := repo.CountFailedSince(ctx, "tenant-a", since)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	latest, err := repo.LatestFailure(ctx, "tenant-a", since)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, realErr, latest.Message)
}

func TestJobRepository_LatestFailure_NoneInWindow(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)

	latest, err := repo.LatestFailure(context.Background(), "tenant-a", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestJobRepository_ProcessingStats(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()
	now := time.Now()
	since := now.Add(-24 * time.Hour)

	failMsg := "boom"
	// Latencies: 10s, 20s, 30s, 40s. Mean 25, p50 = 20 (nearest rank of
	// 0.5*4), p95 = 40.
	for i, latency := range []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second} {
		locked := now.Add(-time.Duration(i+1) * time.Hour)
		seedTerminalJob(t, db, "tenant-a", string(config.JobStatusCompleted),
			locked, locked.Add(latency), nil)
	}
	locked := now.Add(-4 * time.Hour)
	seedTerminalJob(t, db, "tenant-a", string(config.JobStatusFailed),
		locked, locked.Add(40*time.Second), &failMsg)

	// Outside the window and outside the tenant: both invisible.
	oldLocked := now.Add(-48 * time.Hour)
	seedTerminalJob(t, db, "tenant-a", string(config.JobStatusCompleted),
		oldLocked, oldLocked.Add(5*time.Second), nil)
	seedTerminalJob(t, db, "tenant-b", string(config.JobStatusCompleted),
		now.Add(-time.Hour), now.Add(-time.Hour).Add(5*time.Second), nil)

	stats, err := repo.ProcessingStats(ctx, "tenant-a", since)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.Total)
	assert.EqualValues(t, 3, stats.Completed)
	assert.EqualValues(t, 1, stats.Failed)

	require.True(t, stats.MeanSeconds.Valid)
	assert.InDelta(t, 25.0, stats.MeanSeconds.Float64, 0.5)
	require.True(t, stats.P50Seconds.Valid)
	assert.InDelta(t, 20.0, stats.P50Seconds.Float64, 0.5)
	require.True(t, stats.P95Seconds.Valid)
	assert.InDelta(t, 40.0, stats.P95Seconds.Float64, 0.5)
}

func TestJobRepository_ProcessingStats_EmptyWindow(t *testing.T) {
	db := SetupTestDB(t)
	repo := NewJobRepository(db)

	stats, err := repo.ProcessingStats(context.Background(), "tenant-a", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Total)
	assert.False(t, stats.MeanSeconds.Valid)
	assert.False(t, stats.P50Seconds.Valid)
	assert.False(t, stats.P95Seconds.Valid)
}
