package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
	"github.com/ZRainbow1275/LawClick-sub005/internal/mocks"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/ZRainbow1275/LawClick-sub005/internal/signals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// fakeEngine records settle calls without a store behind it.
type fakeEngine struct {
	completeOK  bool
	completeErr error
	failCalls   []string
	completes   []string
}

func (f *fakeEngine) Enqueue(ctx context.Context, tenantID string, req *dto.EnqueueDTO) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeEngine) GetJob(ctx context.Context, tenantID, id string) (*dto.JobResponseDTO, error) {
	return nil, errors.New("not used")
}

func (f *fakeEngine) Claim(ctx context.Context, tenantID string, limit int) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeEngine) Complete(ctx context.Context, jobID string) (bool, error) {
	f.completes = append(f.completes, jobID)
	return f.completeOK, f.completeErr
}

func (f *fakeEngine) Fail(ctx context.Context, tenantID, jobID, errMsg string) (bool, error) {
	f.failCalls = append(f.failCalls, errMsg)
	return true, nil
}

func (f *fakeEngine) ReclaimStale(ctx context.Context, tenantID string) (int, error) {
	return 0, nil
}

func (f *fakeEngine) Cancel(ctx context.Context, tenantID, jobID string) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeEngine) Replay(ctx context.Context, tenantID, jobID string) (bool, error) {
	return false, errors.New("not used")
}

func testJob(jobType string, payload string) models.Job {
	return models.Job{
		ID:       "job-1",
		TenantID: "tenant-a",
		Type:     jobType,
		Payload:  datatypes.JSON(payload),
	}
}

func newTestWorker(engine *fakeEngine, bus *signals.Service, handlers map[string]HandlerFunc) *Worker {
	return NewWorker(1, engine, bus, handlers, []string{"tenant-a"}, 5)
}

func TestWorker_ProcessSuccessEmitsSignal(t *testing.T) {
	engine := &fakeEngine{completeOK: true}
	signalRepo := new(mocks.SignalRepoMock)
	signalRepo.On("Touch", mock.Anything, "tenant-a", config.SignalKindJobsChanged,
		mock.MatchedBy(func(p datatypes.JSON) bool {
			return string(p) != ""
		})).Return(uint64(1), nil)
	bus := signals.NewService(signalRepo)

	handlers := map[string]HandlerFunc{
		"NOOP": func(ctx context.Context, payload datatypes.JSON) error { return nil },
	}
	w := newTestWorker(engine, bus, handlers)

	w.process(context.Background(), testJob("NOOP", `{}`))

	assert.Equal(t, []string{"job-1"}, engine.completes)
	assert.Empty(t, engine.failCalls)
	signalRepo.AssertCalled(t, "Touch", mock.Anything, "tenant-a", config.SignalKindJobsChanged, mock.Anything)
}

func TestWorker_ProcessFailureSettlesWithError(t *testing.T) {
	engine := &fakeEngine{}
	signalRepo := new(mocks.SignalRepoMock)
	signalRepo.On("Touch", mock.Anything, "tenant-a", config.SignalKindJobsChanged, mock.Anything).
		Return(uint64(1), nil)
	bus := signals.NewService(signalRepo)

	handlers := map[string]HandlerFunc{
		"BOOM": func(ctx context.Context, payload datatypes.JSON) error {
			return errors.New("smtp timeout")
		},
	}
	w := newTestWorker(engine, bus, handlers)

	w.process(context.Background(), testJob("BOOM", `{}`))

	assert.Equal(t, []string{"smtp timeout"}, engine.failCalls)
	assert.Empty(t, engine.completes)
}

func TestWorker_UnknownTypeIsAFailure(t *testing.T) {
	engine := &fakeEngine{}
	w := newTestWorker(engine, nil, map[string]HandlerFunc{})

	w.process(context.Background(), testJob("UNKNOWN", `{}`))

	require.Len(t, engine.failCalls, 1)
	assert.Contains(t, engine.failCalls[0], "no handler registered")
}

func TestWorker_LostOwnershipEmitsNothing(t *testing.T) {
	engine := &fakeEngine{completeOK: false}
	signalRepo := new(mocks.SignalRepoMock)
	bus := signals.NewService(signalRepo)

	handlers := map[string]HandlerFunc{
		"NOOP": func(ctx context.Context, payload datatypes.JSON) error { return nil },
	}
	w := newTestWorker(engine, bus, handlers)

	w.process(context.Background(), testJob("NOOP", `{}`))

	signalRepo.AssertNotCalled(t, "Touch")
}

func TestWorker_StartStops(t *testing.T) {
	engine := &fakeEngine{}
	w := newTestWorker(engine, nil, map[string]HandlerFunc{})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
	w.Stop()
}
