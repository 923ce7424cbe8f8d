package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/ZRainbow1275/LawClick-sub005/internal/queue"
	"github.com/ZRainbow1275/LawClick-sub005/internal/signals"
	"gorm.io/datatypes"
)

// Worker runs a claim/execute/settle loop over the configured tenants.
// Workers are fully independent: the engine's atomic claim is the only
// thing keeping two of them off the same job.
type Worker struct {
	ID         int
	engine     queue.ServiceInterface
	bus        *signals.Service
	handlers   map[string]HandlerFunc
	tenants    []string
	claimBatch int
	quit       chan struct{}
}

func NewWorker(id int, engine queue.ServiceInterface, bus *signals.Service, handlers map[string]HandlerFunc, tenants []string, claimBatch int) *Worker {
	if handlers == nil {
		handlers = DefaultHandlers()
	}
	return &Worker{
		ID:         id,
		engine:     engine,
		bus:        bus,
		handlers:   handlers,
		tenants:    tenants,
		claimBatch: claimBatch,
		quit:       make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		currentDelay := 1 * time.Second
		maxDelay := 60 * time.Second

		for {
			worked := false
			for _, tenant := range w.tenants {
				jobs, err := w.engine.Claim(ctx, tenant, w.claimBatch)
				if err != nil {
					log.Printf("[worker %d] claim failed for %s: %v", w.ID, tenant, err)
					continue
				}
				for _, job := range jobs {
					w.process(ctx, job)
					worked = true
				}
			}

			if worked {
				currentDelay = 1 * time.Second
			} else {
				currentDelay = min(currentDelay*2, maxDelay)
			}

			select {
			case <-time.After(currentDelay):
			case <-w.quit:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (w *Worker) process(ctx context.Context, job models.Job) {
	err := w.execute(ctx, job)
	if err != nil {
		if _, failErr := w.engine.Fail(ctx, job.TenantID, job.ID, err.Error()); failErr != nil {
			log.Printf("[worker %d] fail settle error for job %s: %v", w.ID, job.ID, failErr)
			return
		}
		w.emitChange(ctx, job, "failed")
		return
	}

	ok, err := w.engine.Complete(ctx, job.ID)
	if err != nil {
		log.Printf("[worker %d] complete settle error for job %s: %v", w.ID, job.ID, err)
		return
	}
	if !ok {
		// Lost ownership, most likely to the stale reclaimer. Whoever
		// claims the job next settles it.
		log.Printf("[worker %d] job %s no longer owned, skipping", w.ID, job.ID)
		return
	}
	w.emitChange(ctx, job, "completed")
}

func (w *Worker) execute(ctx context.Context, job models.Job) error {
	handler, ok := w.handlers[job.Type]
	if !ok {
		return fmt.Errorf("no handler registered for type %s", job.Type)
	}
	return handler(ctx, job.Payload)
}

// emitChange pushes a JOBS_CHANGED signal so connected clients learn about
// the terminal transition within one stream poll interval.
func (w *Worker) emitChange(ctx context.Context, job models.Job, outcome string) {
	if w.bus == nil {
		return
	}
	payload := datatypes.JSON(fmt.Sprintf(`{"job_id":%q,"type":%q,"outcome":%q}`, job.ID, job.Type, outcome))
	if _, err := w.bus.Touch(ctx, job.TenantID, config.SignalKindJobsChanged, payload); err != nil {
		log.Printf("[worker %d] signal emit failed for job %s: %v", w.ID, job.ID, err)
	}
}

func (w *Worker) Stop() { close(w.quit) }
