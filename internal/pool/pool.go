package pool

import (
	"context"
	"log"

	"github.com/ZRainbow1275/LawClick-sub005/internal/queue"
	"github.com/ZRainbow1275/LawClick-sub005/internal/signals"
	"github.com/ZRainbow1275/LawClick-sub005/internal/worker"
)

// WorkerPool runs a fixed set of independent claim loops. Reclaiming stale
// locks is the janitor's job (scheduled in cmd/worker), not the pool's.
type WorkerPool struct {
	workers []*worker.Worker
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorkerPool(count int, engine queue.ServiceInterface, bus *signals.Service, tenants []string, claimBatch int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{ctx: ctx, cancel: cancel}

	handlers := worker.DefaultHandlers()
	for i := 1; i <= count; i++ {
		p.workers = append(p.workers, worker.NewWorker(i, engine, bus, handlers, tenants, claimBatch))
	}
	return p
}

func (p *WorkerPool) Start() {
	for _, w := range p.workers {
		w.Start(p.ctx)
	}
	log.Printf("worker pool started with %d workers", len(p.workers))
}

func (p *WorkerPool) Stop() {
	p.cancel()
	for _, w := range p.workers {
		w.Stop()
	}
}
