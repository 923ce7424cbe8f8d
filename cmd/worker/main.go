package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	appconfig "github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
	"github.com/ZRainbow1275/LawClick-sub005/internal/pool"
	"github.com/ZRainbow1275/LawClick-sub005/internal/queue"
	"github.com/ZRainbow1275/LawClick-sub005/internal/signals"
	"github.com/ZRainbow1275/LawClick-sub005/internal/storage/postgres"
	"github.com/robfig/cron/v3"
)

func main() {
	log.Println("Starting Worker...")

	ctx := context.Background()

	appCfg, err := appconfig.LoadApp(ctx)
	if err != nil {
		log.Fatal("Failed to load app config:", err)
	}

	dbCfg, err := postgres.LoadConfigFromEnv(ctx)
	if err != nil {
		log.Fatal("Failed to load db config:", err)
	}

	db, err := postgres.ConnectDB(ctx, dbCfg)
	if err != nil {
		log.Fatal("Connection failed:", err)
	}
	log.Println("Database connected")

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to unwrap sql.DB:", err)
	}
	if err := postgres.Migrate(sqlDB); err != nil {
		log.Fatal("Migration failed:", err)
	}

	jobRepo := postgres.NewJobRepository(db)
	signalRepo := postgres.NewSignalRepository(db)

	engine := queue.NewService(jobRepo, queue.NewPolicyRegistry(), appCfg.LockTimeout, appCfg.StaleReclaimLimit)
	bus := signals.NewService(signalRepo)

	maxWorkers := 10
	if v, err := strconv.Atoi(os.Getenv("MAX_WORKERS")); err == nil && v > 0 {
		maxWorkers = v
	}

	workerPool := pool.NewWorkerPool(maxWorkers, engine, bus, appCfg.Tenants, appCfg.ClaimBatch)
	workerPool.Start()

	// The janitor: stale-lock reclaim every minute, signal retention
	// hourly, and the nightly maintenance job. The date-derived
	// idempotency key makes the nightly enqueue restart-safe.
	janitor := cron.New()
	janitor.AddFunc("@every 1m", func() {
		for _, tenant := range appCfg.Tenants {
			n, err := engine.ReclaimStale(ctx, tenant)
			if err != nil {
				log.Printf("[janitor] reclaim failed for %s: %v", tenant, err)
				continue
			}
			if n > 0 {
				log.Printf("[janitor] reclaimed %d stale jobs for %s", n, tenant)
			}
		}
	})
	janitor.AddFunc("@hourly", func() {
		n, err := bus.Trim(ctx, time.Now().Add(-appCfg.SignalRetention))
		if err != nil {
			log.Printf("[janitor] signal trim failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[janitor] trimmed %d old signals", n)
		}
	})
	janitor.AddFunc("@daily", func() {
		day := time.Now().UTC().Format("2006-01-02")
		payload, _ := json.Marshal(dto.MaintenancePayload{Task: "nightly-cleanup"})
		for _, tenant := range appCfg.Tenants {
			req := &dto.EnqueueDTO{
				Type:           appconfig.JobTypeMaintenance,
				IdempotencyKey: fmt.Sprintf("maintenance/%s", day),
				Priority:       50,
				Payload:        payload,
			}
			if _, err := engine.Enqueue(ctx, tenant, req); err != nil {
				log.Printf("[janitor] maintenance enqueue failed for %s: %v", tenant, err)
			}
		}
	})
	janitor.Start()

	log.Println("Worker pool active. Press Ctrl+C to stop.")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	janitor.Stop()
	workerPool.Stop()
	log.Println("Shutdown complete.")
}
