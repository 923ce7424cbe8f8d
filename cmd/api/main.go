package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "github.com/ZRainbow1275/LawClick-sub005/internal/config"
	"github.com/ZRainbow1275/LawClick-sub005/internal/health"
	"github.com/ZRainbow1275/LawClick-sub005/internal/queue"
	"github.com/ZRainbow1275/LawClick-sub005/internal/signals"
	"github.com/ZRainbow1275/LawClick-sub005/internal/storage/postgres"
	"github.com/ZRainbow1275/LawClick-sub005/internal/stream"
	"github.com/ZRainbow1275/LawClick-sub005/middleware"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("Starting API...")

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

	policies := queue.NewPolicyRegistry()
	engine := queue.NewService(jobRepo, policies, appCfg.LockTimeout, appCfg.StaleReclaimLimit)
	bus := signals.NewService(signalRepo)
	snapshots := health.NewService(jobRepo, appCfg.LockTimeout)
	streamer := stream.NewStreamer(bus)

	limiter := middleware.NewRateLimiter(appCfg.RateLimitPerSecond, appCfg.RateLimitBurst)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/v1")
	v1.Use(middleware.TenantAuth(nil))

	queue.NewHandler(engine).RegisterRoutes(v1)
	signals.NewHandler(bus).RegisterRoutes(v1)

	limited := v1.Group("")
	limited.Use(middleware.RateLimit(limiter))
	health.NewHandler(snapshots).RegisterRoutes(limited)
	stream.NewHandler(streamer, stream.Config{
		PollDefault: appCfg.StreamPollDefault,
		PollMin:     appCfg.StreamPollMin,
		PollMax:     appCfg.StreamPollMax,
		Heartbeat:   appCfg.StreamHeartbeat,
		PollLimit:   appCfg.StreamPollLimit,
	}).RegisterRoutes(limited)

	srv := &http.Server{
		Addr:    appCfg.APIAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed:", err)
		}
	}()
	log.Println("API listening on", appCfg.APIAddr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("Shutdown error:", err)
	}
	log.Println("Shutdown complete.")
}
