package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// App carries the tunables of the background core. Everything has a default
// so a bare environment still boots; production overrides via env.
type App struct {
	APIAddr string `env:"API_ADDR,default=:8080"`

	// Queue engine.
	LockTimeout       time.Duration `env:"QUEUE_LOCK_TIMEOUT,default=5m"`
	StaleReclaimLimit int           `env:"QUEUE_STALE_RECLAIM_LIMIT,default=5"`
	ClaimBatch        int           `env:"QUEUE_CLAIM_BATCH,default=5"`

	// Realtime stream.
	StreamPollDefault time.Duration `env:"STREAM_POLL_DEFAULT,default=2s"`
	StreamPollMin     time.Duration `env:"STREAM_POLL_MIN,default=1s"`
	StreamPollMax     time.Duration `env:"STREAM_POLL_MAX,default=10s"`
	StreamHeartbeat   time.Duration `env:"STREAM_HEARTBEAT,default=15s"`
	StreamPollLimit   int           `env:"STREAM_POLL_LIMIT,default=100"`

	// Per-tenant-per-user rate limit on the stream and health endpoints.
	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND,default=5"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST,default=10"`

	// Signal retention enforced by the worker janitor.
	SignalRetention time.Duration `env:"SIGNAL_RETENTION,default=168h"`

	// Tenants the worker binary claims for.
	Tenants []string `env:"WORKER_TENANTS,default=default"`
}

func LoadApp(ctx context.Context) (*App, error) {
	var cfg App
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *App) validate() error {
	if c.LockTimeout <= 0 {
		return fmt.Errorf("QUEUE_LOCK_TIMEOUT must be positive")
	}
	if c.StaleReclaimLimit < 1 {
		return fmt.Errorf("QUEUE_STALE_RECLAIM_LIMIT must be at least 1")
	}
	if c.ClaimBatch < 1 {
		return fmt.Errorf("QUEUE_CLAIM_BATCH must be at least 1")
	}
	if c.StreamPollMin <= 0 || c.StreamPollMax < c.StreamPollMin {
		return fmt.Errorf("stream poll bounds are inverted")
	}
	if c.StreamPollDefault < c.StreamPollMin || c.StreamPollDefault > c.StreamPollMax {
		return fmt.Errorf("STREAM_POLL_DEFAULT must sit within the poll bounds")
	}
	if c.StreamHeartbeat <= 0 {
		return fmt.Errorf("STREAM_HEARTBEAT must be positive")
	}
	return nil
}
