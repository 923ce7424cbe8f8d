package stream

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
)

// SignalReader is the read-only slice of the signal bus the stream loop
// polls. Loops share no mutable state with each other; the store is the
// only coordination point, which is what makes running many stream server
// instances trivial.
type SignalReader interface {
	PollSince(ctx context.Context, tenantID, kind string, sinceVersion uint64, sinceTime time.Time, limit int) ([]models.TenantSignal, error)
}

// Event is one server-push frame. ID carries the signal version so a
// client can resume exactly after the last frame it saw.
type Event struct {
	Name string
	ID   string
	Data any
}

// Sink receives events for one subscriber. The SSE handler adapts the HTTP
// response to this; tests plug in a recorder.
type Sink interface {
	Send(ev Event) error
	Flush() error
}

// Options fixes one connection's cursor and cadence at open time.
type Options struct {
	TenantID     string
	Kind         string
	SinceVersion uint64
	SinceTime    time.Time
	Poll         time.Duration
	Heartbeat    time.Duration
	Limit        int
}

// Streamer runs one cooperative polling loop per subscriber: no broker,
// no socket registry, just time-sliced reads against the durable log with
// a bounded notification latency of one poll interval.
type Streamer struct {
	bus SignalReader
}

func NewStreamer(bus SignalReader) *Streamer {
	return &Streamer{bus: bus}
}

type readyPayload struct {
	Kind         string `json:"kind"`
	PollMs       int64  `json:"poll_ms"`
	SinceVersion uint64 `json:"since_version,omitempty"`
	Since        string `json:"since,omitempty"`
}

// Run drives the connection until ctx is canceled. Cancellation is the
// only teardown path; both timers are released before Run returns, so an
// abnormal disconnect can never leak them.
func (s *Streamer) Run(ctx context.Context, opts Options, sink Sink) error {
	ready := readyPayload{
		Kind:         opts.Kind,
		PollMs:       opts.Poll.Milliseconds(),
		SinceVersion: opts.SinceVersion,
	}
	if opts.SinceVersion == 0 && !opts.SinceTime.IsZero() {
		ready.Since = opts.SinceTime.Format(time.RFC3339)
	}
	if err := sink.Send(Event{Name: "ready", Data: ready}); err != nil {
		return err
	}
	if err := sink.Flush(); err != nil {
		return err
	}

	poll := time.NewTicker(opts.Poll)
	defer poll.Stop()
	heartbeat := time.NewTicker(opts.Heartbeat)
	defer heartbeat.Stop()

	cursorVersion := opts.SinceVersion
	cursorTime := opts.SinceTime

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-heartbeat.C:
			if err := sink.Send(Event{Name: "ping", Data: "keepalive"}); err != nil {
				return err
			}
			if err := sink.Flush(); err != nil {
				return err
			}

		case <-poll.C:
			items, err := s.bus.PollSince(ctx, opts.TenantID, opts.Kind, cursorVersion, cursorTime, opts.Limit)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Transient store trouble: skip this cycle, keep the
				// connection; the next tick retries.
				slog.Warn("signal poll failed",
					"tenant", opts.TenantID, "kind", opts.Kind, "err", err)
				continue
			}
			for _, sig := range items {
				ev := Event{
					Name: "signal",
					ID:   strconv.FormatUint(sig.Version, 10),
					Data: signalData(sig),
				}
				if err := sink.Send(ev); err != nil {
					return err
				}
				if sig.Version > cursorVersion {
					cursorVersion = sig.Version
				}
			}
			if len(items) > 0 {
				if err := sink.Flush(); err != nil {
					return err
				}
			}
		}
	}
}

func signalData(sig models.TenantSignal) any {
	if len(sig.Payload) == 0 {
		return "null"
	}
	return string(sig.Payload)
}
