package stream

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/middleware"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// Config bounds what a caller may ask for on the stream endpoint.
type Config struct {
	PollDefault time.Duration
	PollMin     time.Duration
	PollMax     time.Duration
	Heartbeat   time.Duration
	PollLimit   int
}

type Handler struct {
	streamer *Streamer
	cfg      Config
}

func NewHandler(streamer *Streamer, cfg Config) *Handler {
	return &Handler{streamer: streamer, cfg: cfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/signals/stream", h.Stream)
}

// Stream handles GET /v1/signals/stream. Tenant auth and the rate limit
// run as middleware before this; by the time the poll loop starts, the
// request is fully vetted.
//
// Query: kind (required), since (RFC3339, optional), poll_ms (optional,
// clamped). Header Last-Event-ID resumes after a known version.
func (h *Handler) Stream(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "kind query parameter is required"})
		return
	}

	poll := h.cfg.PollDefault
	if v := c.Query("poll_ms"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "poll_ms must be a non-negative integer"})
			return
		}
		poll = time.Duration(ms) * time.Millisecond
	}
	if poll < h.cfg.PollMin {
		poll = h.cfg.PollMin
	}
	if poll > h.cfg.PollMax {
		poll = h.cfg.PollMax
	}

	opts := Options{
		TenantID:  middleware.TenantID(c),
		Kind:      kind,
		Poll:      poll,
		Heartbeat: h.cfg.Heartbeat,
		Limit:     h.cfg.PollLimit,
	}

	// Cursor resolution: a resumption version wins, then an explicit
	// timestamp, then "from now on".
	if lastID := c.GetHeader("Last-Event-ID"); lastID != "" {
		version, err := strconv.ParseUint(lastID, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Last-Event-ID must be a signal version"})
			return
		}
		opts.SinceVersion = version
	} else if since := c.Query("since"); since != "" {
		at, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		opts.SinceTime = at
	} else {
		opts.SinceTime = time.Now()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	sink := sseSink{c: c}
	if err := h.streamer.Run(c.Request.Context(), opts, sink); err != nil {
		// Headers are gone; nothing to send back. The loop already
		// released its timers.
		_ = err
	}
}

// sseSink adapts the gin response writer to the stream sink.
type sseSink struct {
	c *gin.Context
}

func (s sseSink) Send(ev Event) error {
	frame := sse.Event{Event: ev.Name, Data: ev.Data}
	if ev.ID != "" {
		frame.Id = ev.ID
	}
	return sse.Encode(s.c.Writer, frame)
}

func (s sseSink) Flush() error {
	s.c.Writer.Flush()
	return nil
}
