package signals

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/common"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/ZRainbow1275/LawClick-sub005/internal/storage/postgres"
	"gorm.io/datatypes"
)

const maxKindLen = 128

// SignalRepoInterface is the store contract for the append-only signal
// log.
type SignalRepoInterface interface {
	Touch(ctx context.Context, tenantID, kind string, payload datatypes.JSON) (uint64, error)
	PollSince(ctx context.Context, tenantID, kind string, sinceVersion uint64, sinceTime time.Time, limit int) ([]models.TenantSignal, error)
	Trim(ctx context.Context, olderThan time.Time) (int64, error)
}

// Service is the tenant signal bus: a write path (Touch) and a read path
// (PollSince) over the versioned per-tenant event log. Kinds are opaque
// discriminators owned by the emitting feature.
type Service struct {
	repo SignalRepoInterface
}

func NewService(repo SignalRepoInterface) *Service {
	return &Service{repo: repo}
}

// Touch appends one signal and returns its version. Version contention
// after the store's bounded retries surfaces as a retryable transient
// error; an event is never silently dropped.
func (s *Service) Touch(ctx context.Context, tenantID, kind string, payload datatypes.JSON) (uint64, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return 0, common.ErrValidation("signal kind must not be empty")
	}
	if len(kind) > maxKindLen {
		return 0, common.ErrValidation("signal kind exceeds %d chars", maxKindLen)
	}

	version, err := s.repo.Touch(ctx, tenantID, kind, payload)
	if err != nil {
		if errors.Is(err, postgres.ErrTouchContention) {
			return 0, common.ErrTransient("signal bus contention, retry")
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, common.Errf(http.StatusRequestTimeout, "request timed out")
		}
		return 0, common.Errf(http.StatusInternalServerError, "failed to emit signal")
	}
	return version, nil
}

// PollSince returns signals after the cursor, oldest first. Non-blocking.
func (s *Service) PollSince(ctx context.Context, tenantID, kind string, sinceVersion uint64, sinceTime time.Time, limit int) ([]models.TenantSignal, error) {
	if strings.TrimSpace(kind) == "" {
		return nil, common.ErrValidation("signal kind must not be empty")
	}
	return s.repo.PollSince(ctx, tenantID, kind, sinceVersion, sinceTime, limit)
}

// Trim enforces the retention window; called from the worker janitor.
func (s *Service) Trim(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.repo.Trim(ctx, olderThan)
}
