package health

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/common"
	"github.com/ZRainbow1275/LawClick-sub005/middleware"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health/queue", h.Queue)
}

// Queue handles GET /v1/health/queue: read-only, side-effect-free.
func (h *Handler) Queue(c *gin.Context) {
	tenantID := middleware.TenantID(c)

	snap, err := h.service.ComputeSnapshot(c.Request.Context(), tenantID, time.Now())
	if err != nil {
		slog.Error("health snapshot failed", "tenant", tenantID, "err", err)
		c.Error(common.Errf(http.StatusInternalServerError, "failed to compute queue health"))
		return
	}

	c.JSON(http.StatusOK, snap)
}
