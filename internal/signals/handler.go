package signals

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ZRainbow1275/LawClick-sub005/common"
	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
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
	rg.POST("/signals/touch", h.Touch)
	rg.GET("/signals", h.Poll)
}

// Touch handles POST /v1/signals/touch: domain actions call it after
// mutating state the UI cares about.
func (h *Handler) Touch(c *gin.Context) {
	var req dto.TouchDTO
	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	version, err := h.service.Touch(c.Request.Context(), middleware.TenantID(c), req.Kind, []byte(req.Payload))
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, dto.TouchResponseDTO{Version: version})
}

// Poll handles GET /v1/signals?kind=&since_version=&since=&limit=, the
// plain pull primitive behind the realtime stream.
func (h *Handler) Poll(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		c.Error(common.ErrValidation("kind query parameter is required"))
		return
	}

	var sinceVersion uint64
	if v := c.Query("since_version"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.Error(common.ErrValidation("since_version must be a non-negative integer"))
			return
		}
		sinceVersion = parsed
	}

	var sinceTime time.Time
	if v := c.Query("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.Error(common.ErrValidation("since must be an RFC3339 timestamp"))
			return
		}
		sinceTime = parsed
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 1000 {
			c.Error(common.ErrValidation("limit must be between 1 and 1000"))
			return
		}
		limit = parsed
	}

	items, err := h.service.PollSince(c.Request.Context(), middleware.TenantID(c), kind, sinceVersion, sinceTime, limit)
	if err != nil {
		c.Error(err)
		return
	}

	out := make([]dto.SignalResponseDTO, 0, len(items))
	for _, sig := range items {
		out = append(out, dto.SignalResponseDTO{
			Kind:      sig.Kind,
			Version:   sig.Version,
			Payload:   json.RawMessage(sig.Payload),
			CreatedAt: sig.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"signals": out})
}
