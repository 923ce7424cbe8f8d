package queue

import (
	"net/http"

	"github.com/ZRainbow1275/LawClick-sub005/common"
	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
	"github.com/ZRainbow1275/LawClick-sub005/middleware"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(s ServiceInterface) *Handler {
	return &Handler{service: s}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.Enqueue)
	rg.GET("/jobs/:id", h.Get)
	rg.POST("/jobs/:id/cancel", h.Cancel)
	rg.POST("/jobs/:id/replay", h.Replay)
}

// Enqueue handles POST /v1/jobs. Returns 201 with the job id; a duplicate
// idempotency key collapses to the existing job's id.
func (h *Handler) Enqueue(c *gin.Context) {
	var req dto.EnqueueDTO
	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	id, err := h.service.Enqueue(c.Request.Context(), middleware.TenantID(c), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, dto.EnqueueResponseDTO{JobID: id})
}

// Get handles GET /v1/jobs/:id.
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(common.ErrValidation("job id is required"))
		return
	}

	resp, err := h.service.GetJob(c.Request.Context(), middleware.TenantID(c), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Cancel handles POST /v1/jobs/:id/cancel, the operator cancel path.
func (h *Handler) Cancel(c *gin.Context) {
	ok, err := h.service.Cancel(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		c.Error(common.Errf(http.StatusInternalServerError, "failed to cancel job"))
		return
	}
	if !ok {
		c.Error(common.Errf(http.StatusConflict, "job is not cancellable"))
		return
	}
	c.Status(http.StatusNoContent)
}

// Replay handles POST /v1/jobs/:id/replay: FAILED back to PENDING.
func (h *Handler) Replay(c *gin.Context) {
	ok, err := h.service.Replay(c.Request.Context(), middleware.TenantID(c), c.Param("id"))
	if err != nil {
		c.Error(common.Errf(http.StatusInternalServerError, "failed to replay job"))
		return
	}
	if !ok {
		c.Error(common.Errf(http.StatusConflict, "job is not in a replayable state"))
		return
	}
	c.Status(http.StatusNoContent)
}
