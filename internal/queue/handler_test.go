package queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ZRainbow1275/LawClick-sub005/common"
	"github.com/ZRainbow1275/LawClick-sub005/internal/dto"
	"github.com/ZRainbow1275/LawClick-sub005/internal/models"
	"github.com/ZRainbow1275/LawClick-sub005/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService backs the handler tests without a store.
type fakeService struct {
	enqueueID  string
	enqueueErr error
	getResp    *dto.JobResponseDTO
	getErr     error
	cancelOK   bool
	replayOK   bool
}

func (f *fakeService) Enqueue(ctx context.Context, tenantID string, req *dto.EnqueueDTO) (string, error) {
	return f.enqueueID, f.enqueueErr
}

func (f *fakeService) GetJob(ctx context.Context, tenantID, id string) (*dto.JobResponseDTO, error) {
	return f.getResp, f.getErr
}

func (f *fakeService) Claim(ctx context.Context, tenantID string, limit int) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeService) Complete(ctx context.Context, jobID string) (bool, error) {
	return false, nil
}

func (f *fakeService) Fail(ctx context.Context, tenantID, jobID, errMsg string) (bool, error) {
	return false, nil
}

func (f *fakeService) ReclaimStale(ctx context.Context, tenantID string) (int, error) {
	return 0, nil
}

func (f *fakeService) Cancel(ctx context.Context, tenantID, jobID string) (bool, error) {
	return f.cancelOK, nil
}

func (f *fakeService) Replay(ctx context.Context, tenantID, jobID string) (bool, error) {
	return f.replayOK, nil
}

func setupJobRouter(svc ServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.TenantAuth(nil))
	NewHandler(svc).RegisterRoutes(router.Group("/v1"))
	return router
}

func doJSON(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeader, "tenant-a")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Enqueue(t *testing.T) {
	router := setupJobRouter(&fakeService{enqueueID: "job-42"})

	w := doJSON(router, http.MethodPost, "/v1/jobs",
		`{"type":"SEND_EMAIL","idempotency_key":"k1","payload":{"to":"a@b.c","subject":"s","body":"b"}}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"job_id":"job-42"}`, w.Body.String())
}

func TestHandler_Enqueue_BindFailures(t *testing.T) {
	router := setupJobRouter(&fakeService{})

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"type":`},
		{name: "missing type", body: `{"idempotency_key":"k1","payload":{}}`},
		{name: "missing payload", body: `{"type":"SEND_EMAIL","idempotency_key":"k1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/v1/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandler_Enqueue_ServiceErrorRendered(t *testing.T) {
	router := setupJobRouter(&fakeService{
		enqueueErr: common.Errf(http.StatusBadRequest, "invalid job type"),
	})

	w := doJSON(router, http.MethodPost, "/v1/jobs",
		`{"type":"NOPE","idempotency_key":"k1","payload":{}}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid job type"}`, w.Body.String())
}

func TestHandler_Get(t *testing.T) {
	router := setupJobRouter(&fakeService{
		getResp: &dto.JobResponseDTO{ID: "job-1", TenantID: "tenant-a", Status: "PENDING"},
	})

	w := doJSON(router, http.MethodGet, "/v1/jobs/job-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"job-1"`)
}

func TestHandler_Get_NotFound(t *testing.T) {
	router := setupJobRouter(&fakeService{
		getErr: common.Errf(http.StatusNotFound, "job not found"),
	})

	w := doJSON(router, http.MethodGet, "/v1/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_CancelAndReplay(t *testing.T) {
	router := setupJobRouter(&fakeService{cancelOK: true, replayOK: false})

	w := doJSON(router, http.MethodPost, "/v1/jobs/job-1/cancel", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/jobs/job-1/replay", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}
