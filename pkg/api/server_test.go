package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/api"
	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/graphstore/memstore"
	"github.com/papergraph/paperd/pkg/orchestrator"
	"github.com/papergraph/paperd/pkg/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJobExecutor struct{}

func (fakeJobExecutor) Execute(ctx context.Context, job *graphstore.PipelineJob, onProgress func(string)) *queue.ExecutionResult {
	return &queue.ExecutionResult{Status: graphstore.JobStatusCompleted}
}

func newTestServer(t *testing.T) (*api.Server, func()) {
	t.Helper()
	store := memstore.New()
	o := orchestrator.New(store, nil,
		config.RateLimitConfig{MaxJobsPerWindow: 10, Window: time.Minute},
		config.FetchConfig{MaxRedirects: 3, MaxBytes: 10 << 20, Timeout: 15 * time.Second})

	pool := queue.NewWorkerPool("test-pod", store, &config.QueueConfig{
		WorkerCount: 1, MaxConcurrentJobs: 1, PollInterval: 50 * time.Millisecond,
		JobTimeout: time.Second, GracefulShutdownTimeout: time.Second,
		HeartbeatInterval: time.Second, OrphanDetectionInterval: time.Minute, OrphanThreshold: time.Hour,
	}, fakeJobExecutor{})
	require.NoError(t, pool.Start(context.Background()))

	srv := api.NewServer(o, pool, nil)
	return srv, func() { pool.Stop() }
}

func TestSubmitPaperReturns202WithJobID(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	body, _ := json.Marshal(map[string]interface{}{"paper_id": "p1", "raw_text": "hello world"})
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/tenant-a/papers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["job_id"])
	assert.Equal(t, "pending", resp["status"])
}

func TestSubmitPaperRejectsAmbiguousBody(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	body, _ := json.Marshal(map[string]interface{}{"paper_id": "p1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants/tenant-a/papers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobReturns404ForUnknownJob(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-a/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJobReturnsSubmittedJob(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	body, _ := json.Marshal(map[string]interface{}{"paper_id": "p1", "raw_text": "hello world"})
	submitReq := httptest.NewRequest(http.MethodPost, "/v1/tenants/tenant-a/papers", bytes.NewReader(body))
	submitReq.Header.Set("Content-Type", "application/json")
	submitRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(submitRec, submitReq)
	require.Equal(t, http.StatusAccepted, submitRec.Code)

	var submitResp map[string]interface{}
	require.NoError(t, json.Unmarshal(submitRec.Body.Bytes(), &submitResp))
	jobID := submitResp["job_id"].(string)

	getReq := httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-a/jobs/"+jobID, nil)
	getRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(getRec, getReq)

	require.Equal(t, http.StatusOK, getRec.Code)
	var job map[string]interface{}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &job))
	assert.Equal(t, jobID, job["ID"])
}

func TestListJobsReturnsPagedResults(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		body, _ := json.Marshal(map[string]interface{}{"paper_id": "p", "raw_text": "x"})
		req := httptest.NewRequest(http.MethodPost, "/v1/tenants/tenant-a/papers", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-a/jobs?limit=10", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["total"])
}

func TestHealthzReportsQueueHealth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "queue")
	assert.Contains(t, resp, "database")
}
