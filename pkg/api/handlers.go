package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/perrors"
)

// submitPaper handles POST /v1/tenants/:tenant/papers.
func (s *Server) submitPaper(c *gin.Context) {
	tenant := c.Param("tenant")
	if tenant == "" {
		writeError(c, perrors.ErrTenantRequired)
		return
	}

	var body submitPaperRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, perrors.NewInvalidInput(err.Error()))
		return
	}

	req, err := body.toSubmitRequest()
	if err != nil {
		writeError(c, err)
		return
	}

	jobID, err := s.orchestrator.Submit(c.Request.Context(), tenant, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID, "status": graphstore.JobStatusPending})
}

// getJob handles GET /v1/tenants/:tenant/jobs/:id.
func (s *Server) getJob(c *gin.Context) {
	tenant := c.Param("tenant")
	jobID := c.Param("id")
	if tenant == "" {
		writeError(c, perrors.ErrTenantRequired)
		return
	}

	job, err := s.orchestrator.Status(c.Request.Context(), tenant, jobID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// listJobs handles GET /v1/tenants/:tenant/jobs?status=&page=&limit=.
func (s *Server) listJobs(c *gin.Context) {
	tenant := c.Param("tenant")
	if tenant == "" {
		writeError(c, perrors.ErrTenantRequired)
		return
	}

	filter := graphstore.JobListFilter{
		Status: c.Query("status"),
		Page:   atoiDefault(c.Query("page"), 1),
		Limit:  atoiDefault(c.Query("limit"), 20),
	}

	jobs, total, err := s.orchestrator.List(c.Request.Context(), tenant, filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// healthz handles GET /healthz, combining worker pool health with the
// Postgres pool's connection stats when running against a real database.
func (s *Server) healthz(c *gin.Context) {
	poolHealth := s.pool.Health()
	dbStatus := dbHealth(c.Request.Context(), s.pgPool)

	status := http.StatusOK
	if !poolHealth.IsHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"queue":    poolHealth,
		"database": dbStatus,
	})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
