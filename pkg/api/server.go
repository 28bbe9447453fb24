// Package api exposes the HTTP control plane: paper submission, job
// status/listing, and a combined health check, grounded on the teacher's
// own gin-based handler style (pkg/api/handlers.go) rather than its
// echo-based one, since gin is the framework actually vendored in go.mod.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papergraph/paperd/pkg/database"
	"github.com/papergraph/paperd/pkg/orchestrator"
	"github.com/papergraph/paperd/pkg/perrors"
	"github.com/papergraph/paperd/pkg/queue"
)

// Server wires the gin engine to the orchestrator, worker pool and
// (optionally, when running against Postgres) connection pool.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	pool         *queue.WorkerPool
	pgPool       *pgxpool.Pool // nil when running against memstore
	engine       *gin.Engine
}

// NewServer builds a Server and registers its routes. pgPool may be nil.
func NewServer(o *orchestrator.Orchestrator, pool *queue.WorkerPool, pgPool *pgxpool.Pool) *Server {
	s := &Server{orchestrator: o, pool: pool, pgPool: pgPool}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	v1 := engine.Group("/v1/tenants/:tenant")
	v1.POST("/papers", s.submitPaper)
	v1.GET("/jobs/:id", s.getJob)
	v1.GET("/jobs", s.listJobs)

	engine.GET("/healthz", s.healthz)

	s.engine = engine
	return s
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestLogger logs each request's method, path, status and latency via
// slog, mirroring the structured-logging style the rest of the codebase
// uses instead of gin's default text logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// writeError maps err to its HTTP status and machine-readable code per
// perrors.HTTPStatus and writes a uniform {"error", "code"} body.
func writeError(c *gin.Context, err error) {
	status, code, message := perrors.HTTPStatus(err)
	c.JSON(status, gin.H{"error": message, "code": code})
}

func dbHealth(ctx context.Context, pool *pgxpool.Pool) *database.HealthStatus {
	if pool == nil {
		return &database.HealthStatus{Status: "n/a"}
	}
	status, err := database.Health(ctx, pool)
	if err != nil {
		slog.Warn("database health check failed", "error", err)
	}
	return status
}
