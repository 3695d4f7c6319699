package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /api/v1/health.
// Only the store and the worker pool decide the overall status. The model
// endpoint is reported as a detail but never turns the response unhealthy,
// so an orchestrator probing this endpoint does not restart migsy when the
// model server is down.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	var runCounts map[agent.ExecutionStatus]int
	if err := s.history.Ping(reqCtx); err != nil {
		status = healthStatusUnhealthy
		checks["store"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["store"] = HealthCheck{Status: healthStatusHealthy}
		counts, err := s.history.RunCounts(reqCtx)
		if err != nil {
			s.logger.Warn("Failed to count runs for health response", slog.String("error", err.Error()))
		} else {
			runCounts = counts
		}
	}

	stats := s.queue.Stats()
	if stats.Stopped {
		if status == healthStatusHealthy {
			status = healthStatusDegraded
		}
		checks["worker_pool"] = HealthCheck{Status: healthStatusDegraded, Message: "pool is stopped"}
	} else {
		checks["worker_pool"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.model != nil {
		if err := s.model.Ping(reqCtx); err != nil {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			checks["model"] = HealthCheck{Status: healthStatusDegraded, Message: err.Error()}
		} else {
			checks["model"] = HealthCheck{Status: healthStatusHealthy, Message: s.model.Model()}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
		Queue:   stats,
		Runs:    runCounts,
	})
}
