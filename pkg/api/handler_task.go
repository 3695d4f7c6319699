package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/history"
	"github.com/konveyor-ecosystem/migsy/pkg/runner"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// submitTaskHandler handles POST /api/v1/tasks.
func (s *Server) submitTaskHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	var req SubmitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes))
			return
		}
		writeError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	agentName := req.Agent
	if agentName == "" {
		agentName = s.cfg.Defaults.Agent
	}
	if !s.cfg.Agents.Has(agentName) {
		writeError(c, http.StatusBadRequest, fmt.Sprintf("unknown agent %q", agentName))
		return
	}

	runID, err := s.queue.Submit(c.Request.Context(), agentName, req.Request)
	if err != nil {
		s.mapError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, SubmitTaskResponse{
		RunID:     runID,
		AgentName: agentName,
		Status:    string(agent.ExecutionStatusQueued),
	})
}

// getTaskHandler handles GET /api/v1/tasks/:id.
func (s *Server) getTaskHandler(c *gin.Context) {
	run, err := s.history.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// listTasksHandler handles GET /api/v1/tasks.
func (s *Server) listTasksHandler(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(c, http.StatusBadRequest, "invalid page: must be a positive integer")
			return
		}
		page = v
	}

	pageSize := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(c, http.StatusBadRequest, "invalid page_size: must be a positive integer")
			return
		}
		if v > maxPageSize {
			v = maxPageSize
		}
		pageSize = v
	}

	filter := history.ListFilter{
		AgentName: c.Query("agent"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}
	if raw := c.Query("status"); raw != "" {
		status, err := parseStatus(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	runs, total, err := s.history.ListRuns(c.Request.Context(), filter)
	if err != nil {
		s.mapError(c, err)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	c.JSON(http.StatusOK, TaskListResponse{
		Runs: runs,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
			TotalItems: total,
		},
	})
}

// taskMessagesHandler handles GET /api/v1/tasks/:id/messages.
func (s *Server) taskMessagesHandler(c *gin.Context) {
	runID := c.Param("id")
	messages, err := s.history.Transcript(c.Request.Context(), runID)
	if err != nil {
		s.mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, TranscriptResponse{RunID: runID, Messages: messages})
}

// cancelTaskHandler handles DELETE /api/v1/tasks/:id. Cancelling a run the
// pool no longer tracks distinguishes unknown runs (404) from runs that
// already reached a terminal status (409).
func (s *Server) cancelTaskHandler(c *gin.Context) {
	runID := c.Param("id")

	if err := s.queue.Cancel(runID); err != nil {
		if errors.Is(err, runner.ErrRunNotActive) {
			if _, histErr := s.history.GetRun(c.Request.Context(), runID); histErr != nil {
				s.mapError(c, histErr)
				return
			}
		}
		s.mapError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, CancelResponse{
		RunID:   runID,
		Message: "Run cancellation requested",
	})
}

// parseStatus validates a status query value against the run lifecycle.
func parseStatus(raw string) (agent.ExecutionStatus, error) {
	status := agent.ExecutionStatus(raw)
	switch status {
	case agent.ExecutionStatusQueued,
		agent.ExecutionStatusRunning,
		agent.ExecutionStatusCompleted,
		agent.ExecutionStatusFailed,
		agent.ExecutionStatusTimedOut,
		agent.ExecutionStatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("invalid status: %s", raw)
	}
}
