package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/konveyor-ecosystem/migsy/pkg/config"
	"github.com/konveyor-ecosystem/migsy/pkg/history"
	"github.com/konveyor-ecosystem/migsy/pkg/runner"
	"github.com/konveyor-ecosystem/migsy/pkg/vsphere"
)

// mapError maps service-layer errors to HTTP error responses.
func (s *Server) mapError(c *gin.Context, err error) {
	var validErr *config.ValidationError
	if errors.As(err, &validErr) {
		writeError(c, http.StatusBadRequest, validErr.Error())
		return
	}

	switch {
	case errors.Is(err, history.ErrRunNotFound):
		writeError(c, http.StatusNotFound, "run not found")
	case errors.Is(err, vsphere.ErrVMNotFound):
		writeError(c, http.StatusNotFound, "virtual machine not found")
	case errors.Is(err, config.ErrAgentNotFound):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, runner.ErrQueueFull):
		writeError(c, http.StatusServiceUnavailable, "task queue is full")
	case errors.Is(err, runner.ErrPoolStopped):
		writeError(c, http.StatusServiceUnavailable, "server is shutting down")
	case errors.Is(err, runner.ErrRunNotActive):
		writeError(c, http.StatusConflict, "run is not in a cancellable state")
	default:
		s.logger.Error("Unexpected service error",
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err))
		writeError(c, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
