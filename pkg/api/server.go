// Package api exposes the HTTP surface of migsy: task submission and
// lifecycle, run history, vSphere inventory passthrough, and the health
// and system-info endpoints. Handlers translate between HTTP and the
// runner/history services; they hold no domain logic of their own.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/config"
	"github.com/konveyor-ecosystem/migsy/pkg/history"
	"github.com/konveyor-ecosystem/migsy/pkg/runner"
	"github.com/konveyor-ecosystem/migsy/pkg/vsphere"
)

// TaskQueue is the subset of the runner pool used by the task endpoints.
type TaskQueue interface {
	Submit(ctx context.Context, agentName, request string) (string, error)
	Cancel(runID string) error
	Stats() runner.Stats
}

// RunHistory is the subset of the history service used by the read and
// health endpoints.
type RunHistory interface {
	GetRun(ctx context.Context, id string) (*history.Run, error)
	ListRuns(ctx context.Context, filter history.ListFilter) ([]*history.Run, int, error)
	Transcript(ctx context.Context, runID string) ([]history.Message, error)
	Ping(ctx context.Context) error
	RunCounts(ctx context.Context) (map[agent.ExecutionStatus]int, error)
}

// VMInventory is the subset of the vSphere client used by the inventory
// endpoints. Nil when the vSphere integration is not configured.
type VMInventory interface {
	ListVMs(ctx context.Context) ([]string, error)
	VMDetails(ctx context.Context, name string) (*vsphere.VMDetails, error)
}

// ModelPinger reports reachability of the default model endpoint for the
// health detail. Nil disables the check.
type ModelPinger interface {
	Ping(ctx context.Context) error
	Model() string
}

// Server wires the HTTP engine to the runner pool and the read services.
type Server struct {
	cfg       *config.Config
	queue     TaskQueue
	history   RunHistory
	inventory VMInventory
	model     ModelPinger
	logger    *slog.Logger

	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the engine, installs the middleware chain and registers
// all routes. inventory and model may be nil when the corresponding
// integration is disabled.
func NewServer(cfg *config.Config, queue TaskQueue, hist RunHistory, inventory VMInventory, model ModelPinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:       cfg,
		queue:     queue,
		history:   hist,
		inventory: inventory,
		model:     model,
		logger:    logger.With(slog.String("component", "api")),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		requestID(),
		requestLogger(s.logger),
		recovery(s.logger),
		securityHeaders(),
	)
	s.registerRoutes(engine)
	s.engine = engine

	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	v1 := engine.Group("/api/v1")

	// Registered before the auth guard: probes stay credential-free.
	v1.GET("/health", s.healthHandler)

	if token := s.authToken(); token != "" {
		v1.Use(bearerAuth(token))
		s.logger.Info("API bearer authentication enabled")
	}

	v1.POST("/tasks", s.submitTaskHandler)
	v1.GET("/tasks", s.listTasksHandler)
	v1.GET("/tasks/:id", s.getTaskHandler)
	v1.GET("/tasks/:id/messages", s.taskMessagesHandler)
	v1.DELETE("/tasks/:id", s.cancelTaskHandler)

	v1.GET("/inventory/vms", s.listVMsHandler)
	v1.GET("/inventory/vms/:name", s.vmDetailsHandler)

	v1.GET("/system/info", s.systemInfoHandler)
}

// authToken resolves the static API token from the environment variable
// named in configuration, if any.
func (s *Server) authToken() string {
	if s.cfg.System.AuthTokenEnv == "" {
		return ""
	}
	return os.Getenv(s.cfg.System.AuthTokenEnv)
}

// Handler returns the HTTP handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving on the configured listen address. It blocks until
// the listener fails or Shutdown is called; a closed-server error is
// returned as nil.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.System.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP API listening", slog.String("addr", s.cfg.System.ListenAddr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight
// requests to finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
