// MIGSy server. Serves the HTTP API, runs the task queue workers, and
// hosts the agents that plan and execute VMware-to-OpenShift migrations.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/konveyor-ecosystem/migsy/pkg/api"
	"github.com/konveyor-ecosystem/migsy/pkg/config"
	"github.com/konveyor-ecosystem/migsy/pkg/forklift"
	"github.com/konveyor-ecosystem/migsy/pkg/history"
	"github.com/konveyor-ecosystem/migsy/pkg/llm"
	"github.com/konveyor-ecosystem/migsy/pkg/runner"
	"github.com/konveyor-ecosystem/migsy/pkg/tools"
	"github.com/konveyor-ecosystem/migsy/pkg/version"
	"github.com/konveyor-ecosystem/migsy/pkg/vsphere"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// setupLogging builds the process logger from the system section and
// installs it as the slog default.
func setupLogging(cfg config.SystemConfig) *slog.Logger {
	var handler slog.Handler
	switch cfg.LogFormat {
	case config.LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.LogLevel.Slog(),
		})
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.LogLevel.Slog(),
			TimeFormat: "2006-01-02 15:04:05.000Z07:00",
		})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env from the config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Set up logging per the system section
	logger := setupLogging(cfg.System)
	logger.Info("Starting migsy",
		"version", version.Full(),
		"config_dir", *configDir,
		"agents", cfg.Agents.Len())

	// 3. Open the history store and run migrations
	store, err := history.NewStore(ctx, history.Config{
		Dialect: history.Dialect(cfg.History.Driver),
		DSN:     cfg.History.DSN,
	}, logger)
	if err != nil {
		logger.Error("Failed to open history store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing history store", "error", err)
		}
	}()
	logger.Info("History store ready", "driver", cfg.History.Driver)

	historyService := history.NewService(store, logger)

	sweeper := history.NewSweeper(store, history.RetentionConfig{
		MaxAge:        cfg.History.Retention.MaxAgeOrZero().Std(),
		SweepInterval: cfg.History.Retention.SweepInterval.Std(),
	}, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// 4. Connect the optional integrations
	var vsClient *vsphere.Client
	if cfg.VSphere.Enabled() {
		vsClient, err = vsphere.NewClient(ctx, vsphere.Config{
			URL:        cfg.VSphere.URL,
			Username:   cfg.VSphere.Username,
			Password:   os.Getenv(cfg.VSphere.PasswordEnv),
			Insecure:   cfg.VSphere.Insecure,
			Datacenter: cfg.VSphere.Datacenter,
			CacheTTL:   cfg.VSphere.CacheTTL.Std(),
		}, logger)
		if err != nil {
			logger.Error("Failed to connect to vCenter", "url", cfg.VSphere.URL, "error", err)
			os.Exit(1)
		}
		defer func() {
			logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := vsClient.Close(logoutCtx); err != nil {
				logger.Error("Error closing vCenter session", "error", err)
			}
		}()
		logger.Info("Connected to vCenter", "url", cfg.VSphere.URL)
	} else {
		logger.Info("vSphere is not configured, inventory tools and endpoints are disabled")
	}

	var forkliftClient *forklift.Client
	if cfg.Forklift.Enabled() {
		token := os.Getenv(cfg.Forklift.TokenEnv)
		if token == "" {
			logger.Error("Forklift is configured but the token is missing", "env", cfg.Forklift.TokenEnv)
			os.Exit(1)
		}
		forkliftClient = forklift.NewClient(forklift.Config{
			APIURL:       cfg.Forklift.APIURL,
			InventoryURL: cfg.Forklift.InventoryURL,
			Token:        token,
			Namespace:    cfg.Forklift.Namespace,
			Insecure:     cfg.Forklift.Insecure,
			Timeout:      cfg.Forklift.Timeout.Std(),
		}, logger)
		logger.Info("Forklift client initialized", "api_url", cfg.Forklift.APIURL)
	} else {
		logger.Info("Forklift is not configured, migration tools are disabled")
	}

	// 5. Probe the default model endpoint. Warn-only: agents retry per
	// call, so a model server that comes up later still works.
	defaultProvider, err := cfg.LLMProviders.Get(cfg.Defaults.LLMProvider)
	if err != nil {
		logger.Error("Default LLM provider is not configured", "error", err)
		os.Exit(1)
	}
	modelClient := llm.NewClient(llm.Config{
		Endpoint: defaultProvider.BaseURL,
		Model:    defaultProvider.Model,
		Timeout:  defaultProvider.Timeout.Std(),
	}, logger)

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := modelClient.Ping(pingCtx); err != nil {
		logger.Warn("Model endpoint is not reachable, runs will fail until it is",
			"model", modelClient.Model(), "error", err)
	} else {
		logger.Info("Model endpoint ready", "model", modelClient.Model())
	}
	pingCancel()

	// 6. Build the toolsets and the run executor
	available := make(map[config.Toolset][]tools.Tool)
	if vsClient != nil {
		available[config.ToolsetVSphere] = vsphere.Toolset(vsClient)
	}
	if forkliftClient != nil {
		available[config.ToolsetForklift] = forklift.Toolset(forkliftClient)
	}

	executor, err := runner.NewExecutor(cfg, available, historyService, logger)
	if err != nil {
		logger.Error("Failed to build run executor", "error", err)
		os.Exit(1)
	}

	// 7. Start the worker pool before the HTTP server so the first
	// submission finds workers running
	pool := runner.NewPool(cfg.Queue, executor, historyService, logger)
	pool.Start()

	// 8. Start the HTTP server (non-blocking)
	if cfg.System.AuthTokenEnv != "" && os.Getenv(cfg.System.AuthTokenEnv) == "" {
		logger.Error("API auth is configured but the token is missing", "env", cfg.System.AuthTokenEnv)
		os.Exit(1)
	}
	var inventory api.VMInventory
	if vsClient != nil {
		inventory = vsClient
	}
	server := api.NewServer(cfg, pool, historyService, inventory, modelClient, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	logger.Info("migsy started",
		"addr", cfg.System.ListenAddr,
		"workers", cfg.Queue.WorkerCount,
		"queue_size", cfg.Queue.QueueSize)

	// 9. Wait for a shutdown signal or a server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logger.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown: stop accepting requests first, then drain
	// the workers. The pool bounds its own wait with the configured
	// graceful shutdown timeout.
	httpCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	pool.Stop()

	logger.Info("Shutdown complete")
}
