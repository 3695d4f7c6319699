package history

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls how long finished runs are kept.
type RetentionConfig struct {
	// MaxAge is how long terminal runs are retained. Zero disables sweeping.
	MaxAge time.Duration
	// SweepInterval is how often the sweeper wakes up.
	SweepInterval time.Duration
}

func (c *RetentionConfig) applyDefaults() {
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Hour
	}
}

// Sweeper periodically deletes terminal runs older than the retention age,
// transcripts included. Queued and running runs are never touched, so the
// sweep is safe to run while workers are active.
type Sweeper struct {
	logger *slog.Logger
	store  *Store
	config RetentionConfig

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a retention sweeper over the store.
func NewSweeper(store *Store, cfg RetentionConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg.applyDefaults()
	return &Sweeper{
		logger: logger.With(slog.String("component", "retention")),
		store:  store,
		config: cfg,
	}
}

// Start launches the background sweep loop. A zero MaxAge makes Start a
// no-op so history is kept indefinitely.
func (s *Sweeper) Start(ctx context.Context) {
	if s.cancel != nil || s.config.MaxAge <= 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Retention sweeper started",
		slog.Duration("max_age", s.config.MaxAge),
		slog.Duration("interval", s.config.SweepInterval))
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Retention sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.MaxAge)
	count, err := s.store.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Retention: run cleanup failed", slog.Any("error", err))
		return
	}
	if count > 0 {
		s.logger.Info("Retention: deleted expired runs", slog.Int64("count", count))
	}
}
