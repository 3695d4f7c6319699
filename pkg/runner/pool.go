package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/config"
)

// Pool runs submitted tasks on a fixed number of workers fed by a buffered
// channel. Each worker holds one slot of a weighted semaphore while it
// lives, which gives Stop a bounded wait for in-flight runs before it
// cancels them.
type Pool struct {
	cfg      config.QueueConfig
	executor RunExecutor
	history  RunTracker
	logger   *slog.Logger

	queue    chan Task
	stopCh   chan struct{}
	stopOnce sync.Once
	slots    *semaphore.Weighted

	mu        sync.Mutex
	active    map[string]context.CancelFunc
	queued    map[string]struct{}
	cancelled map[string]struct{}
	started   bool
	stopped   bool
}

// NewPool creates a pool. Call Start to spawn the workers.
// A nil logger disables logging.
func NewPool(cfg config.QueueConfig, executor RunExecutor, history RunTracker, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pool{
		cfg:       cfg,
		executor:  executor,
		history:   history,
		logger:    logger.With(slog.String("component", "runner")),
		queue:     make(chan Task, cfg.QueueSize),
		stopCh:    make(chan struct{}),
		slots:     semaphore.NewWeighted(int64(cfg.WorkerCount)),
		active:    make(map[string]context.CancelFunc),
		queued:    make(map[string]struct{}),
		cancelled: make(map[string]struct{}),
	}
}

// Start spawns the worker goroutines. It is safe to call multiple times;
// subsequent calls are no-ops.
func (p *Pool) Start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		p.logger.Warn("Worker pool already started, ignoring duplicate Start call")
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.cfg.WorkerCount; i++ {
		_ = p.slots.Acquire(context.Background(), 1)
		go p.worker(i)
	}

	p.logger.Info("Worker pool started",
		slog.Int("workers", p.cfg.WorkerCount),
		slog.Int("queue_size", p.cfg.QueueSize))
}

// Stop shuts the pool down: no new submissions, in-flight runs get the
// graceful window to finish and are cancelled after it, and runs still
// sitting in the queue are recorded as cancelled. Safe to call multiple
// times.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	activeRuns := len(p.active)
	queuedRuns := len(p.queued)
	p.mu.Unlock()

	p.logger.Info("Stopping worker pool",
		slog.Int("active_runs", activeRuns),
		slog.Int("queued_runs", queuedRuns))

	p.stopOnce.Do(func() { close(p.stopCh) })

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.GracefulShutdownTimeout.Std())
	defer cancel()
	if err := p.slots.Acquire(ctx, int64(p.cfg.WorkerCount)); err != nil {
		p.logger.Warn("Graceful shutdown window elapsed, cancelling active runs")
		p.cancelActiveRuns()
		_ = p.slots.Acquire(context.Background(), int64(p.cfg.WorkerCount))
	}

	p.drainQueue()
	p.logger.Info("Worker pool stopped")
}

// Submit records a queued run and enqueues it, returning the new run ID.
// Returns ErrQueueFull when the queue is at capacity (the run is recorded
// as failed) and ErrPoolStopped after shutdown has begun.
func (p *Pool) Submit(ctx context.Context, agentName, request string) (string, error) {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return "", ErrPoolStopped
	}

	runID := uuid.NewString()
	if _, err := p.history.BeginRun(ctx, runID, agentName, request); err != nil {
		return "", fmt.Errorf("failed to record queued run: %w", err)
	}

	task := Task{RunID: runID, AgentName: agentName, Request: request}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.complete(runID, &agent.ExecutionResult{
			Status: agent.ExecutionStatusCancelled,
			Error:  ErrPoolStopped,
		})
		return "", ErrPoolStopped
	}
	select {
	case p.queue <- task:
		p.queued[runID] = struct{}{}
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		p.logger.Warn("Task queue full, rejecting run",
			slog.String("run_id", runID),
			slog.String("agent", agentName))
		p.complete(runID, &agent.ExecutionResult{
			Status: agent.ExecutionStatusFailed,
			Error:  ErrQueueFull,
		})
		return "", ErrQueueFull
	}

	p.logger.Info("Run queued",
		slog.String("run_id", runID),
		slog.String("agent", agentName),
		slog.Int("queue_depth", len(p.queue)))
	return runID, nil
}

// Cancel stops a run by ID. Running runs get their context cancelled, which
// the controller notices between iterations; queued runs are marked and
// recorded as cancelled when a worker dequeues them. Returns ErrRunNotActive
// when the ID is neither queued nor running here.
func (p *Pool) Cancel(runID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.active[runID]; ok {
		p.logger.Info("Cancelling running run", slog.String("run_id", runID))
		cancel()
		return nil
	}
	if _, ok := p.queued[runID]; ok {
		p.logger.Info("Cancelling queued run", slog.String("run_id", runID))
		p.cancelled[runID] = struct{}{}
		return nil
	}
	return ErrRunNotActive
}

// Stats is a point-in-time view of the pool for health reporting.
type Stats struct {
	Workers    int  `json:"workers"`
	QueueDepth int  `json:"queue_depth"`
	QueueSize  int  `json:"queue_size"`
	ActiveRuns int  `json:"active_runs"`
	Stopped    bool `json:"stopped"`
}

// Stats reports the current pool state.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers:    p.cfg.WorkerCount,
		QueueDepth: len(p.queue),
		QueueSize:  cap(p.queue),
		ActiveRuns: len(p.active),
		Stopped:    p.stopped,
	}
}

// worker is the main loop of one worker goroutine.
func (p *Pool) worker(id int) {
	defer p.slots.Release(1)

	log := p.logger.With(slog.Int("worker", id))
	log.Debug("Worker started")

	for {
		// Check stop first so a worker never claims new work once
		// shutdown has begun.
		select {
		case <-p.stopCh:
			log.Debug("Worker shutting down")
			return
		default:
		}

		select {
		case <-p.stopCh:
			log.Debug("Worker shutting down")
			return
		case task := <-p.queue:
			p.process(task)
		}
	}
}

// process executes one dequeued task through to a recorded terminal status.
func (p *Pool) process(task Task) {
	log := p.logger.With(
		slog.String("run_id", task.RunID),
		slog.String("agent", task.AgentName))

	if cancelledWhileQueued := p.dequeue(task.RunID); cancelledWhileQueued {
		log.Info("Run cancelled while queued")
		p.complete(task.RunID, &agent.ExecutionResult{
			Status: agent.ExecutionStatusCancelled,
			Error:  context.Canceled,
		})
		return
	}

	timeout := p.cfg.RunTimeout.Std()
	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p.registerActive(task.RunID, cancel)
	defer p.unregisterActive(task.RunID)

	if err := p.history.MarkRunning(runCtx, task.RunID); err != nil {
		log.Error("Failed to mark run running", slog.Any("error", err))
	}
	log.Info("Run started")

	result, err := p.runTask(runCtx, task)
	result = p.finalize(runCtx, result, err, timeout)

	p.complete(task.RunID, result)
	log.Info("Run finished", slog.String("status", string(result.Status)))
}

// runTask invokes the executor with panic containment. A panicking run is
// converted into a failed result so the worker survives.
func (p *Pool) runTask(ctx context.Context, task Task) (result *agent.ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Run panicked",
				slog.String("run_id", task.RunID),
				slog.Any("panic", r))
			result = &agent.ExecutionResult{
				Status: agent.ExecutionStatusFailed,
				Error:  fmt.Errorf("run panicked: %v", r),
			}
			err = nil
		}
	}()
	return p.executor.Execute(ctx, task)
}

// finalize turns whatever the executor returned into a terminal result.
// The run context decides between timeout and cancellation; a partial
// result keeps its transcript and counters.
func (p *Pool) finalize(runCtx context.Context, result *agent.ExecutionResult, err error, timeout time.Duration) *agent.ExecutionResult {
	if err == nil && result != nil {
		return result
	}
	if result == nil {
		result = &agent.ExecutionResult{}
	}
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Status = agent.ExecutionStatusTimedOut
		result.Error = fmt.Errorf("run timed out after %v", timeout)
	case errors.Is(runCtx.Err(), context.Canceled):
		result.Status = agent.ExecutionStatusCancelled
		result.Error = context.Canceled
	case err != nil:
		result.Status = agent.ExecutionStatusFailed
		result.Error = err
	default:
		result.Status = agent.ExecutionStatusFailed
		result.Error = errors.New("executor returned no result")
	}
	return result
}

// complete records the terminal outcome with a fresh context; the run
// context is usually expired or cancelled by the time a result exists.
func (p *Pool) complete(runID string, result *agent.ExecutionResult) {
	if err := p.history.Complete(context.Background(), runID, result); err != nil {
		p.logger.Error("Failed to record run outcome",
			slog.String("run_id", runID),
			slog.Any("error", err))
	}
}

// dequeue removes a run from the queued set and reports whether a
// cancellation was requested while it waited.
func (p *Pool) dequeue(runID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.queued, runID)
	if _, ok := p.cancelled[runID]; ok {
		delete(p.cancelled, runID)
		return true
	}
	return false
}

func (p *Pool) registerActive(runID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[runID] = cancel
}

func (p *Pool) unregisterActive(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, runID)
}

// cancelActiveRuns cancels every registered run context.
func (p *Pool) cancelActiveRuns() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for runID, cancel := range p.active {
		p.logger.Warn("Cancelling still-active run", slog.String("run_id", runID))
		cancel()
	}
}

// drainQueue records every task left in the queue as cancelled. Called
// after the workers have exited, so nothing else reads the channel.
func (p *Pool) drainQueue() {
	for {
		select {
		case task := <-p.queue:
			p.dequeue(task.RunID)
			p.logger.Info("Run cancelled by shutdown", slog.String("run_id", task.RunID))
			p.complete(task.RunID, &agent.ExecutionResult{
				Status: agent.ExecutionStatusCancelled,
				Error:  errors.New("pool stopped before the run started"),
			})
		default:
			return
		}
	}
}
