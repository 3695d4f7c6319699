// Package runner executes queued agent runs on a bounded worker pool.
//
// Submit persists a queued history record, then hands the task to a worker
// over a buffered channel; a full channel rejects the submission instead of
// growing without bound. Every accepted run executes under its own timeout
// with a cancel function registered for API-triggered cancellation, and
// always reaches a terminal status in the history store, even on panic or
// shutdown.
package runner

import (
	"context"
	"errors"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/history"
)

// Task is one queued unit of work: a request bound to an agent under a
// pre-assigned run ID.
type Task struct {
	RunID     string
	AgentName string
	Request   string
}

// Queue and cancellation errors surfaced to the API layer.
var (
	// ErrQueueFull rejects a submission when the task queue is at capacity.
	// The run is still recorded, as failed, for the audit trail.
	ErrQueueFull = errors.New("task queue is full")

	// ErrPoolStopped rejects submissions once shutdown has begun.
	ErrPoolStopped = errors.New("worker pool is stopped")

	// ErrRunNotActive means a cancellation target is neither queued nor
	// running on this pool.
	ErrRunNotActive = errors.New("run is not queued or running")
)

// RunExecutor executes a single task to completion. Implemented by
// Executor. Terminal outcomes travel inside the result; the error return is
// reserved for infrastructure failures and context cancellation, possibly
// alongside a partial result.
type RunExecutor interface {
	Execute(ctx context.Context, task Task) (*agent.ExecutionResult, error)
}

// RunTracker is the subset of the history service used by the pool for run
// lifecycle transitions.
type RunTracker interface {
	BeginRun(ctx context.Context, id, agentName, request string) (*history.Run, error)
	MarkRunning(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result *agent.ExecutionResult) error
}
