// Package agent provides the core agent framework for MIGSy.
// Agents answer migration questions and draft task plans by alternating
// LLM calls with tool invocations against virtualization inventory.
package agent

import "context"

// Agent defines the interface for all MIGSy agents.
// Agents are created per-run (not shared between runs).
type Agent interface {
	// Execute runs the agent loop for a single request.
	// ctx carries the run timeout and cancellation signal.
	// execCtx provides all execution dependencies and state.
	//
	// Returns (*ExecutionResult, nil) on completion; check Result.Status and
	// Result.Error for agent-level failures (model errors, budget exhaustion).
	// Returns (nil, error) only for infrastructure failures where no meaningful
	// result exists.
	Execute(ctx context.Context, execCtx *ExecutionContext) (*ExecutionResult, error)
}

// ExecutionStatus represents the status of an agent run.
type ExecutionStatus string

const (
	ExecutionStatusQueued    ExecutionStatus = "queued"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusTimedOut  ExecutionStatus = "timed_out"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// ExecutionResult is returned by Agent.Execute().
type ExecutionResult struct {
	Status      ExecutionStatus
	FinalAnswer string
	Error       error
	Stats       RunStats

	// Transcript is the full ordered conversation log for the run,
	// including observation turns. Persisted by the caller.
	Transcript []ConversationMessage
}

// RunStats aggregates counters across a single run.
type RunStats struct {
	Iterations int // completed tool executions
	ModelCalls int
	ToolCalls  int
	// Token counters as reported by the model runtime (0 when absent).
	PromptTokens int
	OutputTokens int
}

// Add accumulates counters from a single model completion.
func (s *RunStats) Add(c *Completion) {
	if c == nil {
		return
	}
	s.PromptTokens += c.PromptTokens
	s.OutputTokens += c.OutputTokens
}
