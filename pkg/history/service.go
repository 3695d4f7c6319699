package history

import (
	"context"
	"log/slog"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

// Service is the run-history facade used by the task runner and the API
// layer. It records transcript turns as runs execute and tracks each run
// from queued through its terminal status.
type Service struct {
	logger *slog.Logger
	store  *Store
}

// Service records transcripts on behalf of executing agents.
var _ agent.TranscriptRecorder = (*Service)(nil)

// NewService creates a history service on top of the store.
func NewService(store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		logger: logger.With(slog.String("component", "history")),
		store:  store,
	}
}

// BeginRun persists a queued run record before the run enters the queue.
func (s *Service) BeginRun(ctx context.Context, id, agentName, request string) (*Run, error) {
	run := &Run{ID: id, AgentName: agentName, Request: request}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// MarkRunning transitions a run to running when a worker picks it up.
func (s *Service) MarkRunning(ctx context.Context, id string) error {
	return s.store.MarkRunStarted(ctx, id)
}

// Complete records the terminal outcome of a run.
func (s *Service) Complete(ctx context.Context, id string, result *agent.ExecutionResult) error {
	if err := s.store.FinishRun(ctx, id, result); err != nil {
		return err
	}
	s.logger.Info("Run outcome recorded",
		slog.String("run_id", id),
		slog.String("status", string(result.Status)),
		slog.Int("iterations", result.Stats.Iterations),
		slog.Int("tool_calls", result.Stats.ToolCalls))
	return nil
}

// RecordMessage appends one transcript turn for a run. It implements
// agent.TranscriptRecorder.
func (s *Service) RecordMessage(ctx context.Context, runID string, msg agent.ConversationMessage) error {
	return s.store.AppendMessage(ctx, runID, msg)
}

// GetRun fetches a single run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.store.GetRun(ctx, id)
}

// ListRuns returns runs matching the filter, newest first, plus the total
// match count for paging.
func (s *Service) ListRuns(ctx context.Context, filter ListFilter) ([]*Run, int, error) {
	return s.store.ListRuns(ctx, filter)
}

// Transcript returns the ordered conversation log of a run. Unknown run IDs
// yield ErrRunNotFound rather than an empty transcript.
func (s *Service) Transcript(ctx context.Context, runID string) ([]Message, error) {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.store.Messages(ctx, runID)
}

// Ping verifies the backing store is reachable. Used by the health endpoint.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.DB().PingContext(ctx)
}

// RunCounts reports the number of persisted runs per status. Used by the
// health endpoint.
func (s *Service) RunCounts(ctx context.Context) (map[agent.ExecutionStatus]int, error) {
	return s.store.CountRunsByStatus(ctx)
}
