package history

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

// ErrRunNotFound is returned when a run ID does not exist in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is a persisted record of a single agent execution.
type Run struct {
	ID        string                `json:"id"`
	AgentName string                `json:"agent_name"`
	Request   string                `json:"request"`
	Status    agent.ExecutionStatus `json:"status"`

	FinalAnswer string         `json:"final_answer,omitempty"`
	Error       string         `json:"error,omitempty"`
	Stats       agent.RunStats `json:"stats"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Message is one persisted transcript turn.
type Message struct {
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows and pages ListRuns results.
type ListFilter struct {
	Status    agent.ExecutionStatus
	AgentName string
	Limit     int // defaults to 50 when <= 0
	Offset    int
}

const runColumns = `id, agent_name, request, status, final_answer, error,
	iterations, model_calls, tool_calls, prompt_tokens, output_tokens,
	created_at, started_at, finished_at`

// terminal run states eligible for retention deletion
var terminalStatuses = []agent.ExecutionStatus{
	agent.ExecutionStatusCompleted,
	agent.ExecutionStatusFailed,
	agent.ExecutionStatusTimedOut,
	agent.ExecutionStatusCancelled,
}

// timeLayout is RFC 3339 with fixed-width nanoseconds so encoded values
// collate chronologically as text on SQLite. PostgreSQL parses the same
// strings into timestamptz server-side.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	// database/sql renders timestamptz scans with trimmed nanoseconds.
	return time.Parse(time.RFC3339Nano, s)
}

// CreateRun inserts a new run record. Status defaults to queued and
// CreatedAt to the current time when unset.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("history: run ID is required")
	}
	if run.Status == "" {
		run.Status = agent.ExecutionStatusQueued
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO runs (id, agent_name, request, status, created_at) VALUES (?, ?, ?, ?, ?)`),
		run.ID, run.AgentName, run.Request, string(run.Status), encodeTime(run.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return nil
}

// MarkRunStarted transitions a run to running and stamps started_at.
func (s *Store) MarkRunStarted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`),
		string(agent.ExecutionStatusRunning), encodeTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark run %s started: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// FinishRun records the outcome of a run: terminal status, final answer,
// error text, and the accumulated counters.
func (s *Store) FinishRun(ctx context.Context, id string, result *agent.ExecutionResult) error {
	errText := ""
	if result.Error != nil {
		errText = result.Error.Error()
	}
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE runs SET status = ?, final_answer = ?, error = ?,
			iterations = ?, model_calls = ?, tool_calls = ?,
			prompt_tokens = ?, output_tokens = ?, finished_at = ?
		WHERE id = ?`),
		string(result.Status), result.FinalAnswer, errText,
		result.Stats.Iterations, result.Stats.ModelCalls, result.Stats.ToolCalls,
		result.Stats.PromptTokens, result.Stats.OutputTokens, encodeTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// GetRun fetches a single run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs matching the filter, newest first, along with the
// total number of matches before paging.
func (s *Store) ListRuns(ctx context.Context, filter ListFilter) ([]*Run, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AgentName != "" {
		where = append(where, "agent_name = ?")
		args = append(args, filter.AgentName)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM runs`+whereSQL), args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count runs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+runColumns+` FROM runs`+whereSQL+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, total, nil
}

// CountRunsByStatus reports how many runs exist per execution status.
// Statuses with no runs are absent from the map.
func (s *Store) CountRunsByStatus(ctx context.Context) (map[agent.ExecutionStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT status, COUNT(*) FROM runs GROUP BY status`))
	if err != nil {
		return nil, fmt.Errorf("failed to count runs by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[agent.ExecutionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[agent.ExecutionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

// AppendMessage appends one transcript turn to a run. Sequence numbers are
// assigned per run, starting at 1.
func (s *Store) AppendMessage(ctx context.Context, runID string, msg agent.ConversationMessage) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO run_messages (run_id, seq, role, content, created_at)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM run_messages WHERE run_id = ?), ?, ?, ?)`),
		runID, runID, msg.Role, msg.Content, encodeTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to append message to run %s: %w", runID, err)
	}
	return nil
}

// Messages returns the ordered transcript of a run.
func (s *Store) Messages(ctx context.Context, runID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT seq, role, content, created_at FROM run_messages WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	msgs := []Message{}
	for rows.Next() {
		m := Message{RunID: runID}
		var created string
		if err := rows.Scan(&m.Seq, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if m.CreatedAt, err = decodeTime(created); err != nil {
			return nil, fmt.Errorf("failed to parse message timestamp: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}

// DeleteRunsBefore removes terminal runs created before the cutoff together
// with their transcripts. Queued and running runs are never touched. Returns
// the number of runs deleted.
func (s *Store) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin retention transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statusSet := terminalStatusSet()

	_, err = tx.ExecContext(ctx, s.rebind(
		`DELETE FROM run_messages WHERE run_id IN
			(SELECT id FROM runs WHERE created_at < ? AND status IN (`+statusSet+`))`), encodeTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, s.rebind(
		`DELETE FROM runs WHERE created_at < ? AND status IN (`+statusSet+`)`), encodeTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired runs: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit retention transaction: %w", err)
	}
	return deleted, nil
}

// terminalStatusSet renders the terminal statuses as a SQL IN list. The
// values are compile-time constants, never user input.
func terminalStatusSet() string {
	quoted := make([]string, len(terminalStatuses))
	for i, st := range terminalStatuses {
		quoted[i] = "'" + string(st) + "'"
	}
	return strings.Join(quoted, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		status   string
		created  string
		started  stdsql.NullString
		finished stdsql.NullString
	)
	err := row.Scan(&run.ID, &run.AgentName, &run.Request, &status,
		&run.FinalAnswer, &run.Error,
		&run.Stats.Iterations, &run.Stats.ModelCalls, &run.Stats.ToolCalls,
		&run.Stats.PromptTokens, &run.Stats.OutputTokens,
		&created, &started, &finished)
	if err != nil {
		return nil, err
	}
	run.Status = agent.ExecutionStatus(status)
	if run.CreatedAt, err = decodeTime(created); err != nil {
		return nil, fmt.Errorf("bad created_at for run %s: %w", run.ID, err)
	}
	if run.StartedAt, err = decodeNullTime(started); err != nil {
		return nil, fmt.Errorf("bad started_at for run %s: %w", run.ID, err)
	}
	if run.FinishedAt, err = decodeNullTime(finished); err != nil {
		return nil, fmt.Errorf("bad finished_at for run %s: %w", run.ID, err)
	}
	return &run, nil
}

func decodeNullTime(v stdsql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := decodeTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func requireRowAffected(res stdsql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
