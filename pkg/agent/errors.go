package agent

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind labels a run failure for persistence and API responses.
type ErrorKind string

const (
	ErrorKindModelUnavailable      ErrorKind = "model_unavailable"
	ErrorKindUnparsableModelOutput ErrorKind = "unparsable_model_output"
	ErrorKindUnknownTool           ErrorKind = "unknown_tool"
	ErrorKindInvalidToolInput      ErrorKind = "invalid_tool_input"
	ErrorKindToolExecution         ErrorKind = "tool_execution"
	ErrorKindMaxIterations         ErrorKind = "max_iterations_exceeded"
)

// Fatal sentinels. Tool-level and parse-level failures are absorbed into the
// conversation as observations first; only exhaustion of a configured budget
// surfaces one of these.
var (
	ErrModelUnavailable      = errors.New("model unavailable")
	ErrUnparsableModelOutput = errors.New("unparsable model output")
	ErrMaxIterationsExceeded = errors.New("max iterations exceeded")
)

// DuplicateToolError reports a second registration under an existing name.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError reports a dispatch to an unregistered tool name.
// Carries the known names so the controller can list them in the
// corrective observation.
type UnknownToolError struct {
	Name  string
	Known []string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q (registered: %s)", e.Name, strings.Join(e.Known, ", "))
}

// FieldViolation is one schema failure in a tool's input mapping.
type FieldViolation struct {
	Field  string
	Reason string
}

// InvalidToolInputError reports input that failed the tool's parameter
// schema. Violations holds every missing or mistyped field, not just the
// first, so the model gets the complete correction in one observation.
type InvalidToolInputError struct {
	Tool       string
	Violations []FieldViolation
}

func (e *InvalidToolInputError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Reason)
	}
	return fmt.Sprintf("invalid input for tool %q: %s", e.Tool, strings.Join(parts, "; "))
}

// RunError is the fatal, user-visible failure of a run. It always names the
// specific bound that was exceeded and the last known loop state.
type RunError struct {
	Kind       ErrorKind
	Bound      int // the budget that was exhausted
	Iterations int
	ModelCalls int
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s (bound %d, iterations %d, model calls %d)",
		e.Err, e.Bound, e.Iterations, e.ModelCalls)
}

func (e *RunError) Unwrap() error { return e.Err }

// KindOf maps an error chain to its taxonomy label. Empty for nil or
// unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Kind
	}
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return ErrorKindModelUnavailable
	case errors.Is(err, ErrUnparsableModelOutput):
		return ErrorKindUnparsableModelOutput
	case errors.Is(err, ErrMaxIterationsExceeded):
		return ErrorKindMaxIterations
	}
	var unknown *UnknownToolError
	if errors.As(err, &unknown) {
		return ErrorKindUnknownTool
	}
	var invalid *InvalidToolInputError
	if errors.As(err, &invalid) {
		return ErrorKindInvalidToolInput
	}
	return ""
}
