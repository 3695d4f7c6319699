package agent

import "context"

// ToolExecutor abstracts tool dispatch for loop controllers.
// Implemented by tools.Registry; defined here to avoid an agent↔tools cycle.
//
// Implementations are immutable after startup and safe for concurrent use.
type ToolExecutor interface {
	// Descriptors returns every registered tool in registration order.
	// The order is stable across calls so rendered prompts are
	// reproducible run to run.
	Descriptors() []ToolDescriptor

	// Invoke validates input against the tool's parameter schema and runs
	// the tool. Registry-level failures (unknown name, invalid input)
	// come back as *UnknownToolError / *InvalidToolInputError so the
	// controller can turn them into corrective observations. Failures
	// inside the tool itself never surface as Go errors: they are
	// returned as ToolResult with status "error", because tool failures
	// are data the model needs to see, not control-flow faults.
	Invoke(ctx context.Context, name string, input map[string]any) (*ToolResult, error)
}

// ParameterSpec declares one tool parameter.
type ParameterSpec struct {
	Type        string `json:"type"` // string, integer, number, boolean, object, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolDescriptor is the machine-readable description of a registered tool.
// Immutable once registered; rendered verbatim into prompts and used to
// validate action inputs at dispatch time.
type ToolDescriptor struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters,omitempty"`
}

// ToolStatus marks a tool result as success or failure.
type ToolStatus string

const (
	ToolStatusOK    ToolStatus = "ok"
	ToolStatusError ToolStatus = "error"
)

// ToolResult is the outcome of one tool invocation. Consumed immediately to
// build the next observation turn.
type ToolResult struct {
	Name         string     `json:"name"`
	Status       ToolStatus `json:"status"`
	Value        any        `json:"value,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// IsError reports whether the tool run failed.
func (r *ToolResult) IsError() bool { return r.Status == ToolStatusError }
