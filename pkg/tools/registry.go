// Package tools implements the tool registry: a name → callable mapping with
// machine-readable descriptors, populated once at startup and read-only
// afterwards.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

// Compile-time check that Registry implements agent.ToolExecutor.
var _ agent.ToolExecutor = (*Registry)(nil)

// Func is the callable behind a tool. The returned value must be
// JSON-marshalable; it becomes the observation content.
type Func func(ctx context.Context, input map[string]any) (any, error)

// Tool is one registrable capability.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]agent.ParameterSpec
	Handler     Func
}

type entry struct {
	descriptor agent.ToolDescriptor
	handler    Func
	schema     *jsonschema.Schema
}

// Registry holds the set of callable capabilities. Registration happens
// during startup; afterwards the registry is only read, so concurrent
// Invoke/Descriptors calls from independent runs are safe.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*entry
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger.With(slog.String("component", "tools")),
	}
}

// Register adds a tool. Fails with *agent.DuplicateToolError when the name is
// taken, or a plain error when the descriptor is unusable (no handler,
// unknown parameter type). The parameter schema is compiled here, once, so
// dispatch never pays compilation and bad declarations fail at startup.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("register tool: name must not be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("register tool %q: handler must not be nil", t.Name)
	}

	schema, err := compileParameterSchema(t.Name, t.Parameters)
	if err != nil {
		return fmt.Errorf("register tool %q: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[t.Name]; exists {
		return &agent.DuplicateToolError{Name: t.Name}
	}

	params := make(map[string]agent.ParameterSpec, len(t.Parameters))
	for name, spec := range t.Parameters {
		params[name] = spec
	}
	r.entries[t.Name] = &entry{
		descriptor: agent.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		},
		handler: t.Handler,
		schema:  schema,
	}
	r.order = append(r.order, t.Name)

	r.logger.Debug("tool registered", slog.String("tool", t.Name))
	return nil
}

// MustRegister is Register for startup wiring where a failure is a
// programming error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Descriptors returns every registered tool in registration order. The
// order is stable across calls so rendered prompts are reproducible.
func (r *Registry) Descriptors() []agent.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]agent.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		d := r.entries[name].descriptor
		params := make(map[string]agent.ParameterSpec, len(d.Parameters))
		for k, v := range d.Parameters {
			params[k] = v
		}
		d.Parameters = params
		out = append(out, d)
	}
	return out
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Invoke dispatches one tool call.
//
// Registry-level failures come back as Go errors the controller turns into
// corrective observations: *agent.UnknownToolError for unregistered names,
// *agent.InvalidToolInputError listing every schema violation. Failures
// inside the handler (error return or panic) are converted into a
// ToolResult with status "error": tool failures are data the model must
// see, never propagated faults.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any) (*agent.ToolResult, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &agent.UnknownToolError{Name: name, Known: r.Names()}
	}

	if input == nil {
		input = map[string]any{}
	}
	if err := e.schema.Validate(input); err != nil {
		return nil, &agent.InvalidToolInputError{Tool: name, Violations: violations(err)}
	}

	return r.run(ctx, name, e, input), nil
}

func (r *Registry) run(ctx context.Context, name string, e *entry, input map[string]any) (result *agent.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked",
				slog.String("tool", name),
				slog.Any("panic", rec))
			result = &agent.ToolResult{
				Name:         name,
				Status:       agent.ToolStatusError,
				ErrorMessage: fmt.Sprintf("tool %q panicked: %v", name, rec),
			}
		}
	}()

	value, err := e.handler(ctx, input)
	if err != nil {
		r.logger.Debug("tool returned error",
			slog.String("tool", name),
			slog.String("error", err.Error()))
		return &agent.ToolResult{
			Name:         name,
			Status:       agent.ToolStatusError,
			ErrorMessage: err.Error(),
		}
	}
	return &agent.ToolResult{
		Name:   name,
		Status: agent.ToolStatusOK,
		Value:  value,
	}
}
