// Package workflow chains named nodes into a linear flow over shared
// state.
//
// A Graph is a single chain: the first registered node runs first, the
// last runs last, no branching. Each node reads the request and what
// earlier nodes produced, and returns its own response, which the graph
// appends to the state. This is how multi-agent flows are composed, an
// architect drafting a plan and a reviewer critiquing it, with each
// role's output visible to the next.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxSteps bounds a run when the caller does not set one.
const DefaultMaxSteps = 10

var (
	// ErrNoNodes is returned by Run on a graph with no registered nodes.
	ErrNoNodes = errors.New("graph has no nodes")

	// ErrStepLimit is returned when a run reaches its step bound with
	// nodes still pending.
	ErrStepLimit = errors.New("step limit exceeded")
)

// DuplicateNodeError reports a second registration under an existing name.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already registered", e.Name)
}

// NodeFunc is one unit of work in a chain. It reads the accumulated state
// and returns its response; the graph records the response under the
// node's name.
type NodeFunc func(ctx context.Context, state *State) (string, error)

// State is the shared data a chain accumulates: the originating request
// and each node's response in execution order.
type State struct {
	Request   string
	Responses []Response
}

// Response is one node's recorded output.
type Response struct {
	Node    string
	Content string
}

// Last returns the most recent response content, or "" before any node
// has run.
func (s *State) Last() string {
	if len(s.Responses) == 0 {
		return ""
	}
	return s.Responses[len(s.Responses)-1].Content
}

// ByNode returns the response recorded by the named node.
func (s *State) ByNode(name string) (string, bool) {
	for _, r := range s.Responses {
		if r.Node == name {
			return r.Content, true
		}
	}
	return "", false
}

type node struct {
	name string
	fn   NodeFunc
}

// Graph is an ordered chain of named nodes. Register the nodes up front,
// then Run as often as needed; each run gets a fresh State.
type Graph struct {
	logger *slog.Logger
	nodes  []node
}

// NewGraph creates an empty chain.
func NewGraph(logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Graph{
		logger: logger.With(slog.String("component", "workflow")),
	}
}

// AddNode appends a node to the end of the chain. Names must be unique
// within the graph.
func (g *Graph) AddNode(name string, fn NodeFunc) error {
	for _, n := range g.nodes {
		if n.name == name {
			return &DuplicateNodeError{Name: name}
		}
	}
	g.nodes = append(g.nodes, node{name: name, fn: fn})
	return nil
}

// RunConfig bounds a chain run and hooks persistence into it.
type RunConfig struct {
	// MaxSteps caps how many nodes may execute in one run. Zero or
	// negative applies DefaultMaxSteps.
	MaxSteps int

	// Checkpoint, when set, runs after each node with the state recorded
	// so far. A checkpoint error stops the chain.
	Checkpoint func(ctx context.Context, nodeName string, state *State) error
}

// Run executes the chain over a fresh state seeded with the request.
// Execution stops at the first node error, checkpoint error, context
// cancellation, or once the step bound is reached with nodes still
// pending. The state accumulated up to the stop is returned alongside
// the error.
func (g *Graph) Run(ctx context.Context, request string, cfg RunConfig) (*State, error) {
	if len(g.nodes) == 0 {
		return nil, ErrNoNodes
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	state := &State{Request: request}
	for i, n := range g.nodes {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if i >= maxSteps {
			return state, fmt.Errorf("%w after %d of %d nodes", ErrStepLimit, maxSteps, len(g.nodes))
		}

		g.logger.Debug("Running workflow node",
			slog.String("node", n.name),
			slog.Int("position", i+1),
			slog.Int("chain_length", len(g.nodes)))

		out, err := n.fn(ctx, state)
		if err != nil {
			return state, fmt.Errorf("node %s: %w", n.name, err)
		}
		state.Responses = append(state.Responses, Response{Node: n.name, Content: out})

		if cfg.Checkpoint != nil {
			if err := cfg.Checkpoint(ctx, n.name, state); err != nil {
				return state, fmt.Errorf("checkpoint after node %s: %w", n.name, err)
			}
		}
	}
	return state, nil
}
