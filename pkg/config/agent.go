package config

import (
	"fmt"
	"sync"
)

// AgentConfig defines one agent: the role it plays, the toolsets it may
// call, the output contract on its final answer, and its run budgets.
// Budget fields are pointers so an agent entry can override defaults
// with an explicit value, including zero.
type AgentConfig struct {
	// Description is a one-line summary shown in the system info API.
	Description string `yaml:"description"`

	// Instructions is the natural-language role block rendered into the
	// system prompt. Required.
	Instructions string `yaml:"instructions"`

	// Toolsets lists the tool groups available to the agent. An agent
	// with no toolsets can still answer from the model alone.
	Toolsets []Toolset `yaml:"toolsets"`

	// OutputSchema names the structured-output contract enforced on the
	// final answer. Empty means free-form text.
	OutputSchema OutputSchema `yaml:"output_schema"`

	// LLMProvider overrides the default provider for this agent.
	LLMProvider string `yaml:"llm_provider"`

	// MaxIterations overrides the default tool-execution bound.
	MaxIterations *int `yaml:"max_iterations"`

	// ModelRetryLimit overrides the default model-failure bound.
	ModelRetryLimit *int `yaml:"model_retry_limit"`

	// ParseRetryLimit overrides the default parse-failure bound.
	ParseRetryLimit *int `yaml:"parse_retry_limit"`

	// IterationTimeout overrides the default per-call deadline.
	IterationTimeout Duration `yaml:"iteration_timeout"`
}

// copyAgent returns a deep copy so registry callers can mutate the
// result without affecting the stored entry.
func copyAgent(a AgentConfig) AgentConfig {
	out := a
	if a.Toolsets != nil {
		out.Toolsets = make([]Toolset, len(a.Toolsets))
		copy(out.Toolsets, a.Toolsets)
	}
	if a.MaxIterations != nil {
		v := *a.MaxIterations
		out.MaxIterations = &v
	}
	if a.ModelRetryLimit != nil {
		v := *a.ModelRetryLimit
		out.ModelRetryLimit = &v
	}
	if a.ParseRetryLimit != nil {
		v := *a.ParseRetryLimit
		out.ParseRetryLimit = &v
	}
	return out
}

// AgentRegistry holds the merged set of built-in and user-defined
// agents. Immutable after Initialize; safe for concurrent reads.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]AgentConfig
}

// NewAgentRegistry builds a registry from a merged agent map.
func NewAgentRegistry(agents map[string]AgentConfig) *AgentRegistry {
	m := make(map[string]AgentConfig, len(agents))
	for name, a := range agents {
		m[name] = copyAgent(a)
	}
	return &AgentRegistry{agents: m}
}

// Get returns a copy of the named agent's configuration.
func (r *AgentRegistry) Get(name string) (AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return AgentConfig{}, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return copyAgent(a), nil
}

// GetAll returns a copy of every registered agent keyed by name.
func (r *AgentRegistry) GetAll() map[string]AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]AgentConfig, len(r.agents))
	for name, a := range r.agents {
		out[name] = copyAgent(a)
	}
	return out
}

// Has reports whether the named agent is registered.
func (r *AgentRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.agents[name]
	return ok
}

// Len returns the number of registered agents.
func (r *AgentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.agents)
}
