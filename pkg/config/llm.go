package config

import (
	"fmt"
	"sync"
)

// LLMProviderConfig defines one model endpoint agents can run against.
// Sampling fields left at zero take the client's neutral settings
// (top_p 1, repetition_penalty 1, greedy temperature 0).
type LLMProviderConfig struct {
	// Type identifies the API family. Only "ollama" is supported.
	Type LLMProviderType `yaml:"type"`

	// Model is the model name passed to the endpoint. Required.
	Model string `yaml:"model"`

	// BaseURL is the model server base URL, e.g.
	// "http://localhost:11434". The client appends the API paths.
	BaseURL string `yaml:"base_url"`

	// Temperature, TopP, TopK and RepetitionPenalty tune sampling.
	Temperature       float64 `yaml:"temperature"`
	TopP              float64 `yaml:"top_p"`
	TopK              int     `yaml:"top_k"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`

	// Stop lists sequences that end a completion.
	Stop []string `yaml:"stop"`

	// Timeout bounds each model call.
	Timeout Duration `yaml:"timeout"`
}

// copyProvider returns a deep copy so registry callers can mutate the
// result without affecting the stored entry.
func copyProvider(p LLMProviderConfig) LLMProviderConfig {
	out := p
	if p.Stop != nil {
		out.Stop = make([]string, len(p.Stop))
		copy(out.Stop, p.Stop)
	}
	return out
}

// LLMProviderRegistry holds the merged set of built-in and user-defined
// providers. Immutable after Initialize; safe for concurrent reads.
type LLMProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]LLMProviderConfig
}

// NewLLMProviderRegistry builds a registry from a merged provider map.
func NewLLMProviderRegistry(providers map[string]LLMProviderConfig) *LLMProviderRegistry {
	m := make(map[string]LLMProviderConfig, len(providers))
	for name, p := range providers {
		m[name] = copyProvider(p)
	}
	return &LLMProviderRegistry{providers: m}
}

// Get returns a copy of the named provider's configuration.
func (r *LLMProviderRegistry) Get(name string) (LLMProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return LLMProviderConfig{}, fmt.Errorf("%w: %s", ErrLLMProviderNotFound, name)
	}
	return copyProvider(p), nil
}

// GetAll returns a copy of every registered provider keyed by name.
func (r *LLMProviderRegistry) GetAll() map[string]LLMProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]LLMProviderConfig, len(r.providers))
	for name, p := range r.providers {
		out[name] = copyProvider(p)
	}
	return out
}

// Has reports whether the named provider is registered.
func (r *LLMProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}

// Len returns the number of registered providers.
func (r *LLMProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}
