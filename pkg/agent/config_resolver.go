package agent

import (
	"fmt"
	"time"

	"github.com/konveyor-ecosystem/migsy/pkg/config"
)

// Fallback budgets applied when neither the defaults section nor the
// agent's own entry sets a value.
const (
	DefaultMaxIterations   = 10
	DefaultModelRetryLimit = 3
	DefaultParseRetryLimit = 3
)

// DefaultIterationTimeout is the fallback per-call deadline. Each model
// call and each tool call gets its own context.WithTimeout derived from
// the run context, so a single stuck call cannot consume the whole run
// budget.
const DefaultIterationTimeout = 120 * time.Second

// ResolveAgentConfig builds the final run configuration for the named
// agent by applying the hierarchy: fallbacks → defaults section → agent
// entry (later values override earlier ones). It also resolves the LLM
// provider the run should use: the agent's own choice when set,
// otherwise the configured default.
func ResolveAgentConfig(cfg *config.Config, agentName string) (*ResolvedAgentConfig, config.LLMProviderConfig, error) {
	agentDef, err := cfg.GetAgent(agentName)
	if err != nil {
		return nil, config.LLMProviderConfig{}, fmt.Errorf("agent %q not found: %w", agentName, err)
	}

	defaults := cfg.Defaults

	providerName := defaults.LLMProvider
	if agentDef.LLMProvider != "" {
		providerName = agentDef.LLMProvider
	}
	provider, err := cfg.GetLLMProvider(providerName)
	if err != nil {
		return nil, config.LLMProviderConfig{}, fmt.Errorf("LLM provider %q not found: %w", providerName, err)
	}

	maxIterations := DefaultMaxIterations
	if defaults.MaxIterations != nil {
		maxIterations = *defaults.MaxIterations
	}
	if agentDef.MaxIterations != nil {
		maxIterations = *agentDef.MaxIterations
	}

	modelRetryLimit := DefaultModelRetryLimit
	if defaults.ModelRetryLimit != nil {
		modelRetryLimit = *defaults.ModelRetryLimit
	}
	if agentDef.ModelRetryLimit != nil {
		modelRetryLimit = *agentDef.ModelRetryLimit
	}

	parseRetryLimit := DefaultParseRetryLimit
	if defaults.ParseRetryLimit != nil {
		parseRetryLimit = *defaults.ParseRetryLimit
	}
	if agentDef.ParseRetryLimit != nil {
		parseRetryLimit = *agentDef.ParseRetryLimit
	}

	iterationTimeout := DefaultIterationTimeout
	if defaults.IterationTimeout > 0 {
		iterationTimeout = defaults.IterationTimeout.Std()
	}
	if agentDef.IterationTimeout > 0 {
		iterationTimeout = agentDef.IterationTimeout.Std()
	}

	return &ResolvedAgentConfig{
		AgentName:        agentName,
		Role:             agentDef.Instructions,
		MaxIterations:    maxIterations,
		ModelRetryLimit:  modelRetryLimit,
		ParseRetryLimit:  parseRetryLimit,
		IterationTimeout: iterationTimeout,
		OutputSchema:     string(agentDef.OutputSchema),
		LLMProviderName:  providerName,
		Toolsets:         agentDef.Toolsets,
	}, provider, nil
}
