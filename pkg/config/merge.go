package config

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeAgents overlays user-defined agents on the built-in set. A user
// entry with a built-in name replaces the built-in definition entirely;
// partial edits of a built-in agent are not supported because a half
// overridden instruction block is worse than a missing one.
func mergeAgents(builtin, user map[string]AgentConfig) map[string]AgentConfig {
	merged := make(map[string]AgentConfig, len(builtin)+len(user))
	for name, a := range builtin {
		merged[name] = copyAgent(a)
	}
	for name, a := range user {
		merged[name] = copyAgent(a)
	}
	return merged
}

// mergeProviders overlays user-defined LLM providers on the built-in
// set with the same replace-by-name semantics as agents.
func mergeProviders(builtin, user map[string]LLMProviderConfig) map[string]LLMProviderConfig {
	merged := make(map[string]LLMProviderConfig, len(builtin)+len(user))
	for name, p := range builtin {
		merged[name] = copyProvider(p)
	}
	for name, p := range user {
		merged[name] = copyProvider(p)
	}
	return merged
}

// mergeSection overlays the user's YAML values for a settings section on
// its defaults. Fields the user left at their zero value keep the
// default; set fields win.
func mergeSection[T any](defaults *T, user T) error {
	if err := mergo.Merge(defaults, user, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge configuration section: %w", err)
	}
	return nil
}
