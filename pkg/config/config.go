// Package config loads, merges and validates migsy configuration.
//
// Configuration comes from three layers: built-in definitions compiled
// into the binary, migsy.yaml for system settings and agents, and
// llm-providers.yaml for model endpoints. User entries override
// built-ins by name. Environment variables reach the files through
// {{.VAR}} expansion; secrets stay out of YAML via *_env indirection.
package config

import "fmt"

// Config is the fully loaded, merged and validated configuration.
// Immutable after Initialize; safe for concurrent reads.
type Config struct {
	configDir string

	System   SystemConfig
	Defaults Defaults
	Queue    QueueConfig
	History  HistoryConfig
	VSphere  VSphereConfig
	Forklift ForkliftConfig

	Agents       *AgentRegistry
	LLMProviders *LLMProviderRegistry
}

// ConfigDir returns the directory the configuration was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetAgent returns the named agent's configuration.
func (c *Config) GetAgent(name string) (AgentConfig, error) {
	return c.Agents.Get(name)
}

// GetLLMProvider returns the named provider's configuration.
func (c *Config) GetLLMProvider(name string) (LLMProviderConfig, error) {
	return c.LLMProviders.Get(name)
}

// Stats summarizes what was loaded, for the startup log line and the
// system info endpoint.
type Stats struct {
	Agents          int  `json:"agents"`
	LLMProviders    int  `json:"llm_providers"`
	VSphereEnabled  bool `json:"vsphere_enabled"`
	ForkliftEnabled bool `json:"forklift_enabled"`
}

// Stats returns load statistics for this configuration.
func (c *Config) Stats() Stats {
	return Stats{
		Agents:          c.Agents.Len(),
		LLMProviders:    c.LLMProviders.Len(),
		VSphereEnabled:  c.VSphere.Enabled(),
		ForkliftEnabled: c.Forklift.Enabled(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf("%d agents, %d LLM providers (vsphere=%t, forklift=%t)",
		s.Agents, s.LLMProviders, s.VSphereEnabled, s.ForkliftEnabled)
}
