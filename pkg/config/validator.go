package config

import (
	"fmt"
	"net/url"
)

// ConfigValidator validates loaded configuration with field-level error
// messages.
type ConfigValidator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// ValidateAll performs full validation, stopping at the first error.
// Sections are checked before the components that reference them, so
// provider problems surface before the agents that point at them.
func (v *ConfigValidator) ValidateAll() error {
	if err := v.validateSystem(); err != nil {
		return fmt.Errorf("system validation failed: %w", err)
	}

	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateHistory(); err != nil {
		return fmt.Errorf("history validation failed: %w", err)
	}

	if err := v.validateVSphere(); err != nil {
		return fmt.Errorf("vsphere validation failed: %w", err)
	}

	if err := v.validateForklift(); err != nil {
		return fmt.Errorf("forklift validation failed: %w", err)
	}

	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	if err := v.validateAgents(); err != nil {
		return fmt.Errorf("agent validation failed: %w", err)
	}

	return nil
}

func (v *ConfigValidator) validateSystem() error {
	sys := v.cfg.System

	if sys.ListenAddr == "" {
		return NewValidationError("system", "", "listen_addr", ErrMissingRequiredField)
	}
	if !sys.LogLevel.IsValid() {
		return NewValidationError("system", "", "log_level",
			fmt.Errorf("%w: %q (want debug, info, warn or error)", ErrInvalidValue, sys.LogLevel))
	}
	if !sys.LogFormat.IsValid() {
		return NewValidationError("system", "", "log_format",
			fmt.Errorf("%w: %q (want text or json)", ErrInvalidValue, sys.LogFormat))
	}

	return nil
}

func (v *ConfigValidator) validateQueue() error {
	q := v.cfg.Queue

	if q.WorkerCount < 1 {
		return NewValidationError("queue", "", "worker_count", fmt.Errorf("must be at least 1"))
	}
	if q.QueueSize < 1 {
		return NewValidationError("queue", "", "queue_size", fmt.Errorf("must be at least 1"))
	}
	if q.RunTimeout <= 0 {
		return NewValidationError("queue", "", "run_timeout", fmt.Errorf("must be positive"))
	}
	if q.GracefulShutdownTimeout <= 0 {
		return NewValidationError("queue", "", "graceful_shutdown_timeout", fmt.Errorf("must be positive"))
	}

	return nil
}

func (v *ConfigValidator) validateHistory() error {
	h := v.cfg.History

	if !h.Driver.IsValid() {
		return NewValidationError("history", "", "driver",
			fmt.Errorf("%w: %q (want sqlite or postgres)", ErrInvalidValue, h.Driver))
	}
	if h.DSN == "" {
		return NewValidationError("history", "", "dsn", ErrMissingRequiredField)
	}
	if h.Retention.MaxAgeOrZero() < 0 {
		return NewValidationError("history", "", "retention.max_age", fmt.Errorf("must not be negative"))
	}
	if h.Retention.MaxAgeOrZero() > 0 && h.Retention.SweepInterval <= 0 {
		return NewValidationError("history", "", "retention.sweep_interval",
			fmt.Errorf("must be positive when retention is enabled"))
	}

	return nil
}

// validateVSphere only applies when a vCenter URL is configured; the
// section is optional and the zero value means disabled.
func (v *ConfigValidator) validateVSphere() error {
	vs := v.cfg.VSphere
	if !vs.Enabled() {
		return nil
	}

	if vs.Username == "" {
		return NewValidationError("vsphere", "", "username", ErrMissingRequiredField)
	}
	if vs.PasswordEnv == "" {
		return NewValidationError("vsphere", "", "password_env", ErrMissingRequiredField)
	}
	if vs.CacheTTL < 0 {
		return NewValidationError("vsphere", "", "cache_ttl", fmt.Errorf("must not be negative"))
	}

	return nil
}

// validateForklift only applies when an API URL is configured; the
// section is optional and the zero value means disabled.
func (v *ConfigValidator) validateForklift() error {
	f := v.cfg.Forklift
	if !f.Enabled() {
		return nil
	}

	if f.InventoryURL == "" {
		return NewValidationError("forklift", "", "inventory_url", ErrMissingRequiredField)
	}
	if f.TokenEnv == "" {
		return NewValidationError("forklift", "", "token_env", ErrMissingRequiredField)
	}
	if f.Timeout < 0 {
		return NewValidationError("forklift", "", "timeout", fmt.Errorf("must not be negative"))
	}

	return nil
}

func (v *ConfigValidator) validateLLMProviders() error {
	for name, provider := range v.cfg.LLMProviders.GetAll() {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type",
				fmt.Errorf("%w: %q (want ollama)", ErrInvalidValue, provider.Type))
		}
		if provider.Model == "" {
			return NewValidationError("llm_provider", name, "model", ErrMissingRequiredField)
		}
		if provider.BaseURL == "" {
			return NewValidationError("llm_provider", name, "base_url", ErrMissingRequiredField)
		}
		if u, err := url.Parse(provider.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return NewValidationError("llm_provider", name, "base_url",
				fmt.Errorf("%w: %q (want an http or https URL)", ErrInvalidValue, provider.BaseURL))
		}
		if provider.Timeout < 0 {
			return NewValidationError("llm_provider", name, "timeout", fmt.Errorf("must not be negative"))
		}
		if provider.Temperature < 0 || provider.TopP < 0 || provider.RepetitionPenalty < 0 {
			return NewValidationError("llm_provider", name, "sampling", fmt.Errorf("sampling values must not be negative"))
		}
		if provider.TopK < 0 {
			return NewValidationError("llm_provider", name, "top_k", fmt.Errorf("must not be negative"))
		}
	}

	return nil
}

func (v *ConfigValidator) validateDefaults() error {
	d := v.cfg.Defaults

	if d.Agent == "" {
		return NewValidationError("defaults", "", "agent", ErrMissingRequiredField)
	}
	if !v.cfg.Agents.Has(d.Agent) {
		return NewValidationError("defaults", "", "agent",
			fmt.Errorf("%w: %s", ErrAgentNotFound, d.Agent))
	}
	if d.LLMProvider == "" {
		return NewValidationError("defaults", "", "llm_provider", ErrMissingRequiredField)
	}
	if !v.cfg.LLMProviders.Has(d.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider",
			fmt.Errorf("%w: %s", ErrLLMProviderNotFound, d.LLMProvider))
	}
	if err := validateBudgets("defaults", "", d.MaxIterations, d.ModelRetryLimit, d.ParseRetryLimit, d.IterationTimeout); err != nil {
		return err
	}

	return nil
}

func (v *ConfigValidator) validateAgents() error {
	for name, agent := range v.cfg.Agents.GetAll() {
		if agent.Instructions == "" {
			return NewValidationError("agent", name, "instructions", ErrMissingRequiredField)
		}

		for _, toolset := range agent.Toolsets {
			if !toolset.IsValid() {
				return NewValidationError("agent", name, "toolsets",
					fmt.Errorf("%w: %q (want one of: %s)", ErrInvalidValue, toolset, ValidToolsets()))
			}
		}

		if !agent.OutputSchema.IsValid() {
			return NewValidationError("agent", name, "output_schema",
				fmt.Errorf("%w: %q (want one of: %s)", ErrInvalidValue, agent.OutputSchema, ValidOutputSchemas()))
		}

		if agent.LLMProvider != "" && !v.cfg.LLMProviders.Has(agent.LLMProvider) {
			return NewValidationError("agent", name, "llm_provider",
				fmt.Errorf("%w: %s", ErrLLMProviderNotFound, agent.LLMProvider))
		}

		if err := validateBudgets("agent", name, agent.MaxIterations, agent.ModelRetryLimit, agent.ParseRetryLimit, agent.IterationTimeout); err != nil {
			return err
		}
	}

	return nil
}

// validateBudgets checks the run budget fields shared by agent entries
// and the defaults section.
func validateBudgets(component, id string, maxIterations, modelRetries, parseRetries *int, iterationTimeout Duration) error {
	if maxIterations != nil && *maxIterations < 1 {
		return NewValidationError(component, id, "max_iterations", fmt.Errorf("must be at least 1"))
	}
	if modelRetries != nil && *modelRetries < 0 {
		return NewValidationError(component, id, "model_retry_limit", fmt.Errorf("must not be negative"))
	}
	if parseRetries != nil && *parseRetries < 0 {
		return NewValidationError(component, id, "parse_retry_limit", fmt.Errorf("must not be negative"))
	}
	if iterationTimeout < 0 {
		return NewValidationError(component, id, "iteration_timeout", fmt.Errorf("must not be negative"))
	}
	return nil
}
