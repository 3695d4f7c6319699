package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MigsyYAMLConfig is the complete migsy.yaml file structure.
type MigsyYAMLConfig struct {
	System   SystemConfig           `yaml:"system"`
	Defaults *Defaults              `yaml:"defaults"`
	Queue    QueueConfig            `yaml:"queue"`
	History  HistoryConfig          `yaml:"history"`
	VSphere  VSphereConfig          `yaml:"vsphere"`
	Forklift ForkliftConfig         `yaml:"forklift"`
	Agents   map[string]AgentConfig `yaml:"agents"`
}

// LLMProvidersYAMLConfig is the complete llm-providers.yaml file
// structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, merges, validates, and returns ready-to-use
// configuration. This is the only entry point for configuration
// loading.
//
// Steps performed:
//  1. Read migsy.yaml and llm-providers.yaml from configDir
//  2. Expand {{.VAR}} environment references
//  3. Decode YAML, rejecting unknown fields
//  4. Merge built-in agents and providers with user entries
//  5. Overlay user section values on built-in section defaults
//  6. Build registries and validate everything
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := NewValidator(cfg).ValidateAll(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"agents", stats.Agents,
		"llm_providers", stats.LLMProviders,
		"vsphere_enabled", stats.VSphereEnabled,
		"forklift_enabled", stats.ForkliftEnabled)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	migsyConfig, err := loader.loadMigsyYAML()
	if err != nil {
		return nil, NewLoadError("migsy.yaml", err)
	}

	userProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()

	// Merge built-in and user-defined components, user entries win.
	agents := mergeAgents(builtin.Agents, migsyConfig.Agents)
	providers := mergeProviders(builtin.LLMProviders, userProviders)

	// Overlay user section values on their defaults.
	system := DefaultSystemConfig()
	if err := mergeSection(&system, migsyConfig.System); err != nil {
		return nil, err
	}
	queue := DefaultQueueConfig()
	if err := mergeSection(&queue, migsyConfig.Queue); err != nil {
		return nil, err
	}
	history := DefaultHistoryConfig()
	if err := mergeSection(&history, migsyConfig.History); err != nil {
		return nil, err
	}
	// An explicit max_age: 0 disables retention. The generic merge
	// drops a zero pointee, so the pointer is carried over by hand.
	if migsyConfig.History.Retention.MaxAge != nil {
		history.Retention.MaxAge = migsyConfig.History.Retention.MaxAge
	}
	vsphere := DefaultVSphereConfig()
	if err := mergeSection(&vsphere, migsyConfig.VSphere); err != nil {
		return nil, err
	}
	forklift := DefaultForkliftConfig()
	if err := mergeSection(&forklift, migsyConfig.Forklift); err != nil {
		return nil, err
	}

	defaults := migsyConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.Agent == "" {
		defaults.Agent = BuiltinDefaultAgent
	}
	if defaults.LLMProvider == "" {
		defaults.LLMProvider = BuiltinDefaultProvider
	}

	return &Config{
		configDir:    configDir,
		System:       system,
		Defaults:     *defaults,
		Queue:        queue,
		History:      history,
		VSphere:      vsphere,
		Forklift:     forklift,
		Agents:       NewAgentRegistry(agents),
		LLMProviders: NewLLMProviderRegistry(providers),
	}, nil
}

type configLoader struct {
	configDir string
}

// loadYAML reads one configuration file, expands environment
// references, and decodes it into target. Unknown YAML fields are an
// error so a misspelled key fails loudly instead of silently keeping a
// default. An empty file decodes to the zero value.
func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// ExpandEnv passes the original data through on template errors so
	// the YAML decoder can produce the clearer message.
	data = ExpandEnv(data)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadMigsyYAML() (*MigsyYAMLConfig, error) {
	config := MigsyYAMLConfig{
		Agents: make(map[string]AgentConfig),
	}

	if err := l.loadYAML("migsy.yaml", &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	config := LLMProvidersYAMLConfig{
		LLMProviders: make(map[string]LLMProviderConfig),
	}

	if err := l.loadYAML("llm-providers.yaml", &config); err != nil {
		return nil, err
	}

	return config.LLMProviders, nil
}
