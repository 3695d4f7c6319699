package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/agent/controller"
	"github.com/konveyor-ecosystem/migsy/pkg/agent/prompt"
	"github.com/konveyor-ecosystem/migsy/pkg/config"
	"github.com/konveyor-ecosystem/migsy/pkg/llm"
	"github.com/konveyor-ecosystem/migsy/pkg/plan"
	"github.com/konveyor-ecosystem/migsy/pkg/tools"
)

// Executor assembles the pieces of one agent run: resolved configuration,
// model client, tool registry, prompt builder, and the ReAct controller.
// Clients and registries are built once at startup and shared across
// workers; per-run state lives inside the controller call.
type Executor struct {
	cfg        *config.Config
	clients    map[string]agent.LLMClient
	registries map[string]*tools.Registry
	builder    *prompt.Builder
	validator  *plan.Validator
	controller *controller.ReActController
	recorder   agent.TranscriptRecorder
	logger     *slog.Logger
}

var _ RunExecutor = (*Executor)(nil)

// NewExecutor builds one model client per configured LLM provider and one
// tool registry per configured agent. available maps each toolset to the
// tools its backing system exposes; toolsets whose system is not configured
// are skipped with a warning, so the agent runs with the tools that remain.
// A nil recorder disables incremental transcript recording and a nil logger
// disables logging.
func NewExecutor(cfg *config.Config, available map[config.Toolset][]tools.Tool, recorder agent.TranscriptRecorder, logger *slog.Logger) (*Executor, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	log := logger.With(slog.String("component", "executor"))

	builder, err := prompt.NewBuilder(time.Now)
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt templates: %w", err)
	}
	validator, err := plan.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile output schemas: %w", err)
	}

	clients := make(map[string]agent.LLMClient, cfg.LLMProviders.Len())
	for name, provider := range cfg.LLMProviders.GetAll() {
		clients[name] = llm.NewClient(llm.Config{
			Endpoint:          provider.BaseURL,
			Model:             provider.Model,
			Temperature:       provider.Temperature,
			TopP:              provider.TopP,
			TopK:              provider.TopK,
			RepetitionPenalty: provider.RepetitionPenalty,
			Stop:              provider.Stop,
			Timeout:           provider.Timeout.Std(),
		}, logger)
	}

	registries := make(map[string]*tools.Registry, cfg.Agents.Len())
	for name := range cfg.Agents.GetAll() {
		resolved, _, err := agent.ResolveAgentConfig(cfg, name)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		for _, ts := range resolved.Toolsets {
			if _, ok := available[ts]; !ok {
				log.Warn("Toolset not configured, agent runs without it",
					slog.String("agent", name),
					slog.String("toolset", string(ts)))
			}
		}
		registry, err := buildRegistry(resolved.Toolsets, available, logger)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}
		registries[name] = registry
	}

	return &Executor{
		cfg:        cfg,
		clients:    clients,
		registries: registries,
		builder:    builder,
		validator:  validator,
		controller: controller.NewReActController(logger),
		recorder:   recorder,
		logger:     log,
	}, nil
}

// Execute implements RunExecutor: it resolves the agent, assembles the
// execution context, and drives the ReAct controller to a terminal result.
func (e *Executor) Execute(ctx context.Context, task Task) (*agent.ExecutionResult, error) {
	resolved, _, err := agent.ResolveAgentConfig(e.cfg, task.AgentName)
	if err != nil {
		return nil, err
	}

	client, ok := e.clients[resolved.LLMProviderName]
	if !ok {
		return nil, fmt.Errorf("no client for LLM provider %q", resolved.LLMProviderName)
	}
	registry, ok := e.registries[resolved.AgentName]
	if !ok {
		return nil, fmt.Errorf("no tool registry for agent %q", resolved.AgentName)
	}

	var answerValidator agent.AnswerValidator
	if resolved.OutputSchema != "" {
		av, err := e.validator.ForSchema(resolved.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", resolved.AgentName, err)
		}
		answerValidator = av
	}

	e.logger.Debug("Executing run",
		slog.String("run_id", task.RunID),
		slog.String("agent", resolved.AgentName),
		slog.String("llm_provider", resolved.LLMProviderName),
		slog.Int("tools", registry.Len()))

	execCtx := &agent.ExecutionContext{
		RunID:           task.RunID,
		AgentName:       resolved.AgentName,
		Request:         task.Request,
		Config:          resolved,
		LLMClient:       client,
		Tools:           registry,
		PromptBuilder:   e.builder,
		Recorder:        e.recorder,
		AnswerValidator: answerValidator,
	}
	return e.controller.Run(ctx, execCtx)
}

// buildRegistry assembles a registry from the named toolsets, silently
// skipping unavailable ones (reported once at startup).
func buildRegistry(toolsets []config.Toolset, available map[config.Toolset][]tools.Tool, logger *slog.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger)
	for _, ts := range toolsets {
		for _, tool := range available[ts] {
			if err := registry.Register(tool); err != nil {
				return nil, fmt.Errorf("failed to register tool %s: %w", tool.Name, err)
			}
		}
	}
	return registry, nil
}
