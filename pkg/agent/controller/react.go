// Package controller implements the agent iteration loop. The ReAct
// controller is the only strategy: reason, call a tool, observe, repeat,
// until the model answers or a budget runs out.
package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/plan"
)

// ReActController implements the Reason + Act loop with text-based tool
// calling. Each cycle formats the transcript into a prompt, asks the model
// for the next directive, and either dispatches a tool or returns the final
// answer. Model failures and unparsable output are retried within
// configured budgets; tool failures are shown to the model as observations
// so it can change course.
type ReActController struct {
	logger *slog.Logger
}

// NewReActController creates a ReAct controller. A nil logger discards logs.
func NewReActController(logger *slog.Logger) *ReActController {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReActController{logger: logger.With(slog.String("component", "react"))}
}

// Run executes the ReAct iteration loop for one request.
//
// Terminal outcomes are returned inside the ExecutionResult: completed runs
// carry the final answer, failed runs carry a *agent.RunError naming the
// exhausted budget and the loop state at failure. The error return is
// reserved for infrastructure failures and caller cancellation; in the
// cancellation case the partial result is returned alongside the error so
// the transcript survives.
func (c *ReActController) Run(ctx context.Context, execCtx *agent.ExecutionContext) (*agent.ExecutionResult, error) {
	cfg := execCtx.Config
	state := agent.NewAgentState(execCtx.Request)
	iter := &agent.IterationState{
		MaxIterations:   cfg.MaxIterations,
		ModelRetryLimit: cfg.ModelRetryLimit,
		ParseRetryLimit: cfg.ParseRetryLimit,
	}
	stats := agent.RunStats{}
	schemaRetries := 0

	// 1. Tool descriptors, needed for the system prompt and for corrective
	// observations after a bad dispatch.
	tools := execCtx.Tools.Descriptors()

	// 2. The system prompt is fixed for the whole run.
	systemPrompt, err := execCtx.PromptBuilder.BuildSystemPrompt(cfg.Role, tools)
	if err != nil {
		return nil, fmt.Errorf("building system prompt: %w", err)
	}

	// 3. Record the seed user turn.
	c.record(ctx, execCtx, state.History[0])

	c.logger.Debug("run started",
		slog.String("run_id", execCtx.RunID),
		slog.String("agent", cfg.AgentName),
		slog.Int("max_iterations", cfg.MaxIterations),
		slog.Int("tools", len(tools)))

	for {
		// Cancellation is checked between iterations at minimum; blocking
		// calls below also carry the caller's context.
		if err := ctx.Err(); err != nil {
			return transcriptResult(state, stats), err
		}

		// History after the seed turn is the scratchpad.
		userPrompt, err := execCtx.PromptBuilder.BuildUserPrompt(execCtx.Request, state.History[1:])
		if err != nil {
			return transcriptResult(state, stats), fmt.Errorf("building user prompt: %w", err)
		}

		completion, err := c.callModel(ctx, execCtx, systemPrompt, userPrompt)
		stats.ModelCalls++
		if err != nil {
			if ctx.Err() != nil {
				return transcriptResult(state, stats), ctx.Err()
			}
			if iter.RecordModelFailure(err.Error()) {
				c.logger.Warn("model call failed, retrying",
					slog.String("run_id", execCtx.RunID),
					slog.Int("attempt", iter.ModelRetries),
					slog.Any("error", err))
				continue
			}
			runErr := &agent.RunError{
				Kind:       agent.ErrorKindModelUnavailable,
				Bound:      cfg.ModelRetryLimit,
				Iterations: state.IterationCount,
				ModelCalls: stats.ModelCalls,
				Err:        fmt.Errorf("%w: %w", agent.ErrModelUnavailable, err),
			}
			return failedResult(state, stats, runErr), nil
		}
		iter.RecordModelSuccess()
		stats.Add(completion)

		state.Append(agent.RoleAssistant, completion.Text)
		c.record(ctx, execCtx, state.History[len(state.History)-1])

		directive, parseErr := ParseAction(completion.Text)
		if parseErr != nil {
			if iter.RecordParseFailure(parseErr.Error()) {
				c.observe(ctx, execCtx, state, FormatParseCorrection(parseErr.(*ParseError)))
				continue
			}
			runErr := &agent.RunError{
				Kind:       agent.ErrorKindUnparsableModelOutput,
				Bound:      cfg.ParseRetryLimit,
				Iterations: state.IterationCount,
				ModelCalls: stats.ModelCalls,
				Err:        fmt.Errorf("%w: %w", agent.ErrUnparsableModelOutput, parseErr),
			}
			return failedResult(state, stats, runErr), nil
		}
		iter.RecordParseSuccess()

		if directive.Kind == ActionFinalAnswer {
			answer := plan.StripAnswerPrefix(directive.Answer)
			if execCtx.AnswerValidator != nil {
				if verr := execCtx.AnswerValidator.ValidateAnswer(answer); verr != nil {
					schemaRetries++
					if schemaRetries <= cfg.ParseRetryLimit {
						c.observe(ctx, execCtx, state, FormatSchemaViolation(verr))
						continue
					}
					runErr := &agent.RunError{
						Kind:       agent.ErrorKindUnparsableModelOutput,
						Bound:      cfg.ParseRetryLimit,
						Iterations: state.IterationCount,
						ModelCalls: stats.ModelCalls,
						Err:        fmt.Errorf("%w: answer failed output schema: %w", agent.ErrUnparsableModelOutput, verr),
					}
					return failedResult(state, stats, runErr), nil
				}
			}
			c.logger.Info("run completed",
				slog.String("run_id", execCtx.RunID),
				slog.Int("iterations", state.IterationCount),
				slog.Int("model_calls", stats.ModelCalls))
			return &agent.ExecutionResult{
				Status:      agent.ExecutionStatusCompleted,
				FinalAnswer: answer,
				Stats:       stats,
				Transcript:  state.Snapshot(),
			}, nil
		}

		// Tool call. Registry-level rejections (unknown name, bad input)
		// come back as errors and are absorbed as corrective observations;
		// failures inside the tool arrive as error-status results. Either
		// way the dispatch consumes one iteration, which is what keeps a
		// model stuck on a bad tool name from looping forever.
		result, invokeErr := c.invokeTool(ctx, execCtx, directive)
		if invokeErr != nil && ctx.Err() != nil {
			return transcriptResult(state, stats), ctx.Err()
		}
		if invokeErr != nil {
			c.observe(ctx, execCtx, state, FormatDispatchError(invokeErr, tools))
		} else {
			stats.ToolCalls++
			c.observe(ctx, execCtx, state, FormatObservation(result))
		}

		state.IterationCount++
		iter.CurrentIteration = state.IterationCount
		stats.Iterations = state.IterationCount
		if iter.AtIterationBound() {
			runErr := &agent.RunError{
				Kind:       agent.ErrorKindMaxIterations,
				Bound:      cfg.MaxIterations,
				Iterations: state.IterationCount,
				ModelCalls: stats.ModelCalls,
				Err:        agent.ErrMaxIterationsExceeded,
			}
			c.logger.Warn("iteration budget exhausted",
				slog.String("run_id", execCtx.RunID),
				slog.Int("iterations", state.IterationCount))
			return failedResult(state, stats, runErr), nil
		}
	}
}

// callModel performs one model call under the per-call deadline.
func (c *ReActController) callModel(ctx context.Context, execCtx *agent.ExecutionContext, system, prompt string) (*agent.Completion, error) {
	callCtx := ctx
	cancel := func() {}
	if execCtx.Config.IterationTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, execCtx.Config.IterationTimeout)
	}
	defer cancel()
	return execCtx.LLMClient.Generate(callCtx, agent.GenerateRequest{System: system, Prompt: prompt})
}

// invokeTool dispatches one tool call under the per-call deadline.
func (c *ReActController) invokeTool(ctx context.Context, execCtx *agent.ExecutionContext, directive *Action) (*agent.ToolResult, error) {
	callCtx := ctx
	cancel := func() {}
	if execCtx.Config.IterationTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, execCtx.Config.IterationTimeout)
	}
	defer cancel()
	c.logger.Debug("dispatching tool",
		slog.String("run_id", execCtx.RunID),
		slog.String("tool", directive.Tool))
	return execCtx.Tools.Invoke(callCtx, directive.Tool, directive.Input)
}

// observe appends an observation turn and records it.
func (c *ReActController) observe(ctx context.Context, execCtx *agent.ExecutionContext, state *agent.AgentState, content string) {
	state.Append(agent.RoleObservation, content)
	c.record(ctx, execCtx, state.History[len(state.History)-1])
}

// record persists one transcript turn. Recording is best-effort: a history
// failure must not kill a run that the model is still driving forward.
func (c *ReActController) record(ctx context.Context, execCtx *agent.ExecutionContext, msg agent.ConversationMessage) {
	if execCtx.Recorder == nil {
		return
	}
	if err := execCtx.Recorder.RecordMessage(ctx, execCtx.RunID, msg); err != nil {
		c.logger.Warn("failed to record transcript turn",
			slog.String("run_id", execCtx.RunID),
			slog.String("role", msg.Role),
			slog.Any("error", err))
	}
}

func failedResult(state *agent.AgentState, stats agent.RunStats, runErr *agent.RunError) *agent.ExecutionResult {
	return &agent.ExecutionResult{
		Status:     agent.ExecutionStatusFailed,
		Error:      runErr,
		Stats:      stats,
		Transcript: state.Snapshot(),
	}
}

func transcriptResult(state *agent.AgentState, stats agent.RunStats) *agent.ExecutionResult {
	return &agent.ExecutionResult{
		Status:     agent.ExecutionStatusFailed,
		Stats:      stats,
		Transcript: state.Snapshot(),
	}
}
