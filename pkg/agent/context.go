package agent

import (
	"context"
	"time"

	"github.com/konveyor-ecosystem/migsy/pkg/config"
)

// ExecutionContext carries all dependencies and state needed by an agent
// during a run. Created by the run executor for each queued task.
type ExecutionContext struct {
	// Identity
	RunID     string
	AgentName string

	// Request is the user's task text. Arbitrary: not parsed, not
	// assumed to be JSON.
	Request string

	// Configuration (resolved from defaults + agent entry)
	Config *ResolvedAgentConfig

	// Dependencies (injected by executor)
	LLMClient LLMClient
	Tools     ToolExecutor

	// Prompt builder (injected by executor, stateless, shared across runs).
	// Implemented by prompt.Builder; interface avoids agent↔prompt import cycle.
	PromptBuilder PromptBuilder

	// Recorder receives transcript turns as they happen. nil disables
	// incremental recording (the final transcript is still returned).
	// Implemented by history.Service; interface avoids agent↔history cycle.
	Recorder TranscriptRecorder

	// AnswerValidator checks a final answer against the agent's output
	// schema. nil when the agent declares no output schema.
	AnswerValidator AnswerValidator
}

// ResolvedAgentConfig is the fully-resolved configuration for a run.
// Defaults and the agent's own entry have already been applied.
type ResolvedAgentConfig struct {
	AgentName string

	// Role is the natural-language role instruction block rendered into
	// the system prompt.
	Role string

	// MaxIterations bounds completed tool executions per run.
	MaxIterations int

	// ModelRetryLimit bounds consecutive model-call failures before the
	// run fails with ErrModelUnavailable.
	ModelRetryLimit int

	// ParseRetryLimit bounds consecutive unparsable responses before the
	// run fails with ErrUnparsableModelOutput. A model that never produces
	// valid output is called ParseRetryLimit+1 times in total.
	ParseRetryLimit int

	// IterationTimeout is the per-model-call and per-tool-call deadline.
	IterationTimeout time.Duration

	// OutputSchema names the schema the final answer must validate
	// against ("plan", "vm", "vms"); empty means free text.
	OutputSchema string

	// LLMProviderName keys the prebuilt model client the executor hands
	// to this run.
	LLMProviderName string

	// Toolsets lists the tool groups exposed to this agent. The executor
	// maps them to a tool registry; unknown or disabled toolsets are
	// dropped with a warning at startup.
	Toolsets []config.Toolset
}

// PromptBuilder builds all prompt text for agent controllers.
// Implemented by prompt.Builder; defined as an interface here to
// avoid a circular import between pkg/agent and pkg/agent/prompt.
type PromptBuilder interface {
	// BuildSystemPrompt renders the role, tool descriptions, and output
	// contract for the run. Deterministic for identical inputs.
	BuildSystemPrompt(role string, tools []ToolDescriptor) (string, error)

	// BuildUserPrompt renders the request plus the running transcript
	// (assistant directives and observation turns) for the next model call.
	BuildUserPrompt(request string, history []ConversationMessage) (string, error)
}

// TranscriptRecorder persists conversation turns during a run.
// Implemented by history.Service; defined as an interface here to avoid a
// circular import and to keep the controller storage-agnostic.
type TranscriptRecorder interface {
	RecordMessage(ctx context.Context, runID string, msg ConversationMessage) error
}

// AnswerValidator validates a final answer against a named output schema.
// Implemented by plan.Validator; defined as an interface here so the
// controller never imports schema machinery.
type AnswerValidator interface {
	// ValidateAnswer returns nil when the answer satisfies the schema;
	// otherwise an error whose message is suitable for feeding back to
	// the model as a corrective observation.
	ValidateAnswer(answer string) error
}
