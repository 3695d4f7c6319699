package agent

import "context"

// LLMClient is the interface for calling the text-generation endpoint.
// Implemented by llm.Client (Ollama-style HTTP); defined here so controllers
// depend on the contract, not the transport.
//
// Implementations must be safe for concurrent use: the client holds no
// per-call mutable state, so independent runs can share one instance.
type LLMClient interface {
	// Generate sends a system prompt plus user prompt and returns the
	// completion. Responses are never streamed. Error kinds are
	// distinguishable: connection failures match llm.ErrUnavailable,
	// deadline expiry matches context.DeadlineExceeded, and undecodable
	// bodies match llm.ErrMalformedResponse, so callers can pick a retry
	// policy per kind.
	Generate(ctx context.Context, req GenerateRequest) (*Completion, error)
}

// GenerateRequest is one model call.
type GenerateRequest struct {
	System string
	Prompt string
}

// Completion is the model's reply to a single Generate call.
type Completion struct {
	Text string

	// Token counters as reported by the runtime; 0 when the runtime
	// omits them.
	PromptTokens int
	OutputTokens int
}
