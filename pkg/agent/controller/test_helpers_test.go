package controller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/agent/prompt"
)

type mockLLMResponse struct {
	text string
	err  error
}

// mockLLMClient is a scripted agent.LLMClient. Not safe for concurrent use;
// controllers call Generate sequentially, which is all these tests need.
type mockLLMClient struct {
	responses []mockLLMResponse
	callCount int
	lastReq   agent.GenerateRequest

	// onGenerate runs before each response, letting tests cancel a context
	// or mutate state at call time.
	onGenerate func(callIndex int)
}

func (m *mockLLMClient) Generate(_ context.Context, req agent.GenerateRequest) (*agent.Completion, error) {
	idx := m.callCount
	m.callCount++
	m.lastReq = req
	if m.onGenerate != nil {
		m.onGenerate(idx)
	}
	if idx >= len(m.responses) {
		return nil, fmt.Errorf("no more scripted responses (call %d)", idx+1)
	}
	r := m.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &agent.Completion{Text: r.text, PromptTokens: 10, OutputTokens: 5}, nil
}

// mockToolExecutor returns scripted results keyed by tool name. Unscripted
// names are rejected the way the real registry rejects them.
type mockToolExecutor struct {
	tools   []agent.ToolDescriptor
	results map[string]*agent.ToolResult
	errs    map[string]error
	calls   []string
}

func (m *mockToolExecutor) Descriptors() []agent.ToolDescriptor {
	out := make([]agent.ToolDescriptor, len(m.tools))
	copy(out, m.tools)
	return out
}

func (m *mockToolExecutor) Invoke(_ context.Context, name string, _ map[string]any) (*agent.ToolResult, error) {
	m.calls = append(m.calls, name)
	if err, ok := m.errs[name]; ok {
		return nil, err
	}
	if result, ok := m.results[name]; ok {
		return result, nil
	}
	known := make([]string, len(m.tools))
	for i, tool := range m.tools {
		known[i] = tool.Name
	}
	return nil, &agent.UnknownToolError{Name: name, Known: known}
}

// mockRecorder captures transcript turns, optionally failing every call.
type mockRecorder struct {
	messages []agent.ConversationMessage
	err      error
}

func (m *mockRecorder) RecordMessage(_ context.Context, _ string, msg agent.ConversationMessage) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

// scriptedValidator fails with each error in order, then passes.
type scriptedValidator struct {
	errs []error
	idx  int
}

func (v *scriptedValidator) ValidateAnswer(string) error {
	if v.idx >= len(v.errs) {
		return nil
	}
	err := v.errs[v.idx]
	v.idx++
	return err
}

// newTestExecCtx builds an execution context with sane budgets.
// Tests that need different limits override fields on the returned value.
func newTestExecCtx(t *testing.T, llm agent.LLMClient, tools agent.ToolExecutor) *agent.ExecutionContext {
	t.Helper()

	builder, err := prompt.NewBuilder(nil)
	require.NoError(t, err)

	return &agent.ExecutionContext{
		RunID:     uuid.New().String(),
		AgentName: "test-agent",
		Request:   "List every VM in the cluster.",
		Config: &agent.ResolvedAgentConfig{
			AgentName:        "test-agent",
			Role:             "You are a test agent.",
			MaxIterations:    20,
			ModelRetryLimit:  2,
			ParseRetryLimit:  2,
			IterationTimeout: 120 * time.Second,
		},
		LLMClient:     llm,
		Tools:         tools,
		PromptBuilder: builder,
	}
}

func vmTools() []agent.ToolDescriptor {
	return []agent.ToolDescriptor{
		{Name: "list_vms", Description: "List the names of all virtual machines."},
		{Name: "retrieve_vm_details", Description: "Retrieve configuration details for one virtual machine.",
			Parameters: map[string]agent.ParameterSpec{
				"vm_name": {Type: "string", Description: "Name of the virtual machine.", Required: true},
			}},
	}
}

func observationTurns(transcript []agent.ConversationMessage) []agent.ConversationMessage {
	var out []agent.ConversationMessage
	for _, msg := range transcript {
		if msg.Role == agent.RoleObservation {
			out = append(out, msg)
		}
	}
	return out
}
