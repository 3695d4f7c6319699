package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/config"
	"github.com/konveyor-ecosystem/migsy/pkg/tools"
)

// scriptedModel serves /api/generate replies in order, repeating the last
// one once the script runs out.
func scriptedModel(t *testing.T, replies ...string) *httptest.Server {
	t.Helper()
	var calls atomic.Int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		n := int(calls.Add(1)) - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    "test-model",
			"response": replies[n],
			"done":     true,
		})
	}))
}

// memoryRecorder captures transcript turns per run.
type memoryRecorder struct {
	mu   sync.Mutex
	msgs map[string][]agent.ConversationMessage
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{msgs: make(map[string][]agent.ConversationMessage)}
}

func (m *memoryRecorder) RecordMessage(_ context.Context, runID string, msg agent.ConversationMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs[runID] = append(m.msgs[runID], msg)
	return nil
}

func (m *memoryRecorder) messages(runID string) []agent.ConversationMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]agent.ConversationMessage(nil), m.msgs[runID]...)
}

func executorTestConfig(baseURL string, agents map[string]config.AgentConfig) *config.Config {
	return &config.Config{
		Defaults: config.Defaults{Agent: "lister", LLMProvider: "test-model"},
		Agents:   config.NewAgentRegistry(agents),
		LLMProviders: config.NewLLMProviderRegistry(map[string]config.LLMProviderConfig{
			"test-model": {
				Type:    config.LLMProviderTypeOllama,
				Model:   "test-model",
				BaseURL: baseURL,
				Timeout: config.Duration(5 * time.Second),
			},
		}),
	}
}

func listToolset() []tools.Tool {
	return []tools.Tool{{
		Name:        "list_items",
		Description: "List the available items.",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return []string{"a", "b"}, nil
		},
	}}
}

func TestExecutorToolRoundTrip(t *testing.T) {
	srv := scriptedModel(t,
		`{"action": "list_items", "action_input": {}}`,
		`{"answer": "a,b"}`,
	)
	defer srv.Close()

	cfg := executorTestConfig(srv.URL, map[string]config.AgentConfig{
		"lister": {
			Instructions: "Answer inventory questions.",
			Toolsets:     []config.Toolset{config.ToolsetVSphere},
		},
	})
	recorder := newMemoryRecorder()
	exec, err := NewExecutor(cfg,
		map[config.Toolset][]tools.Tool{config.ToolsetVSphere: listToolset()},
		recorder, nil)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), Task{
		RunID:     "run-1",
		AgentName: "lister",
		Request:   "what items exist?",
	})
	require.NoError(t, err)

	assert.Equal(t, agent.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, "a,b", result.FinalAnswer)
	assert.Equal(t, 2, result.Stats.ModelCalls)
	assert.Equal(t, 1, result.Stats.ToolCalls)
	assert.Equal(t, 1, result.Stats.Iterations)

	// Seed request, tool directive, observation, final answer.
	msgs := recorder.messages("run-1")
	require.Len(t, msgs, 4)
	assert.Equal(t, agent.RoleUser, msgs[0].Role)
	assert.Equal(t, agent.RoleAssistant, msgs[1].Role)
	assert.Equal(t, agent.RoleObservation, msgs[2].Role)
	assert.Equal(t, agent.RoleAssistant, msgs[3].Role)
}

func TestExecutorAppliesOutputSchema(t *testing.T) {
	planJSON := `[{
		"task_id": "t1",
		"task_name": "Migrate web-01",
		"task_description": "Move the VM to the OpenShift cluster.",
		"agent": "vsphere_engineer",
		"status": "pending",
		"acceptance_criteria": "VM boots on the target cluster."
	}]`
	srv := scriptedModel(t,
		`{"answer": "here is the plan in prose, not JSON"}`,
		`{"answer": `+strconv.Quote(planJSON)+`}`,
	)
	defer srv.Close()

	cfg := executorTestConfig(srv.URL, map[string]config.AgentConfig{
		"planner": {
			Instructions: "Draft migration task plans.",
			OutputSchema: config.OutputSchemaTaskPlan,
		},
	})
	exec, err := NewExecutor(cfg, nil, newMemoryRecorder(), nil)
	require.NoError(t, err)

	result, err := exec.Execute(context.Background(), Task{
		RunID:     "run-2",
		AgentName: "planner",
		Request:   "plan the migration of web-01",
	})
	require.NoError(t, err)

	// The first answer fails schema validation and becomes an observation;
	// the second passes.
	assert.Equal(t, agent.ExecutionStatusCompleted, result.Status)
	assert.Equal(t, 2, result.Stats.ModelCalls)
	assert.JSONEq(t, planJSON, result.FinalAnswer)
}

func TestExecutorUnknownAgent(t *testing.T) {
	srv := scriptedModel(t, `{"answer": "hi"}`)
	defer srv.Close()

	cfg := executorTestConfig(srv.URL, map[string]config.AgentConfig{
		"lister": {Instructions: "Answer inventory questions."},
	})
	exec, err := NewExecutor(cfg, nil, newMemoryRecorder(), nil)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), Task{
		RunID:     "run-3",
		AgentName: "ghost",
		Request:   "anything",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrAgentNotFound)
}

func TestNewExecutorSkipsUnconfiguredToolsets(t *testing.T) {
	srv := scriptedModel(t, `{"answer": "done"}`)
	defer srv.Close()

	cfg := executorTestConfig(srv.URL, map[string]config.AgentConfig{
		"lister": {
			Instructions: "Answer inventory questions.",
			Toolsets:     []config.Toolset{config.ToolsetVSphere, config.ToolsetForklift},
		},
	})
	exec, err := NewExecutor(cfg,
		map[config.Toolset][]tools.Tool{config.ToolsetVSphere: listToolset()},
		newMemoryRecorder(), nil)
	require.NoError(t, err)

	// Only the configured toolset's tools made it into the registry.
	require.Contains(t, exec.registries, "lister")
	assert.Equal(t, []string{"list_items"}, exec.registries["lister"].Names())

	result, err := exec.Execute(context.Background(), Task{
		RunID:     "run-4",
		AgentName: "lister",
		Request:   "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, agent.ExecutionStatusCompleted, result.Status)
}

func TestNewExecutorUnknownProviderFails(t *testing.T) {
	cfg := executorTestConfig("http://localhost:11434", map[string]config.AgentConfig{
		"broken": {
			Instructions: "Anything.",
			LLMProvider:  "missing",
		},
	})

	_, err := NewExecutor(cfg, nil, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrLLMProviderNotFound)
}
