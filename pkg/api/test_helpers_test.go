package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/config"
	"github.com/konveyor-ecosystem/migsy/pkg/history"
	"github.com/konveyor-ecosystem/migsy/pkg/runner"
	"github.com/konveyor-ecosystem/migsy/pkg/vsphere"
)

// stubQueue implements TaskQueue with canned behavior.
type stubQueue struct {
	submitFn func(ctx context.Context, agentName, request string) (string, error)
	cancelFn func(runID string) error
	stats    runner.Stats
}

func (q *stubQueue) Submit(ctx context.Context, agentName, request string) (string, error) {
	if q.submitFn != nil {
		return q.submitFn(ctx, agentName, request)
	}
	return "run-1", nil
}

func (q *stubQueue) Cancel(runID string) error {
	if q.cancelFn != nil {
		return q.cancelFn(runID)
	}
	return nil
}

func (q *stubQueue) Stats() runner.Stats { return q.stats }

// stubHistory implements RunHistory over in-memory maps.
type stubHistory struct {
	runs      map[string]*history.Run
	messages  map[string][]history.Message
	listFn    func(filter history.ListFilter) ([]*history.Run, int, error)
	pingErr   error
	countsErr error
}

func (h *stubHistory) GetRun(_ context.Context, id string) (*history.Run, error) {
	run, ok := h.runs[id]
	if !ok {
		return nil, history.ErrRunNotFound
	}
	return run, nil
}

func (h *stubHistory) ListRuns(_ context.Context, filter history.ListFilter) ([]*history.Run, int, error) {
	if h.listFn != nil {
		return h.listFn(filter)
	}
	return []*history.Run{}, 0, nil
}

func (h *stubHistory) Transcript(_ context.Context, runID string) ([]history.Message, error) {
	if _, ok := h.runs[runID]; !ok {
		return nil, history.ErrRunNotFound
	}
	return h.messages[runID], nil
}

func (h *stubHistory) Ping(context.Context) error { return h.pingErr }

func (h *stubHistory) RunCounts(context.Context) (map[agent.ExecutionStatus]int, error) {
	if h.countsErr != nil {
		return nil, h.countsErr
	}
	counts := make(map[agent.ExecutionStatus]int)
	for _, run := range h.runs {
		counts[run.Status]++
	}
	return counts, nil
}

// stubInventory implements VMInventory over fixed data.
type stubInventory struct {
	vms     []string
	details map[string]*vsphere.VMDetails
	err     error
}

func (i *stubInventory) ListVMs(context.Context) ([]string, error) {
	if i.err != nil {
		return nil, i.err
	}
	return i.vms, nil
}

func (i *stubInventory) VMDetails(_ context.Context, name string) (*vsphere.VMDetails, error) {
	if i.err != nil {
		return nil, i.err
	}
	d, ok := i.details[name]
	if !ok {
		return nil, vsphere.ErrVMNotFound
	}
	return d, nil
}

// stubModel implements ModelPinger.
type stubModel struct{ err error }

func (m *stubModel) Ping(context.Context) error { return m.err }
func (m *stubModel) Model() string              { return "test-model" }

func apiTestConfig() *config.Config {
	return &config.Config{
		System:   config.DefaultSystemConfig(),
		Defaults: config.Defaults{Agent: "architect", LLMProvider: "local"},
		Agents: config.NewAgentRegistry(map[string]config.AgentConfig{
			"architect": {
				Description:  "Plans migration waves.",
				Toolsets:     []config.Toolset{config.ToolsetVSphere},
				OutputSchema: config.OutputSchemaTaskPlan,
			},
			"vsphere_engineer": {
				Toolsets: []config.Toolset{config.ToolsetVSphere},
			},
		}),
		LLMProviders: config.NewLLMProviderRegistry(map[string]config.LLMProviderConfig{
			"local": {Type: config.LLMProviderTypeOllama, Model: "granite"},
		}),
	}
}

func newTestServer(t *testing.T, queue TaskQueue, hist RunHistory, inventory VMInventory, model ModelPinger) *Server {
	t.Helper()
	return NewServer(apiTestConfig(), queue, hist, inventory, model, slog.New(slog.DiscardHandler))
}

// doRequest runs one request through the full middleware and routing chain.
func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}
