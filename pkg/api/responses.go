package api

import (
	"github.com/konveyor-ecosystem/migsy/pkg/agent"
	"github.com/konveyor-ecosystem/migsy/pkg/history"
	"github.com/konveyor-ecosystem/migsy/pkg/runner"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SubmitTaskResponse is returned by POST /api/v1/tasks.
type SubmitTaskResponse struct {
	RunID     string `json:"run_id"`
	AgentName string `json:"agent_name"`
	Status    string `json:"status"`
}

// CancelResponse is returned by DELETE /api/v1/tasks/:id.
type CancelResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"message"`
}

// TaskListResponse is returned by GET /api/v1/tasks.
type TaskListResponse struct {
	Runs       []*history.Run `json:"runs"`
	Pagination Pagination     `json:"pagination"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// TranscriptResponse is returned by GET /api/v1/tasks/:id/messages.
type TranscriptResponse struct {
	RunID    string            `json:"run_id"`
	Messages []history.Message `json:"messages"`
}

// VMListResponse is returned by GET /api/v1/inventory/vms.
type VMListResponse struct {
	VMs   []string `json:"vms"`
	Count int      `json:"count"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status  string                        `json:"status"`
	Version string                        `json:"version"`
	Checks  map[string]HealthCheck        `json:"checks"`
	Queue   runner.Stats                  `json:"queue"`
	Runs    map[agent.ExecutionStatus]int `json:"runs,omitempty"`
}

// HealthCheck is the result of a single component probe.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfoResponse is returned by GET /api/v1/system/info.
type SystemInfoResponse struct {
	Name         string         `json:"name"`
	Version      string         `json:"version"`
	DefaultAgent string         `json:"default_agent"`
	Agents       []AgentInfo    `json:"agents"`
	LLMProviders []ProviderInfo `json:"llm_providers"`
}

// AgentInfo describes one configured agent.
type AgentInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Toolsets     []string `json:"toolsets"`
	OutputSchema string   `json:"output_schema,omitempty"`
}

// ProviderInfo describes one configured model provider. Sampling knobs
// and URLs stay out of the response.
type ProviderInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Model string `json:"model"`
}
