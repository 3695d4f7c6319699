package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AgentRole identifies which agent a task is assigned to. Values mirror the
// agent enum in the task-plan schema.
type AgentRole string

const (
	RoleArchitect       AgentRole = "architect"
	RoleOCPEngineer     AgentRole = "ocp_engineer"
	RoleVSphereEngineer AgentRole = "vsphere_engineer"
	RoleNetworking      AgentRole = "networking"
	RoleReviewer        AgentRole = "reviewer"
	RoleCleanup         AgentRole = "cleanup"
)

// IsValid reports whether the role is one of the schema's enum values.
func (r AgentRole) IsValid() bool {
	switch r {
	case RoleArchitect, RoleOCPEngineer, RoleVSphereEngineer, RoleNetworking, RoleReviewer, RoleCleanup:
		return true
	}
	return false
}

// Roles returns all valid agent roles in schema order.
func Roles() []AgentRole {
	return []AgentRole{RoleArchitect, RoleOCPEngineer, RoleVSphereEngineer, RoleNetworking, RoleReviewer, RoleCleanup}
}

// TaskStatus is the lifecycle state of one task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// IsValid reports whether the status is one of the schema's enum values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// Task is one migration work item.
type Task struct {
	TaskID             string         `json:"task_id"`
	TaskName           string         `json:"task_name"`
	TaskDescription    string         `json:"task_description"`
	Agent              AgentRole      `json:"agent"`
	Status             TaskStatus     `json:"status"`
	AcceptanceCriteria string         `json:"acceptance_criteria"`
	Dependencies       []string       `json:"dependencies,omitempty"`
	ToolToUse          *string        `json:"tool_to_use,omitempty"`
	ProvidedInputs     map[string]any `json:"provided_inputs,omitempty"`
}

// Plan is an ordered list of tasks.
type Plan []Task

// ParsePlan decodes a plan from raw JSON. Accepts the canonical bare array
// or the {"tasks": [...]} wrapper some models produce. Unknown task fields
// are rejected so drifted output fails loudly instead of silently losing
// data.
func ParsePlan(raw []byte) (Plan, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty plan")
	}

	if trimmed[0] == '{' {
		var wrapper struct {
			Tasks json.RawMessage `json:"tasks"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decode plan wrapper: %w", err)
		}
		if wrapper.Tasks == nil {
			return nil, fmt.Errorf("plan object has no tasks field")
		}
		trimmed = wrapper.Tasks
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return p, nil
}

// TaskByID returns the task with the given id, or nil.
func (p Plan) TaskByID(id string) *Task {
	for i := range p {
		if p[i].TaskID == id {
			return &p[i]
		}
	}
	return nil
}

// PendingFor returns the pending tasks assigned to one agent role, in plan
// order.
func (p Plan) PendingFor(role AgentRole) []Task {
	var out []Task
	for _, t := range p {
		if t.Agent == role && t.Status == TaskPending {
			out = append(out, t)
		}
	}
	return out
}
