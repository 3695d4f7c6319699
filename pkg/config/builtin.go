package config

import (
	"sync"
	"time"
)

// BuiltinConfig holds the agent and provider definitions compiled into
// the binary. User configuration can override any entry by name and add
// new ones; the merge happens during Initialize.
type BuiltinConfig struct {
	Agents       map[string]AgentConfig
	LLMProviders map[string]LLMProviderConfig
}

var (
	builtinOnce   sync.Once
	builtinConfig *BuiltinConfig
)

// GetBuiltinConfig returns the built-in definitions. The result is
// shared; callers must not mutate it. Merge code takes copies.
func GetBuiltinConfig() *BuiltinConfig {
	builtinOnce.Do(func() {
		builtinConfig = &BuiltinConfig{
			Agents:       builtinAgents(),
			LLMProviders: builtinLLMProviders(),
		}
	})
	return builtinConfig
}

// BuiltinDefaultProvider is the provider agents use unless configuration
// picks another.
const BuiltinDefaultProvider = "local-ollama"

// BuiltinDefaultAgent handles task submissions that do not name an
// agent. The architect is the natural default: a bare request is
// almost always "plan this migration".
const BuiltinDefaultAgent = "architect"

func builtinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		BuiltinDefaultProvider: {
			Type:    LLMProviderTypeOllama,
			Model:   "granite3.3:8b",
			BaseURL: "http://localhost:11434",
			Timeout: Duration(120 * time.Second),
		},
	}
}

// builtinAgents returns the agent roles shipped with the binary. The
// names match the agent enum of the task-plan schema so a plan drafted
// by the architect can be dispatched back to these agents task by task.
func builtinAgents() map[string]AgentConfig {
	intPtr := func(v int) *int { return &v }

	return map[string]AgentConfig{
		"architect": {
			Description: "Drafts VM migration task plans from live inventory",
			Instructions: `You are a migration architect. Given a request to migrate virtual
machines from VMware vSphere to OpenShift Virtualization, inspect the
source inventory and the Migration Toolkit for Virtualization state
with your tools, then draft a complete migration task plan. Break the
migration into ordered tasks with explicit dependencies, assign each
task to the agent best suited for it (architect, ocp_engineer,
vsphere_engineer, networking, reviewer, cleanup), and state concrete
acceptance criteria per task. Base every claim about the environment
on tool output, never on assumption.`,
			Toolsets:      []Toolset{ToolsetVSphere, ToolsetForklift},
			OutputSchema:  OutputSchemaTaskPlan,
			MaxIterations: intPtr(15),
		},
		"vsphere_engineer": {
			Description: "Answers questions about the vSphere source environment",
			Instructions: `You are a VMware vSphere engineer. Answer questions about the source
environment: virtual machines, their hardware, guest operating
systems, power state, datastores and networks. Use your tools to read
the live inventory and report exactly what they return. When a VM
cannot be found, say so and list similar names if the inventory
suggests any.`,
			Toolsets: []Toolset{ToolsetVSphere},
		},
		"ocp_engineer": {
			Description: "Answers questions about the OpenShift target and MTV state",
			Instructions: `You are an OpenShift engineer operating the Migration Toolkit for
Virtualization. Answer questions about migration providers, migration
plans and their execution state on the target cluster. Use your tools
to read the live MTV inventory and report exactly what they return,
including per-VM pipeline progress when a plan is running.`,
			Toolsets: []Toolset{ToolsetForklift},
		},
		"networking": {
			Description: "Maps source networks for migration planning",
			Instructions: `You are a network engineer. Given migration questions, identify the
networks the affected virtual machines attach to and describe what
must exist on the target side before cutover: which source port
groups are in use, which VMs share them, and which mappings a
migration plan needs. Use your tools to read the live inventory;
do not invent network names.`,
			Toolsets: []Toolset{ToolsetVSphere},
		},
		"reviewer": {
			Description: "Reviews migration plans against live inventory",
			Instructions: `You are a migration plan reviewer. Given a migration plan or a
migration question, verify the claims against the live source and
target inventory with your tools. Flag tasks whose prerequisites are
not met, VMs that do not exist, missing dependencies between tasks
and acceptance criteria that cannot be checked. Close with a clear
verdict: approve, or the ordered list of problems found.`,
			Toolsets: []Toolset{ToolsetVSphere, ToolsetForklift},
		},
		"cleanup": {
			Description: "Plans post-cutover decommissioning steps",
			Instructions: `You are a decommissioning engineer. After a migration cutover, plan
the source-side cleanup: which virtual machines can be powered off
and removed, which datastores and networks become unused, and in
what order. Use your tools to confirm the current state first; never
propose removing a VM you have not confirmed in the inventory.`,
			Toolsets: []Toolset{ToolsetVSphere},
		},
	}
}
