package prompt

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)
}

func testTools() []agent.ToolDescriptor {
	return []agent.ToolDescriptor{
		{
			Name:        "list_vms",
			Description: "List the names of all virtual machines.",
		},
		{
			Name:        "retrieve_vm_details",
			Description: "Retrieve configuration details for one virtual machine.",
			Parameters: map[string]agent.ParameterSpec{
				"vm_name": {Type: "string", Description: "Name of the virtual machine.", Required: true},
				"verbose": {Type: "boolean", Description: "Include per-disk detail."},
			},
		},
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	builder, err := NewBuilder(fixedClock)
	require.NoError(t, err)

	t.Run("deterministic output", func(t *testing.T) {
		first, err := builder.BuildSystemPrompt("You are a vSphere engineer.", testTools())
		require.NoError(t, err)
		second, err := builder.BuildSystemPrompt("You are a vSphere engineer.", testTools())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("embeds clock timestamp", func(t *testing.T) {
		out, err := builder.BuildSystemPrompt("You are a vSphere engineer.", testTools())
		require.NoError(t, err)
		assert.Contains(t, out, "Current Date: 2025-03-14 09:26:53.589 UTC")
	})

	t.Run("lists tool names and descriptions", func(t *testing.T) {
		out, err := builder.BuildSystemPrompt("You are a vSphere engineer.", testTools())
		require.NoError(t, err)
		assert.Contains(t, out, "Tools: list_vms, retrieve_vm_details")
		assert.Contains(t, out, "1. **list_vms**: List the names of all virtual machines.")
		assert.Contains(t, out, "vm_name (required, string)")
	})

	t.Run("includes role instructions", func(t *testing.T) {
		out, err := builder.BuildSystemPrompt("You are a vSphere engineer.", testTools())
		require.NoError(t, err)
		assert.Contains(t, out, "You are a vSphere engineer.")
	})

	t.Run("shows answer contract", func(t *testing.T) {
		out, err := builder.BuildSystemPrompt("You are a vSphere engineer.", testTools())
		require.NoError(t, err)
		assert.Contains(t, out, `{"answer": "I have the answer: the final answer to the task"}`)
		assert.Contains(t, out, `{"answer": "Sorry, I cannot answer your query."}`)
	})

	t.Run("empty role fails", func(t *testing.T) {
		_, err := builder.BuildSystemPrompt("   ", testTools())
		require.Error(t, err)
		var tmplErr *TemplateError
		assert.True(t, errors.As(err, &tmplErr))
	})

	t.Run("no tools renders placeholder", func(t *testing.T) {
		out, err := builder.BuildSystemPrompt("You are a reviewer.", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "Tools: none")
		assert.Contains(t, out, "No tools available.")
	})
}

func TestBuildUserPrompt(t *testing.T) {
	builder, err := NewBuilder(fixedClock)
	require.NoError(t, err)

	t.Run("first iteration has empty scratchpad", func(t *testing.T) {
		out, err := builder.BuildUserPrompt("List every VM in the cluster.", nil)
		require.NoError(t, err)
		assert.Equal(t, "Task: List every VM in the cluster.\n", out)
	})

	t.Run("scratchpad appends turns verbatim", func(t *testing.T) {
		history := []agent.ConversationMessage{
			{Role: agent.RoleAssistant, Content: `{"thought": "need the list", "action": "list_vms", "action_input": {}}`},
			{Role: agent.RoleObservation, Content: `{"observation": "[\"db01\", \"web01\"]"}`},
		}
		out, err := builder.BuildUserPrompt("List every VM in the cluster.", history)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "Task: List every VM in the cluster.\n"))
		assert.Contains(t, out, `{"thought": "need the list", "action": "list_vms", "action_input": {}}`)
		assert.Contains(t, out, `{"observation": "[\"db01\", \"web01\"]"}`)
	})

	t.Run("empty request fails", func(t *testing.T) {
		_, err := builder.BuildUserPrompt("", nil)
		require.Error(t, err)
		var tmplErr *TemplateError
		assert.True(t, errors.As(err, &tmplErr))
	})
}

func TestNewBuilderDefaultsClock(t *testing.T) {
	builder, err := NewBuilder(nil)
	require.NoError(t, err)
	out, err := builder.BuildSystemPrompt("You are a reviewer.", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Current Date: ")
	assert.Contains(t, out, " UTC")
}

func TestFormatToolDescriptions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "No tools available.", FormatToolDescriptions(nil))
	})

	t.Run("numbered with sorted parameters", func(t *testing.T) {
		out := FormatToolDescriptions(testTools())
		assert.Contains(t, out, "1. **list_vms**")
		assert.Contains(t, out, "2. **retrieve_vm_details**")
		assert.Contains(t, out, "**Parameters**: None")
		// verbose sorts before vm_name
		verboseIdx := strings.Index(out, "- verbose")
		vmNameIdx := strings.Index(out, "- vm_name")
		require.Positive(t, verboseIdx)
		require.Positive(t, vmNameIdx)
		assert.Less(t, verboseIdx, vmNameIdx)
	})

	t.Run("stable across calls", func(t *testing.T) {
		first := FormatToolDescriptions(testTools())
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, FormatToolDescriptions(testTools()))
		}
	})
}

func TestToolNames(t *testing.T) {
	assert.Equal(t, "none", ToolNames(nil))
	assert.Equal(t, "list_vms, retrieve_vm_details", ToolNames(testTools()))
}
