package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konveyor-ecosystem/migsy/pkg/agent"
)

func TestServiceRunLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestStore(t), nil)

	run, err := svc.BeginRun(ctx, "run-9", "vsphere_engineer", "inventory the cluster")
	require.NoError(t, err)
	assert.Equal(t, agent.ExecutionStatusQueued, run.Status)

	require.NoError(t, svc.MarkRunning(ctx, "run-9"))

	// The service doubles as the transcript recorder for executing agents.
	var recorder agent.TranscriptRecorder = svc
	require.NoError(t, recorder.RecordMessage(ctx, "run-9",
		agent.ConversationMessage{Role: agent.RoleSystem, Content: "You inventory vSphere."}))
	require.NoError(t, recorder.RecordMessage(ctx, "run-9",
		agent.ConversationMessage{Role: agent.RoleAssistant, Content: "Final Answer: 2 VMs found"}))

	require.NoError(t, svc.Complete(ctx, "run-9", &agent.ExecutionResult{
		Status:      agent.ExecutionStatusCompleted,
		FinalAnswer: "2 VMs found",
		Stats:       agent.RunStats{Iterations: 1, ModelCalls: 1, ToolCalls: 1},
	}))

	got, err := svc.GetRun(ctx, "run-9")
	require.NoError(t, err)
	assert.Equal(t, agent.ExecutionStatusCompleted, got.Status)
	assert.Equal(t, "2 VMs found", got.FinalAnswer)

	msgs, err := svc.Transcript(ctx, "run-9")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, agent.RoleSystem, msgs[0].Role)
	assert.Equal(t, agent.RoleAssistant, msgs[1].Role)

	runs, total, err := svc.ListRuns(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-9", runs[0].ID)
}

func TestServiceTranscriptUnknownRun(t *testing.T) {
	svc := NewService(newTestStore(t), nil)

	_, err := svc.Transcript(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
