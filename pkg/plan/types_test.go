package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		p, err := ParsePlan([]byte(validPlanJSON))
		require.NoError(t, err)
		require.Len(t, p, 2)
		assert.Equal(t, "Validate VMware Access", p[0].TaskName)
		assert.Equal(t, RoleVSphereEngineer, p[0].Agent)
		assert.Equal(t, TaskPending, p[0].Status)
		require.NotNil(t, p[0].ToolToUse)
		assert.Equal(t, "list_vms", *p[0].ToolToUse)
		assert.Nil(t, p[1].ToolToUse)
		assert.Equal(t, []string{"1"}, p[1].Dependencies)
	})

	t.Run("tasks wrapper object", func(t *testing.T) {
		p, err := ParsePlan([]byte(`{"tasks": ` + validPlanJSON + `}`))
		require.NoError(t, err)
		assert.Len(t, p, 2)
	})

	t.Run("wrapper without tasks field fails", func(t *testing.T) {
		_, err := ParsePlan([]byte(`{"items": []}`))
		assert.ErrorContains(t, err, "no tasks field")
	})

	t.Run("unknown task fields are rejected", func(t *testing.T) {
		_, err := ParsePlan([]byte(`[{"task_id":"1","task_name":"n","task_description":"d",
			"agent":"architect","status":"pending","acceptance_criteria":"c","owner":"bob"}]`))
		assert.Error(t, err)
	})

	t.Run("empty input fails", func(t *testing.T) {
		_, err := ParsePlan([]byte("  "))
		assert.Error(t, err)
	})
}

func TestPlan_RoundTripPreservesTasks(t *testing.T) {
	p, err := ParsePlan([]byte(validPlanJSON))
	require.NoError(t, err)

	out, err := json.Marshal(p)
	require.NoError(t, err)

	again, err := ParsePlan(out)
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestPlan_Lookups(t *testing.T) {
	p, err := ParsePlan([]byte(validPlanJSON))
	require.NoError(t, err)

	assert.NotNil(t, p.TaskByID("2"))
	assert.Nil(t, p.TaskByID("99"))

	pending := p.PendingFor(RoleOCPEngineer)
	require.Len(t, pending, 1)
	assert.Equal(t, "2", pending[0].TaskID)
}

func TestEnums(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, r.IsValid())
	}
	assert.False(t, AgentRole("dba").IsValid())

	for _, s := range []TaskStatus{TaskPending, TaskInProgress, TaskCompleted, TaskFailed} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, TaskStatus("running").IsValid())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare array", in: `["a","b"]`, want: `["a","b"]`},
		{name: "answer prefix", in: `I have the answer: ["a"]`, want: `["a"]`},
		{name: "prose before and after", in: "Here it is: {\"k\":1} as requested", want: `{"k":1}`},
		{name: "markdown fence", in: "```json\n[1,2]\n```", want: `[1,2]`},
		{name: "no json", in: "nothing here", wantErr: true},
		{name: "unterminated", in: `start [1, 2`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
