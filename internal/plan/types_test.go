package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStepPlan() *ExecutionPlan {
	return &ExecutionPlan{
		Goal:            "build a login page",
		RequiredWorkers: []string{"planner", "coder", "reviewer"},
		Steps: []Step{
			{Index: 0, Worker: "planner", Instruction: "plan it"},
			{Index: 1, Worker: "coder", Instruction: "code it"},
			{Index: 2, Worker: "reviewer", Instruction: "review it"},
		},
		CreatedAt: time.Now(),
	}
}

func TestExecutionPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExecutionPlan)
		wantErr bool
	}{
		{"valid", func(p *ExecutionPlan) {}, false},
		{"no steps", func(p *ExecutionPlan) { p.Steps = nil }, true},
		{"gap in indices", func(p *ExecutionPlan) { p.Steps[2].Index = 5 }, true},
		{"missing worker", func(p *ExecutionPlan) { p.Steps[1].Worker = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := threeStepPlan()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecutionPlan_WithStepCompleted_CopyOnWrite(t *testing.T) {
	p := threeStepPlan()

	p2 := p.WithStepCompleted(0)

	assert.False(t, p.Steps[0].Completed, "original plan must not be mutated")
	assert.True(t, p2.Steps[0].Completed)
	assert.Equal(t, 1, p2.CompletedCount())
	assert.Equal(t, 0, p.CompletedCount())
}

func TestExecutionPlan_WithStepCompleted_OutOfRange(t *testing.T) {
	p := threeStepPlan()

	p2 := p.WithStepCompleted(99)
	require.NotNil(t, p2)
	assert.Equal(t, 0, p2.CompletedCount())
}

func TestExecutionPlan_ProgressSummary(t *testing.T) {
	var nilPlan *ExecutionPlan
	assert.Equal(t, "no execution plan", nilPlan.ProgressSummary())

	p := threeStepPlan().WithStepCompleted(0).WithStepCompleted(1)
	assert.Equal(t, "2/3 steps completed", p.ProgressSummary())
}
