package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewd/internal/llm"
)

func knownWorkers(name string) bool {
	switch name {
	case "planner", "coder", "reviewer", "tester", "ux", "security", "dataeng":
		return true
	}
	return false
}

func TestBuild_DropsUnknownWorkers(t *testing.T) {
	proposal := &Proposal{
		Goal: "goal",
		Steps: []ProposedStep{
			{Worker: "planner", Instruction: "plan"},
			{Worker: "wizard", Instruction: "magic"},
			{Worker: "coder", Instruction: "code"},
			{Worker: "reviewer", Instruction: "review"},
		},
	}

	p := Build("goal", proposal, knownWorkers)
	require.NoError(t, p.Validate())
	require.Len(t, p.Steps, 3)
	assert.Equal(t, "planner", p.Steps[0].Worker)
	assert.Equal(t, "coder", p.Steps[1].Worker)
	assert.Equal(t, "reviewer", p.Steps[2].Worker)
}

func TestBuild_AppendsReviewAfterCode(t *testing.T) {
	proposal := &Proposal{
		Steps: []ProposedStep{
			{Worker: "planner", Instruction: "plan"},
			{Worker: "coder", Instruction: "code"},
		},
	}

	p := Build("goal", proposal, knownWorkers)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, "reviewer", p.Steps[2].Worker)
	assert.Contains(t, p.RequiredWorkers, "reviewer")
}

func TestBuild_ReviewBeforeCoderStillAppends(t *testing.T) {
	proposal := &Proposal{
		Steps: []ProposedStep{
			{Worker: "reviewer", Instruction: "review the old code"},
			{Worker: "coder", Instruction: "rewrite"},
		},
	}

	p := Build("goal", proposal, knownWorkers)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, "reviewer", p.Steps[2].Worker)
}

func TestBuild_NilOrEmptyFallsBack(t *testing.T) {
	p := Build("build a login page", nil, knownWorkers)
	require.NoError(t, p.Validate())
	assert.Len(t, p.Steps, 3)
	assert.Equal(t, "build a login page", p.Goal)

	empty := Build("goal", &Proposal{Steps: []ProposedStep{{Worker: "wizard"}}}, knownWorkers)
	require.NoError(t, empty.Validate())
	assert.Equal(t, []string{"planner", "coder", "reviewer"}, empty.RequiredWorkers)
}

func TestFallback_CanonicalShape(t *testing.T) {
	p := Fallback("the goal")
	require.NoError(t, p.Validate())
	require.Len(t, p.Steps, 3)
	for _, s := range p.Steps {
		assert.Equal(t, "the goal", s.Instruction)
	}
	assert.Equal(t, "planner", p.Steps[0].Worker)
	assert.Equal(t, "coder", p.Steps[1].Worker)
	assert.Equal(t, "reviewer", p.Steps[2].Worker)
}

func TestLLMStrategy_ProposePlan(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"```json\n" + `{
		"goal": "login page",
		"required_workers": ["planner", "coder", "reviewer"],
		"steps": [
			{"worker": "planner", "instruction": "draft the plan", "expected_output": "plan"},
			{"worker": "coder", "instruction": "implement", "expected_output": "code"},
			{"worker": "reviewer", "instruction": "review", "expected_output": "review"}
		]
	}` + "\n```"}}

	s := NewLLMStrategy(fake, "gemini-2.5-pro", "catalogue", nil)

	p, err := s.ProposePlan(context.Background(), "build a login page", "")
	require.NoError(t, err)
	assert.Equal(t, "login page", p.Goal)
	require.Len(t, p.Steps, 3)
	assert.Equal(t, "draft the plan", p.Steps[0].Instruction)
}

func TestLLMStrategy_ProposePlan_Unparseable(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"I would suggest starting with a plan."}}
	s := NewLLMStrategy(fake, "gemini-2.5-pro", "catalogue", nil)

	_, err := s.ProposePlan(context.Background(), "goal", "")
	assert.Error(t, err)
}

func TestLLMStrategy_DecideNext(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"action": "refine", "worker": "coder", "feedback": "fix the header"}`}}
	s := NewLLMStrategy(fake, "gemini-2.5-pro", "catalogue", nil)

	d, err := s.DecideNext(context.Background(), DecisionInput{
		Goal:           "goal",
		Iteration:      1,
		IterationLimit: 5,
		RecentResults:  []string{"the header is wrong"},
	})
	require.NoError(t, err)
	assert.Equal(t, ActionRefine, d.Action)
	assert.Equal(t, "coder", d.Worker)
	assert.Equal(t, "fix the header", d.Feedback)
}

func TestLLMStrategy_DecideNext_ClientError(t *testing.T) {
	fake := &llm.FakeClient{Err: errors.New("upstream unavailable")}
	s := NewLLMStrategy(fake, "gemini-2.5-pro", "catalogue", nil)

	_, err := s.DecideNext(context.Background(), DecisionInput{Goal: "goal"})
	assert.Error(t, err)
}
