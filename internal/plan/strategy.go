package plan

import (
	"context"
	"time"
)

// Proposal is the raw plan shape returned by a planning strategy before
// validation against the worker registry.
type Proposal struct {
	Goal            string         `json:"goal"`
	RequiredWorkers []string       `json:"required_workers"`
	Steps           []ProposedStep `json:"steps"`
}

// ProposedStep is one step of a Proposal.
type ProposedStep struct {
	Worker         string `json:"worker"`
	Instruction    string `json:"instruction"`
	ExpectedOutput string `json:"expected_output"`
}

// Strategy produces a plan proposal for a goal. Implementations may be
// LLM-backed, rule-based, or template-based; the orchestrator only depends
// on this boundary.
type Strategy interface {
	ProposePlan(ctx context.Context, goal, projectContext string) (*Proposal, error)
}

// Build converts a proposal into a validated ExecutionPlan. Steps naming
// unknown workers are dropped; if a surviving step is bound to the coder and
// no review step follows it, a review step is appended so generated code is
// always checked. When nothing survives, Build falls back to the canonical
// plan.
func Build(goal string, proposal *Proposal, knownWorker func(string) bool) *ExecutionPlan {
	if proposal == nil {
		return Fallback(goal)
	}

	planGoal := proposal.Goal
	if planGoal == "" {
		planGoal = goal
	}

	var steps []Step
	for _, ps := range proposal.Steps {
		if !knownWorker(ps.Worker) {
			continue
		}
		steps = append(steps, Step{
			Index:          len(steps),
			Worker:         ps.Worker,
			Instruction:    ps.Instruction,
			ExpectedOutput: ps.ExpectedOutput,
		})
	}
	if len(steps) == 0 {
		return Fallback(goal)
	}

	if needsReview(steps) {
		steps = append(steps, Step{
			Index:          len(steps),
			Worker:         "reviewer",
			Instruction:    "Review the generated code for correctness, security, and quality.",
			ExpectedOutput: "review verdict",
		})
	}

	required := make([]string, 0, len(steps))
	seen := make(map[string]bool)
	for _, s := range steps {
		if !seen[s.Worker] {
			seen[s.Worker] = true
			required = append(required, s.Worker)
		}
	}

	return &ExecutionPlan{
		Goal:            planGoal,
		RequiredWorkers: required,
		Steps:           steps,
		CreatedAt:       time.Now(),
	}
}

// needsReview reports whether a code-producing step has no review step after
// it.
func needsReview(steps []Step) bool {
	lastCoder := -1
	lastReviewer := -1
	for i, s := range steps {
		switch s.Worker {
		case "coder":
			lastCoder = i
		case "reviewer":
			lastReviewer = i
		}
	}
	return lastCoder != -1 && lastReviewer < lastCoder
}

// Fallback returns the canonical 3-step plan used when the planning strategy
// degrades: planner, coder, reviewer, each fed the raw goal. It guarantees
// forward progress regardless of strategy health.
func Fallback(goal string) *ExecutionPlan {
	return &ExecutionPlan{
		Goal:            goal,
		RequiredWorkers: []string{"planner", "coder", "reviewer"},
		Steps: []Step{
			{Index: 0, Worker: "planner", Instruction: goal, ExpectedOutput: "plan document"},
			{Index: 1, Worker: "coder", Instruction: goal, ExpectedOutput: "code"},
			{Index: 2, Worker: "reviewer", Instruction: goal, ExpectedOutput: "review verdict"},
		},
		CreatedAt: time.Now(),
	}
}
