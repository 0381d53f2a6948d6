// Package plan models execution plans and next-step decisions for the crew
// orchestrator. Plans are immutable values: completion marking and any other
// change produce a replacement plan, so concurrent readers of a session
// snapshot always see a consistent plan.
package plan

import (
	"fmt"
	"time"
)

// Step is one planned worker dispatch.
type Step struct {
	// Index is the zero-based position in the plan.
	Index int `json:"index"`

	// Worker is the name of the worker bound to this step.
	Worker string `json:"worker"`

	// Instruction is the text handed to the worker.
	Instruction string `json:"instruction"`

	// ExpectedOutput describes what the step should produce.
	ExpectedOutput string `json:"expected_output"`

	// Completed marks whether this step has been dispatched.
	Completed bool `json:"completed"`
}

// ExecutionPlan is an ordered sequence of worker-bound steps for one goal.
type ExecutionPlan struct {
	// Goal is the user goal this plan decomposes. Immutable.
	Goal string `json:"goal"`

	// RequiredWorkers lists the distinct workers the plan relies on.
	RequiredWorkers []string `json:"required_workers"`

	// Steps are ordered with contiguous indices starting at 0.
	Steps []Step `json:"steps"`

	// CreatedAt is when the plan was generated.
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the structural invariants: at least one step and
// contiguous indices starting at zero, each bound to a worker.
func (p *ExecutionPlan) Validate() error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	for i, s := range p.Steps {
		if s.Index != i {
			return fmt.Errorf("step %d has index %d, want %d", i, s.Index, i)
		}
		if s.Worker == "" {
			return fmt.Errorf("step %d has no worker", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the plan.
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	if p == nil {
		return nil
	}
	out := &ExecutionPlan{
		Goal:            p.Goal,
		RequiredWorkers: append([]string(nil), p.RequiredWorkers...),
		Steps:           append([]Step(nil), p.Steps...),
		CreatedAt:       p.CreatedAt,
	}
	return out
}

// WithStepCompleted returns a copy of the plan with the given step marked
// completed. The receiver is left untouched.
func (p *ExecutionPlan) WithStepCompleted(index int) *ExecutionPlan {
	out := p.Clone()
	if out == nil || index < 0 || index >= len(out.Steps) {
		return out
	}
	out.Steps[index].Completed = true
	return out
}

// CompletedCount returns how many steps are marked completed.
func (p *ExecutionPlan) CompletedCount() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, s := range p.Steps {
		if s.Completed {
			n++
		}
	}
	return n
}

// ProgressSummary renders "k/n steps completed" for strategy prompts.
func (p *ExecutionPlan) ProgressSummary() string {
	if p == nil {
		return "no execution plan"
	}
	return fmt.Sprintf("%d/%d steps completed", p.CompletedCount(), len(p.Steps))
}
