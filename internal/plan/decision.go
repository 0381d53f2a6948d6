package plan

import (
	"context"
	"fmt"
)

// Action is the discriminator of a next-step decision.
type Action string

const (
	// ActionCallAgent dispatches a worker with an instruction.
	ActionCallAgent Action = "call_agent"

	// ActionVerify dispatches a quality-checking worker at a target.
	ActionVerify Action = "verify"

	// ActionRefine sends feedback back to a worker, consuming an iteration.
	ActionRefine Action = "refine"

	// ActionFinish terminates the run with a summary.
	ActionFinish Action = "finish"
)

// Decision is a tagged variant over the four next-step actions. Only the
// fields matching Action are meaningful.
type Decision struct {
	Action Action `json:"action"`

	// Worker targets call_agent and refine.
	Worker string `json:"worker,omitempty"`

	// Instruction accompanies call_agent.
	Instruction string `json:"instruction,omitempty"`

	// Checker and Target accompany verify.
	Checker string `json:"checker,omitempty"`
	Target  string `json:"target,omitempty"`

	// Feedback accompanies refine.
	Feedback string `json:"feedback,omitempty"`

	// Summary accompanies finish.
	Summary string `json:"summary,omitempty"`
}

// Validate checks the variant invariants for the decision's action.
func (d *Decision) Validate() error {
	switch d.Action {
	case ActionCallAgent:
		if d.Worker == "" {
			return fmt.Errorf("call_agent decision has no worker")
		}
	case ActionVerify:
		if d.Checker == "" {
			return fmt.Errorf("verify decision has no checker")
		}
	case ActionRefine:
		if d.Worker == "" {
			return fmt.Errorf("refine decision has no worker")
		}
		if d.Feedback == "" {
			return fmt.Errorf("refine decision has no feedback")
		}
	case ActionFinish:
		// Summary may be empty.
	default:
		return fmt.Errorf("unknown decision action %q", d.Action)
	}
	return nil
}

// ParseDecision extracts and validates a Decision from raw model output.
func ParseDecision(raw string) (*Decision, error) {
	var d Decision
	if err := ExtractJSON(raw, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// DecisionInput carries the state summaries a decision strategy examines.
type DecisionInput struct {
	Goal            string
	ProgressSummary string
	ArtifactSummary string
	QualitySummary  string
	Iteration       int
	IterationLimit  int
	RecentResults   []string
}

// Decider chooses the next action once the loop has entered a refinement
// cycle. Implementations may fail; the orchestrator falls back to plan-step
// following on any error.
type Decider interface {
	DecideNext(ctx context.Context, in DecisionInput) (*Decision, error)
}
