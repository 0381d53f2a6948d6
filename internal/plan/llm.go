package plan

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/llm"
)

const strategySystemPrompt = `You are the conductor of a software crew. You decompose user goals
into ordered steps, each assigned to exactly one worker, and you decide what
happens next as results come in. Respond with JSON only.

Available workers:
%s`

const proposePrompt = `Decompose the following goal into an ordered execution plan.

## Goal
%s

## Project context
%s

## Rules
- Each step is assigned to exactly one worker from the catalogue.
- If a step produces code, a review step must follow in the same plan.
- Keep the plan as short as the goal allows.

## Output (JSON)
{
  "goal": "one-line goal",
  "required_workers": ["worker1"],
  "steps": [
    {"worker": "planner", "instruction": "...", "expected_output": "..."}
  ]
}`

const decidePrompt = `Decide the next action for the in-flight run.

## Goal
%s

## Completed steps
%s

## Artifacts
%s

## Latest quality check
%s

## Iterations
%d/%d used

## Recent worker output
%s

## Output (JSON): exactly one of
{"action": "call_agent", "worker": "...", "instruction": "..."}
{"action": "verify", "checker": "...", "target": "..."}
{"action": "refine", "worker": "...", "feedback": "..."}
{"action": "finish", "summary": "..."}`

// LLMStrategy implements Strategy and Decider on top of an llm.Client. The
// worker catalogue description is fixed at construction so the same strategy
// value can serve many sessions.
type LLMStrategy struct {
	client    llm.Client
	model     string
	catalogue string
	logger    *zap.Logger
}

// NewLLMStrategy creates a planning/decision strategy backed by the given
// model. catalogue is the registry description shown to the model.
func NewLLMStrategy(client llm.Client, model, catalogue string, logger *zap.Logger) *LLMStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMStrategy{client: client, model: model, catalogue: catalogue, logger: logger}
}

// ProposePlan implements Strategy.
func (s *LLMStrategy) ProposePlan(ctx context.Context, goal, projectContext string) (*Proposal, error) {
	if projectContext == "" {
		projectContext = "none"
	}

	raw, err := s.client.Generate(ctx, llm.Request{
		Model:  s.model,
		System: fmt.Sprintf(strategySystemPrompt, s.catalogue),
		Prompt: fmt.Sprintf(proposePrompt, goal, projectContext),
	})
	if err != nil {
		return nil, fmt.Errorf("propose plan: %w", err)
	}

	var p Proposal
	if err := ExtractJSON(raw, &p); err != nil {
		return nil, fmt.Errorf("propose plan: %w", err)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("propose plan: proposal has no steps")
	}
	return &p, nil
}

// DecideNext implements Decider.
func (s *LLMStrategy) DecideNext(ctx context.Context, in DecisionInput) (*Decision, error) {
	recent := "none yet"
	if len(in.RecentResults) > 0 {
		var b strings.Builder
		for _, r := range in.RecentResults {
			if len(r) > 200 {
				r = r[:200] + "..."
			}
			fmt.Fprintf(&b, "- %s\n", r)
		}
		recent = b.String()
	}

	raw, err := s.client.Generate(ctx, llm.Request{
		Model:  s.model,
		System: fmt.Sprintf(strategySystemPrompt, s.catalogue),
		Prompt: fmt.Sprintf(decidePrompt,
			in.Goal, in.ProgressSummary, in.ArtifactSummary, in.QualitySummary,
			in.Iteration, in.IterationLimit, recent),
	})
	if err != nil {
		return nil, fmt.Errorf("decide next: %w", err)
	}

	d, err := ParseDecision(raw)
	if err != nil {
		s.logger.Debug("decision parse failed", zap.Error(err))
		return nil, fmt.Errorf("decide next: %w", err)
	}
	return d, nil
}
