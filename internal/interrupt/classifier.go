// Package interrupt classifies mid-run user messages and applies the
// resulting change to the session: a full reset, a targeted modification,
// or additive work on top of what exists.
package interrupt

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/crewd/internal/llm"
	"github.com/fyrsmithlabs/crewd/internal/plan"
)

// Scope is the blast radius of a user change request.
type Scope string

const (
	// ScopeReset discards all produced work and starts over.
	ScopeReset Scope = "reset"

	// ScopeModify changes specific existing artifacts.
	ScopeModify Scope = "modify"

	// ScopeAppend keeps everything and adds new work.
	ScopeAppend Scope = "append"
)

// Status is the session context a classifier sees.
type Status struct {
	Goal          string
	CurrentStep   int
	TotalSteps    int
	ArtifactPaths []string
}

// Classification is the classifier's reading of a user message.
type Classification struct {
	Scope           Scope    `json:"scope"`
	Confidence      float64  `json:"confidence"`
	AffectedWorkers []string `json:"affected_workers"`
	Reason          string   `json:"reason"`
	Instruction     string   `json:"new_instruction"`
}

// Classifier decides the scope of a user change request. Implementations
// may fail; the handler degrades to a safe append on any error.
type Classifier interface {
	Classify(ctx context.Context, message string, status Status) (*Classification, error)
}

const classifierSystemPrompt = `You analyze user change requests. Respond with JSON only.`

const classifyPromptTemplate = `The user sent a change request while work is in progress. Analyze it.

## Current state
- Goal: %s
- Progress: step %d of %d
- Produced files: %s

## User request
"%s"

## Criteria
- reset: the user wants something entirely different ("start over", "from scratch", "cancel", "something else instead")
- modify: the user wants part of the existing work changed ("change", "fix", "different color", "smaller")
- append: the user wants the existing work kept and extended ("add", "also", "and")

## Output (JSON)
{
  "scope": "reset|modify|append",
  "confidence": 0.0,
  "affected_workers": ["coder"],
  "reason": "one-line reason",
  "new_instruction": "the reworded instruction"
}`

// LLMClassifier classifies with the orchestrator's model.
type LLMClassifier struct {
	client llm.Client
	model  string
}

// NewLLMClassifier builds a classifier over the given client and model.
func NewLLMClassifier(client llm.Client, model string) *LLMClassifier {
	return &LLMClassifier{client: client, model: model}
}

// Classify implements Classifier.
func (c *LLMClassifier) Classify(ctx context.Context, message string, status Status) (*Classification, error) {
	files := "none"
	if len(status.ArtifactPaths) > 0 {
		files = fmt.Sprint(status.ArtifactPaths)
	}
	prompt := fmt.Sprintf(classifyPromptTemplate,
		status.Goal, status.CurrentStep, status.TotalSteps, files, message)

	out, err := c.client.Generate(ctx, llm.Request{
		Model:       c.model,
		System:      classifierSystemPrompt,
		Prompt:      prompt,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("classifying interrupt: %w", err)
	}

	var cl Classification
	if err := plan.ExtractJSON(out, &cl); err != nil {
		return nil, fmt.Errorf("parsing classification: %w", err)
	}
	switch cl.Scope {
	case ScopeReset, ScopeModify, ScopeAppend:
	default:
		return nil, fmt.Errorf("unknown classification scope %q", cl.Scope)
	}
	if cl.Instruction == "" {
		cl.Instruction = message
	}
	return &cl, nil
}
