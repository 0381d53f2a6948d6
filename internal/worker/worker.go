package worker

import (
	"context"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/quality"
)

// DirectiveType distinguishes targeted modification from additive work.
type DirectiveType string

const (
	DirectiveModify DirectiveType = "modify"
	DirectiveAppend DirectiveType = "append"
)

// Directive carries a user-initiated change request routed to a worker.
// It is consumed by exactly one invocation and then cleared by the caller.
type Directive struct {
	Type        DirectiveType `json:"type"`
	Instruction string        `json:"instruction"`
	TargetPaths []string      `json:"target_paths"`

	// OriginalGoal is the goal the session is pursuing, kept so the
	// worker can judge the change against the larger request.
	OriginalGoal string `json:"original_goal,omitempty"`
}

// ArtifactView is the read-only slice of the artifact store a worker sees.
// Workers never write to the store directly; they return an ArtifactWrite
// and the orchestrator applies it.
type ArtifactView interface {
	Get(path string) (artifact.Artifact, bool)
	Latest(kind artifact.Kind) (artifact.Artifact, bool)
	Paths() []string
}

// Invocation is everything a worker gets for one unit of work.
type Invocation struct {
	// Instruction is the orchestrator's step or freeform instruction.
	Instruction string

	// Feedback is refinement feedback from a prior verification, if any.
	Feedback string

	// Directive is a pending user modification request, if any.
	Directive *Directive

	// Artifacts is a read view of the session's artifact store.
	Artifacts ArtifactView

	// Transcript is the tail of the session transcript, oldest first.
	Transcript []string
}

// ArtifactWrite asks the caller to store new artifact content. Version
// assignment stays with the store.
type ArtifactWrite struct {
	Kind    artifact.Kind
	Path    string
	Content string
}

// Result is a worker's output for one invocation.
type Result struct {
	// Message is the worker's textual output, appended to the transcript.
	Message string

	// Write is the artifact produced by this invocation, if any.
	Write *ArtifactWrite

	// Quality is a verdict rendered by checking workers, if any.
	Quality *quality.Check

	// NextWorker optionally hints who should run next. Empty returns
	// control to the orchestrator.
	NextWorker string
}

// Worker executes one instruction against the session state.
type Worker interface {
	Name() string
	Invoke(ctx context.Context, inv Invocation) (*Result, error)
}
