package session

import (
	"time"

	"github.com/fyrsmithlabs/crewd/internal/artifact"
	"github.com/fyrsmithlabs/crewd/internal/gate"
	"github.com/fyrsmithlabs/crewd/internal/plan"
	"github.com/fyrsmithlabs/crewd/internal/quality"
	"github.com/fyrsmithlabs/crewd/internal/worker"
)

// Snapshot is a flat, serializable view of a RunState. It is what the
// transport layer returns and what a restarted process resumes from.
type Snapshot struct {
	ID             string                       `json:"session_id"`
	Goal           string                       `json:"goal"`
	OriginalGoal   string                       `json:"original_goal"`
	Phase          Phase                        `json:"phase"`
	Transcript     []Entry                      `json:"transcript"`
	NextWorker     string                       `json:"next_worker,omitempty"`
	Plan           *plan.ExecutionPlan          `json:"plan,omitempty"`
	StepIndex      int                          `json:"step_index"`
	Artifacts      map[string]artifact.Artifact `json:"artifacts"`
	QualityChecks  []quality.Check              `json:"quality_checks"`
	Iteration      int                          `json:"iteration"`
	IterationLimit int                          `json:"iteration_limit"`
	Steps          int                          `json:"steps"`
	StepLimit      int                          `json:"step_limit"`
	Directive      *worker.Directive            `json:"directive,omitempty"`
	PendingGate    *gate.Request                `json:"pending_gate,omitempty"`
	TerminalReason string                       `json:"terminal_reason,omitempty"`
	Errors         []ErrorEntry                 `json:"errors,omitempty"`
	StartedAt      time.Time                    `json:"started_at"`
}

// Snapshot copies the state into an independent flat record. Mutating
// the snapshot never touches the live state.
func (s *RunState) Snapshot() Snapshot {
	snap := Snapshot{
		ID:             s.ID,
		Goal:           s.Goal,
		OriginalGoal:   s.OriginalGoal,
		Phase:          s.Phase(),
		Transcript:     append([]Entry(nil), s.Transcript...),
		NextWorker:     s.NextWorker,
		StepIndex:      s.StepIndex,
		Artifacts:      s.Artifacts.Snapshot(),
		QualityChecks:  s.Quality.All(),
		Iteration:      s.Iteration,
		IterationLimit: s.IterationLimit,
		Steps:          s.Steps,
		StepLimit:      s.StepLimit,
		TerminalReason: s.TerminalReason,
		Errors:         append([]ErrorEntry(nil), s.Errors...),
		StartedAt:      s.StartedAt,
	}
	if s.Plan != nil {
		snap.Plan = s.Plan.Clone()
	}
	if s.Directive != nil {
		d := *s.Directive
		snap.Directive = &d
	}
	if s.PendingGate != nil {
		g := *s.PendingGate
		snap.PendingGate = &g
	}
	return snap
}

// FromSnapshot rebuilds a live RunState from a persisted snapshot.
func FromSnapshot(snap Snapshot) *RunState {
	s := &RunState{
		ID:             snap.ID,
		Goal:           snap.Goal,
		OriginalGoal:   snap.OriginalGoal,
		Transcript:     append([]Entry(nil), snap.Transcript...),
		NextWorker:     snap.NextWorker,
		Plan:           snap.Plan,
		StepIndex:      snap.StepIndex,
		Artifacts:      artifact.NewStore(),
		Quality:        quality.NewLog(),
		Iteration:      snap.Iteration,
		IterationLimit: snap.IterationLimit,
		Steps:          snap.Steps,
		StepLimit:      snap.StepLimit,
		Directive:      snap.Directive,
		PendingGate:    snap.PendingGate,
		Terminated:     snap.Phase == PhaseTerminated,
		TerminalReason: snap.TerminalReason,
		Errors:         append([]ErrorEntry(nil), snap.Errors...),
		StartedAt:      snap.StartedAt,
	}
	if s.OriginalGoal == "" {
		s.OriginalGoal = s.Goal
	}
	s.Artifacts.Restore(snap.Artifacts)
	s.Quality.Restore(snap.QualityChecks)
	return s
}
