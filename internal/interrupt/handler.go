package interrupt

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/session"
	"github.com/fyrsmithlabs/crewd/internal/worker"
)

// DefaultConfidenceThreshold is the confidence below which a destructive
// reset is not applied automatically.
const DefaultConfidenceThreshold = 0.8

// Outcome reports what the handler did with a user message.
type Outcome struct {
	Scope       Scope    `json:"scope"`
	Confidence  float64  `json:"confidence"`
	Instruction string   `json:"instruction"`
	TargetPaths []string `json:"target_paths,omitempty"`

	// RouteTo names the worker that should run next; empty returns
	// control to the orchestrator.
	RouteTo string `json:"route_to,omitempty"`

	// NeedsConfirmation is set when a low-confidence reset was withheld
	// pending explicit user confirmation. No state was changed.
	NeedsConfirmation bool `json:"needs_confirmation,omitempty"`

	Note string `json:"note"`
}

// Handler classifies mid-run user messages and applies the result to the
// session state.
type Handler struct {
	classifier Classifier
	threshold  float64
	logger     *zap.Logger
}

// NewHandler builds a handler. A zero threshold falls back to the default.
func NewHandler(classifier Classifier, threshold float64, logger *zap.Logger) *Handler {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{classifier: classifier, threshold: threshold, logger: logger}
}

// Handle classifies the message and mutates the state accordingly.
// Classification failure always degrades to the append scope; a reset is
// never applied from a failed or low-confidence classification.
func (h *Handler) Handle(ctx context.Context, st *session.RunState, message string) (*Outcome, error) {
	status := Status{
		Goal:          st.Goal,
		CurrentStep:   st.StepIndex,
		ArtifactPaths: st.Artifacts.Paths(),
	}
	if st.Plan != nil {
		status.TotalSteps = len(st.Plan.Steps)
	}

	cl, err := h.classifier.Classify(ctx, message, status)
	if err != nil {
		h.logger.Warn("interrupt classification failed, defaulting to append",
			zap.String("session_id", st.ID), zap.Error(err))
		st.RecordError("interrupt", err.Error(), true)
		cl = &Classification{
			Scope:           ScopeAppend,
			Confidence:      0.5,
			AffectedWorkers: []string{"coder"},
			Reason:          "classification failed, defaulted to append",
			Instruction:     message,
		}
	}

	h.logger.Info("interrupt classified",
		zap.String("session_id", st.ID),
		zap.String("scope", string(cl.Scope)),
		zap.Float64("confidence", cl.Confidence))

	switch cl.Scope {
	case ScopeReset:
		return h.applyReset(st, cl), nil
	case ScopeModify:
		return h.applyModify(st, message, cl), nil
	default:
		return h.applyAppend(st, message, cl), nil
	}
}

func (h *Handler) applyReset(st *session.RunState, cl *Classification) *Outcome {
	if cl.Confidence < h.threshold {
		note := fmt.Sprintf("This looks like a request to start over (confidence %.2f). Reply to confirm discarding the current work: %s", cl.Confidence, cl.Instruction)
		st.Append("interrupt", note)
		return &Outcome{
			Scope:             ScopeReset,
			Confidence:        cl.Confidence,
			Instruction:       cl.Instruction,
			NeedsConfirmation: true,
			Note:              note,
		}
	}

	original := st.Goal
	st.Reset()
	if cl.Instruction != "" {
		st.Goal = cl.Instruction
	}
	note := fmt.Sprintf("Discarding the current work and starting over: %s (original goal: %s)", cl.Instruction, original)
	st.Append("interrupt", note)
	return &Outcome{
		Scope:       ScopeReset,
		Confidence:  cl.Confidence,
		Instruction: cl.Instruction,
		Note:        note,
	}
}

func (h *Handler) applyModify(st *session.RunState, message string, cl *Classification) *Outcome {
	target := "coder"
	if len(cl.AffectedWorkers) > 0 {
		target = cl.AffectedWorkers[0]
	}
	paths := IdentifyTargets(message, st.Artifacts.Paths())

	// A modification is a refinement cycle.
	st.Iteration++
	st.Directive = &worker.Directive{
		Type:         worker.DirectiveModify,
		Instruction:  cl.Instruction,
		TargetPaths:  paths,
		OriginalGoal: st.Goal,
	}
	st.NextWorker = target

	note := fmt.Sprintf("Modification request: %s (targets: %v)", cl.Instruction, paths)
	st.Append("interrupt", note)
	return &Outcome{
		Scope:       ScopeModify,
		Confidence:  cl.Confidence,
		Instruction: cl.Instruction,
		TargetPaths: paths,
		RouteTo:     target,
		Note:        note,
	}
}

func (h *Handler) applyAppend(st *session.RunState, message string, cl *Classification) *Outcome {
	paths := IdentifyTargets(message, st.Artifacts.Paths())

	st.Directive = &worker.Directive{
		Type:         worker.DirectiveAppend,
		Instruction:  cl.Instruction,
		TargetPaths:  paths,
		OriginalGoal: st.Goal,
	}

	note := "Additional work requested: " + cl.Instruction
	st.Append("interrupt", note)
	return &Outcome{
		Scope:       ScopeAppend,
		Confidence:  cl.Confidence,
		Instruction: cl.Instruction,
		TargetPaths: paths,
		Note:        note,
	}
}
