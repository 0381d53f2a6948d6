// Package orchestrator drives the session control loop: committing a
// plan, dispatching workers, deciding freeform continuations, and
// suspending on human checkpoints until a terminal state is reached.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/events"
	"github.com/fyrsmithlabs/crewd/internal/gate"
	"github.com/fyrsmithlabs/crewd/internal/plan"
	"github.com/fyrsmithlabs/crewd/internal/session"
	"github.com/fyrsmithlabs/crewd/internal/worker"
)

// Status is the outcome of driving the loop.
type Status string

const (
	// StatusRunning means the tick completed and the loop can continue.
	StatusRunning Status = "running"

	// StatusSuspended means the session awaits a checkpoint response.
	StatusSuspended Status = "suspended"

	// StatusTerminated means the session reached its terminal state.
	StatusTerminated Status = "terminated"
)

// transcriptTailLen caps how much conversation context workers see.
const transcriptTailLen = 5

// Config assembles an engine.
type Config struct {
	Roster   map[string]worker.Worker
	Strategy plan.Strategy
	Decider  plan.Decider
	Gate     *gate.Gate
	Events   events.Publisher
	Logger   *zap.Logger
}

// Engine is the control loop. It owns all RunState mutation during a
// tick; callers serialize ticks per session.
type Engine struct {
	roster   map[string]worker.Worker
	strategy plan.Strategy
	decider  plan.Decider
	gate     *gate.Gate
	events   events.Publisher
	logger   *zap.Logger
}

// New builds an engine. Gate defaults to an indefinitely waiting gate;
// Events and Logger default to no-ops.
func New(cfg Config) *Engine {
	metricsOnce.Do(initMetrics)

	if cfg.Gate == nil {
		cfg.Gate = gate.New(0)
	}
	if cfg.Events == nil {
		cfg.Events = events.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		roster:   cfg.Roster,
		strategy: cfg.Strategy,
		decider:  cfg.Decider,
		gate:     cfg.Gate,
		events:   cfg.Events,
		logger:   cfg.Logger,
	}
}

// Tick advances the session by one control-loop step. The hard ceilings
// are checked before any other logic, independent of state.
func (e *Engine) Tick(ctx context.Context, st *session.RunState) (Status, error) {
	if st.Terminated {
		return StatusTerminated, nil
	}
	if st.PendingGate != nil {
		return StatusSuspended, nil
	}
	tickCounter.Add(ctx, 1)

	if st.Iteration >= st.IterationLimit {
		e.terminate(ctx, st, fmt.Sprintf("Iteration limit (%d) reached; stopping with the work produced so far.", st.IterationLimit))
		return StatusTerminated, nil
	}
	if st.Steps >= st.StepLimit {
		e.terminate(ctx, st, fmt.Sprintf("Step ceiling (%d) reached; stopping with the work produced so far.", st.StepLimit))
		return StatusTerminated, nil
	}

	if st.Directive != nil {
		return e.applyDirective(ctx, st), nil
	}

	switch st.Phase() {
	case session.PhaseNoPlan:
		return e.commitPlan(ctx, st), nil
	case session.PhaseFollowingPlan:
		return e.followPlan(ctx, st), nil
	default:
		return e.decideFreeform(ctx, st), nil
	}
}

// Run drives ticks until the session suspends or terminates.
func (e *Engine) Run(ctx context.Context, st *session.RunState) (Status, error) {
	for {
		select {
		case <-ctx.Done():
			return StatusRunning, ctx.Err()
		default:
		}

		status, err := e.Tick(ctx, st)
		if err != nil {
			return status, err
		}
		if status != StatusRunning {
			return status, nil
		}
	}
}

// Resume answers a pending checkpoint. An empty response approves as-is;
// a non-empty response is fed back to the gated worker, which produces a
// new artifact version before control returns to the loop.
func (e *Engine) Resume(ctx context.Context, st *session.RunState, response string) (Status, error) {
	if st.Terminated {
		return StatusTerminated, nil
	}
	if st.PendingGate == nil {
		return StatusRunning, fmt.Errorf("session %s is not awaiting approval", st.ID)
	}

	req := *st.PendingGate
	st.PendingGate = nil

	response = strings.TrimSpace(response)
	if response == "" {
		e.logger.Info("checkpoint approved", zap.String("session_id", st.ID), zap.String("stage", string(req.Stage)))
		return StatusRunning, nil
	}

	st.Append("user", response)
	name := workerForStage(req.Stage)
	e.logger.Info("checkpoint feedback, re-invoking worker",
		zap.String("session_id", st.ID), zap.String("worker", name))

	// The re-invocation is not gated again; one feedback round per
	// checkpoint.
	_, status := e.invoke(ctx, st, name, "", response, nil, false)
	return status, nil
}

// RunWithApprovals drives the loop to completion, waiting on the gate's
// policy at each suspension. Responses arrive on the given channel.
func (e *Engine) RunWithApprovals(ctx context.Context, st *session.RunState, responses <-chan string) error {
	for {
		status, err := e.Run(ctx, st)
		if err != nil {
			return err
		}
		if status == StatusTerminated {
			return nil
		}

		resp, err := e.gate.Await(ctx, responses)
		if err != nil {
			return err
		}
		if _, err := e.Resume(ctx, st, resp); err != nil {
			return err
		}
	}
}

// commitPlan builds and commits the execution plan. Strategy failure
// falls back to the canonical three-step plan, so planning always makes
// forward progress.
func (e *Engine) commitPlan(ctx context.Context, st *session.RunState) Status {
	goal := st.Goal
	if st.OriginalGoal != "" && st.OriginalGoal != st.Goal {
		// A reset redirected the session; the original request stays
		// visible to the planner as context.
		goal = fmt.Sprintf("%s (supersedes the earlier request: %s)", st.Goal, st.OriginalGoal)
	}

	var p *plan.ExecutionPlan
	proposal, err := e.strategy.ProposePlan(ctx, goal, st.Artifacts.Summary())
	if err != nil {
		e.logger.Warn("planning strategy failed, using fallback plan",
			zap.String("session_id", st.ID), zap.Error(err))
		st.RecordError("orchestrator", fmt.Sprintf("planning failed: %v", err), true)
		p = plan.Fallback(st.Goal)
	} else {
		p = plan.Build(st.Goal, proposal, func(name string) bool {
			_, ok := e.roster[name]
			return ok
		})
	}

	st.SetPlan(p)
	st.Append("orchestrator", fmt.Sprintf("Execution plan created with %d steps; starting with %s.", len(p.Steps), st.NextWorker))

	ev := events.New(st.ID, events.TypeStage)
	ev.Message = "plan committed"
	ev.Data = map[string]any{"steps": len(p.Steps), "workers": p.RequiredWorkers}
	e.publish(ctx, ev)

	return StatusRunning
}

// followPlan dispatches the current step's worker and advances the
// cursor. A worker that keeps the floor (the planner while it is still
// clarifying) leaves the cursor in place.
func (e *Engine) followPlan(ctx context.Context, st *session.RunState) Status {
	if st.StepIndex >= len(st.Plan.Steps) {
		e.terminate(ctx, st, "All plan steps completed.")
		return StatusTerminated
	}

	step := st.Plan.Steps[st.StepIndex]
	res, status := e.invoke(ctx, st, step.Worker, step.Instruction, "", nil, true)
	if status == StatusTerminated {
		return status
	}
	if res.NextWorker == step.Worker {
		return status
	}

	st.Plan = st.Plan.WithStepCompleted(st.StepIndex)
	st.StepIndex++
	if st.StepIndex < len(st.Plan.Steps) {
		st.NextWorker = st.Plan.Steps[st.StepIndex].Worker
	} else {
		st.NextWorker = ""
	}
	return status
}

// decideFreeform asks the decision strategy for the next action. Any
// strategy failure degrades to the deterministic step fallback.
func (e *Engine) decideFreeform(ctx context.Context, st *session.RunState) Status {
	in := plan.DecisionInput{
		Goal:            st.Goal,
		ProgressSummary: st.Plan.ProgressSummary(),
		ArtifactSummary: st.Artifacts.Summary(),
		QualitySummary:  st.Quality.Summary(),
		Iteration:       st.Iteration,
		IterationLimit:  st.IterationLimit,
		RecentResults:   st.Tail(3),
	}

	d, err := e.decider.DecideNext(ctx, in)
	if err != nil {
		e.logger.Warn("decision strategy failed, falling back to plan step",
			zap.String("session_id", st.ID), zap.Error(err))
		st.RecordError("orchestrator", fmt.Sprintf("decision failed: %v", err), true)
		return e.fallbackStep(ctx, st)
	}

	switch d.Action {
	case plan.ActionCallAgent:
		_, status := e.invoke(ctx, st, d.Worker, d.Instruction, "", nil, true)
		return status
	case plan.ActionVerify:
		instruction := fmt.Sprintf("Verify the %s artifact against the goal.", d.Target)
		_, status := e.invoke(ctx, st, d.Checker, instruction, "", nil, false)
		return status
	case plan.ActionRefine:
		// The iteration guard takes precedence over executing the refine.
		st.Iteration++
		if st.Iteration >= st.IterationLimit {
			e.terminate(ctx, st, fmt.Sprintf("Iteration limit (%d) reached; stopping with the work produced so far.", st.IterationLimit))
			return StatusTerminated
		}
		_, status := e.invoke(ctx, st, d.Worker, "", d.Feedback, nil, true)
		return status
	default: // plan.ActionFinish
		reason := d.Summary
		if reason == "" {
			reason = "Goal achieved."
		}
		e.terminate(ctx, st, reason)
		return StatusTerminated
	}
}

// fallbackStep dispatches the next unexecuted plan step, or terminates
// when none remain.
func (e *Engine) fallbackStep(ctx context.Context, st *session.RunState) Status {
	for i, step := range st.Plan.Steps {
		if step.Completed {
			continue
		}
		res, status := e.invoke(ctx, st, step.Worker, step.Instruction, "", nil, true)
		if status == StatusTerminated {
			return status
		}
		if res.NextWorker != step.Worker {
			st.Plan = st.Plan.WithStepCompleted(i)
			if i >= st.StepIndex {
				st.StepIndex = i + 1
			}
		}
		return status
	}

	e.terminate(ctx, st, "All plan steps completed.")
	return StatusTerminated
}

// applyDirective routes a pending user directive to its worker. A
// modify directive set NextWorker when it was classified; append work
// goes to the coder. The directive is an extra invocation on top of
// the plan: the cursor does not move, so the interrupted step still
// runs on a later tick with its own instruction.
func (e *Engine) applyDirective(ctx context.Context, st *session.RunState) Status {
	d := st.TakeDirective()

	target := st.NextWorker
	if d.Type == worker.DirectiveAppend || target == "" {
		target = "coder"
	}
	if _, ok := e.roster[target]; !ok {
		target = "coder"
	}

	_, status := e.invoke(ctx, st, target, d.Instruction, "", d, true)
	return status
}

// invoke dispatches one worker and applies its result to the state.
// Invocation failure is recorded as recoverable and terminates the
// session for this tick; there is no automatic retry.
func (e *Engine) invoke(ctx context.Context, st *session.RunState, name, instruction, feedback string, d *worker.Directive, gated bool) (*worker.Result, Status) {
	w, ok := e.roster[name]
	if !ok {
		st.RecordError("orchestrator", fmt.Sprintf("unknown worker %q", name), true)
		e.terminate(ctx, st, fmt.Sprintf("No worker named %q is available; stopping.", name))
		return nil, StatusTerminated
	}

	st.Steps++
	st.NextWorker = name

	start := time.Now()
	res, err := w.Invoke(ctx, worker.Invocation{
		Instruction: instruction,
		Feedback:    feedback,
		Directive:   d,
		Artifacts:   st.Artifacts,
		Transcript:  st.Tail(transcriptTailLen),
	})
	dispatchDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("worker", name)))
	dispatchCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("worker", name)))

	if err != nil {
		e.logger.Error("worker invocation failed",
			zap.String("session_id", st.ID), zap.String("worker", name), zap.Error(err))
		st.RecordError(name, err.Error(), true)

		ev := events.New(st.ID, events.TypeError)
		ev.Worker = name
		ev.Message = err.Error()
		e.publish(ctx, ev)

		e.terminate(ctx, st, fmt.Sprintf("Worker %s failed; stopping with the work produced so far.", name))
		return nil, StatusTerminated
	}

	st.Append(name, res.Message)
	ev := events.New(st.ID, events.TypeWorkerMessage)
	ev.Worker = name
	ev.Message = res.Message
	e.publish(ctx, ev)

	if res.Write != nil {
		a, werr := st.Artifacts.Write(res.Write.Kind, res.Write.Path, res.Write.Content, name)
		if werr != nil {
			st.RecordError(name, werr.Error(), true)
		} else {
			aev := events.New(st.ID, events.TypeArtifact)
			aev.Worker = name
			aev.Data = map[string]any{"path": a.Path, "kind": string(a.Kind), "version": a.Version}
			e.publish(ctx, aev)
		}
	}
	if res.Quality != nil {
		st.Quality.Append(*res.Quality)
	}

	if gated {
		if req, gates := e.gate.RequestFor(name, res.Message); gates {
			st.PendingGate = req

			gev := events.New(st.ID, events.TypeCheckpoint)
			gev.Worker = name
			gev.Message = req.Message
			gev.Data = map[string]any{"stage": string(req.Stage), "preview": req.Preview}
			e.publish(ctx, gev)

			return res, StatusSuspended
		}
	}
	return res, StatusRunning
}

func (e *Engine) terminate(ctx context.Context, st *session.RunState, reason string) {
	st.Terminate(reason)
	st.Append("orchestrator", reason)
	terminationCounter.Add(ctx, 1)

	ev := events.New(st.ID, events.TypeTerminal)
	ev.Message = reason
	e.publish(ctx, ev)

	e.logger.Info("session terminated", zap.String("session_id", st.ID), zap.String("reason", reason))
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.events.Publish(ctx, ev); err != nil {
		e.logger.Warn("event publish failed", zap.String("session_id", ev.SessionID), zap.Error(err))
	}
}

func workerForStage(stage gate.Stage) string {
	switch stage {
	case gate.StagePlannerComplete:
		return "planner"
	case gate.StageCoderComplete:
		return "coder"
	default:
		return "reviewer"
	}
}
