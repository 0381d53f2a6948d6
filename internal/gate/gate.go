// Package gate implements the human-approval checkpoint between worker
// completions and the next control-loop tick. A gated worker's output is
// previewed to the user, the session suspends cooperatively, and the
// user's response (possibly empty) resumes it.
package gate

import (
	"context"
	"fmt"
	"time"
)

// PreviewLimit caps how much worker output a checkpoint shows.
const PreviewLimit = 500

// Stage identifies which completion is being checkpointed.
type Stage string

const (
	StagePlannerComplete  Stage = "planner_complete"
	StageCoderComplete    Stage = "coder_complete"
	StageReviewerComplete Stage = "reviewer_complete"
)

// Request is a pending approval shown to the user. Preview is at most
// PreviewLimit characters.
type Request struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	Preview string `json:"preview"`
}

// Gate decides which workers checkpoint and how long to wait for the
// human response. A zero timeout waits indefinitely; a positive timeout
// treats expiry as an affirmative empty response.
type Gate struct {
	timeout  time.Duration
	disabled bool
}

// New builds a gate with the given wait policy.
func New(timeout time.Duration) *Gate {
	return &Gate{timeout: timeout}
}

// Disabled builds a gate that never checkpoints, for unattended runs.
func Disabled() *Gate {
	return &Gate{disabled: true}
}

// RequestFor returns the checkpoint request for a worker's completed
// output, or false when the worker does not gate. Planner and coder
// always gate; the reviewer gates so its verdict reaches the user.
func (g *Gate) RequestFor(workerName, output string) (*Request, bool) {
	if g.disabled {
		return nil, false
	}
	var stage Stage
	var message string
	switch workerName {
	case "planner":
		stage = StagePlannerComplete
		message = "The plan is ready. Continue? (enter a change request if you have one)"
	case "coder":
		stage = StageCoderComplete
		message = "The code is ready. Continue? (enter a change request if you have one)"
	case "reviewer":
		stage = StageReviewerComplete
		message = "The code review is complete. Continue?"
	default:
		return nil, false
	}
	return &Request{Stage: stage, Message: message, Preview: Truncate(output)}, true
}

// Await blocks until a response arrives, the configured timeout expires,
// or ctx is done. Timeout expiry resumes affirmatively with an empty
// response.
func (g *Gate) Await(ctx context.Context, responses <-chan string) (string, error) {
	var expired <-chan time.Time
	if g.timeout > 0 {
		t := time.NewTimer(g.timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case resp := <-responses:
		return resp, nil
	case <-expired:
		return "", nil
	case <-ctx.Done():
		return "", fmt.Errorf("awaiting checkpoint response: %w", ctx.Err())
	}
}

// Truncate clips content to PreviewLimit characters. The count is in
// runes so multibyte output is never cut mid-character.
func Truncate(content string) string {
	if len(content) <= PreviewLimit {
		return content
	}
	r := []rune(content)
	if len(r) <= PreviewLimit {
		return content
	}
	return string(r[:PreviewLimit])
}
