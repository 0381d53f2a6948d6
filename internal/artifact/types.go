// Package artifact provides the versioned store for work products produced
// by crew workers. Artifacts are keyed by path; a write overwrites the path
// mapping while version numbers keep increasing per kind, so callers that
// need history must snapshot before overwriting.
package artifact

import (
	"time"
)

// Kind categorizes a work product.
type Kind string

const (
	KindPlan   Kind = "plan"
	KindCode   Kind = "code"
	KindTest   Kind = "test"
	KindReview Kind = "review"
	KindDesign Kind = "design"
)

// Valid reports whether k is a known artifact kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPlan, KindCode, KindTest, KindReview, KindDesign:
		return true
	}
	return false
}

// Artifact is a named, typed, versioned work product.
type Artifact struct {
	// Kind categorizes the artifact (plan, code, test, review, design).
	Kind Kind `json:"kind"`

	// Path is the unique key for this artifact (e.g. "code.tsx").
	Path string `json:"path"`

	// Content is the full artifact body.
	Content string `json:"content"`

	// CreatedBy is the name of the worker that produced this version.
	CreatedBy string `json:"created_by"`

	// Version is monotonic per kind, starting at 1.
	Version int `json:"version"`

	// CreatedAt is when this version was written.
	CreatedAt time.Time `json:"created_at"`
}
