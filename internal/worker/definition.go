package worker

import (
	"fmt"
	"sort"
	"strings"
)

// Capability classifies what a worker is good at. The orchestrator's
// planning prompt uses capabilities to route steps.
type Capability string

const (
	CapPlanning  Capability = "planning"
	CapCoding    Capability = "coding"
	CapTesting   Capability = "testing"
	CapReviewing Capability = "reviewing"
	CapDesign    Capability = "design"
	CapSecurity  Capability = "security"
	CapData      Capability = "data"
)

// Definition describes one worker in the roster: who it is, what it can
// do, and which model it runs on.
type Definition struct {
	Name         string
	Role         string
	Description  string
	Capabilities []Capability
	Model        string
	Temperature  float64
	MaxTokens    int
}

// Registry is an immutable catalogue of worker definitions. Construct it
// explicitly with NewRegistry or DefaultRegistry and pass it where needed.
type Registry struct {
	byName map[string]Definition
	order  []string
}

// NewRegistry builds a registry from the given definitions. Duplicate
// names are rejected.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("worker definition has no name")
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate worker %q", d.Name)
		}
		r.byName[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Has reports whether name is a registered worker.
func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Names returns the worker names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ByCapability returns the workers carrying the given capability.
func (r *Registry) ByCapability(cap Capability) []Definition {
	var out []Definition
	for _, name := range r.order {
		d := r.byName[name]
		for _, c := range d.Capabilities {
			if c == cap {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Describe renders the catalogue for inclusion in planning and decision
// prompts.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		d := r.byName[name]
		fmt.Fprintf(&b, "## %s (%s)\n%s\nCapabilities:\n", d.Name, d.Role, d.Description)
		caps := make([]string, len(d.Capabilities))
		for i, c := range d.Capabilities {
			caps[i] = string(c)
		}
		sort.Strings(caps)
		for _, c := range caps {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// DefaultRegistry returns the standard seven-worker roster.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Definition{
			Name:         "planner",
			Role:         "project planner",
			Description:  "Analyzes user requirements and produces a structured execution plan.",
			Capabilities: []Capability{CapPlanning},
			Model:        "gemini-2.5-pro",
			Temperature:  0.5,
			MaxTokens:    8192,
		},
		Definition{
			Name:         "coder",
			Role:         "senior full-stack developer",
			Description:  "Writes production-quality application code from the plan.",
			Capabilities: []Capability{CapCoding},
			Model:        "claude-opus-4-5-20251101",
			Temperature:  0.3,
			MaxTokens:    16384,
		},
		Definition{
			Name:         "reviewer",
			Role:         "senior code reviewer",
			Description:  "Reviews code quality, security, and performance and renders a pass/fail verdict.",
			Capabilities: []Capability{CapReviewing},
			Model:        "claude-opus-4-5-20251101",
			Temperature:  0.2,
			MaxTokens:    8192,
		},
		Definition{
			Name:         "tester",
			Role:         "QA engineer",
			Description:  "Designs test cases and writes test code for the produced artifacts.",
			Capabilities: []Capability{CapTesting},
			Model:        "gpt-5.2",
			Temperature:  0.3,
			MaxTokens:    4096,
		},
		Definition{
			Name:         "ux",
			Role:         "UX/UI designer",
			Description:  "Reviews user experience, accessibility, and interface design.",
			Capabilities: []Capability{CapDesign},
			Model:        "gemini-2.5-pro",
			Temperature:  0.5,
			MaxTokens:    4096,
		},
		Definition{
			Name:         "security",
			Role:         "security specialist",
			Description:  "Audits artifacts against OWASP Top 10 and proposes hardening.",
			Capabilities: []Capability{CapSecurity, CapReviewing},
			Model:        "gpt-5.2",
			Temperature:  0.2,
			MaxTokens:    4096,
		},
		Definition{
			Name:         "dataeng",
			Role:         "database engineer",
			Description:  "Designs schemas and runs database operations through external tools.",
			Capabilities: []Capability{CapData},
			Model:        "claude-opus-4-5-20251101",
			Temperature:  0.2,
			MaxTokens:    8192,
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}
