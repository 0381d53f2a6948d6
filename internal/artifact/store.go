package artifact

import (
	"fmt"
	"sort"
	"time"
)

// Store holds the latest version of each artifact, keyed by path.
//
// Store is not safe for concurrent use; the session control loop owns it for
// the duration of a tick. Snapshot returns an independent copy safe to hand
// to the transport layer.
type Store struct {
	byPath map[string]Artifact
}

// NewStore creates an empty artifact store.
func NewStore() *Store {
	return &Store{byPath: make(map[string]Artifact)}
}

// Write stores content at path and returns the stored artifact. Rewriting an
// existing path bumps its version; a fresh path starts from the per-kind count
// so versions keep increasing across the whole kind.
func (s *Store) Write(kind Kind, path, content, createdBy string) (Artifact, error) {
	if !kind.Valid() {
		return Artifact{}, fmt.Errorf("unknown artifact kind %q", kind)
	}
	if path == "" {
		return Artifact{}, fmt.Errorf("artifact path cannot be empty")
	}

	version := s.CountByKind(kind) + 1
	if existing, ok := s.byPath[path]; ok {
		version = existing.Version + 1
	}

	a := Artifact{
		Kind:      kind,
		Path:      path,
		Content:   content,
		CreatedBy: createdBy,
		Version:   version,
		CreatedAt: time.Now(),
	}
	s.byPath[path] = a
	return a, nil
}

// Put stores a pre-built artifact as-is, overwriting any existing entry at
// its path. Used when applying worker result updates that already carry a
// computed version.
func (s *Store) Put(a Artifact) {
	s.byPath[a.Path] = a
}

// Get returns the artifact at path, if present.
func (s *Store) Get(path string) (Artifact, bool) {
	a, ok := s.byPath[path]
	return a, ok
}

// Latest returns the highest-versioned artifact of the given kind.
func (s *Store) Latest(kind Kind) (Artifact, bool) {
	var best Artifact
	found := false
	for _, a := range s.byPath {
		if a.Kind != kind {
			continue
		}
		if !found || a.Version > best.Version {
			best = a
			found = true
		}
	}
	return best, found
}

// CountByKind returns how many stored artifacts have the given kind.
func (s *Store) CountByKind(kind Kind) int {
	n := 0
	for _, a := range s.byPath {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Paths returns all artifact paths in sorted order.
func (s *Store) Paths() []string {
	paths := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of stored artifacts.
func (s *Store) Len() int {
	return len(s.byPath)
}

// Snapshot returns an independent copy of the path→artifact map.
func (s *Store) Snapshot() map[string]Artifact {
	out := make(map[string]Artifact, len(s.byPath))
	for p, a := range s.byPath {
		out[p] = a
	}
	return out
}

// Restore replaces the store contents with the given map. Used when
// rehydrating a session from a persisted snapshot.
func (s *Store) Restore(m map[string]Artifact) {
	s.byPath = make(map[string]Artifact, len(m))
	for p, a := range m {
		s.byPath[p] = a
	}
}

// Clear removes all artifacts. Used by a reset interrupt.
func (s *Store) Clear() {
	s.byPath = make(map[string]Artifact)
}

// Summary renders a one-line-per-artifact inventory for strategy prompts.
func (s *Store) Summary() string {
	if len(s.byPath) == 0 {
		return "no artifacts yet"
	}
	out := ""
	for _, p := range s.Paths() {
		a := s.byPath[p]
		out += fmt.Sprintf("- %s (%s, v%d) by %s\n", a.Path, a.Kind, a.Version, a.CreatedBy)
	}
	return out
}
