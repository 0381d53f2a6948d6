package interrupt

import (
	"sort"
	"strings"
)

// keywordTargets maps request vocabulary to the artifact paths it most
// likely concerns. Only paths that actually exist are returned.
var keywordTargets = map[string][]string{
	"button":      {"code.tsx"},
	"color":       {"code.tsx"},
	"style":       {"code.tsx"},
	"design":      {"code.tsx"},
	"ui":          {"code.tsx"},
	"component":   {"code.tsx"},
	"function":    {"code.tsx"},
	"layout":      {"code.tsx"},
	"plan":        {"plan.md"},
	"requirement": {"plan.md"},
	"spec":        {"plan.md"},
	"test":        {"test.ts"},
	"verify":      {"test.ts"},
}

// IdentifyTargets infers which artifacts a request is about. With no
// keyword hit it prefers the code artifact, then falls back to every
// existing artifact.
func IdentifyTargets(message string, existingPaths []string) []string {
	exists := make(map[string]bool, len(existingPaths))
	for _, p := range existingPaths {
		exists[p] = true
	}

	keywords := make([]string, 0, len(keywordTargets))
	for k := range keywordTargets {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	words := strings.Fields(strings.ToLower(message))
	var targets []string
	seen := make(map[string]bool)
	for _, keyword := range keywords {
		if !matchesKeyword(words, keyword) {
			continue
		}
		for _, p := range keywordTargets[keyword] {
			if exists[p] && !seen[p] {
				targets = append(targets, p)
				seen[p] = true
			}
		}
	}
	if len(targets) > 0 {
		return targets
	}

	if exists["code.tsx"] {
		return []string{"code.tsx"}
	}
	out := make([]string, len(existingPaths))
	copy(out, existingPaths)
	return out
}

// matchesKeyword uses word-prefix matching so "tests" hits "test" without
// short keywords like "ui" firing inside unrelated words.
func matchesKeyword(words []string, keyword string) bool {
	for _, w := range words {
		if strings.HasPrefix(strings.Trim(w, ".,!?;:\"'()"), keyword) {
			return true
		}
	}
	return false
}
