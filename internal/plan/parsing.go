package plan

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON indicates no parseable JSON object was found in model output.
var ErrNoJSON = errors.New("plan: no JSON object in response")

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON pulls the first JSON object out of raw model text. It tries a
// fenced code block first, then the outermost brace pair. Model output often
// wraps JSON in prose; both locations occur in practice.
func ExtractJSON(raw string, v any) error {
	if m := codeFenceRe.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return ErrNoJSON
	}
	return nil
}
