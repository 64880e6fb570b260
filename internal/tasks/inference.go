package tasks

import (
	"strings"
	"unicode"
)

// inferenceRule proposes a role for a lower-cased property key. A zero mode
// matches any mode.
type inferenceRule struct {
	mode  Mode
	match func(key string) bool
	role  Role
}

var (
	contextKeywords = []string{"input", "prompt", "query", "question", "context"}
	targetKeywords  = []string{"target", "response", "output", "answer"}
)

// inferenceRules are evaluated in order; the first match wins. Keys matching
// no rule are proposed as ignored.
var inferenceRules = []inferenceRule{
	{match: containsAny(contextKeywords), role: RoleContext},
	{mode: ModeScoring, match: containsAny(targetKeywords), role: RoleTarget},
	{mode: ModeComparison, match: sideMatch("modela", "outputa", "_a"), role: RoleLeft},
	{mode: ModeComparison, match: sideMatch("modelb", "outputb", "_b"), role: RoleRight},
}

// InferFields proposes a role and label for each imported property name, in
// order. Pure: identical keys and mode always yield the identical proposal.
// The operator may override any entry before the task is created.
func InferFields(keys []string, mode Mode) []FieldMapping {
	out := make([]FieldMapping, 0, len(keys))
	for _, key := range keys {
		out = append(out, FieldMapping{
			Key:   key,
			Role:  InferRole(key, mode),
			Label: DefaultLabel(key),
		})
	}
	return out
}

// InferRole proposes a role for one property key under the given mode.
func InferRole(key string, mode Mode) Role {
	lowered := strings.ToLower(key)
	for _, rule := range inferenceRules {
		if rule.mode != "" && rule.mode != mode {
			continue
		}
		if rule.match(lowered) {
			return rule.role
		}
	}
	return RoleIgnore
}

// DefaultLabel derives a display label from a property key: underscores become
// spaces and the first character is upper-cased.
func DefaultLabel(key string) string {
	label := strings.ReplaceAll(key, "_", " ")
	if label == "" {
		return label
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func containsAny(words []string) func(string) bool {
	return func(key string) bool {
		for _, w := range words {
			if strings.Contains(key, w) {
				return true
			}
		}
		return false
	}
}

func sideMatch(exactA, exactB, suffix string) func(string) bool {
	return func(key string) bool {
		return key == exactA || key == exactB || strings.HasSuffix(key, suffix)
	}
}
