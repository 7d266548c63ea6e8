// Package merge implements the pure functions that decide how newly
// captured material combines with an existing note's fields.
package merge

import (
	"sort"
	"strings"
)

// Separator joins an existing text block and an appended addition.
const Separator = "\n\n"

// Text appends addition to existing with a blank-line separator.
//
// Three-way semantics: a nil existing means the field was never set, an
// empty addition is a no-op. Appending the same non-empty text twice
// duplicates it: append is a capture log, not a set.
func Text(existing *string, addition string) string {
	if addition == "" {
		if existing == nil {
			return ""
		}
		return *existing
	}
	if existing == nil || *existing == "" {
		return addition
	}
	return *existing + Separator + addition
}

// Tags unions additions into existing: each addition is trimmed, empties
// are dropped, duplicates collapse, and the result is sorted so the
// stored encoding is deterministic. Tags never removes an existing tag.
func Tags(existing, additions []string) []string {
	set := make(map[string]struct{}, len(existing)+len(additions))
	for _, t := range existing {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	for _, t := range additions {
		t = strings.TrimSpace(t)
		if t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FirstWrite returns existing if it is already set, otherwise candidate.
// Once a value is present it is never replaced.
func FirstWrite(existing, candidate *string) *string {
	if existing != nil {
		return existing
	}
	return candidate
}
