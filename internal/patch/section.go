// Package patch implements the diff-section location and application engine:
// content matching strategies, multi-section validation, bottom-up merging,
// and the apply orchestrator that ties them to storage and approval.
package patch

import "sort"

// WholeFile is the EndLine sentinel denoting "replace the entire file".
// Sections using it bypass content matching entirely.
const WholeFile = -1

// DiffSection is one proposed localized edit. StartLine and EndLine are
// zero-based inclusive hints only - the matcher relocates the actual range.
type DiffSection struct {
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Search      string `json:"search"`
	Replace     string `json:"replace"`
	Description string `json:"description,omitempty"`
}

// IsWholeFile reports whether the section uses the full-file replacement
// sentinel.
func (s DiffSection) IsWholeFile() bool {
	return s.EndLine == WholeFile
}

// Strategy identifies which matching algorithm produced a MatchResult.
type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategyNormalized Strategy = "normalized"
	StrategySimilarity Strategy = "similarity"
	StrategyContextual Strategy = "contextual"
)

// MatchResult is the outcome of locating one section's search text in the
// current file. StartLine/EndLine are the actual located range (zero-based,
// inclusive), which may differ from the section's hints.
type MatchResult struct {
	Section       int      `json:"section"` // index into the caller's section slice
	StartLine     int      `json:"start_line"`
	EndLine       int      `json:"end_line"`
	Confidence    float64  `json:"confidence"`
	Strategy      Strategy `json:"strategy"`
	ActualContent string   `json:"actual_content"`
	Issues        []string `json:"issues,omitempty"`
}

// Overlaps reports whether two matched line ranges intersect.
func (m *MatchResult) Overlaps(other *MatchResult) bool {
	return m.StartLine <= other.EndLine && other.StartLine <= m.EndLine
}

// ConflictKind classifies why validation failed for a section or a pair of
// sections.
type ConflictKind string

const (
	ConflictOverlap         ConflictKind = "overlap"
	ConflictContentNotFound ConflictKind = "content_not_found"
)

// ConflictInfo describes one validation conflict. Sections holds the indices
// of the offending sections in the caller's input order (one index for
// content_not_found, two for overlap).
type ConflictInfo struct {
	Kind        ConflictKind `json:"kind"`
	Sections    []int        `json:"sections"`
	Description string       `json:"description"`
	Suggestion  string       `json:"suggestion,omitempty"`
}

// ValidationReport aggregates one validation pass over a section slice.
// Matches is ordered to correspond to the stably-sorted-by-StartLine view of
// the input; each entry's Section field points back at the original index.
type ValidationReport struct {
	IsValid     bool           `json:"is_valid"`
	Matches     []MatchResult  `json:"matches"`
	Conflicts   []ConflictInfo `json:"conflicts,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
}

// MatchFor returns the match for the given original section index, or nil if
// the section did not resolve.
func (r *ValidationReport) MatchFor(section int) *MatchResult {
	for i := range r.Matches {
		if r.Matches[i].Section == section {
			return &r.Matches[i]
		}
	}
	return nil
}

// ConflictedSections returns the set of original section indices named by at
// least one conflict.
func (r *ValidationReport) ConflictedSections() map[int]bool {
	bad := make(map[int]bool)
	for _, c := range r.Conflicts {
		for _, idx := range c.Sections {
			bad[idx] = true
		}
	}
	return bad
}

// sortSectionsByStart returns the indices of sections ordered by StartLine
// ascending. The sort is stable: ties keep their original relative order.
func sortSectionsByStart(sections []DiffSection) []int {
	order := make([]int, len(sections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sections[order[a]].StartLine < sections[order[b]].StartLine
	})
	return order
}
