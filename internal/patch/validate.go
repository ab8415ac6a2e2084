package patch

import (
	"fmt"
	"strings"
)

// candidateThreshold is the floor used when hunting for a "did you mean"
// candidate for an unmatched section. Low on purpose: this is diagnostics,
// not matching.
const candidateThreshold = 0.3

// Validator turns a raw section slice plus a snapshot of file lines into a
// ValidationReport. A conflicting or unmatched section never halts processing
// of its siblings - partial diagnosis is more useful than an all-or-nothing
// failure at this stage.
type Validator struct {
	Matcher *Matcher
}

// NewValidator returns a Validator backed by the given matcher, or a default
// one when nil.
func NewValidator(m *Matcher) *Validator {
	if m == nil {
		m = NewMatcher()
	}
	return &Validator{Matcher: m}
}

// Validate matches every section against lines, records conflicts for
// unmatched sections and overlapping ranges, and collects warnings for
// low-confidence matches. Warnings alone do not block validity.
func (v *Validator) Validate(lines []string, sections []DiffSection) *ValidationReport {
	report := &ValidationReport{}
	order := sortSectionsByStart(sections)
	sentinelSeen := -1

	for _, idx := range order {
		section := sections[idx]

		if section.IsWholeFile() {
			if sentinelSeen >= 0 {
				report.Conflicts = append(report.Conflicts, ConflictInfo{
					Kind:        ConflictOverlap,
					Sections:    []int{sentinelSeen, idx},
					Description: fmt.Sprintf("sections %d and %d both replace the entire file", sentinelSeen, idx),
					Suggestion:  "combine the replacements into a single whole-file section",
				})
				continue
			}
			sentinelSeen = idx
			// Whole-file replacement bypasses matching; an empty search is
			// permitted in this mode.
			match := MatchResult{
				Section:       idx,
				StartLine:     0,
				EndLine:       len(lines) - 1,
				Confidence:    exactConfidence,
				Strategy:      StrategyExact,
				ActualContent: strings.Join(lines, "\n"),
				Issues:        []string{"replaces the entire file"},
			}
			v.checkOverlap(report, &match)
			report.Matches = append(report.Matches, match)
			continue
		}

		match := v.Matcher.Match(lines, section)
		if match == nil {
			report.Conflicts = append(report.Conflicts, v.notFoundConflict(lines, idx, section))
			continue
		}
		match.Section = idx

		v.checkOverlap(report, match)

		if v.Matcher.NeedsConfirmation(match) {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"section %d matched at lines %d-%d via %s strategy (confidence %.2f): %s",
				idx, match.StartLine, match.EndLine, match.Strategy, match.Confidence,
				strings.Join(match.Issues, "; ")))
		}

		report.Matches = append(report.Matches, *match)
	}

	for _, c := range report.Conflicts {
		if c.Suggestion != "" {
			report.Suggestions = append(report.Suggestions, c.Suggestion)
		}
	}
	report.IsValid = len(report.Conflicts) == 0
	return report
}

// checkOverlap compares a fresh match against every previously matched range
// and records an overlap conflict naming both section indices.
func (v *Validator) checkOverlap(report *ValidationReport, match *MatchResult) {
	for i := range report.Matches {
		prev := &report.Matches[i]
		if !prev.Overlaps(match) {
			continue
		}
		report.Conflicts = append(report.Conflicts, ConflictInfo{
			Kind:     ConflictOverlap,
			Sections: []int{prev.Section, match.Section},
			Description: fmt.Sprintf("section %d (lines %d-%d) overlaps section %d (lines %d-%d)",
				prev.Section, prev.StartLine, prev.EndLine,
				match.Section, match.StartLine, match.EndLine),
			Suggestion: "merge the overlapping sections into one, or narrow their search blocks",
		})
	}
}

// notFoundConflict builds a content_not_found conflict enriched with the
// closest candidate actually present in the file, so a caller can
// self-correct without re-reading everything.
func (v *Validator) notFoundConflict(lines []string, idx int, section DiffSection) ConflictInfo {
	conflict := ConflictInfo{
		Kind:        ConflictContentNotFound,
		Sections:    []int{idx},
		Description: fmt.Sprintf("section %d: search text not found in file: %s", idx, truncateForMsg(section.Search)),
		Suggestion:  "re-read the file and copy the exact text to replace",
	}

	candidates := v.Matcher.FindSimilar(lines, section.Search, candidateThreshold)
	if len(candidates) > 0 {
		best := candidates[0]
		conflict.Suggestion = fmt.Sprintf(
			"closest content is at lines %d-%d (similarity %.0f%%): %s",
			best.StartLine, best.EndLine, best.Confidence*100, truncateForMsg(best.ActualContent))
	}
	return conflict
}

// truncateForMsg keeps diagnostic messages readable when search blocks are
// large.
func truncateForMsg(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}
