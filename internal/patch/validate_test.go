package patch

import (
	"strings"
	"testing"
)

func configLines() []string {
	return []string{
		"host: localhost",
		"port: 8080",
		"debug: false",
		"timeout: 30",
		"retries: 3",
	}
}

func TestValidateCleanSections(t *testing.T) {
	v := NewValidator(nil)
	sections := []DiffSection{
		{StartLine: 1, EndLine: 1, Search: "port: 8080", Replace: "port: 9090"},
		{StartLine: 3, EndLine: 3, Search: "timeout: 30", Replace: "timeout: 60"},
	}

	report := v.Validate(configLines(), sections)
	if !report.IsValid {
		t.Fatalf("Validate() invalid, conflicts: %+v", report.Conflicts)
	}
	if len(report.Matches) != 2 {
		t.Fatalf("Validate() matches = %d, want 2", len(report.Matches))
	}
	if m := report.MatchFor(0); m == nil || m.StartLine != 1 {
		t.Errorf("MatchFor(0) = %+v, want match at line 1", m)
	}
	if m := report.MatchFor(1); m == nil || m.StartLine != 3 {
		t.Errorf("MatchFor(1) = %+v, want match at line 3", m)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Validate() warnings = %v, want none for exact matches", report.Warnings)
	}
}

func TestValidateOverlap(t *testing.T) {
	// Both sections resolve to ranges sharing line 2. Order of the input must
	// not matter.
	a := DiffSection{StartLine: 1, EndLine: 2, Search: "port: 8080\ndebug: false", Replace: "x"}
	b := DiffSection{StartLine: 2, EndLine: 3, Search: "debug: false\ntimeout: 30", Replace: "y"}

	tests := []struct {
		name     string
		sections []DiffSection
	}{
		{name: "a then b", sections: []DiffSection{a, b}},
		{name: "b then a", sections: []DiffSection{b, a}},
	}

	v := NewValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.Validate(configLines(), tt.sections)
			if report.IsValid {
				t.Fatal("Validate() valid, want overlap conflict")
			}
			if len(report.Conflicts) != 1 {
				t.Fatalf("Validate() conflicts = %d, want 1", len(report.Conflicts))
			}
			c := report.Conflicts[0]
			if c.Kind != ConflictOverlap {
				t.Errorf("conflict kind = %v, want overlap", c.Kind)
			}
			if len(c.Sections) != 2 {
				t.Errorf("conflict sections = %v, want both indices", c.Sections)
			}
		})
	}
}

func TestValidateContentNotFound(t *testing.T) {
	v := NewValidator(nil)
	sections := []DiffSection{
		{StartLine: 0, EndLine: 0, Search: "no such line anywhere", Replace: "x"},
	}

	report := v.Validate(configLines(), sections)
	if report.IsValid {
		t.Fatal("Validate() valid, want content_not_found conflict")
	}
	c := report.Conflicts[0]
	if c.Kind != ConflictContentNotFound {
		t.Errorf("conflict kind = %v, want content_not_found", c.Kind)
	}
	if c.Sections[0] != 0 {
		t.Errorf("conflict section = %d, want 0", c.Sections[0])
	}
	if c.Suggestion == "" {
		t.Error("conflict should carry a suggestion")
	}
	if len(report.Suggestions) != 1 || report.Suggestions[0] != c.Suggestion {
		t.Errorf("report.Suggestions = %v, want the conflict suggestion surfaced", report.Suggestions)
	}
}

func TestValidateNotFoundSuggestsClosest(t *testing.T) {
	v := NewValidator(nil)
	// Too far gone for fuzzy recovery, but close enough for the diagnostic
	// candidate hunt: the suggestion should point at the real line.
	sections := []DiffSection{
		{StartLine: 3, EndLine: 3, Search: "timeout: ninety seconds", Replace: "x"},
	}

	report := v.Validate(configLines(), sections)
	if report.IsValid {
		t.Fatal("Validate() valid, want conflict")
	}
	suggestion := report.Conflicts[0].Suggestion
	if !strings.Contains(suggestion, "closest content") {
		t.Errorf("suggestion = %q, want closest-content hint", suggestion)
	}
	if !strings.Contains(suggestion, "timeout: 30") {
		t.Errorf("suggestion = %q, want it to quote the near-miss line", suggestion)
	}
}

func TestValidateOneBadSectionDoesNotHaltOthers(t *testing.T) {
	v := NewValidator(nil)
	sections := []DiffSection{
		{StartLine: 0, EndLine: 0, Search: "host: localhost", Replace: "host: 0.0.0.0"},
		{StartLine: 2, EndLine: 2, Search: "absent content", Replace: "x"},
		{StartLine: 4, EndLine: 4, Search: "retries: 3", Replace: "retries: 5"},
	}

	report := v.Validate(configLines(), sections)
	if report.IsValid {
		t.Fatal("Validate() valid, want one conflict")
	}
	if len(report.Matches) != 2 {
		t.Errorf("Validate() matches = %d, want the two good sections", len(report.Matches))
	}
	if len(report.Conflicts) != 1 {
		t.Errorf("Validate() conflicts = %d, want 1", len(report.Conflicts))
	}
}

func TestValidateWholeFileSentinel(t *testing.T) {
	v := NewValidator(nil)
	sections := []DiffSection{
		{StartLine: 0, EndLine: WholeFile, Search: "", Replace: "entirely new content\n"},
	}

	lines := configLines()
	report := v.Validate(lines, sections)
	if !report.IsValid {
		t.Fatalf("Validate() invalid, conflicts: %+v", report.Conflicts)
	}
	m := report.MatchFor(0)
	if m == nil {
		t.Fatal("MatchFor(0) = nil, want pseudo-match")
	}
	if m.StartLine != 0 || m.EndLine != len(lines)-1 {
		t.Errorf("sentinel match range = %d-%d, want 0-%d", m.StartLine, m.EndLine, len(lines)-1)
	}
}

func TestValidateTwoSentinelsConflict(t *testing.T) {
	v := NewValidator(nil)
	sections := []DiffSection{
		{StartLine: 0, EndLine: WholeFile, Replace: "version one"},
		{StartLine: 0, EndLine: WholeFile, Replace: "version two"},
	}

	report := v.Validate(configLines(), sections)
	if report.IsValid {
		t.Fatal("Validate() valid, want conflict for competing whole-file sections")
	}
	c := report.Conflicts[0]
	if c.Kind != ConflictOverlap {
		t.Errorf("conflict kind = %v, want overlap", c.Kind)
	}
	if len(c.Sections) != 2 {
		t.Errorf("conflict sections = %v, want both sentinel indices", c.Sections)
	}
}

func TestValidateSentinelOverlapsNormalSection(t *testing.T) {
	v := NewValidator(nil)
	sections := []DiffSection{
		{StartLine: 1, EndLine: 1, Search: "port: 8080", Replace: "port: 9090"},
		{StartLine: 0, EndLine: WholeFile, Replace: "rewrite"},
	}

	report := v.Validate(configLines(), sections)
	if report.IsValid {
		t.Fatal("Validate() valid, want conflict: whole-file section covers everything")
	}
}

func TestValidateWarnsOnFuzzyMatch(t *testing.T) {
	v := NewValidator(nil)
	// Drifted search text: matched by similarity, which must warn but not
	// invalidate.
	sections := []DiffSection{
		{StartLine: 1, EndLine: 1, Search: "port = 8080", Replace: "port: 9090"},
	}

	report := v.Validate(configLines(), sections)
	if !report.IsValid {
		t.Fatalf("Validate() invalid, conflicts: %+v", report.Conflicts)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("Validate() produced no warnings, want low-confidence warning")
	}
	if !strings.Contains(report.Warnings[0], "confidence") {
		t.Errorf("warning = %q, want it to mention confidence", report.Warnings[0])
	}
}
