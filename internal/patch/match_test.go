package patch

import (
	"strings"
	"testing"
)

func sampleLines() []string {
	return []string{
		"package main",
		"",
		"import \"fmt\"",
		"",
		"func main() {",
		"\tfmt.Println(\"hello\")",
		"}",
		"",
	}
}

func TestFindExact(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		hint      int
		wantStart int
		wantEnd   int
		wantNil   bool
	}{
		{
			name:      "single line",
			target:    "import \"fmt\"",
			hint:      2,
			wantStart: 2,
			wantEnd:   2,
		},
		{
			name:      "multi line block",
			target:    "func main() {\n\tfmt.Println(\"hello\")\n}",
			hint:      4,
			wantStart: 4,
			wantEnd:   6,
		},
		{
			name:      "stale hint still finds content",
			target:    "import \"fmt\"",
			hint:      6,
			wantStart: 2,
			wantEnd:   2,
		},
		{
			name:      "trailing newline in block tolerated",
			target:    "package main\n",
			hint:      0,
			wantStart: 0,
			wantEnd:   0,
		},
		{
			name:    "absent content",
			target:  "func missing() {}",
			hint:    0,
			wantNil: true,
		},
		{
			name:    "empty target",
			target:  "",
			hint:    0,
			wantNil: true,
		},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FindExact(sampleLines(), tt.target, tt.hint)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("FindExact() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("FindExact() = nil, want match")
			}
			if got.StartLine != tt.wantStart || got.EndLine != tt.wantEnd {
				t.Errorf("FindExact() range = %d-%d, want %d-%d", got.StartLine, got.EndLine, tt.wantStart, tt.wantEnd)
			}
			if got.Confidence != 1.0 {
				t.Errorf("FindExact() confidence = %v, want 1.0", got.Confidence)
			}
			if got.Strategy != StrategyExact {
				t.Errorf("FindExact() strategy = %v, want exact", got.Strategy)
			}
		})
	}
}

func TestFindExactDuplicatesPreferHint(t *testing.T) {
	lines := []string{
		"if err != nil {",
		"\treturn err",
		"}",
		"doWork()",
		"if err != nil {",
		"\treturn err",
		"}",
	}
	target := "if err != nil {\n\treturn err\n}"

	tests := []struct {
		name      string
		hint      int
		wantStart int
	}{
		{name: "hint at first occurrence", hint: 0, wantStart: 0},
		{name: "hint at second occurrence", hint: 4, wantStart: 4},
		{name: "hint between leans earlier on tie", hint: 2, wantStart: 0},
		{name: "negative hint takes first", hint: -5, wantStart: 0},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FindExact(lines, target, tt.hint)
			if got == nil {
				t.Fatal("FindExact() = nil, want match")
			}
			if got.StartLine != tt.wantStart {
				t.Errorf("FindExact() start = %d, want %d", got.StartLine, tt.wantStart)
			}
			if len(got.Issues) == 0 {
				t.Error("FindExact() with duplicate occurrences should record an ambiguity issue")
			}
		})
	}
}

func TestFindNormalized(t *testing.T) {
	lines := []string{
		"func add(a, b int) int {",
		"    return a + b",
		"}",
	}

	tests := []struct {
		name      string
		target    string
		wantStart int
		wantEnd   int
		wantNil   bool
	}{
		{
			name:      "indentation differs",
			target:    "func add(a, b int) int {\n\treturn a + b\n}",
			wantStart: 0,
			wantEnd:   2,
		},
		{
			name:      "trailing spaces in target",
			target:    "    return a + b   ",
			wantStart: 1,
			wantEnd:   1,
		},
		{
			name:    "genuinely different content",
			target:  "return a - b",
			wantNil: true,
		},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.FindNormalized(lines, tt.target)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("FindNormalized() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("FindNormalized() = nil, want match")
			}
			if got.StartLine != tt.wantStart || got.EndLine != tt.wantEnd {
				t.Errorf("FindNormalized() range = %d-%d, want %d-%d", got.StartLine, got.EndLine, tt.wantStart, tt.wantEnd)
			}
			if got.Confidence != 0.9 {
				t.Errorf("FindNormalized() confidence = %v, want 0.9", got.Confidence)
			}
			if len(got.Issues) == 0 {
				t.Error("FindNormalized() should record a whitespace issue")
			}
		})
	}
}

func TestExactRejectsWhitespaceDrift(t *testing.T) {
	// Content that only normalization can find must stay invisible to the
	// exact scan.
	lines := []string{"    return a + b"}
	m := NewMatcher()
	if got := m.FindExact(lines, "\treturn a + b", 0); got != nil {
		t.Errorf("FindExact() = %+v, want nil for whitespace-drifted content", got)
	}
	if got := m.FindNormalized(lines, "\treturn a + b"); got == nil {
		t.Error("FindNormalized() = nil, want match for whitespace-drifted content")
	}
}

func TestFindNormalizedExactTakesPriority(t *testing.T) {
	// Match escalates: an exact hit must win before normalization runs.
	lines := sampleLines()
	m := NewMatcher()
	got := m.Match(lines, DiffSection{StartLine: 2, EndLine: 2, Search: "import \"fmt\"", Replace: "x"})
	if got == nil {
		t.Fatal("Match() = nil, want match")
	}
	if got.Strategy != StrategyExact {
		t.Errorf("Match() strategy = %v, want exact", got.Strategy)
	}
}

func TestFindNormalizedIgnoreEmptyLines(t *testing.T) {
	lines := []string{
		"alpha",
		"",
		"beta",
		"gamma",
	}
	m := NewMatcher()
	m.Normalize.IgnoreEmptyLines = true

	got := m.FindNormalized(lines, "alpha\nbeta")
	if got == nil {
		t.Fatal("FindNormalized() = nil, want match across dropped empty line")
	}
	// Hit must map back to real line numbers, not the filtered view.
	if got.StartLine != 0 || got.EndLine != 2 {
		t.Errorf("FindNormalized() range = %d-%d, want 0-2", got.StartLine, got.EndLine)
	}
}

func TestFindSimilar(t *testing.T) {
	lines := []string{
		"func process(items []string) error {",
		"\tfor _, item := range items {",
		"\t\thandle(item)",
		"\t}",
		"\treturn nil",
		"}",
	}
	// Caller's copy drifted: variable renamed.
	target := "func process(elems []string) error {\n\tfor _, elem := range elems {\n\t\thandle(elem)\n\t}\n\treturn nil\n}"

	m := NewMatcher()
	got := m.FindSimilar(lines, target, 0.7)
	if len(got) == 0 {
		t.Fatal("FindSimilar() found nothing, want at least one candidate")
	}
	best := got[0]
	if best.StartLine != 0 || best.EndLine != 5 {
		t.Errorf("FindSimilar() best range = %d-%d, want 0-5", best.StartLine, best.EndLine)
	}
	if best.Confidence >= 1.0 || best.Confidence < 0.7 {
		t.Errorf("FindSimilar() confidence = %v, want in [0.7, 1.0)", best.Confidence)
	}
	if best.Strategy != StrategySimilarity {
		t.Errorf("FindSimilar() strategy = %v, want similarity", best.Strategy)
	}

	// Results are sorted descending by confidence.
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Errorf("FindSimilar() results unsorted at %d: %v > %v", i, got[i].Confidence, got[i-1].Confidence)
		}
	}
}

func TestFindSimilarThreshold(t *testing.T) {
	lines := []string{"completely unrelated line"}
	m := NewMatcher()
	if got := m.FindSimilar(lines, "nothing like it at all here", 0.9); len(got) != 0 {
		t.Errorf("FindSimilar() = %d candidates, want none above threshold", len(got))
	}
}

func TestFindContextualDisambiguates(t *testing.T) {
	// Two near-identical windows; surrounding context differs. The hint's
	// neighborhood should pull the match to the right one.
	lines := []string{
		"// setup phase",
		"count = 0",
		"start()",
		"",
		"// teardown phase",
		"count = 0",
		"stop()",
	}
	m := NewMatcher()

	got := m.FindContextual(lines, "count = 0", m.ContextRadius, 5)
	if got == nil {
		t.Fatal("FindContextual() = nil, want match")
	}
	if got.StartLine != 5 {
		t.Errorf("FindContextual() start = %d, want 5 (teardown occurrence)", got.StartLine)
	}
	if got.Strategy != StrategyContextual {
		t.Errorf("FindContextual() strategy = %v, want contextual", got.Strategy)
	}
}

func TestPickBest(t *testing.T) {
	candidates := []MatchResult{
		{StartLine: 10, Confidence: 0.75},
		{StartLine: 20, Confidence: 0.92},
		{StartLine: 30, Confidence: 0.60},
	}

	m := NewMatcher()
	got := m.PickBest(candidates, 0.7)
	if got == nil {
		t.Fatal("PickBest() = nil, want match")
	}
	if got.StartLine != 20 {
		t.Errorf("PickBest() start = %d, want 20", got.StartLine)
	}

	if got := m.PickBest(candidates, 0.95); got != nil {
		t.Errorf("PickBest() above all candidates = %+v, want nil", got)
	}
	if got := m.PickBest(nil, 0.5); got != nil {
		t.Errorf("PickBest(nil) = %+v, want nil", got)
	}
}

func TestNeedsConfirmation(t *testing.T) {
	tests := []struct {
		name  string
		match *MatchResult
		want  bool
	}{
		{name: "nil match", match: nil, want: false},
		{name: "clean exact match", match: &MatchResult{Confidence: 1.0}, want: false},
		{name: "low confidence", match: &MatchResult{Confidence: 0.8}, want: true},
		{name: "full confidence with issue", match: &MatchResult{Confidence: 1.0, Issues: []string{"ambiguous"}}, want: true},
		{name: "boundary confidence", match: &MatchResult{Confidence: 0.9}, want: false},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.NeedsConfirmation(tt.match); got != tt.want {
				t.Errorf("NeedsConfirmation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		name    string
		s1, s2  string
		wantMin float64
		wantMax float64
	}{
		{name: "identical", s1: "return nil", s2: "return nil", wantMin: 1.0, wantMax: 1.0},
		{name: "both empty", s1: "", s2: "", wantMin: 1.0, wantMax: 1.0},
		{name: "one empty", s1: "abc", s2: "", wantMin: 0.0, wantMax: 0.0},
		{name: "single char edit", s1: "return 42", s2: "return 43", wantMin: 0.85, wantMax: 0.95},
		{name: "disjoint", s1: "abc", s2: "xyz", wantMin: 0.0, wantMax: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := similarityRatio(tt.s1, tt.s2)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("similarityRatio(%q, %q) = %v, want between %v and %v", tt.s1, tt.s2, got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestSimilarityMonotonicWithDrift(t *testing.T) {
	base := "func handler(w http.ResponseWriter, r *http.Request) error"
	oneEdit := strings.Replace(base, "error", "errir", 1)
	manyEdits := "completely rewritten signature with nothing shared"

	small := similarityRatio(base, oneEdit)
	large := similarityRatio(base, manyEdits)
	if small <= large {
		t.Errorf("similarity should drop with drift: one edit %v, heavy rewrite %v", small, large)
	}
}

func TestMatchEscalationOrder(t *testing.T) {
	lines := []string{
		"const limit = 10",
		"const  limit = 10", // extra space: normalized would hit line 1 first
	}
	m := NewMatcher()
	got := m.Match(lines, DiffSection{StartLine: 0, EndLine: 0, Search: "const limit = 10", Replace: "x"})
	if got == nil {
		t.Fatal("Match() = nil, want match")
	}
	if got.Strategy != StrategyExact || got.StartLine != 0 {
		t.Errorf("Match() = strategy %v at %d, want exact at 0", got.Strategy, got.StartLine)
	}
}
