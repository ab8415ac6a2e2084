package patch

import (
	"fmt"
	"sort"
	"strings"
)

// Confidence levels assigned by strategy. Exact matches are byte-for-byte,
// normalized matches differ only in whitespace/formatting.
const (
	exactConfidence      = 1.0
	normalizedConfidence = 0.9
)

// confirmThreshold is the confidence below which a match must be surfaced to
// the approval step rather than silently trusted.
const confirmThreshold = 0.9

// fuzzyIssueThreshold flags similarity matches whose confidence suggests the
// located content drifted from what the caller sent.
const fuzzyIssueThreshold = 0.95

// maxSimilarityCost bounds the sliding-window similarity scan. Beyond this
// (window count * target bytes) the scan is skipped and the section reports
// content_not_found instead of burning seconds on edit distances.
const maxSimilarityCost = 50_000_000

// NormalizeOptions configures the normalization pipeline applied by
// FindNormalized before comparing lines.
type NormalizeOptions struct {
	IgnoreLeadingWhitespace  bool `yaml:"ignore_leading_whitespace"`
	IgnoreTrailingWhitespace bool `yaml:"ignore_trailing_whitespace"`
	NormalizeIndentation     bool `yaml:"normalize_indentation"`
	IgnoreEmptyLines         bool `yaml:"ignore_empty_lines"`
	CaseSensitive            bool `yaml:"case_sensitive"`
}

// DefaultNormalizeOptions returns the strict defaults: all whitespace
// normalization enabled, blank lines significant, case sensitive.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		IgnoreLeadingWhitespace:  true,
		IgnoreTrailingWhitespace: true,
		NormalizeIndentation:     true,
		IgnoreEmptyLines:         false,
		CaseSensitive:            true,
	}
}

// Matcher locates a target text block inside a line sequence using escalating
// strategies: exact, normalized, contextual, similarity. The first success
// wins - exactness is unambiguous and cheap, similarity is expensive and the
// most likely to produce a false positive.
type Matcher struct {
	// SimilarityThreshold is the minimum window similarity kept by
	// FindSimilar. Tunable, not load-bearing.
	SimilarityThreshold float64

	// MinConfidence is the floor applied by PickBest.
	MinConfidence float64

	// ContextRadius is how many surrounding lines FindContextual weighs when
	// disambiguating near-duplicate windows.
	ContextRadius int

	Normalize NormalizeOptions
}

// NewMatcher returns a Matcher with the default tunables.
func NewMatcher() *Matcher {
	return &Matcher{
		SimilarityThreshold: 0.7,
		MinConfidence:       0.7,
		ContextRadius:       3,
		Normalize:           DefaultNormalizeOptions(),
	}
}

// Match runs the strategies in escalating order against one section and
// returns the first hit, or nil when nothing qualifies. The section's
// StartLine hint is advisory only.
func (m *Matcher) Match(lines []string, section DiffSection) *MatchResult {
	hint := section.StartLine
	if r := m.FindExact(lines, section.Search, hint); r != nil {
		return r
	}
	if r := m.FindNormalized(lines, section.Search); r != nil {
		return r
	}
	if r := m.FindContextual(lines, section.Search, m.ContextRadius, hint); r != nil {
		return r
	}
	candidates := m.FindSimilar(lines, section.Search, m.SimilarityThreshold)
	return m.PickBest(candidates, m.MinConfidence)
}

// FindExact scans for a byte-for-byte, line-for-line occurrence of target.
// When the file contains several identical occurrences the one closest to
// startHint wins and the ambiguity is recorded as an issue, never an error.
// Pass a negative hint to take the first occurrence.
func (m *Matcher) FindExact(lines []string, target string, startHint int) *MatchResult {
	targetLines := splitBlock(target)
	if len(targetLines) == 0 || len(targetLines) > len(lines) {
		return nil
	}

	var starts []int
	for i := 0; i <= len(lines)-len(targetLines); i++ {
		if linesEqualAt(lines, targetLines, i) {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}

	best := nearestTo(starts, startHint)
	result := &MatchResult{
		StartLine:     best,
		EndLine:       best + len(targetLines) - 1,
		Confidence:    exactConfidence,
		Strategy:      StrategyExact,
		ActualContent: strings.Join(lines[best:best+len(targetLines)], "\n"),
	}
	if len(starts) > 1 {
		result.Issues = append(result.Issues,
			fmt.Sprintf("%d identical occurrences in file; nearest to line hint %d chosen (line %d)",
				len(starts), startHint, best))
	}
	return result
}

// FindNormalized compares after applying the normalization pipeline. A hit
// means the content is there but formatted differently, so confidence is 0.9
// and a whitespace issue is recorded.
func (m *Matcher) FindNormalized(lines []string, target string) *MatchResult {
	opts := m.Normalize
	targetLines := splitBlock(target)
	if len(targetLines) == 0 {
		return nil
	}

	normTarget, _ := normalizeLines(targetLines, opts, nil)
	normFile, origIdx := normalizeLines(lines, opts, makeIndex(len(lines)))
	if len(normTarget) == 0 || len(normTarget) > len(normFile) {
		return nil
	}

	for i := 0; i <= len(normFile)-len(normTarget); i++ {
		if !linesEqualAt(normFile, normTarget, i) {
			continue
		}
		start := origIdx[i]
		end := origIdx[i+len(normTarget)-1]
		return &MatchResult{
			StartLine:     start,
			EndLine:       end,
			Confidence:    normalizedConfidence,
			Strategy:      StrategyNormalized,
			ActualContent: strings.Join(lines[start:end+1], "\n"),
			Issues:        []string{"whitespace/formatting differs from the search text"},
		}
	}
	return nil
}

// FindSimilar slides a window of target's line count across the whole file
// and keeps every window whose normalized edit-distance similarity meets the
// threshold, sorted descending by confidence. This is the last-resort
// recovery path for content that drifted since the caller read it.
func (m *Matcher) FindSimilar(lines []string, target string, threshold float64) []MatchResult {
	targetLines := splitBlock(target)
	window := len(targetLines)
	if window == 0 || window > len(lines) || threshold <= 0 {
		return nil
	}

	positions := len(lines) - window + 1
	if positions*len(target) > maxSimilarityCost {
		return nil
	}

	var results []MatchResult
	joinedTarget := strings.Join(targetLines, "\n")
	for i := 0; i < positions; i++ {
		chunk := strings.Join(lines[i:i+window], "\n")
		score := similarityRatio(chunk, joinedTarget)
		if score < threshold {
			continue
		}
		r := MatchResult{
			StartLine:     i,
			EndLine:       i + window - 1,
			Confidence:    score,
			Strategy:      StrategySimilarity,
			ActualContent: chunk,
		}
		if score < fuzzyIssueThreshold {
			r.Issues = append(r.Issues, fmt.Sprintf("found via fuzzy match (similarity %.2f)", score))
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Confidence != results[b].Confidence {
			return results[a].Confidence > results[b].Confidence
		}
		return results[a].StartLine < results[b].StartLine
	})
	return results
}

// contextGate is the content similarity a window must exceed before
// FindContextual considers it at all. Tunable, not load-bearing.
const contextGate = 0.7

// Relative weights of window content vs surrounding context in the
// contextual score.
const (
	contentWeight = 0.8
	contextWeight = 0.2
)

// FindContextual is a heuristic variant of similarity matching that also
// weighs a window's surrounding lines against the neighborhood of the hinted
// range, disambiguating near-duplicate candidates. It returns the
// best-scoring window whose content similarity exceeds the gate.
func (m *Matcher) FindContextual(lines []string, target string, contextRadius, startHint int) *MatchResult {
	targetLines := splitBlock(target)
	window := len(targetLines)
	if window == 0 || window > len(lines) {
		return nil
	}

	positions := len(lines) - window + 1
	if positions*len(target) > maxSimilarityCost {
		return nil
	}

	joinedTarget := strings.Join(targetLines, "\n")
	hintContext := ""
	if startHint >= 0 && startHint < len(lines) {
		hintContext = surroundingContext(lines, startHint, startHint+window-1, contextRadius)
	}

	var best *MatchResult
	bestScore := 0.0
	for i := 0; i < positions; i++ {
		chunk := strings.Join(lines[i:i+window], "\n")
		content := similarityRatio(chunk, joinedTarget)
		if content <= contextGate {
			continue
		}

		contextScore := 1.0
		if hintContext != "" {
			contextScore = similarityRatio(surroundingContext(lines, i, i+window-1, contextRadius), hintContext)
		}
		score := contentWeight*content + contextWeight*contextScore
		if score <= bestScore {
			continue
		}
		bestScore = score
		best = &MatchResult{
			StartLine:     i,
			EndLine:       i + window - 1,
			Confidence:    score,
			Strategy:      StrategyContextual,
			ActualContent: chunk,
			Issues:        []string{fmt.Sprintf("located by contextual match (score %.2f)", score)},
		}
	}
	return best
}

// PickBest filters candidates below minConfidence and returns the
// highest-confidence survivor, or nil when none qualify.
func (m *Matcher) PickBest(candidates []MatchResult, minConfidence float64) *MatchResult {
	var best *MatchResult
	for i := range candidates {
		c := &candidates[i]
		if c.Confidence < minConfidence {
			continue
		}
		if best == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// NeedsConfirmation reports whether a match should be surfaced to the
// approval step rather than silently trusted.
func (m *Matcher) NeedsConfirmation(match *MatchResult) bool {
	if match == nil {
		return false
	}
	return match.Confidence < confirmThreshold || len(match.Issues) > 0
}

// splitBlock splits a text block into lines, tolerating CRLF input. An empty
// block yields nil: there is nothing to locate.
func splitBlock(block string) []string {
	if block == "" {
		return nil
	}
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	// A trailing newline in the block does not add an empty line to match.
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// linesEqualAt reports whether needle occurs in haystack starting at offset.
func linesEqualAt(haystack, needle []string, offset int) bool {
	for j, want := range needle {
		if haystack[offset+j] != want {
			return false
		}
	}
	return true
}

// nearestTo picks the candidate start closest to hint, preferring the earlier
// one on ties. A negative hint means "no preference": take the first.
func nearestTo(starts []int, hint int) int {
	if hint < 0 {
		return starts[0]
	}
	best := starts[0]
	for _, s := range starts[1:] {
		if abs(s-hint) < abs(best-hint) {
			best = s
		}
	}
	return best
}

// normalizeLines applies the normalization pipeline to each line. When
// IgnoreEmptyLines is set, lines that normalize to "" are dropped; origIdx
// (when non-nil) is filtered in lockstep so hits map back to real line
// numbers.
func normalizeLines(lines []string, opts NormalizeOptions, origIdx []int) ([]string, []int) {
	out := make([]string, 0, len(lines))
	var idx []int
	if origIdx != nil {
		idx = make([]int, 0, len(lines))
	}
	for i, line := range lines {
		n := normalizeLine(line, opts)
		if opts.IgnoreEmptyLines && n == "" {
			continue
		}
		out = append(out, n)
		if origIdx != nil {
			idx = append(idx, origIdx[i])
		}
	}
	return out, idx
}

func normalizeLine(line string, opts NormalizeOptions) string {
	s := line
	if !opts.CaseSensitive {
		s = strings.ToLower(s)
	}
	if opts.NormalizeIndentation {
		s = collapseWhitespace(s)
	}
	if opts.IgnoreLeadingWhitespace {
		s = strings.TrimLeft(s, " \t")
	}
	if opts.IgnoreTrailingWhitespace {
		s = strings.TrimRight(s, " \t")
	}
	return s
}

// collapseWhitespace reduces tabs and multi-space runs to a single space.
func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if !inRun {
				b.WriteByte(' ')
			}
			inRun = true
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// surroundingContext joins up to radius lines before and after the range
// [start, end], excluding the range itself.
func surroundingContext(lines []string, start, end, radius int) string {
	before := start - radius
	if before < 0 {
		before = 0
	}
	after := end + radius + 1
	if after > len(lines) {
		after = len(lines)
	}
	if end+1 > len(lines) {
		end = len(lines) - 1
	}
	var parts []string
	parts = append(parts, lines[before:start]...)
	parts = append(parts, lines[end+1:after]...)
	return strings.Join(parts, "\n")
}

// levenshteinDistance calculates the edit distance between two strings using
// a rolling two-row matrix.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// similarityRatio is the normalized edit-distance similarity:
// 1 - distance / max(len(s1), len(s2)).
func similarityRatio(s1, s2 string) float64 {
	if len(s1) == 0 && len(s2) == 0 {
		return 1.0
	}
	distance := levenshteinDistance(s1, s2)
	maxLen := max(len(s1), len(s2))
	return 1.0 - float64(distance)/float64(maxLen)
}

func makeIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
