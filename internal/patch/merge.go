package patch

import (
	"sort"
	"strings"
)

// Edit is one approved replacement to splice: the located range plus the new
// content that should occupy it.
type Edit struct {
	StartLine  int
	EndLine    int
	NewContent string
}

// DetectLineEnding returns the terminator convention of content: "\r\n" when
// any CRLF is present, "\n" otherwise. Inserted text is re-joined with the
// same convention so a merge never silently normalizes line endings.
func DetectLineEnding(content string) string {
	if strings.Contains(content, "\r\n") {
		return "\r\n"
	}
	return "\n"
}

// SplitLines splits file content into the line sequence the engine operates
// on. Lines carry no terminators; a trailing newline in the content shows up
// as a final empty element, so Join with the detected terminator reproduces
// the original bytes.
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// BuildModified splices every approved edit into the original line sequence
// and returns the full replacement text joined with eol. Edits are processed
// from the bottom of the file upward so that one splice never invalidates the
// still-pending line indices of edits above it. Input order is irrelevant.
func BuildModified(lines []string, eol string, edits []Edit) string {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].StartLine > sorted[b].StartLine
	})

	buf := make([]string, len(lines))
	copy(buf, lines)

	for _, e := range sorted {
		start, end := e.StartLine, e.EndLine
		if start < 0 {
			start = 0
		}
		if end >= len(buf) {
			end = len(buf) - 1
		}
		replacement := splitReplacement(e.NewContent)

		spliced := make([]string, 0, len(buf)-(end-start+1)+len(replacement))
		spliced = append(spliced, buf[:start]...)
		spliced = append(spliced, replacement...)
		spliced = append(spliced, buf[end+1:]...)
		buf = spliced
	}

	return strings.Join(buf, eol)
}

// splitReplacement splits replacement text into lines, tolerating CRLF and a
// trailing newline in the caller's block. An empty replacement deletes the
// range outright.
func splitReplacement(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
