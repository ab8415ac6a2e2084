// Package approve implements the approval collaborator: policies that show a
// change preview and return an accept/reject decision. Previews are rendered
// from in-memory strings only; nothing here touches the filesystem.
package approve

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kvit-s/applydiff/internal/patch"
)

// DiffStyle selects how a preview is rendered for humans.
type DiffStyle string

const (
	StyleUnified DiffStyle = "unified"
	StyleInline  DiffStyle = "inline"
)

// Color definitions for consistent preview output
var (
	addColor    = color.New(color.FgGreen)
	delColor    = color.New(color.FgRed)
	strikeColor = color.New(color.FgRed, color.CrossedOut)
	hunkColor   = color.New(color.FgCyan)
	warnColor   = color.New(color.FgYellow)
	headerColor = color.New(color.FgWhite, color.Bold)
)

// RenderPreview formats a preview in the requested style, including the
// description header and any validation warnings.
func RenderPreview(preview patch.Preview, style DiffStyle) string {
	var sb strings.Builder

	header := preview.Path
	if preview.Description != "" {
		header += " - " + preview.Description
	}
	sb.WriteString(headerColor.Sprint(header))
	sb.WriteString("\n")

	for _, w := range preview.Warnings {
		sb.WriteString(warnColor.Sprintf("warning: %s", w))
		sb.WriteString("\n")
	}

	if style == StyleInline {
		sb.WriteString(renderInline(preview.Original, preview.Modified))
	} else {
		sb.WriteString(renderUnified(preview))
	}
	return sb.String()
}

// renderUnified produces a colored unified diff of the preview.
func renderUnified(preview patch.Preview) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(preview.Original),
		B:        difflib.SplitLines(preview.Modified),
		FromFile: preview.Path + " (current)",
		ToFile:   preview.Path + " (proposed)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("diff unavailable: %v\n", err)
	}

	var sb strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			sb.WriteString(addColor.Sprint(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(delColor.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(hunkColor.Sprint(line))
		default:
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// inlineContextRunes bounds how much of an unchanged span the inline renderer
// keeps around each change.
const inlineContextRunes = 120

// renderInline produces a line-level inline diff: deleted lines struck
// through in red, inserted lines in green, long unchanged spans elided.
// Character-level diffing would split tokens at shared prefixes/suffixes
// ("8080" -> "9090" becomes del "808" / ins "909" / eq "0"), so lines are the
// granularity shown to humans.
func renderInline(original, modified string) string {
	dmp := diffmatchpatch.New()
	src, dst, lineIndex := dmp.DiffLinesToChars(original, modified)
	diffs := dmp.DiffMain(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lineIndex)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var sb strings.Builder
	for i, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			sb.WriteString(addColor.Sprint(d.Text))
		case diffmatchpatch.DiffDelete:
			sb.WriteString(strikeColor.Sprint(d.Text))
		case diffmatchpatch.DiffEqual:
			sb.WriteString(elideMiddle(d.Text, i == 0, i == len(diffs)-1))
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// elideMiddle trims the middle of a long unchanged span, keeping context on
// the side(s) adjacent to changes.
func elideMiddle(text string, first, last bool) string {
	runes := []rune(text)
	if len(runes) <= 2*inlineContextRunes {
		return text
	}
	switch {
	case first:
		return "..." + string(runes[len(runes)-inlineContextRunes:])
	case last:
		return string(runes[:inlineContextRunes]) + "..."
	default:
		return string(runes[:inlineContextRunes]) + "\n...\n" + string(runes[len(runes)-inlineContextRunes:])
	}
}
