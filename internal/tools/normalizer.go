package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kvit-s/applydiff/internal/patch"
)

// Field aliases accepted for backward compatibility with older callers. The
// adapter maps them onto the strict DiffSection once, before the engine sees
// the data.
var (
	startAliases       = []string{"start_line", "startLine", "start"}
	endAliases         = []string{"end_line", "endLine", "end"}
	searchAliases      = []string{"search", "old_text", "oldText", "original"}
	replaceAliases     = []string{"replace", "new_text", "newText", "updated"}
	descriptionAliases = []string{"description", "label"}
)

// NormalizeSectionArgs converts loosely-typed section records into strict
// DiffSections: alias field names are resolved, string-encoded numbers are
// coerced, hints default sensibly, and the range invariant is enforced.
func NormalizeSectionArgs(records []map[string]any) ([]patch.DiffSection, error) {
	if len(records) == 0 {
		return nil, SemanticError("at least one section is required")
	}

	sections := make([]patch.DiffSection, 0, len(records))
	for i, record := range records {
		section, err := normalizeSection(record)
		if err != nil {
			return nil, SemanticErrorf("section %d: %v", i, err)
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func normalizeSection(record map[string]any) (patch.DiffSection, error) {
	var section patch.DiffSection

	search, searchOK := firstString(record, searchAliases)
	replace, replaceOK := firstString(record, replaceAliases)
	if !replaceOK {
		return section, fmt.Errorf("missing replace text")
	}
	section.Search = search
	section.Replace = replace
	section.Description, _ = firstString(record, descriptionAliases)

	start, startOK, err := firstInt(record, startAliases)
	if err != nil {
		return section, err
	}
	end, endOK, err := firstInt(record, endAliases)
	if err != nil {
		return section, err
	}

	if !startOK {
		start = 0
	}
	if !endOK {
		// Derive the end hint from the search block's line count.
		end = start
		if n := strings.Count(strings.TrimSuffix(search, "\n"), "\n"); n > 0 {
			end = start + n
		}
	}

	if end != patch.WholeFile {
		if start < 0 {
			return section, fmt.Errorf("start_line must be >= 0, got %d", start)
		}
		if end < start {
			return section, fmt.Errorf("end_line %d is before start_line %d", end, start)
		}
		// An empty search is only meaningful for whole-file replacement.
		if !searchOK || search == "" {
			return section, fmt.Errorf("missing search text (use end_line -1 to replace the whole file)")
		}
	}

	section.StartLine = start
	section.EndLine = end
	return section, nil
}

// firstString returns the first alias present as a string.
func firstString(record map[string]any, aliases []string) (string, bool) {
	for _, key := range aliases {
		if v, ok := record[key]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// firstInt returns the first alias present, coercing JSON numbers and
// string-encoded integers (callers sometimes send "200" instead of 200).
func firstInt(record map[string]any, aliases []string) (int, bool, error) {
	for _, key := range aliases {
		v, ok := record[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n, true, nil
		case float64:
			return int(n), true, nil
		case string:
			parsed, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return 0, false, fmt.Errorf("%s: not an integer: %q", key, n)
			}
			return parsed, true, nil
		default:
			return 0, false, fmt.Errorf("%s: unsupported type %T", key, v)
		}
	}
	return 0, false, nil
}
