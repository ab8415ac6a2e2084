package tools

import (
	"context"
	"encoding/json"

	"github.com/kvit-s/applydiff/internal/patch"
)

// ApplyDiffTool is the caller-facing entry point for the patch engine. It
// decodes loosely-typed JSON arguments, normalizes them into strict sections,
// and relays the orchestrator's outcome as a structured result map.
type ApplyDiffTool struct {
	Orchestrator *patch.Orchestrator
}

// NewApplyDiffTool wraps an orchestrator as a registrable tool.
func NewApplyDiffTool(orchestrator *patch.Orchestrator) *ApplyDiffTool {
	return &ApplyDiffTool{Orchestrator: orchestrator}
}

func (t *ApplyDiffTool) Name() string {
	return "ApplyDiff"
}

func (t *ApplyDiffTool) Description() string {
	return "Apply one or more diff sections to a file. Line numbers are hints; content is located by matching, previewed, and written atomically after approval."
}

func (t *ApplyDiffTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to modify",
			},
			"sections": map[string]any{
				"type":        "array",
				"description": "Diff sections to apply",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"start_line": map[string]any{
							"type":        "integer",
							"description": "Zero-based line hint where the search text is believed to start",
						},
						"end_line": map[string]any{
							"type":        "integer",
							"description": "Zero-based inclusive end hint; -1 replaces the entire file",
						},
						"search": map[string]any{
							"type":        "string",
							"description": "Text block believed to occupy that range (may be stale; matching relocates it)",
						},
						"replace": map[string]any{
							"type":        "string",
							"description": "Text that should occupy the range after application",
						},
						"description": map[string]any{
							"type":        "string",
							"description": "Optional human-readable label for the section",
						},
					},
					"required": []string{"replace"},
				},
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Optional summary shown in the approval preview",
			},
			"partial_success": map[string]any{
				"type":        "boolean",
				"description": "Apply non-conflicting sections even if others fail",
			},
			"create": map[string]any{
				"type":        "boolean",
				"description": "Create the file when it does not exist",
			},
		},
		"required": []string{"path", "sections"},
	}
}

// applyArgs is the loose wire shape. Section records stay untyped here so the
// alias-tolerant normalizer can map them.
type applyArgs struct {
	Path           string           `json:"path"`
	FilePath       string           `json:"file_path"` // legacy alias
	Sections       []map[string]any `json:"sections"`
	DiffSections   []map[string]any `json:"diff_sections"` // legacy alias
	Description    string           `json:"description"`
	PartialSuccess bool             `json:"partial_success"`
	Create         bool             `json:"create"`
}

func (t *ApplyDiffTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var params applyArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, SemanticErrorf("invalid arguments: %v", err)
	}

	path := params.Path
	if path == "" {
		path = params.FilePath
	}
	if path == "" {
		return nil, SemanticError("path is required")
	}
	records := params.Sections
	if len(records) == 0 {
		records = params.DiffSections
	}

	sections, err := NormalizeSectionArgs(records)
	if err != nil {
		return nil, err
	}

	summary, applyErr := t.Orchestrator.Apply(ctx, patch.ApplyRequest{
		FilePath:       path,
		Sections:       sections,
		Description:    params.Description,
		PartialSuccess: params.PartialSuccess,
		Create:         params.Create,
	})
	if applyErr != nil {
		return nil, toolErrorFromApply(path, applyErr)
	}

	result := map[string]any{
		"success":        true,
		"path":           path,
		"applied":        summary.Applied,
		"min_confidence": summary.MinConfidence,
		"avg_confidence": summary.AvgConfidence,
	}
	if summary.Partial {
		result["partial"] = true
		result["skipped"] = summary.Skipped
	}
	if len(summary.Warnings) > 0 {
		result["warnings"] = summary.Warnings
	}
	return result, nil
}

// toolErrorFromApply maps engine failures onto tool errors, keeping the full
// diagnostic detail so callers can self-correct without re-reading the file.
func toolErrorFromApply(path string, applyErr *patch.ApplyError) *ToolError {
	details := map[string]any{
		"path": path,
		"kind": string(applyErr.Kind),
	}
	if applyErr.Report != nil {
		details["conflicts"] = applyErr.Report.Conflicts
		details["matches"] = applyErr.Report.Matches
		if len(applyErr.Report.Warnings) > 0 {
			details["warnings"] = applyErr.Report.Warnings
		}
	}

	// Validation failures mean the caller's sections do not match the file:
	// a semantic error it can correct. Everything else is environmental.
	if applyErr.Kind == patch.ErrValidationFailed {
		return SemanticErrorWithDetails(applyErr.Message, details)
	}
	return RuntimeErrorWithDetails(applyErr.Message, details)
}
