package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage is the external collaborator that supplies current file text and
// persists replacements. WriteText must be atomic from this engine's
// perspective: either the whole new content lands or the old content remains.
type Storage interface {
	Exists(ctx context.Context, path string) bool
	ReadText(ctx context.Context, path string) (string, error)
	WriteText(ctx context.Context, path, content string) error
	CreateEmpty(ctx context.Context, path string) error
}

// Preview is what the approval collaborator shows before a commit.
type Preview struct {
	Path        string
	Original    string
	Modified    string
	Description string
	Warnings    []string
}

// Approver is the external collaborator that presents a preview and returns
// an accept/reject decision. Implementations may suspend indefinitely on
// human input; absence of a response within their own policy must come back
// as false, never as silent approval.
type Approver interface {
	RequestApproval(ctx context.Context, preview Preview) (bool, error)
}

// ApplyRequest is the caller-facing operation input.
type ApplyRequest struct {
	FilePath       string
	Sections       []DiffSection
	Description    string
	PartialSuccess bool
	// Create allows creating the target when it does not exist. A whole-file
	// sentinel section implies the same.
	Create bool
}

// ApplySummary reports a committed apply: how many sections landed, how many
// were skipped under partial success, and the confidence profile of the
// matches for observability.
type ApplySummary struct {
	Applied       int      `json:"applied"`
	Skipped       int      `json:"skipped,omitempty"`
	Partial       bool     `json:"partial,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	MinConfidence float64  `json:"min_confidence"`
	AvgConfidence float64  `json:"avg_confidence"`
}

// Orchestrator is the public entry point tying matcher, validator and merger
// to the storage and approval collaborators. One invocation is one atomic
// operation: on any failure it aborts with no partial writes. Concurrent
// applies against the same file are not coordinated here; callers serialize
// externally (see internal/workspace).
type Orchestrator struct {
	storage   Storage
	approver  Approver
	validator *Validator
	log       *zap.Logger
}

// NewOrchestrator wires the collaborators. A nil validator gets defaults, a
// nil logger becomes a nop.
func NewOrchestrator(storage Storage, approver Approver, validator *Validator, log *zap.Logger) *Orchestrator {
	if validator == nil {
		validator = NewValidator(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{storage: storage, approver: approver, validator: validator, log: log}
}

// Apply runs the full pipeline: validate, build modified content, request
// approval, commit. State transitions per invocation:
// Validating -> (Failed | BuildingContent) -> RequestingApproval ->
// (Rejected | Committing) -> (Committed | WriteFailed).
func (o *Orchestrator) Apply(ctx context.Context, req ApplyRequest) (*ApplySummary, *ApplyError) {
	opID := uuid.NewString()
	log := o.log.With(zap.String("op", opID), zap.String("path", req.FilePath))
	log.Info("apply started",
		zap.Int("sections", len(req.Sections)),
		zap.Bool("partial_success", req.PartialSuccess))

	if len(req.Sections) == 0 {
		return nil, applyErrorf(ErrValidationFailed, "no sections to apply")
	}

	if !o.storage.Exists(ctx, req.FilePath) {
		if !req.Create && !hasWholeFileSection(req.Sections) {
			log.Warn("apply failed", zap.String("state", "Failed"), zap.String("reason", "file not found"))
			return nil, applyErrorf(ErrFileNotFound, "file does not exist: %s", req.FilePath)
		}
		if err := o.storage.CreateEmpty(ctx, req.FilePath); err != nil {
			return nil, &ApplyError{Kind: ErrIO, Message: "create file", Err: err}
		}
		log.Info("created empty target file")
	}

	original, err := o.storage.ReadText(ctx, req.FilePath)
	if err != nil {
		return nil, &ApplyError{Kind: ErrIO, Message: "read file", Err: err}
	}
	lines := SplitLines(original)
	eol := DetectLineEnding(original)

	// Validating
	report := o.validator.Validate(lines, req.Sections)
	approved, skipped := o.selectSections(report, req)
	if !report.IsValid {
		if !req.PartialSuccess {
			log.Warn("validation failed",
				zap.String("state", "Failed"),
				zap.Int("conflicts", len(report.Conflicts)))
			return nil, &ApplyError{
				Kind:    ErrValidationFailed,
				Message: conflictSummary(report),
				Report:  report,
			}
		}
		if len(approved) == 0 {
			log.Warn("validation failed", zap.String("state", "Failed"),
				zap.String("reason", "no valid sections remain under partial success"))
			return nil, &ApplyError{
				Kind:    ErrValidationFailed,
				Message: "partial success requested but every section conflicts",
				Report:  report,
			}
		}
		log.Info("proceeding with partial set",
			zap.Int("approved", len(approved)), zap.Int("skipped", skipped))
	}

	// BuildingContent
	modified := o.buildModified(lines, eol, req.Sections, approved)

	// RequestingApproval
	ok, err := o.approver.RequestApproval(ctx, Preview{
		Path:        req.FilePath,
		Original:    original,
		Modified:    modified,
		Description: req.Description,
		Warnings:    report.Warnings,
	})
	if err != nil || !ok {
		log.Info("apply rejected", zap.String("state", "Rejected"), zap.Error(err))
		e := applyErrorf(ErrRejected, "change was not approved")
		e.Err = err
		return nil, e
	}

	// Committing
	if err := o.storage.WriteText(ctx, req.FilePath, modified); err != nil {
		log.Error("write failed", zap.String("state", "WriteFailed"), zap.Error(err))
		return nil, &ApplyError{Kind: ErrWriteFailed, Message: "write file", Err: err}
	}

	summary := buildSummary(approved, skipped, report.Warnings)
	log.Info("apply committed",
		zap.String("state", "Committed"),
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Float64("min_confidence", summary.MinConfidence))
	return summary, nil
}

// selectSections returns the matches that will actually be spliced. Under
// strict mode that is every match (the caller aborts on conflicts before
// using them); under partial success, matches touched by any conflict are
// dropped.
func (o *Orchestrator) selectSections(report *ValidationReport, req ApplyRequest) (approved []MatchResult, skipped int) {
	bad := report.ConflictedSections()
	for _, m := range report.Matches {
		if req.PartialSuccess && bad[m.Section] {
			continue
		}
		approved = append(approved, m)
	}
	skipped = len(req.Sections) - len(approved)
	return approved, skipped
}

// buildModified produces the full replacement text. A whole-file section
// short-circuits the merger: its replacement is the new file, re-terminated
// with the original convention.
func (o *Orchestrator) buildModified(lines []string, eol string, sections []DiffSection, approved []MatchResult) string {
	for _, m := range approved {
		if sections[m.Section].IsWholeFile() {
			return normalizeEOL(sections[m.Section].Replace, eol)
		}
	}
	edits := make([]Edit, 0, len(approved))
	for _, m := range approved {
		edits = append(edits, Edit{
			StartLine:  m.StartLine,
			EndLine:    m.EndLine,
			NewContent: sections[m.Section].Replace,
		})
	}
	return BuildModified(lines, eol, edits)
}

func buildSummary(approved []MatchResult, skipped int, warnings []string) *ApplySummary {
	summary := &ApplySummary{
		Applied:  len(approved),
		Skipped:  skipped,
		Partial:  skipped > 0,
		Warnings: warnings,
	}
	if len(approved) == 0 {
		return summary
	}
	minConf, sum := approved[0].Confidence, 0.0
	for _, m := range approved {
		if m.Confidence < minConf {
			minConf = m.Confidence
		}
		sum += m.Confidence
	}
	summary.MinConfidence = minConf
	summary.AvgConfidence = sum / float64(len(approved))
	return summary
}

func conflictSummary(report *ValidationReport) string {
	parts := make([]string, 0, len(report.Conflicts))
	for _, c := range report.Conflicts {
		parts = append(parts, c.Description)
	}
	return fmt.Sprintf("%d conflict(s): %s", len(report.Conflicts), strings.Join(parts, "; "))
}

func hasWholeFileSection(sections []DiffSection) bool {
	for _, s := range sections {
		if s.IsWholeFile() {
			return true
		}
	}
	return false
}

// normalizeEOL rewrites text to use the given terminator throughout.
func normalizeEOL(text, eol string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if eol == "\n" {
		return text
	}
	return strings.ReplaceAll(text, "\n", eol)
}
