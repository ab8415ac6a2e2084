package tools

import (
	"encoding/json"
	"fmt"
)

// ToolErrorType classifies tool errors for the caller's retry decisions.
type ToolErrorType int

const (
	// ToolErrorRuntime - the tool executed but failed (file not found, write
	// error). The caller should see the error and decide what to do.
	ToolErrorRuntime ToolErrorType = iota

	// ToolErrorSemantic - the caller misused the tool (malformed arguments,
	// invalid section shape). Fixable by correcting the request.
	ToolErrorSemantic
)

// ToolError is an error type that classifies errors as runtime or semantic
// and carries optional structured detail for the caller.
type ToolError struct {
	Type    ToolErrorType
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return e.Message
}

// ToJSON returns the structured form used in tool responses.
func (e *ToolError) ToJSON() map[string]any {
	result := map[string]any{
		"success": false,
		"error":   e.Message,
	}
	for k, v := range e.Details {
		result[k] = v
	}
	return result
}

// RuntimeErrorWithDetails creates a runtime error with structured details.
func RuntimeErrorWithDetails(msg string, details map[string]any) *ToolError {
	return &ToolError{Type: ToolErrorRuntime, Message: msg, Details: details}
}

// SemanticError creates a semantic error.
func SemanticError(msg string) *ToolError {
	return &ToolError{Type: ToolErrorSemantic, Message: msg}
}

// SemanticErrorWithDetails creates a semantic error with structured details.
func SemanticErrorWithDetails(msg string, details map[string]any) *ToolError {
	return &ToolError{Type: ToolErrorSemantic, Message: msg, Details: details}
}

// SemanticErrorf creates a formatted semantic error.
func SemanticErrorf(format string, args ...any) *ToolError {
	return &ToolError{Type: ToolErrorSemantic, Message: fmt.Sprintf(format, args...)}
}

// FormatError returns JSON for structured errors and plain text otherwise.
func FormatError(err error) string {
	if te, ok := err.(*ToolError); ok {
		if jsonBytes, marshalErr := json.MarshalIndent(te.ToJSON(), "", "  "); marshalErr == nil {
			return string(jsonBytes)
		}
	}
	return fmt.Sprintf("Error: %v", err)
}
