package llmcontext

import (
	"fmt"
)

// Kind is a classification of error type.
type Kind string

const (
	InvalidAnchorFormat   Kind = "invalid_anchor_format"
	InvalidAnchorLocation Kind = "invalid_anchor_location"
	InvalidSourceID       Kind = "invalid_source_id"
)

// ContextError represents errors from the context assembly layer. Only anchor
// and source-id parsing can fail; normalization and budgeting are total.
type ContextError struct {
	Kind    Kind
	Message string
	// The anchor or source id that failed to parse
	Input string
}

func (e *ContextError) Error() string {
	switch e.Kind {
	case InvalidAnchorFormat:
		return fmt.Sprintf("invalid anchor format %q: %s", e.Input, e.Message)
	case InvalidAnchorLocation:
		return fmt.Sprintf("invalid anchor location %q: %s", e.Input, e.Message)
	case InvalidSourceID:
		return fmt.Sprintf("invalid source id %q: %s", e.Input, e.Message)
	default:
		return e.Message
	}
}

// Helper constructors
func NewInvalidAnchorFormatError(input, msg string) *ContextError {
	return &ContextError{Kind: InvalidAnchorFormat, Input: input, Message: msg}
}

func NewInvalidAnchorLocationError(input, msg string) *ContextError {
	return &ContextError{Kind: InvalidAnchorLocation, Input: input, Message: msg}
}

func NewInvalidSourceIDError(input, msg string) *ContextError {
	return &ContextError{Kind: InvalidSourceID, Input: input, Message: msg}
}
