package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Evidence errors
	ErrInsufficientEvidence = errors.New("insufficient evidence")
	ErrInsufficientData     = fmt.Errorf("%w: sample too small", ErrInsufficientEvidence)
	ErrNotSignificant       = fmt.Errorf("%w: not statistically significant", ErrInsufficientEvidence)
	ErrZeroDenominator      = fmt.Errorf("%w: zero denominator", ErrInsufficientEvidence)
	ErrMissingValue         = fmt.Errorf("%w: missing value", ErrInsufficientEvidence)
	ErrEmptyDataset         = fmt.Errorf("%w: empty dataset", ErrInsufficientEvidence)

	// Shape errors
	ErrMissingColumn  = errors.New("missing column")
	ErrGroupNotFound  = errors.New("group not in reference set")
	ErrLengthMismatch = errors.New("input length mismatch")

	// Context and configuration errors
	ErrInvalidContext = errors.New("invalid view context")
	ErrUnknownRule    = errors.New("unknown rule")
	ErrNoCostModel    = errors.New("no cost model configured")
	ErrNoCovariate    = errors.New("no covariate configured")

	// Rendering errors
	ErrFormatFallback = errors.New("evidence field unavailable at render time")
)

// Error taxonomy codes recorded in audit output
const (
	CodeInsufficientEvidence = "insufficient_evidence"
	CodeInvalidContext       = "invalid_context"
	CodeMissingColumn        = "missing_column"
	CodeFormatFallback       = "format_fallback"
	CodeConfiguration        = "configuration"
	CodeUnknown              = "unknown"
)

// Error constructors with context
func NewMissingColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, column)
}

func NewInsufficientDataError(have, need int) error {
	return fmt.Errorf("%w: n=%d, need at least %d", ErrInsufficientData, have, need)
}

func NewGroupNotFoundError(group string) error {
	return fmt.Errorf("%w: %s", ErrGroupNotFound, group)
}

// Error checking helpers
func IsInsufficientEvidence(err error) bool {
	return errors.Is(err, ErrInsufficientEvidence)
}

func IsMissingColumn(err error) bool {
	return errors.Is(err, ErrMissingColumn)
}

// Classify maps an error onto the taxonomy code used in audit records.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientEvidence), errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrLengthMismatch):
		return CodeInsufficientEvidence
	case errors.Is(err, ErrMissingColumn):
		return CodeMissingColumn
	case errors.Is(err, ErrInvalidContext):
		return CodeInvalidContext
	case errors.Is(err, ErrUnknownRule), errors.Is(err, ErrNoCostModel), errors.Is(err, ErrNoCovariate):
		return CodeConfiguration
	case errors.Is(err, ErrFormatFallback):
		return CodeFormatFallback
	default:
		return CodeUnknown
	}
}
