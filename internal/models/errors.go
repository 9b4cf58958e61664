package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the deterministic failure modes of a run. Per-row
// errors never abort a file and per-file errors never abort a corner; the
// run collects (location, kind) pairs for user-visible reporting instead.
type ErrorKind string

const (
	// KindMissingColumn is a schema mismatch: a required column is absent.
	// The row (or file) is skipped and counted separately from fails.
	KindMissingColumn ErrorKind = "missing_column"

	// KindDenominatorDegenerate means a relative-error denominator fell
	// below 1e-12 in magnitude. The row is an explicit FAIL with a reason
	// string, never a silent 0 or Inf.
	KindDenominatorDegenerate ErrorKind = "denominator_degenerate"

	// KindEmptyInput means a report group received zero rows; its pass
	// rate is N/A, not 0% or 100%.
	KindEmptyInput ErrorKind = "empty_input"

	// KindNoSensitivityData means fewer than 2 usable voltage points were
	// available; the arc is excluded from margin analysis rather than
	// defaulted to zero sensitivity.
	KindNoSensitivityData ErrorKind = "no_sensitivity_data"
)

// Sentinel errors for errors.Is matching across package boundaries.
var (
	ErrMissingColumn         = errors.New("missing column")
	ErrDenominatorDegenerate = errors.New("degenerate denominator")
	ErrEmptyInput            = errors.New("empty input")
	ErrNoSensitivityData     = errors.New("insufficient sensitivity data")
)

// MissingColumnError reports an absent required column for an arc or file.
type MissingColumnError struct {
	Arc    string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.Arc == "" {
		return fmt.Sprintf("missing column %q", e.Column)
	}
	return fmt.Sprintf("arc %s: missing column %q", e.Arc, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// DegenerateError reports a near-zero relative-error denominator.
type DegenerateError struct {
	Arc       string
	Parameter Parameter
	Value     float64
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("arc %s: %s denominator degenerate (%g)", e.Arc, e.Parameter, e.Value)
}

func (e *DegenerateError) Unwrap() error { return ErrDenominatorDegenerate }

// KindOf maps an error to its ErrorKind for the run ledger. Unrecognized
// errors map to an empty kind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrMissingColumn):
		return KindMissingColumn
	case errors.Is(err, ErrDenominatorDegenerate):
		return KindDenominatorDegenerate
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrNoSensitivityData):
		return KindNoSensitivityData
	}
	return ""
}
