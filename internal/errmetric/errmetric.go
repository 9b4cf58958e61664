// Package errmetric computes absolute and relative error between a library
// value and its golden Monte-Carlo counterpart, selecting the denominator
// formula per parameter family.
package errmetric

import (
	"math"

	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/schema"
)

// degenerateEps is the magnitude below which a relative-error denominator
// is treated as degenerate rather than divided through.
const degenerateEps = 1e-12

// Result carries the error metrics for one (row, parameter) pair. CI
// bounds are passed through as stored upstream; ordering is corrected by
// the tier evaluator, not here.
type Result struct {
	AbsErr   float64
	RelErr   float64
	MCValue  float64
	LibValue float64

	// CILB/CIUB are valid only when HasCI is true.
	CILB  float64
	CIUB  float64
	HasCI bool

	// Approximate marks results computed with the simplified denominator
	// (meanshift column unavailable for a Std/Skew row).
	Approximate bool
}

// Compute derives the error metrics for parameter p of row. It returns a
// *models.MissingColumnError when a required field is absent (the caller
// skips the row and counts it separately from fails) and a
// *models.DegenerateError when the relative-error denominator magnitude is
// below 1e-12 (the caller reports the row as an explicit fail).
func Compute(row *models.MeasurementRow, p models.Parameter) (Result, error) {
	pv, ok := row.Param(p)
	if !ok || pv.MC == nil {
		return Result{}, &models.MissingColumnError{Arc: row.Arc, Column: schema.MCColumn(p)}
	}
	if pv.Lib == nil {
		return Result{}, &models.MissingColumnError{Arc: row.Arc, Column: "lib " + schema.Stem(p)}
	}

	res := Result{MCValue: *pv.MC, LibValue: *pv.Lib}
	if pv.MCLB != nil && pv.MCUB != nil {
		res.CILB, res.CIUB, res.HasCI = *pv.MCLB, *pv.MCUB, true
	}

	// Pre-computed error columns are authoritative bit-for-bit when
	// present, to stay consistent with upstream producers.
	if pv.AbsErr != nil {
		res.AbsErr = *pv.AbsErr
	} else {
		res.AbsErr = res.LibValue - res.MCValue
	}
	if pv.RelErr != nil {
		res.RelErr = *pv.RelErr
		return res, nil
	}

	denom, approximate, err := denominator(row, p, res)
	if err != nil {
		return Result{}, err
	}
	if math.Abs(denom) < degenerateEps {
		return Result{}, &models.DegenerateError{Arc: row.Arc, Parameter: p, Value: denom}
	}
	res.RelErr = (res.LibValue - res.MCValue) / denom
	res.Approximate = approximate
	return res, nil
}

// denominator selects the normalization per parameter family.
func denominator(row *models.MeasurementRow, p models.Parameter, res Result) (float64, bool, error) {
	if row.LibNominal == nil {
		return 0, false, &models.MissingColumnError{Arc: row.Arc, Column: "lib nominal"}
	}
	libNom := *row.LibNominal

	switch p {
	case models.ParamEarlySigma, models.ParamLateSigma:
		// Nonzero whenever either operand is nonzero.
		return math.Max(math.Abs(libNom), math.Abs(res.MCValue)), false, nil

	case models.ParamMeanshift:
		return libNom + res.MCValue, false, nil

	case models.ParamStd, models.ParamSkew:
		// Full formula folds in the MC meanshift; fall back to the
		// simplified form when that column is unavailable and flag the
		// result as approximate.
		if ms, ok := row.Param(models.ParamMeanshift); ok && ms.MC != nil {
			return libNom + *ms.MC + res.MCValue, false, nil
		}
		return libNom + res.MCValue, true, nil
	}
	return 0, false, &models.MissingColumnError{Arc: row.Arc, Column: string(p)}
}
