// Package margin converts error values and voltage sensitivities into
// required supply margins and projects pass rates under margin relief.
package margin

import (
	"math"
	"sort"

	"github.com/evogel/arccheck/internal/models"
)

// MarginMV is the voltage margin (mV) required to absorb errorValue given
// a sensitivity in mV per value unit. The sign is preserved: optimistic
// and pessimistic margins must stay distinguishable downstream, so the
// product is never squared or absolute-valued here.
func MarginMV(sensitivityMV, errorValue float64) float64 {
	return sensitivityMV * errorValue
}

// Row is one arc's standing in the margin analysis.
type Row struct {
	Arc string

	// Passes marks rows that already pass validation; they count as
	// passing at every margin.
	Passes bool

	// Direction is the error direction of the failing row. Only
	// optimistic errors are correctable by adding supply margin.
	Direction models.ErrorDirection

	// MarginMV is the sign-preserving required margin for the row.
	MarginMV float64
}

// RequiredMarginForPassRate sweeps the observed (optimistic-error) margins
// in descending order and returns the smallest margin whose cumulative
// coverage still reaches targetPct. If the target is never reached the
// maximum observed margin is returned — the projection never extrapolates
// beyond data.
func RequiredMarginForPassRate(margins []float64, targetPct float64) (float64, error) {
	if len(margins) == 0 {
		return 0, models.ErrEmptyInput
	}

	mags := make([]float64, len(margins))
	for i, m := range margins {
		mags[i] = math.Abs(m)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(mags)))

	required := mags[0]
	n := float64(len(mags))
	for i, m := range mags {
		covered := (n - float64(i)) / n * 100.0
		if covered < targetPct {
			break
		}
		required = m
	}
	return required, nil
}

// PassRateAtMargin projects the pass percentage when marginMV of supply
// relief is granted. Rows that already pass keep passing; a failing row
// counts as passing when its error is optimistic (the side a supply bump
// corrects) and its required margin magnitude is within marginMV.
func PassRateAtMargin(rows []Row, marginMV float64) (float64, error) {
	if len(rows) == 0 {
		return 0, models.ErrEmptyInput
	}

	pass := 0
	for _, r := range rows {
		switch {
		case r.Passes:
			pass++
		case r.Direction == models.DirectionOptimistic && math.Abs(r.MarginMV) <= marginMV:
			pass++
		}
	}
	return float64(pass) / float64(len(rows)) * 100.0, nil
}

// SweepPoint is one rung of a margin ladder projection.
type SweepPoint struct {
	MarginMV float64 `json:"margin_mv"`
	PassPct  float64 `json:"pass_pct"`
}

// Sweep projects the pass rate at each margin of the ladder.
func Sweep(rows []Row, ladder []float64) ([]SweepPoint, error) {
	if len(rows) == 0 {
		return nil, models.ErrEmptyInput
	}
	points := make([]SweepPoint, 0, len(ladder))
	for _, m := range ladder {
		pct, err := PassRateAtMargin(rows, m)
		if err != nil {
			return nil, err
		}
		points = append(points, SweepPoint{MarginMV: m, PassPct: pct})
	}
	return points, nil
}
