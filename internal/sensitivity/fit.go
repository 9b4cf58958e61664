// Package sensitivity fits a linear model of library value against supply
// voltage per (arc, column) to obtain dV/dValue for margin analysis.
package sensitivity

import (
	"math"
	"sort"

	"github.com/evogel/arccheck/internal/models"
)

const (
	// flatSlopeEps is the slope magnitude below which the fit is reported
	// as infinite sensitivity (flat line) rather than silently dropped.
	flatSlopeEps = 1e-10

	// weightFloor keeps a single noisy pair from dominating the combined
	// estimate through a near-zero R² weight.
	weightFloor = 0.1
)

// Point is one (voltage, value) sample for an arc/column pair.
type Point struct {
	Voltage float64
	Value   float64
}

// Record is the fitted sensitivity for one arc/column pair.
type Record struct {
	// Slope is d(value)/d(voltage) in value units per volt.
	Slope float64

	// SensitivityMV is dV/dValue in millivolts per value unit (1000/Slope).
	// +/-Inf when the fit is flat; check Infinite before using it.
	SensitivityMV float64

	// RSquared is the coefficient of determination of the fit.
	RSquared float64

	// Infinite marks a flat fit (|slope| < 1e-10). Callers distinguish
	// this from "no data", which is an error instead.
	Infinite bool

	// Points is the number of samples behind the fit.
	Points int
}

// Fit computes the ordinary least squares of value on voltage. It needs at
// least two non-NaN samples at distinct voltages and returns
// models.ErrNoSensitivityData otherwise — never a fabricated zero.
func Fit(points []Point) (*Record, error) {
	usable := points[:0:0]
	for _, pt := range points {
		if math.IsNaN(pt.Voltage) || math.IsNaN(pt.Value) {
			continue
		}
		usable = append(usable, pt)
	}
	if len(usable) < 2 || !hasDistinctVoltages(usable) {
		return nil, models.ErrNoSensitivityData
	}

	var sumX, sumY float64
	for _, pt := range usable {
		sumX += pt.Voltage
		sumY += pt.Value
	}
	n := float64(len(usable))
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy float64
	for _, pt := range usable {
		dx := pt.Voltage - meanX
		sxx += dx * dx
		sxy += dx * (pt.Value - meanY)
	}
	slope := sxy / sxx
	intercept := meanY - slope*meanX

	var ssRes, ssTot float64
	for _, pt := range usable {
		resid := pt.Value - (intercept + slope*pt.Voltage)
		ssRes += resid * resid
		dy := pt.Value - meanY
		ssTot += dy * dy
	}
	r2 := 1.0
	if ssTot > 0 {
		r2 = 1.0 - ssRes/ssTot
	}

	rec := &Record{Slope: slope, RSquared: r2, Points: len(usable)}
	if math.Abs(slope) < flatSlopeEps {
		rec.Infinite = true
		rec.SensitivityMV = math.Inf(1)
	} else {
		rec.SensitivityMV = 1000.0 / slope
	}
	return rec, nil
}

// FitAdjacent fits each adjacent voltage pair separately and combines the
// per-pair sensitivities as an R²-weighted average with the 0.1 weight
// floor. With a single pair it degenerates to Fit.
func FitAdjacent(points []Point) (*Record, error) {
	groups, voltages := groupByVoltage(points)
	if len(voltages) < 2 {
		return nil, models.ErrNoSensitivityData
	}

	var recs []*Record
	for i := 0; i+1 < len(voltages); i++ {
		pair := append(append([]Point(nil), groups[voltages[i]]...), groups[voltages[i+1]]...)
		rec, err := Fit(pair)
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, models.ErrNoSensitivityData
	}
	if len(recs) == 1 {
		return recs[0], nil
	}
	return combine(recs), nil
}

// combine merges per-pair records into one weighted record. Flat pairs are
// excluded from the average; if every pair is flat the result is flat.
func combine(recs []*Record) *Record {
	out := &Record{}
	var wSum, sensSum, slopeSum, r2Sum float64
	for _, r := range recs {
		out.Points += r.Points
		if r.Infinite {
			continue
		}
		w := math.Max(r.RSquared, weightFloor)
		wSum += w
		sensSum += w * r.SensitivityMV
		slopeSum += w * r.Slope
		r2Sum += w * r.RSquared
	}
	if wSum == 0 {
		out.Infinite = true
		out.SensitivityMV = math.Inf(1)
		out.RSquared = 1.0
		return out
	}
	out.SensitivityMV = sensSum / wSum
	out.Slope = slopeSum / wSum
	out.RSquared = r2Sum / wSum
	return out
}

func hasDistinctVoltages(points []Point) bool {
	for _, pt := range points[1:] {
		if pt.Voltage != points[0].Voltage {
			return true
		}
	}
	return false
}

func groupByVoltage(points []Point) (map[float64][]Point, []float64) {
	groups := make(map[float64][]Point)
	for _, pt := range points {
		if math.IsNaN(pt.Voltage) || math.IsNaN(pt.Value) {
			continue
		}
		groups[pt.Voltage] = append(groups[pt.Voltage], pt)
	}
	voltages := make([]float64, 0, len(groups))
	for v := range groups {
		voltages = append(voltages, v)
	}
	sort.Float64s(voltages)
	return groups, voltages
}
