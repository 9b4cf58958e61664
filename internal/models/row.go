package models

// ParamValues holds the measured and characterized values for one
// statistical parameter on one arc. Pointer fields distinguish "column
// absent" from a genuine zero; a MeasurementRow is never mutated after
// parsing — verdicts are derived values appended downstream.
type ParamValues struct {
	// MC is the golden Monte-Carlo value for the parameter.
	MC *float64

	// MCLB and MCUB are the Monte-Carlo confidence-interval bounds as
	// stored upstream. Ordering is NOT guaranteed (some producers write
	// them swapped); consumers must min/max-correct before containment
	// tests.
	MCLB *float64
	MCUB *float64

	// Lib is the vendor-characterized library value under validation.
	Lib *float64

	// AbsErr and RelErr are pre-computed error columns. When present they
	// are authoritative bit-for-bit over anything recomputed locally, to
	// stay compatible with upstream producers.
	AbsErr *float64
	RelErr *float64
}

// MeasurementRow is one timing arc's worth of statistics at one corner.
type MeasurementRow struct {
	// Arc uniquely identifies the cell timing-arc/condition within a file.
	Arc string

	// Corner is the process/voltage/temperature condition of the file the
	// row came from.
	Corner string

	// Type is the timing table kind (delay, slew, hold).
	Type TimingType

	// MCNominal is the Monte-Carlo nominal (mean) value for the arc.
	MCNominal *float64

	// LibNominal is the vendor library nominal value for the arc.
	LibNominal *float64

	// RelPinSlew is the related-pin slew used to scale absolute-error
	// thresholds. Always > 0 in valid data.
	RelPinSlew *float64

	// Voltage is the supply voltage of the corner, when the file carries
	// it. Required only for sensitivity analysis.
	Voltage *float64

	// Params holds per-parameter value groups keyed by logical parameter.
	Params map[Parameter]ParamValues
}

// Param returns the value group for p and whether the row carries it.
func (r *MeasurementRow) Param(p Parameter) (ParamValues, bool) {
	v, ok := r.Params[p]
	return v, ok
}

// ErrorDirection classifies which side of the golden value the library
// value falls on.
type ErrorDirection string

const (
	// DirectionOptimistic means the library value is below the MC value:
	// the library claims better timing than silicon statistics support.
	DirectionOptimistic ErrorDirection = "optimistic"

	// DirectionPessimistic means the library value is at or above the MC
	// value: the library is conservative relative to silicon.
	DirectionPessimistic ErrorDirection = "pessimistic"
)

// Valid returns true if the direction is a recognized value.
func (d ErrorDirection) Valid() bool {
	return d == DirectionOptimistic || d == DirectionPessimistic
}
