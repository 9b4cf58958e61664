package models

// TimingType identifies which characterization table a row belongs to.
type TimingType string

const (
	TypeDelay TimingType = "delay"
	TypeSlew  TimingType = "slew"
	TypeHold  TimingType = "hold"
)

// Valid returns true if the timing type is a recognized value.
func (t TimingType) Valid() bool {
	switch t {
	case TypeDelay, TypeSlew, TypeHold:
		return true
	}
	return false
}

// String returns the string representation of the timing type.
func (t TimingType) String() string {
	return string(t)
}

// Parameter identifies a statistical parameter of a timing distribution.
type Parameter string

const (
	ParamEarlySigma Parameter = "early_sigma"
	ParamLateSigma  Parameter = "late_sigma"
	ParamMeanshift  Parameter = "Meanshift"
	ParamStd        Parameter = "Std"
	ParamSkew       Parameter = "Skew"
)

// Valid returns true if the parameter is a recognized value.
func (p Parameter) Valid() bool {
	switch p {
	case ParamEarlySigma, ParamLateSigma, ParamMeanshift, ParamStd, ParamSkew:
		return true
	}
	return false
}

// String returns the string representation of the parameter.
func (p Parameter) String() string {
	return string(p)
}

// AllParameters lists every parameter in canonical report order.
func AllParameters() []Parameter {
	return []Parameter{ParamEarlySigma, ParamLateSigma, ParamMeanshift, ParamStd, ParamSkew}
}

// AllTimingTypes lists every timing type in canonical report order.
func AllTimingTypes() []TimingType {
	return []TimingType{TypeDelay, TypeSlew, TypeHold}
}

// ParametersFor returns the parameters characterized for a timing type.
// Hold tables carry only the late-side sigma; asking the criteria registry
// for any other hold parameter is a schema error, not a silent default.
func ParametersFor(t TimingType) []Parameter {
	if t == TypeHold {
		return []Parameter{ParamLateSigma}
	}
	return AllParameters()
}
