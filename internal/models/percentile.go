package models

// Sigma statistics interchange with a 3-sigma percentile form: the early
// percentile sits 3 sigma below the MC nominal, the late percentile 3
// sigma above. Producers that export percentile bounds instead of sigma
// bounds are normalized back to sigma on load.

const sigmaPercentileFactor = 3.0

// EarlyPercentile returns nominal - 3*sigma.
func EarlyPercentile(nominal, sigma float64) float64 {
	return nominal - sigmaPercentileFactor*sigma
}

// SigmaFromEarlyPercentile inverts EarlyPercentile.
func SigmaFromEarlyPercentile(nominal, percentile float64) float64 {
	return (nominal - percentile) / sigmaPercentileFactor
}

// LatePercentile returns nominal + 3*sigma.
func LatePercentile(nominal, sigma float64) float64 {
	return nominal + sigmaPercentileFactor*sigma
}

// SigmaFromLatePercentile inverts LatePercentile.
func SigmaFromLatePercentile(nominal, percentile float64) float64 {
	return (percentile - nominal) / sigmaPercentileFactor
}
