// Package tiering applies the ordered pass-criteria cascade and the
// unified base+waiver classification to computed error metrics.
//
// Two materially different "overall pass" definitions coexist on purpose:
// Evaluate counts CI containment toward the base decision, while
// EvaluateWaivers demotes it to a waiver. Downstream reports depend on the
// difference, so both are exposed as distinct operations.
package tiering

import (
	"math"

	"github.com/evogel/arccheck/internal/criteria"
	"github.com/evogel/arccheck/internal/errmetric"
	"github.com/evogel/arccheck/internal/models"
)

// Evaluate runs the four-tier cascade for one (row, parameter) result.
//
//	tier 1: |rel_err| <= rel_threshold
//	tier 2: lib value inside the min/max-corrected MC confidence interval
//	tier 3: same test with the interval enlarged by ci_enlargement_pct
//	tier 4: |abs_err| <= max(abs_coeff*rel_pin_slew, abs_floor_ps)
//
// Overall pass is the disjunction of all four; Reason records the first
// satisfied tier in cascade order.
func Evaluate(res errmetric.Result, spec criteria.Spec, relPinSlew float64) models.TierVerdict {
	v := models.TierVerdict{}

	v.Tier1Pass = math.Abs(res.RelErr) <= spec.RelThreshold

	if res.HasCI {
		// Upstream data sometimes stores the bounds swapped.
		ciMin := math.Min(res.CILB, res.CIUB)
		ciMax := math.Max(res.CILB, res.CIUB)
		v.Tier2Pass = ciMin <= res.LibValue && res.LibValue <= ciMax

		pad := spec.CIEnlargementPct * (ciMax - ciMin)
		v.Tier3Pass = ciMin-pad <= res.LibValue && res.LibValue <= ciMax+pad
	}

	v.Tier4Pass = math.Abs(res.AbsErr) <= math.Max(spec.AbsCoeff*relPinSlew, spec.AbsFloorPS)

	v.OverallPass = v.Tier1Pass || v.Tier2Pass || v.Tier3Pass || v.Tier4Pass
	switch {
	case v.Tier1Pass:
		v.Reason = models.ReasonTier1Rel
	case v.Tier2Pass:
		v.Reason = models.ReasonTier2CI
	case v.Tier3Pass:
		v.Reason = models.ReasonTier3CIEnlarge
	case v.Tier4Pass:
		v.Reason = models.ReasonTier4Abs
	default:
		v.Reason = models.ReasonFailAllTiers
	}
	return v
}

// Degenerate is the verdict for a row whose relative-error denominator was
// degenerate: an explicit fail with its own reason, never a NaN or Inf
// smuggled into the aggregates.
func Degenerate() models.TierVerdict {
	return models.TierVerdict{Reason: models.ReasonDegenerate}
}
