package tiering

import (
	"github.com/evogel/arccheck/internal/criteria"
	"github.com/evogel/arccheck/internal/errmetric"
	"github.com/evogel/arccheck/internal/models"
)

type policyKey struct {
	t models.TimingType
	p models.Parameter
}

// WaiverPolicy configures the optional second waiver: which error
// direction is "safe" per (timing type, parameter). The safe side is a
// sign-off decision, configured explicitly and never inferred from data;
// combinations without an entry have waiver 2 disabled.
type WaiverPolicy struct {
	safe map[policyKey]models.ErrorDirection
}

// NewWaiverPolicy returns a policy with waiver 2 disabled everywhere.
func NewWaiverPolicy() *WaiverPolicy {
	return &WaiverPolicy{safe: make(map[policyKey]models.ErrorDirection)}
}

// DefaultWaiverPolicy marks pessimistic errors as safe for the late-side
// sigma of delay, slew, and hold tables: a library that claims worse
// timing than MC cannot hide a setup/hold violation. Everything else has
// no safe side.
func DefaultWaiverPolicy() *WaiverPolicy {
	p := NewWaiverPolicy()
	p.SetSafeDirection(models.TypeDelay, models.ParamLateSigma, models.DirectionPessimistic)
	p.SetSafeDirection(models.TypeSlew, models.ParamLateSigma, models.DirectionPessimistic)
	p.SetSafeDirection(models.TypeHold, models.ParamLateSigma, models.DirectionPessimistic)
	return p
}

// SetSafeDirection enables waiver 2 for (t, param) with the given safe side.
func (w *WaiverPolicy) SetSafeDirection(t models.TimingType, param models.Parameter, dir models.ErrorDirection) {
	w.safe[policyKey{t, param}] = dir
}

// SafeDirection returns the configured safe side and whether one exists.
// A nil policy has no safe sides.
func (w *WaiverPolicy) SafeDirection(t models.TimingType, param models.Parameter) (models.ErrorDirection, bool) {
	if w == nil {
		return "", false
	}
	dir, ok := w.safe[policyKey{t, param}]
	return dir, ok
}

// EvaluateWaivers classifies one (row, parameter) result under the unified
// base+waiver rule set:
//
//	base    = tier1 OR tier4 (CI containment excluded from base on purpose)
//	waiver1 = tier3 (CI reinstated only with the enlargement)
//	waiver2 = configured safe error direction, when base and waiver1 fail
//
// Final status is Pass, Waived_CI, Waived_Direction, or Fail.
func EvaluateWaivers(res errmetric.Result, spec criteria.Spec, relPinSlew float64,
	t models.TimingType, param models.Parameter, policy *WaiverPolicy) models.WaiverVerdict {

	tiers := Evaluate(res, spec, relPinSlew)

	v := models.WaiverVerdict{
		BasePass:    tiers.Tier1Pass || tiers.Tier4Pass,
		Waiver1Pass: tiers.Tier3Pass,
		Direction:   models.DirectionPessimistic,
	}
	if res.LibValue < res.MCValue {
		v.Direction = models.DirectionOptimistic
	}

	switch {
	case v.BasePass:
		v.Final = models.StatusPass
		if tiers.Tier1Pass {
			v.Reason = models.ReasonTier1Rel
		} else {
			v.Reason = models.ReasonTier4Abs
		}
	case v.Waiver1Pass:
		v.Final = models.StatusWaivedCI
		v.Reason = models.ReasonWaiver1CI
	default:
		if safe, ok := policy.SafeDirection(t, param); ok && v.Direction == safe {
			v.Waiver2Pass = true
			v.Final = models.StatusWaivedDirection
			v.Reason = models.ReasonWaiver2Direction
		} else {
			v.Final = models.StatusFail
			v.Reason = models.ReasonFailAllTiers
		}
	}
	return v
}

// DegenerateWaiver is the waiver-pipeline counterpart of Degenerate. The
// error direction is a pure function of lib vs MC and stays well-defined
// even when the relative-error denominator is degenerate.
func DegenerateWaiver(lib, mc float64) models.WaiverVerdict {
	v := models.WaiverVerdict{
		Direction: models.DirectionPessimistic,
		Reason:    models.ReasonDegenerate,
		Final:     models.StatusFail,
	}
	if lib < mc {
		v.Direction = models.DirectionOptimistic
	}
	return v
}
