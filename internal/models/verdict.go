package models

// Pass reasons recorded in TierVerdict.Reason, in cascade order.
const (
	ReasonTier1Rel       = "tier1_rel"
	ReasonTier2CI        = "tier2_ci"
	ReasonTier3CIEnlarge = "tier3_ci_enlarged"
	ReasonTier4Abs       = "tier4_abs"
	ReasonFailAllTiers   = "fail_all_tiers"
	ReasonDegenerate     = "denominator_degenerate"

	// Waiver-pipeline reasons.
	ReasonWaiver1CI        = "waiver1_ci_enlarged"
	ReasonWaiver2Direction = "waiver2_safe_direction"
)

// TierVerdict is the outcome of the four-tier criteria cascade for one
// (row, parameter) pair. It is a pure function of the row and the criteria
// spec; there is no shared state between evaluations.
type TierVerdict struct {
	Tier1Pass bool `json:"tier1_pass"`
	Tier2Pass bool `json:"tier2_pass"`
	Tier3Pass bool `json:"tier3_pass"`
	Tier4Pass bool `json:"tier4_pass"`

	// OverallPass is tier1 OR tier2 OR tier3 OR tier4.
	OverallPass bool `json:"overall_pass"`

	// Reason names the first tier satisfied in cascade order, or
	// "fail_all_tiers". Rows with a degenerate denominator carry
	// "denominator_degenerate" and never pass.
	Reason string `json:"pass_reason"`
}

// FinalStatus is the unified waiver pipeline's terminal classification.
type FinalStatus string

const (
	StatusPass            FinalStatus = "Pass"
	StatusWaivedCI        FinalStatus = "Waived_CI"
	StatusWaivedDirection FinalStatus = "Waived_Direction"
	StatusFail            FinalStatus = "Fail"
)

// WaiverVerdict is the outcome under the unified base+waiver rule set.
// Base pass deliberately excludes CI containment (tiers 2 and 3); the
// enlarged-CI test is reinstated only as waiver 1. This is a distinct
// policy from TierVerdict, not a re-derivation of it.
type WaiverVerdict struct {
	// BasePass is tier1 OR tier4 (error criteria only).
	BasePass bool `json:"base_pass"`

	// Waiver1Pass is the enlarged-CI containment test (tier 3).
	Waiver1Pass bool `json:"waiver1_pass"`

	// Waiver2Pass marks rows failing base and waiver1 whose error lies on
	// the configured safe side. False whenever no safe direction is
	// configured for the (type, parameter).
	Waiver2Pass bool `json:"waiver2_pass"`

	// Direction is optimistic when the library value is below MC.
	Direction ErrorDirection `json:"error_direction"`

	// Reason names the criterion that produced Final.
	Reason string `json:"pass_reason"`

	// Final is Pass, Waived_CI, Waived_Direction, or Fail.
	Final FinalStatus `json:"final_status"`
}
