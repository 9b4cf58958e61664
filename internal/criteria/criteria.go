// Package criteria holds the per-(timing type, parameter) threshold
// registry driving the tier cascade.
package criteria

import (
	"fmt"

	"github.com/evogel/arccheck/internal/models"
)

// Spec is one cell of the criteria table. All thresholds are >= 0.
type Spec struct {
	// RelThreshold is the tier-1 bound on |relative error|.
	RelThreshold float64 `json:"rel_threshold" yaml:"rel_threshold"`

	// AbsCoeff scales the related-pin slew into an absolute-error bound.
	AbsCoeff float64 `json:"abs_coeff" yaml:"abs_coeff"`

	// AbsFloorPS is the absolute-error floor in picoseconds; tier 4 uses
	// max(AbsCoeff*RelPinSlew, AbsFloorPS).
	AbsFloorPS float64 `json:"abs_floor_ps" yaml:"abs_floor_ps"`

	// CIEnlargementPct expands the confidence interval outward on both
	// sides by this fraction of its width for the tier-3 / waiver-1 test.
	CIEnlargementPct float64 `json:"ci_enlargement_pct" yaml:"ci_enlargement_pct"`
}

func (s Spec) validate() error {
	if s.RelThreshold < 0 || s.AbsCoeff < 0 || s.AbsFloorPS < 0 || s.CIEnlargementPct < 0 {
		return fmt.Errorf("criteria thresholds must be >= 0, got %+v", s)
	}
	return nil
}

type key struct {
	t models.TimingType
	p models.Parameter
}

// Registry is a total lookup over the supported (type, parameter) space.
// Combinations outside the supported space (hold carries only late sigma)
// fail closed: Lookup returns an error rather than a silent default.
type Registry struct {
	specs map[key]Spec
}

// NewDefault returns the registry with the shipped threshold table.
func NewDefault() *Registry {
	r := &Registry{specs: make(map[key]Spec)}

	// Sigma parameters carry the tight relative bound; moment parameters
	// loosen progressively (higher moments are noisier in MC).
	for _, t := range []models.TimingType{models.TypeDelay, models.TypeSlew} {
		rel := 0.03
		if t == models.TypeSlew {
			rel = 0.05
		}
		r.specs[key{t, models.ParamEarlySigma}] = Spec{rel, 0.01, 1.0, 0.06}
		r.specs[key{t, models.ParamLateSigma}] = Spec{rel, 0.01, 1.0, 0.06}
		r.specs[key{t, models.ParamMeanshift}] = Spec{rel, 0.01, 1.0, 0.06}
		r.specs[key{t, models.ParamStd}] = Spec{rel + 0.02, 0.02, 1.5, 0.06}
		r.specs[key{t, models.ParamSkew}] = Spec{0.10, 0.02, 2.0, 0.06}
	}
	r.specs[key{models.TypeHold, models.ParamLateSigma}] = Spec{0.03, 0.01, 1.0, 0.06}

	return r
}

// Lookup returns the spec for (t, p). Unsupported combinations are an
// error so schema drift is caught at the call site, never papered over.
func (r *Registry) Lookup(t models.TimingType, p models.Parameter) (Spec, error) {
	s, ok := r.specs[key{t, p}]
	if !ok {
		return Spec{}, fmt.Errorf("no criteria defined for %s/%s", t, p)
	}
	return s, nil
}

// Set installs or overrides the spec for (t, p). Overrides may only target
// supported combinations; widening the supported space requires a code
// change, not a config edit.
func (r *Registry) Set(t models.TimingType, p models.Parameter, s Spec) error {
	if err := s.validate(); err != nil {
		return err
	}
	if _, ok := r.specs[key{t, p}]; !ok {
		return fmt.Errorf("cannot override unsupported combination %s/%s", t, p)
	}
	r.specs[key{t, p}] = s
	return nil
}

// Supported reports whether (t, p) is in the registry.
func (r *Registry) Supported(t models.TimingType, p models.Parameter) bool {
	_, ok := r.specs[key{t, p}]
	return ok
}
