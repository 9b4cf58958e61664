package criteria

import (
	"testing"

	"github.com/evogel/arccheck/internal/models"
)

func TestLookup_TotalOverSupportedSpace(t *testing.T) {
	r := NewDefault()

	for _, tt := range models.AllTimingTypes() {
		for _, p := range models.ParametersFor(tt) {
			s, err := r.Lookup(tt, p)
			if err != nil {
				t.Errorf("Lookup(%s, %s): %v", tt, p, err)
				continue
			}
			if s.RelThreshold < 0 || s.AbsCoeff < 0 || s.AbsFloorPS < 0 || s.CIEnlargementPct < 0 {
				t.Errorf("Lookup(%s, %s): negative threshold in %+v", tt, p, s)
			}
		}
	}
}

func TestLookup_HoldFailsClosed(t *testing.T) {
	r := NewDefault()

	for _, p := range []models.Parameter{
		models.ParamEarlySigma, models.ParamMeanshift, models.ParamStd, models.ParamSkew,
	} {
		if _, err := r.Lookup(models.TypeHold, p); err == nil {
			t.Errorf("Lookup(hold, %s) should fail closed", p)
		}
	}
	if _, err := r.Lookup(models.TypeHold, models.ParamLateSigma); err != nil {
		t.Errorf("Lookup(hold, late_sigma): %v", err)
	}
}

func TestSet(t *testing.T) {
	r := NewDefault()

	want := Spec{RelThreshold: 0.02, AbsCoeff: 0.005, AbsFloorPS: 0.5, CIEnlargementPct: 0.04}
	if err := r.Set(models.TypeDelay, models.ParamEarlySigma, want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := r.Lookup(models.TypeDelay, models.ParamEarlySigma)
	if err != nil {
		t.Fatalf("Lookup after Set: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if err := r.Set(models.TypeHold, models.ParamSkew, want); err == nil {
		t.Error("Set on unsupported combination should fail")
	}
	if err := r.Set(models.TypeDelay, models.ParamStd, Spec{RelThreshold: -1}); err == nil {
		t.Error("Set with negative threshold should fail")
	}
}
