package margin

import (
	"errors"
	"math"
	"testing"

	"github.com/evogel/arccheck/internal/models"
)

func TestMarginMV_PreservesSign(t *testing.T) {
	if got := MarginMV(10, -2); got != -20 {
		t.Errorf("MarginMV(10, -2) = %v, want -20", got)
	}
	if got := MarginMV(10, 2); got != 20 {
		t.Errorf("MarginMV(10, 2) = %v, want 20", got)
	}
	if got := MarginMV(-5, 2); got != -10 {
		t.Errorf("MarginMV(-5, 2) = %v, want -10", got)
	}
}

func TestPassRateAtMargin_FlipsCoverableOptimisticRow(t *testing.T) {
	rows := []Row{{
		Arc:       "X1/A->Z",
		Direction: models.DirectionOptimistic,
		MarginMV:  MarginMV(10, -2), // -20
	}}

	pct, err := PassRateAtMargin(rows, 20)
	if err != nil {
		t.Fatalf("PassRateAtMargin: %v", err)
	}
	if pct != 100 {
		t.Errorf("at 20 mV: pct = %v, want 100 (row flips to passing)", pct)
	}

	pct, err = PassRateAtMargin(rows, 19.9)
	if err != nil {
		t.Fatalf("PassRateAtMargin: %v", err)
	}
	if pct != 0 {
		t.Errorf("at 19.9 mV: pct = %v, want 0 (margin insufficient)", pct)
	}
}

func TestPassRateAtMargin_PessimisticRowsNotCorrectable(t *testing.T) {
	rows := []Row{
		{Arc: "a", Direction: models.DirectionPessimistic, MarginMV: 5},
		{Arc: "b", Passes: true, Direction: models.DirectionPessimistic, MarginMV: 50},
	}

	pct, err := PassRateAtMargin(rows, 1000)
	if err != nil {
		t.Fatalf("PassRateAtMargin: %v", err)
	}
	// Only the already-passing row counts; pessimistic failures are not
	// fixed by adding supply.
	if pct != 50 {
		t.Errorf("pct = %v, want 50", pct)
	}
}

func TestPassRateAtMargin_EmptyInput(t *testing.T) {
	_, err := PassRateAtMargin(nil, 10)
	if !errors.Is(err, models.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestRequiredMarginForPassRate(t *testing.T) {
	margins := []float64{-5, -10, -15, -20}

	got, err := RequiredMarginForPassRate(margins, 75)
	if err != nil {
		t.Fatalf("RequiredMarginForPassRate: %v", err)
	}
	// 15 mV covers 5, 10, 15 = 75% of the optimistic points.
	if math.Abs(got-15) > 1e-12 {
		t.Errorf("required margin = %v, want 15", got)
	}

	got, err = RequiredMarginForPassRate(margins, 100)
	if err != nil {
		t.Fatalf("RequiredMarginForPassRate: %v", err)
	}
	if math.Abs(got-20) > 1e-12 {
		t.Errorf("required margin for 100%% = %v, want 20", got)
	}
}

func TestRequiredMarginForPassRate_NeverExtrapolates(t *testing.T) {
	got, err := RequiredMarginForPassRate([]float64{-5, -10}, 150)
	if err != nil {
		t.Fatalf("RequiredMarginForPassRate: %v", err)
	}
	if got != 10 {
		t.Errorf("unreachable target must return max observed margin, got %v", got)
	}

	if _, err := RequiredMarginForPassRate(nil, 80); !errors.Is(err, models.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	rows := []Row{
		{Arc: "a", Direction: models.DirectionOptimistic, MarginMV: -5},
		{Arc: "b", Direction: models.DirectionOptimistic, MarginMV: -15},
	}

	points, err := Sweep(rows, []float64{5, 10, 15, 20})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	wantPct := []float64{50, 50, 100, 100}
	for i, p := range points {
		if p.PassPct != wantPct[i] {
			t.Errorf("at %v mV: pct = %v, want %v", p.MarginMV, p.PassPct, wantPct[i])
		}
	}
}
