package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evogel/arccheck/internal/criteria"
	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/report"
	"github.com/evogel/arccheck/internal/run"
	"github.com/evogel/arccheck/internal/tiering"
)

func f(v float64) *float64 { return &v }

// evaluatedRun runs two delay rows through a real validation run so the
// store tests persist genuine verdicts, not hand-built ones.
func evaluatedRun(t *testing.T) (*run.Summary, []run.RowResult) {
	t.Helper()

	vr, err := run.New(run.Config{
		Registry: criteria.NewDefault(),
		Policy:   tiering.DefaultWaiverPolicy(),
		Workers:  1,
	})
	if err != nil {
		t.Fatalf("run.New() error = %v", err)
	}

	rows := []models.MeasurementRow{
		{
			Arc: "arc_pass", Corner: "tt_0p75v_25c", Type: models.TypeDelay,
			RelPinSlew: f(20),
			Params: map[models.Parameter]models.ParamValues{
				models.ParamLateSigma: {
					MC: f(5.0), Lib: f(5.05), MCLB: f(4.9), MCUB: f(5.2),
					AbsErr: f(0.05), RelErr: f(0.01),
				},
			},
		},
		{
			Arc: "arc_fail", Corner: "tt_0p75v_25c", Type: models.TypeDelay,
			RelPinSlew: f(20),
			Params: map[models.Parameter]models.ParamValues{
				models.ParamLateSigma: {
					MC: f(100.0), Lib: f(50.0), MCLB: f(99.0), MCUB: f(101.0),
					AbsErr: f(-50.0), RelErr: f(-0.5),
				},
			},
		},
	}

	results, err := vr.EvaluateFile(rows, "tt_0p75v_25c", models.TypeDelay)
	if err != nil {
		t.Fatalf("EvaluateFile() error = %v", err)
	}
	sum, err := vr.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return sum, results
}

func TestOpenCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, DBFileName)); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	sum, _ := evaluatedRun(t)

	if err := s.SaveRun(ctx, sum, "/lib/char"); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != sum.RunID {
		t.Errorf("ID = %q, want %q", got.ID, sum.RunID)
	}
	if got.Root != "/lib/char" {
		t.Errorf("Root = %q, want /lib/char", got.Root)
	}
	if got.Rows != 2 {
		t.Errorf("Rows = %d, want 2", got.Rows)
	}
	if !got.StartedAt.Equal(sum.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, sum.StartedAt)
	}
}

func TestSaveRunDuplicateID(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	sum, _ := evaluatedRun(t)

	if err := s.SaveRun(ctx, sum, ""); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.SaveRun(ctx, sum, ""); err == nil {
		t.Error("SaveRun() with duplicate ID = nil, want error")
	}
}

func TestSaveVerdictsAndQueryFails(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	sum, results := evaluatedRun(t)

	if err := s.SaveRun(ctx, sum, ""); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.SaveVerdicts(ctx, sum.RunID, "tt_0p75v_25c", models.TypeDelay, results); err != nil {
		t.Fatalf("SaveVerdicts() error = %v", err)
	}

	fails, err := s.FailedVerdicts(ctx, sum.RunID)
	if err != nil {
		t.Fatalf("FailedVerdicts() error = %v", err)
	}
	if len(fails) != 1 {
		t.Fatalf("FailedVerdicts() returned %d, want 1: %+v", len(fails), fails)
	}
	got := fails[0]
	if got.Arc != "arc_fail" {
		t.Errorf("Arc = %q, want arc_fail", got.Arc)
	}
	if got.Parameter != models.ParamLateSigma {
		t.Errorf("Parameter = %q, want late_sigma", got.Parameter)
	}
	if got.Status != models.StatusFail {
		t.Errorf("Status = %q, want Fail", got.Status)
	}
}

func TestSavePassRatesRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	sum, _ := evaluatedRun(t)

	if err := s.SaveRun(ctx, sum, ""); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	corners := []string{"tt_0p75v_25c"}
	types := []models.TimingType{models.TypeDelay}
	cells := report.Cells(sum.Sections(), corners, types)
	if err := s.SavePassRates(ctx, sum.RunID, cells); err != nil {
		t.Fatalf("SavePassRates() error = %v", err)
	}

	got, err := s.PassRates(ctx, sum.RunID)
	if err != nil {
		t.Fatalf("PassRates() error = %v", err)
	}
	if len(got) != len(cells) {
		t.Fatalf("PassRates() returned %d cells, want %d", len(got), len(cells))
	}
	for i := range cells {
		want, have := cells[i], got[i]
		if have.Section != want.Section || have.Corner != want.Corner ||
			have.Type != want.Type || have.Param != want.Param {
			t.Errorf("cell %d key = %+v, want %+v", i, have, want)
		}
		if have.Counts != want.Counts {
			t.Errorf("cell %d counts = %+v, want %+v", i, have.Counts, want.Counts)
		}
		switch {
		case want.PassPct == nil && have.PassPct != nil:
			t.Errorf("cell %d pass_pct = %v, want nil", i, *have.PassPct)
		case want.PassPct != nil && have.PassPct == nil:
			t.Errorf("cell %d pass_pct = nil, want %v", i, *want.PassPct)
		case want.PassPct != nil && *have.PassPct != *want.PassPct:
			t.Errorf("cell %d pass_pct = %v, want %v", i, *have.PassPct, *want.PassPct)
		}
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	sum, _ := evaluatedRun(t)

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.SaveRun(ctx, sum, ""); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()

	runs, err := s2.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() after reopen error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != sum.RunID {
		t.Errorf("runs after reopen = %+v, want the saved run", runs)
	}
}
