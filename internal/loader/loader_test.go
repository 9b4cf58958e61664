package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evogel/arccheck/internal/criteria"
	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/run"
	"github.com/evogel/arccheck/internal/schema"
)

// holdHeader is the minimal valid hold-table header for a vendor.
func holdHeader(v schema.Vendor) []string {
	lb, ub := schema.CIColumns(models.ParamLateSigma)
	return []string{
		schema.ColArc, schema.ColMCNominal, v.LibNominalColumn(), schema.ColRelPinSlew,
		schema.MCColumn(models.ParamLateSigma), v.LibColumn(models.ParamLateSigma),
		lb, ub,
	}
}

func writeCSV(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hold_tt.csv")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoad_DetectsVendorAndValidates(t *testing.T) {
	path := writeCSV(t, []string{
		strings.Join(holdHeader(schema.VendorCDNS), ","),
		"X1/A->Z,100,100,20,5,5.1,4.8,5.3",
	})

	f, err := Load(path, "tt_0p50v_25c", models.TypeHold)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Vendor != schema.VendorCDNS {
		t.Errorf("vendor = %q, want CDNS", f.Vendor)
	}
	if len(f.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(f.Records))
	}

	rows, issues := f.ParseRows()
	if len(issues) != 0 {
		t.Fatalf("issues = %+v", issues)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	row := rows[0].Row
	if row.Arc != "X1/A->Z" || row.Corner != "tt_0p50v_25c" || row.Type != models.TypeHold {
		t.Errorf("row identity = %+v", row)
	}
	pv := row.Params[models.ParamLateSigma]
	if pv.MC == nil || *pv.MC != 5 || pv.Lib == nil || *pv.Lib != 5.1 {
		t.Errorf("late sigma values = %+v", pv)
	}
	if pv.MCLB == nil || *pv.MCLB != 4.8 || pv.MCUB == nil || *pv.MCUB != 5.3 {
		t.Errorf("ci bounds = %+v", pv)
	}
}

func TestLoad_SchemaMismatchFailsFile(t *testing.T) {
	// Vendor prefix present but the lib column is missing entirely.
	path := writeCSV(t, []string{
		strings.Join([]string{schema.ColArc, schema.ColMCNominal, "CDNS_Lib_Nominal", schema.ColRelPinSlew, "MC_Late_Sigma"}, ","),
		"X1/A->Z,100,100,20,5",
	})

	_, err := Load(path, "tt", models.TypeHold)
	if !errors.Is(err, models.ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestLoad_NoVendorPrefixFailsFile(t *testing.T) {
	path := writeCSV(t, []string{
		strings.Join([]string{schema.ColArc, schema.ColMCNominal, "Lib_Nominal"}, ","),
	})

	if _, err := Load(path, "tt", models.TypeHold); err == nil {
		t.Fatal("expected vendor detection error")
	}
}

func TestParseRows_BlankOptionalCellsAreAbsent(t *testing.T) {
	path := writeCSV(t, []string{
		strings.Join(holdHeader(schema.VendorSNPS), ","),
		"X1/A->Z,100,100,20,5,5.1,,", // no CI bounds
	})

	f, err := Load(path, "tt", models.TypeHold)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, issues := f.ParseRows()
	if len(issues) != 0 || len(rows) != 1 {
		t.Fatalf("rows=%d issues=%+v", len(rows), issues)
	}

	pv := rows[0].Row.Params[models.ParamLateSigma]
	if pv.MCLB != nil || pv.MCUB != nil {
		t.Errorf("blank ci cells must parse as absent, got %+v", pv)
	}
}

func TestParseRows_RowIssuesDoNotAbortFile(t *testing.T) {
	path := writeCSV(t, []string{
		strings.Join(holdHeader(schema.VendorCDNS), ","),
		"good,100,100,20,5,5.1,,",
		"bad_float,100,not_a_number,20,5,5.1,,",
		",100,100,20,5,5.1,,", // blank arc
		"also_good,100,100,20,5,5.2,,",
	})

	f, err := Load(path, "tt", models.TypeHold)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, issues := f.ParseRows()
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %+v, want 2", issues)
	}
	if issues[0].Line != 3 || issues[1].Line != 4 {
		t.Errorf("issue lines = %d, %d", issues[0].Line, issues[1].Line)
	}
}

func TestWriteTierCSV_AppendsVerdictColumns(t *testing.T) {
	path := writeCSV(t, []string{
		strings.Join(holdHeader(schema.VendorCDNS), ","),
		"pass_arc,100,100,20,5,5.1,4.8,5.3",
		"fail_arc,100,100,20,5,9.9,4.8,5.3",
	})

	f, err := Load(path, "tt", models.TypeHold)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, _ := f.ParseRows()

	r, err := run.New(run.Config{Registry: criteria.NewDefault(), Workers: 1})
	if err != nil {
		t.Fatalf("run.New: %v", err)
	}
	measurements := make([]models.MeasurementRow, len(rows))
	for i, pr := range rows {
		measurements[i] = pr.Row
	}
	results, err := r.EvaluateFile(measurements, f.Corner, f.Type)
	if err != nil {
		t.Fatalf("EvaluateFile: %v", err)
	}

	var sb strings.Builder
	if err := WriteTierCSV(&sb, f, rows, results); err != nil {
		t.Fatalf("WriteTierCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("output lines = %d, want header + 2 rows", len(lines))
	}
	header := lines[0]
	for _, col := range []string{"Late_Sigma_tier1", "Late_Sigma_overall", "Late_Sigma_reason"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing %q: %s", col, header)
		}
	}
	if !strings.HasPrefix(header, strings.Join(holdHeader(schema.VendorCDNS), ",")) {
		t.Errorf("original columns must be preserved: %s", header)
	}
	if !strings.Contains(lines[1], models.ReasonTier1Rel) {
		t.Errorf("pass row missing tier1 reason: %s", lines[1])
	}
	if !strings.Contains(lines[2], models.ReasonFailAllTiers) {
		t.Errorf("fail row missing fail reason: %s", lines[2])
	}
}

func TestWriteWaiverCSV_AppendsWaiverColumns(t *testing.T) {
	path := writeCSV(t, []string{
		strings.Join(holdHeader(schema.VendorCDNS), ","),
		// Fails the error criteria but sits inside the enlarged CI.
		"waived_arc,100,10,20,5,6.5,3.0,7.5",
	})

	f, err := Load(path, "tt", models.TypeHold)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, _ := f.ParseRows()

	r, err := run.New(run.Config{Registry: criteria.NewDefault(), Workers: 1})
	if err != nil {
		t.Fatalf("run.New: %v", err)
	}
	results, err := r.EvaluateFile([]models.MeasurementRow{rows[0].Row}, f.Corner, f.Type)
	if err != nil {
		t.Fatalf("EvaluateFile: %v", err)
	}

	var sb strings.Builder
	if err := WriteWaiverCSV(&sb, f, rows, results); err != nil {
		t.Fatalf("WriteWaiverCSV: %v", err)
	}

	out := sb.String()
	for _, col := range []string{
		"Late_Sigma_Base_Pass", "Late_Sigma_Pass_Reason", "Late_Sigma_Waiver1_CI_Enlarged",
		"Late_Sigma_Error_Direction", "Late_Sigma_Final_Status",
	} {
		if !strings.Contains(out, col) {
			t.Errorf("output missing column %q", col)
		}
	}
	if !strings.Contains(out, string(models.DirectionPessimistic)) {
		t.Errorf("output missing error direction:\n%s", out)
	}
	if !strings.Contains(out, string(models.StatusWaivedCI)) {
		t.Errorf("output missing Waived_CI status:\n%s", out)
	}
}

func TestWriteTierCSV_LengthMismatch(t *testing.T) {
	f := &File{Type: models.TypeHold}
	err := WriteTierCSV(os.Stderr, f, make([]ParsedRow, 2), make([]run.RowResult, 1))
	if err == nil {
		t.Fatal("expected length mismatch error")
	}
	if !strings.Contains(fmt.Sprint(err), "mismatch") {
		t.Errorf("err = %v", err)
	}
}

func TestParseRows_PercentileBoundsReconstructSigma(t *testing.T) {
	// Sigma bound columns absent; 3-sigma percentile bounds present.
	lb, ub, ok := schema.PercentileColumns(models.ParamLateSigma)
	if !ok {
		t.Fatal("late sigma has no percentile columns")
	}
	header := []string{
		schema.ColArc, schema.ColMCNominal, "CDNS_Lib_Nominal", schema.ColRelPinSlew,
		schema.MCColumn(models.ParamLateSigma), "CDNS_Lib_Late_Sigma",
		lb, ub,
	}
	// nominal 100, percentiles 109 and 115 -> sigma bounds 3 and 5.
	path := writeCSV(t, []string{
		strings.Join(header, ","),
		"X1/A->Z,100,100,20,4,4.1,109,115",
	})

	f, err := Load(path, "tt", models.TypeHold)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, issues := f.ParseRows()
	if len(issues) != 0 || len(rows) != 1 {
		t.Fatalf("rows = %d, issues = %+v", len(rows), issues)
	}

	pv := rows[0].Row.Params[models.ParamLateSigma]
	if pv.MCLB == nil || pv.MCUB == nil {
		t.Fatalf("bounds not reconstructed: %+v", pv)
	}
	if *pv.MCLB != 3 || *pv.MCUB != 5 {
		t.Errorf("sigma bounds = (%v, %v), want (3, 5)", *pv.MCLB, *pv.MCUB)
	}
}
