package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/run"
	"github.com/evogel/arccheck/internal/schema"
)

// skippedCell marks a verdict cell for a parameter that was skipped on
// schema grounds; distinct from both "true" and "false".
const skippedCell = "skipped"

// WriteTierCSV writes the original columns of each parsed row followed by
// the tier-cascade verdict columns per parameter:
// <stem>_tier1..4, <stem>_overall, <stem>_reason.
// rows and results must be parallel (as produced by ParseRows and
// EvaluateFile on its rows).
func WriteTierCSV(w io.Writer, f *File, rows []ParsedRow, results []run.RowResult) error {
	if len(rows) != len(results) {
		return fmt.Errorf("rows/results length mismatch: %d vs %d", len(rows), len(results))
	}
	params := models.ParametersFor(f.Type)

	cw := csv.NewWriter(w)
	header := append([]string{}, f.Header...)
	for _, p := range params {
		stem := schema.Stem(p)
		header = append(header,
			stem+"_tier1", stem+"_tier2", stem+"_tier3", stem+"_tier4",
			stem+"_overall", stem+"_reason")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, pr := range rows {
		outcomes := outcomeMap(results[i])
		record := append([]string{}, pr.Record...)
		for _, p := range params {
			o, ok := outcomes[p]
			if !ok || o.Skipped {
				record = append(record, "", "", "", "", skippedCell, skippedCell)
				continue
			}
			record = append(record,
				strconv.FormatBool(o.Tier.Tier1Pass),
				strconv.FormatBool(o.Tier.Tier2Pass),
				strconv.FormatBool(o.Tier.Tier3Pass),
				strconv.FormatBool(o.Tier.Tier4Pass),
				strconv.FormatBool(o.Tier.OverallPass),
				o.Tier.Reason)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWaiverCSV writes the original columns followed by the unified
// waiver verdict columns per parameter: <stem>_Base_Pass,
// <stem>_Pass_Reason, <stem>_Waiver1_CI_Enlarged, <stem>_Error_Direction,
// <stem>_Final_Status.
func WriteWaiverCSV(w io.Writer, f *File, rows []ParsedRow, results []run.RowResult) error {
	if len(rows) != len(results) {
		return fmt.Errorf("rows/results length mismatch: %d vs %d", len(rows), len(results))
	}
	params := models.ParametersFor(f.Type)

	cw := csv.NewWriter(w)
	header := append([]string{}, f.Header...)
	for _, p := range params {
		stem := schema.Stem(p)
		header = append(header,
			stem+"_Base_Pass", stem+"_Pass_Reason", stem+"_Waiver1_CI_Enlarged",
			stem+"_Error_Direction", stem+"_Final_Status")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, pr := range rows {
		outcomes := outcomeMap(results[i])
		record := append([]string{}, pr.Record...)
		for _, p := range params {
			o, ok := outcomes[p]
			if !ok || o.Skipped {
				record = append(record, "", skippedCell, "", "", skippedCell)
				continue
			}
			record = append(record,
				strconv.FormatBool(o.Waiver.BasePass),
				o.Waiver.Reason,
				strconv.FormatBool(o.Waiver.Waiver1Pass),
				string(o.Waiver.Direction),
				string(o.Waiver.Final))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func outcomeMap(res run.RowResult) map[models.Parameter]run.ParamOutcome {
	m := make(map[models.Parameter]run.ParamOutcome, len(res.Outcomes))
	for _, o := range res.Outcomes {
		m[o.Parameter] = o
	}
	return m
}
