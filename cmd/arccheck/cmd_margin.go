package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/margin"
	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/run"
	"github.com/evogel/arccheck/internal/sensitivity"
)

func newMarginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "margin",
		Short: "Project pass rates under supply-margin relief",
		Long: `Convert each failing arc's error into a required supply margin using
its fitted voltage sensitivity, then project the pass rate at each rung
of the margin ladder and the margin required to hit the target rate.

Only optimistic fails are correctable by adding margin; pessimistic
fails never flip. Arcs without voltage data are excluded from the
projection and listed in the output.

Example:
  arccheck margin --type delay --parameter late_sigma`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			typeFlag, _ := cmd.Flags().GetString("type")
			paramFlag, _ := cmd.Flags().GetString("parameter")
			adjacent, _ := cmd.Flags().GetBool("adjacent")

			t := models.TimingType(typeFlag)
			p := models.Parameter(paramFlag)
			if !t.Valid() {
				return fmt.Errorf("invalid timing type: %s", typeFlag)
			}
			if !p.Valid() {
				return fmt.Errorf("invalid parameter: %s", paramFlag)
			}

			inputs, err := discoverInputs(s)
			if err != nil {
				return err
			}
			ev, err := evaluateAll(s, inputs)
			if err != nil {
				return err
			}

			points, err := collectPoints(inputs, t, p)
			if err != nil {
				return err
			}

			rows, excluded := marginRows(ev, t, p, points, adjacent)
			if len(rows) == 0 {
				return fmt.Errorf("no arcs with both verdicts and voltage data for %s/%s", t, p)
			}

			sweep, err := margin.Sweep(rows, s.Config.Margin.LadderMV)
			if err != nil {
				return err
			}

			// Required margin considers only correctable (optimistic) fails.
			var failMargins []float64
			for _, r := range rows {
				if !r.Passes && r.Direction == models.DirectionOptimistic {
					failMargins = append(failMargins, r.MarginMV)
				}
			}
			var required *float64
			if len(failMargins) > 0 {
				req, err := margin.RequiredMarginForPassRate(failMargins, s.Config.Margin.TargetPassPct)
				if err != nil && !errors.Is(err, models.ErrEmptyInput) {
					return err
				}
				if err == nil {
					required = &req
				}
			}

			if s.JSON {
				out := map[string]any{
					"type":            t,
					"parameter":       p,
					"arcs":            len(rows),
					"excluded_arcs":   excluded,
					"sweep":           sweep,
					"target_pass_pct": s.Config.Margin.TargetPassPct,
				}
				if required != nil {
					out["required_margin_mv"] = *required
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			fmt.Printf("Margin projection for %s/%s (%d arcs)\n\n", t, p, len(rows))
			tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "Margin_mV\tPass_%")
			for _, pt := range sweep {
				fmt.Fprintf(tw, "%.1f\t%.1f\n", pt.MarginMV, pt.PassPct)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Println()
			if required != nil {
				fmt.Printf("Required margin for %.1f%% of correctable fails: %.2f mV\n",
					s.Config.Margin.TargetPassPct, *required)
			} else {
				fmt.Println("No correctable (optimistic) fails; no margin required.")
			}
			if len(excluded) > 0 {
				fmt.Printf("Excluded arcs (no usable voltage data): %d\n", len(excluded))
			}
			return nil
		},
	}

	cmd.Flags().String("type", "delay", "Timing type to analyze (delay, slew, hold)")
	cmd.Flags().String("parameter", "late_sigma", "Parameter to analyze")
	cmd.Flags().Bool("adjacent", false, "Fit adjacent voltage pairs and combine with R2 weighting")

	return cmd
}

// marginRows builds the per-arc margin standing from the evaluated run and
// the sensitivity fits. Arcs without a fit are excluded, not zeroed.
func marginRows(ev *evaluated, t models.TimingType, p models.Parameter,
	points map[string][]sensitivity.Point, adjacent bool) ([]margin.Row, []string) {

	fit := func(arc string) (*sensitivity.Record, error) {
		pts, ok := points[arc]
		if !ok {
			return nil, models.ErrNoSensitivityData
		}
		if adjacent {
			return sensitivity.FitAdjacent(pts)
		}
		return sensitivity.Fit(pts)
	}

	var rows []margin.Row
	var excluded []string
	seen := make(map[string]bool)

	for _, fe := range ev.Files {
		if fe.Input.Type != t {
			continue
		}
		for _, res := range fe.Results {
			outcome, ok := findOutcome(res, p)
			if !ok || outcome.Skipped {
				continue
			}
			// One standing per arc; corners share the fit, the first
			// corner's verdict decides the pass flag.
			if seen[res.Arc] {
				continue
			}
			seen[res.Arc] = true

			rec, err := fit(res.Arc)
			if err != nil {
				excluded = append(excluded, res.Arc)
				continue
			}

			m := math.Inf(1)
			if !rec.Infinite {
				m = margin.MarginMV(rec.SensitivityMV, outcome.Metric.AbsErr)
			}
			rows = append(rows, margin.Row{
				Arc:       res.Arc,
				Passes:    outcome.Waiver.Final != models.StatusFail,
				Direction: outcome.Waiver.Direction,
				MarginMV:  m,
			})
		}
	}
	return rows, excluded
}

func findOutcome(res run.RowResult, p models.Parameter) (run.ParamOutcome, bool) {
	for _, o := range res.Outcomes {
		if o.Parameter == p {
			return o, true
		}
	}
	return run.ParamOutcome{}, false
}
