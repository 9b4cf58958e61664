package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/loader"
	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/sensitivity"
)

// arcSensitivity pairs an arc with its fitted record for output.
type arcSensitivity struct {
	Arc    string              `json:"arc"`
	Record *sensitivity.Record `json:"record,omitempty"`
	Error  string              `json:"error,omitempty"`
}

func newSensitivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Fit voltage sensitivity per arc across corners",
		Long: `Fit library value against supply voltage for every arc, across all
corners that carry a VDD column. The fit yields dV/dValue in millivolts
per value unit, used by the margin projection.

Arcs with fewer than two distinct voltages are excluded, never defaulted
to zero sensitivity. A flat fit reports infinite sensitivity.

Example:
  arccheck sensitivity --type delay --parameter late_sigma --adjacent`,
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

			points, err := collectPoints(inputs, t, p)
			if err != nil {
				return err
			}
			if len(points) == 0 {
				return fmt.Errorf("no voltage data found for %s/%s (files need a VDD column)", t, p)
			}

			fits := fitAll(points, adjacent)

			if s.JSON {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"type":      t,
					"parameter": p,
					"adjacent":  adjacent,
					"arcs":      fits,
				})
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "Arc\tSlope\tSensitivity_mV\tR2\tPoints")
			for _, fs := range fits {
				if fs.Error != "" {
					fmt.Fprintf(tw, "%s\texcluded\t-\t-\t-\n", fs.Arc)
					continue
				}
				if fs.Record.Infinite {
					fmt.Fprintf(tw, "%s\t%.6g\tInf (flat)\t%.4f\t%d\n",
						fs.Arc, fs.Record.Slope, fs.Record.RSquared, fs.Record.Points)
					continue
				}
				fmt.Fprintf(tw, "%s\t%.6g\t%.4f\t%.4f\t%d\n",
					fs.Arc, fs.Record.Slope, fs.Record.SensitivityMV,
					fs.Record.RSquared, fs.Record.Points)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().String("type", "delay", "Timing type to analyze (delay, slew, hold)")
	cmd.Flags().String("parameter", "late_sigma", "Parameter column to fit")
	cmd.Flags().Bool("adjacent", false, "Fit adjacent voltage pairs and combine with R2 weighting")

	return cmd
}

// collectPoints gathers per-arc (voltage, lib value) samples across all
// inputs of the given type. Rows without a voltage or library value
// contribute nothing.
func collectPoints(inputs []inputFile, t models.TimingType, p models.Parameter) (map[string][]sensitivity.Point, error) {
	points := make(map[string][]sensitivity.Point)

	for _, in := range inputs {
		if in.Type != t {
			continue
		}
		f, err := loader.Load(in.Path, in.Corner, in.Type)
		if err != nil {
			return nil, err
		}
		parsed, _ := f.ParseRows()
		for _, pr := range parsed {
			if pr.Row.Voltage == nil {
				continue
			}
			pv, ok := pr.Row.Param(p)
			if !ok || pv.Lib == nil {
				continue
			}
			points[pr.Row.Arc] = append(points[pr.Row.Arc], sensitivity.Point{
				Voltage: *pr.Row.Voltage,
				Value:   *pv.Lib,
			})
		}
	}
	return points, nil
}

// fitAll fits every arc's points, sorted by arc name for stable output.
func fitAll(points map[string][]sensitivity.Point, adjacent bool) []arcSensitivity {
	arcs := make([]string, 0, len(points))
	for arc := range points {
		arcs = append(arcs, arc)
	}
	sort.Strings(arcs)

	out := make([]arcSensitivity, 0, len(arcs))
	for _, arc := range arcs {
		var rec *sensitivity.Record
		var err error
		if adjacent {
			rec, err = sensitivity.FitAdjacent(points[arc])
		} else {
			rec, err = sensitivity.Fit(points[arc])
		}
		if err != nil {
			out = append(out, arcSensitivity{Arc: arc, Error: err.Error()})
			continue
		}
		out = append(out, arcSensitivity{Arc: arc, Record: rec})
	}
	return out
}
