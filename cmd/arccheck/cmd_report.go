package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/report"
	"github.com/evogel/arccheck/internal/store"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Re-render a recorded run's pass-rate tables from the run database",
		Long: `Render the sectioned pass-rate tables of a recorded run straight from
the run database, without re-validating any input files. Without a run
ID the most recent run is reported.

Example:
  arccheck report
  arccheck report 2f47c1e0-... --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSetup(cmd)
			if err != nil {
				return err
			}

			db, err := store.Open(s.OutDir)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			runID, err := resolveRunID(ctx, db, args)
			if err != nil {
				return err
			}

			cells, err := db.PassRates(ctx, runID)
			if err != nil {
				return err
			}
			if len(cells) == 0 {
				return fmt.Errorf("no pass rates recorded for run %s", runID)
			}

			if s.JSON {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"run_id":     runID,
					"pass_rates": cells,
				})
			}

			fmt.Printf("Run: %s\n\n", runID)
			return renderStoredCells(os.Stdout, cells)
		},
	}

	return cmd
}

// resolveRunID picks the requested run, or the most recent one when the
// command was invoked without arguments.
func resolveRunID(ctx context.Context, db *store.RunStore, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs recorded yet; run 'arccheck validate' or 'arccheck waivers' first")
	}
	return runs[0].ID, nil
}

// renderStoredCells renders stored pass-rate cells in the sectioned layout
// report.Render produces, without rebuilding reporters. Cell order from
// the store already follows section, type, corner.
func renderStoredCells(w io.Writer, cells []report.Cell) error {
	type cellKey struct {
		section string
		t       models.TimingType
		corner  string
		param   models.Parameter
	}
	lookup := make(map[cellKey]report.Cell, len(cells))

	var sections []string
	var types []models.TimingType
	var corners []string
	seenSection := make(map[string]bool)
	seenType := make(map[models.TimingType]bool)
	seenCorner := make(map[string]bool)

	for _, c := range cells {
		lookup[cellKey{c.Section, c.Type, c.Corner, c.Param}] = c
		if !seenSection[c.Section] {
			seenSection[c.Section] = true
			sections = append(sections, c.Section)
		}
		if !seenType[c.Type] {
			seenType[c.Type] = true
			types = append(types, c.Type)
		}
		if !seenCorner[c.Corner] {
			seenCorner[c.Corner] = true
			corners = append(corners, c.Corner)
		}
	}

	for si, sec := range sections {
		if si > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s ===\n", sec)

		for _, t := range types {
			params := models.ParametersFor(t)

			fmt.Fprintf(w, "\n[%s]\n", t)
			tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)

			fmt.Fprint(tw, "Corner")
			for _, p := range params {
				fmt.Fprintf(tw, "\t%s", p)
			}
			fmt.Fprintln(tw)

			for _, corner := range corners {
				fmt.Fprint(tw, corner)
				for _, p := range params {
					c, ok := lookup[cellKey{sec, t, corner, p}]
					if !ok || c.PassPct == nil {
						fmt.Fprint(tw, "\tN/A")
					} else {
						fmt.Fprintf(tw, "\t%.1f", *c.PassPct)
					}
				}
				fmt.Fprintln(tw)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}
