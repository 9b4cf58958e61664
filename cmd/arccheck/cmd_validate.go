package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/loader"
	"github.com/evogel/arccheck/internal/report"
	"github.com/evogel/arccheck/internal/store"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the tiered criteria cascade over all measurement files",
		Long: `Evaluate every measurement CSV under the root through the four-tier
criteria cascade. Per-row verdict CSVs land in the output directory and
the run is recorded in the run database.

Example:
  arccheck validate --root ./char_results`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			inputs, err := discoverInputs(s)
			if err != nil {
				return err
			}

			ev, err := evaluateAll(s, inputs)
			if err != nil {
				return err
			}

			// Verdict CSVs, one per input file
			for _, fe := range ev.Files {
				outPath := filepath.Join(s.OutDir,
					fmt.Sprintf("%s_%s_tiers.csv", fe.Input.Type, fe.Input.Corner))
				if err := writeCSV(outPath, func(w *os.File) error {
					return loader.WriteTierCSV(w, fe.File, fe.Rows, fe.Results)
				}); err != nil {
					return err
				}
			}

			if err := persistRun(cmd.Context(), s, ev); err != nil {
				return err
			}

			sections := []report.Section{{Name: report.SectionTier, Reporter: ev.Summary.Tier}}
			if s.JSON {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"run_id":       ev.Summary.RunID,
					"rows":         ev.Summary.Rows,
					"skipped_rows": ev.Summary.SkippedRows,
					"errors":       ev.Summary.Errors,
					"pass_rates":   report.Cells(sections, ev.Corners, s.Config.TimingTypes()),
				})
			}

			if err := report.Render(os.Stdout, sections, ev.Corners, s.Config.TimingTypes()); err != nil {
				return err
			}
			printRunFooter(ev)
			return nil
		},
	}

	return cmd
}

// writeCSV creates path and hands the file to write. Errors from write win
// over errors from Close.
func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// persistRun records the run, its verdicts, and its pass-rate cells in the
// run database under the output directory.
func persistRun(ctx context.Context, s *setup, ev *evaluated) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := store.Open(s.OutDir)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveRun(ctx, ev.Summary, s.Root); err != nil {
		return err
	}
	for _, fe := range ev.Files {
		if err := db.SaveVerdicts(ctx, ev.Summary.RunID, fe.Input.Corner, fe.Input.Type, fe.Results); err != nil {
			return err
		}
	}

	sections := append([]report.Section{{Name: report.SectionTier, Reporter: ev.Summary.Tier}},
		ev.Summary.Sections()...)
	cells := report.Cells(sections, ev.Corners, s.Config.TimingTypes())
	return db.SavePassRates(ctx, ev.Summary.RunID, cells)
}

// printRunFooter prints the shared row/error tail of the text reports.
func printRunFooter(ev *evaluated) {
	fmt.Println()
	fmt.Printf("Run: %s\n", ev.Summary.RunID)
	fmt.Printf("Rows: %d evaluated, %d skipped\n", ev.Summary.Rows, ev.Summary.SkippedRows)
	if len(ev.Summary.Errors) > 0 {
		fmt.Printf("Issues (%d):\n", len(ev.Summary.Errors))
		for _, e := range ev.Summary.Errors {
			fmt.Printf("  - %s: %s (%s)\n", e.Location, e.Detail, e.Kind)
		}
	}
}
