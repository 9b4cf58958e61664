package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/loader"
	"github.com/evogel/arccheck/internal/report"
)

func newWaiversCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waivers",
		Short: "Run the unified base+waiver pipeline and print its report",
		Long: `Evaluate every measurement CSV through the unified waiver pipeline:
base pass (relative or absolute error), waiver 1 (enlarged confidence
interval), and waiver 2 (configured safe error direction).

The three-section pass-rate report covers the base rule, the base rule
with waiver 1, and the remaining optimistic fails after waiver 1.

Example:
  arccheck waivers --root ./char_results`,
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

			for _, fe := range ev.Files {
				outPath := filepath.Join(s.OutDir,
					fmt.Sprintf("%s_%s_waivers.csv", fe.Input.Type, fe.Input.Corner))
				if err := writeCSV(outPath, func(w *os.File) error {
					return loader.WriteWaiverCSV(w, fe.File, fe.Rows, fe.Results)
				}); err != nil {
					return err
				}
			}

			if err := persistRun(cmd.Context(), s, ev); err != nil {
				return err
			}

			sections := ev.Summary.Sections()
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
