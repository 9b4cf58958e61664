package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs or inspect one run's failures",
		Long: `Without arguments, list the runs recorded in the run database under
the output directory. With a run ID, list that run's failing verdicts.

Example:
  arccheck runs
  arccheck runs 2f47c1e0-... --json`,
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

			if len(args) == 1 {
				return showRunFails(ctx, db, args[0], s.JSON)
			}
			return listRuns(ctx, db, s.JSON)
		},
	}

	return cmd
}

func listRuns(ctx context.Context, db *store.RunStore, jsonOut bool) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"runs":  runs,
			"count": len(runs),
		})
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet. Run 'arccheck validate' or 'arccheck waivers' first.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tStarted\tRows\tSkipped\tIssues")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Rows, r.SkippedRows, r.ErrorCount)
	}
	return tw.Flush()
}

func showRunFails(ctx context.Context, db *store.RunStore, runID string, jsonOut bool) error {
	fails, err := db.FailedVerdicts(ctx, runID)
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"run_id": runID,
			"fails":  fails,
			"count":  len(fails),
		})
	}

	if len(fails) == 0 {
		fmt.Printf("Run %s has no failing verdicts.\n", runID)
		return nil
	}

	fmt.Printf("Failing verdicts for run %s (%d):\n\n", runID, len(fails))
	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Corner\tType\tArc\tParameter\tReason")
	for _, f := range fails {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Corner, f.Type, f.Arc, f.Parameter, f.Reason)
	}
	return tw.Flush()
}
