package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/models"
)

func newCrossCornerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crosscorner",
		Short: "Compare passing arc sets across corners",
		Long: `Intersect the passing arc sets of every observed corner per parameter.
A corner that was processed but passed nothing legitimately empties the
intersection; a corner with no data at all is reported as missing
instead.

With --overlap, additionally compare two parameters' pass sets at each
corner (both / first-only / second-only).

Example:
  arccheck crosscorner
  arccheck crosscorner --overlap early_sigma,late_sigma`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSetup(cmd)
			if err != nil {
				return err
			}
			overlapFlag, _ := cmd.Flags().GetStringSlice("overlap")
			if len(overlapFlag) != 0 && len(overlapFlag) != 2 {
				return fmt.Errorf("--overlap takes exactly two parameters, got %d", len(overlapFlag))
			}

			inputs, err := discoverInputs(s)
			if err != nil {
				return err
			}
			ev, err := evaluateAll(s, inputs)
			if err != nil {
				return err
			}

			cross := ev.Summary.Cross
			observedCorners := cross.Corners()

			type intersectionOut struct {
				Parameter models.Parameter `json:"parameter"`
				Arcs      []string         `json:"arcs"`
				Missing   []string         `json:"missing_corners,omitempty"`
			}
			var intersections []intersectionOut
			for _, p := range models.AllParameters() {
				res := cross.IntersectAllCorners(p, observedCorners)
				intersections = append(intersections, intersectionOut{
					Parameter: p,
					Arcs:      res.Arcs.Sorted(),
					Missing:   res.Missing,
				})
			}

			type overlapOut struct {
				Corner string   `json:"corner"`
				Both   []string `json:"both"`
				AOnly  []string `json:"first_only"`
				BOnly  []string `json:"second_only"`
			}
			var overlaps []overlapOut
			if len(overlapFlag) == 2 {
				a := models.Parameter(overlapFlag[0])
				b := models.Parameter(overlapFlag[1])
				if !a.Valid() || !b.Valid() {
					return fmt.Errorf("invalid overlap parameters: %v", overlapFlag)
				}
				for _, corner := range observedCorners {
					ov, ok := cross.OverlapAt(a, b, corner)
					if !ok {
						continue
					}
					overlaps = append(overlaps, overlapOut{
						Corner: corner,
						Both:   ov.Both.Sorted(),
						AOnly:  ov.AOnly.Sorted(),
						BOnly:  ov.BOnly.Sorted(),
					})
				}
			}

			if s.JSON {
				out := map[string]any{
					"run_id":        ev.Summary.RunID,
					"corners":       observedCorners,
					"intersections": intersections,
				}
				if overlaps != nil {
					out["overlaps"] = overlaps
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			fmt.Printf("Corners observed (%d): %v\n\n", len(observedCorners), observedCorners)
			fmt.Println("Arcs passing at every corner:")
			for _, ix := range intersections {
				fmt.Printf("  %s: %d arcs", ix.Parameter, len(ix.Arcs))
				if len(ix.Missing) > 0 {
					fmt.Printf(" (missing corners: %v)", ix.Missing)
				}
				fmt.Println()
				for _, arc := range ix.Arcs {
					fmt.Printf("    %s\n", arc)
				}
			}

			if overlaps != nil {
				fmt.Printf("\nOverlap of %s vs %s:\n", overlapFlag[0], overlapFlag[1])
				for _, ov := range overlaps {
					fmt.Printf("  %s: both=%d, %s-only=%d, %s-only=%d\n",
						ov.Corner, len(ov.Both), overlapFlag[0], len(ov.AOnly),
						overlapFlag[1], len(ov.BOnly))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSlice("overlap", nil, "Two parameters to overlap per corner (e.g. early_sigma,late_sigma)")

	return cmd
}
