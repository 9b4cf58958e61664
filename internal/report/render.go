package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/evogel/arccheck/internal/models"
)

// Canonical section names of the waiver-pipeline report, plus the tiered
// cascade's own pass-rate section.
const (
	SectionTier              = "Tier_PR"
	SectionBase              = "Base_PR"
	SectionWithWaiver1       = "PR_with_Waiver1"
	SectionOptimisticWaiver1 = "PR_Optimistic_After_Waiver1"
)

// Section pairs a report section title with the reporter that carries its
// tallies.
type Section struct {
	Name     string
	Reporter *Reporter
}

// Render writes the sectioned pass-rate tables: one block per section, one
// sub-table per timing type, rows are corners, columns are the parameters
// characterized for that type. Percentages carry one decimal place; empty
// groups render as N/A.
func Render(w io.Writer, sections []Section, corners []string, types []models.TimingType) error {
	for si, sec := range sections {
		if si > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "=== %s ===\n", sec.Name)

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
					key := GroupKey{Corner: corner, Type: t, Parameter: p}
					fmt.Fprintf(tw, "\t%s", sec.Reporter.FormatPct(key))
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

// Cell is one entry of the JSON rendering of a report.
type Cell struct {
	Section string            `json:"section"`
	Corner  string            `json:"corner"`
	Type    models.TimingType `json:"type"`
	Param   models.Parameter  `json:"parameter"`
	PassPct *float64          `json:"pass_pct"` // nil renders as null for N/A groups
	Counts  Counts            `json:"counts"`
}

// Cells flattens the sections into JSON-friendly rows, preserving the
// corner/type/parameter ordering of the text rendering.
func Cells(sections []Section, corners []string, types []models.TimingType) []Cell {
	var out []Cell
	for _, sec := range sections {
		for _, t := range types {
			for _, corner := range corners {
				for _, p := range models.ParametersFor(t) {
					key := GroupKey{Corner: corner, Type: t, Parameter: p}
					cell := Cell{
						Section: sec.Name,
						Corner:  corner,
						Type:    t,
						Param:   p,
						Counts:  sec.Reporter.Counts(key),
					}
					if pct, ok := sec.Reporter.PassPct(key); ok {
						cell.PassPct = &pct
					}
					out = append(out, cell)
				}
			}
		}
	}
	return out
}
