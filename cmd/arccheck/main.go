package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "arccheck",
		Short: "Arccheck - statistical timing library certification",
		Long: `arccheck validates vendor-characterized standard-cell timing libraries
against golden Monte-Carlo statistics.

It evaluates each timing arc through a tiered criteria cascade and a
unified waiver pipeline, reports pass rates per corner and parameter,
fits voltage sensitivity for margin projection, and compares passing
arc sets across corners.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for tooling consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Directory holding the measurement CSVs and arccheck.yaml")
	rootCmd.PersistentFlags().String("out", "", "Output directory (overrides config output_dir)")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newValidateCmd(),
		newWaiversCmd(),
		newSensitivityCmd(),
		newMarginCmd(),
		newCrossCornerCmd(),
		newReportCmd(),
		newRunsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("arccheck version %s\n", version)
			}
		},
	}
}
