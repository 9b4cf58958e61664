package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evogel/arccheck/internal/config"
	"github.com/evogel/arccheck/internal/loader"
	"github.com/evogel/arccheck/internal/logging"
	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/run"
)

// setup is the resolved environment shared by the analysis commands.
type setup struct {
	Root   string
	OutDir string
	Config *config.Config
	JSON   bool
}

// loadSetup resolves flags and configuration for a command invocation.
func loadSetup(cmd *cobra.Command) (*setup, error) {
	root, _ := cmd.Flags().GetString("root")
	out, _ := cmd.Flags().GetString("out")
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	outDir := cfg.OutputDir
	if out != "" {
		outDir = out
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}

	return &setup{Root: root, OutDir: outDir, Config: cfg, JSON: jsonOut}, nil
}

// inputFile is one discovered measurement CSV.
type inputFile struct {
	Path   string
	Corner string
	Type   models.TimingType
}

// discoverInputs finds measurement CSVs under the root. Files follow the
// <type>_<corner>.csv convention; when the config names corners only those
// are picked up, otherwise every matching file is.
func discoverInputs(s *setup) ([]inputFile, error) {
	var inputs []inputFile

	for _, t := range s.Config.TimingTypes() {
		if len(s.Config.Corners) > 0 {
			for _, corner := range s.Config.Corners {
				path := filepath.Join(s.Root, fmt.Sprintf("%s_%s.csv", t, corner))
				if _, err := os.Stat(path); err != nil {
					if os.IsNotExist(err) {
						continue
					}
					return nil, fmt.Errorf("stat %s: %w", path, err)
				}
				inputs = append(inputs, inputFile{Path: path, Corner: corner, Type: t})
			}
			continue
		}

		matches, err := filepath.Glob(filepath.Join(s.Root, string(t)+"_*.csv"))
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			base := strings.TrimSuffix(filepath.Base(path), ".csv")
			corner := strings.TrimPrefix(base, string(t)+"_")
			inputs = append(inputs, inputFile{Path: path, Corner: corner, Type: t})
		}
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no measurement CSVs found under %s (expected <type>_<corner>.csv)", s.Root)
	}

	sort.Slice(inputs, func(i, j int) bool {
		if inputs[i].Type != inputs[j].Type {
			return inputs[i].Type < inputs[j].Type
		}
		return inputs[i].Corner < inputs[j].Corner
	})
	return inputs, nil
}

// corners returns the distinct corners of the inputs in sorted order.
func corners(inputs []inputFile) []string {
	seen := make(map[string]bool)
	var out []string
	for _, in := range inputs {
		if !seen[in.Corner] {
			seen[in.Corner] = true
			out = append(out, in.Corner)
		}
	}
	sort.Strings(out)
	return out
}

// fileEval is the evaluated state of one input file.
type fileEval struct {
	Input   inputFile
	File    *loader.File
	Rows    []loader.ParsedRow
	Issues  []loader.Issue
	Results []run.RowResult
}

// evaluated is the outcome of running the full validation pipeline.
type evaluated struct {
	Summary *run.Summary
	Files   []fileEval
	Corners []string
}

// evaluateAll loads every input, runs it through a validation run, and
// finalizes. File-level load failures land in the run's error ledger and
// never abort the other files.
func evaluateAll(s *setup, inputs []inputFile) (*evaluated, error) {
	if err := os.MkdirAll(s.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logger := logging.NewLogger(s.Config.Logging.Level, os.Stderr)
	trace := logging.NewVerdictLogger(s.OutDir, s.Config.Logging.Level)
	defer trace.Close()

	registry, err := s.Config.BuildRegistry()
	if err != nil {
		return nil, err
	}

	vr, err := run.New(run.Config{
		Registry: registry,
		Policy:   s.Config.BuildWaiverPolicy(),
		Workers:  s.Config.Workers,
		Logger:   logger,
		Trace:    trace,
	})
	if err != nil {
		return nil, err
	}

	ev := &evaluated{Corners: corners(inputs)}
	for _, in := range inputs {
		f, err := loader.Load(in.Path, in.Corner, in.Type)
		if err != nil {
			logger.Warn("file rejected", "path", in.Path, "error", err)
			vr.RecordFileError(in.Corner, in.Type, err)
			continue
		}

		parsed, issues := f.ParseRows()
		for _, issue := range issues {
			logger.Warn("row skipped", "path", in.Path, "line", issue.Line, "error", issue.Err)
			vr.RecordRowError(in.Corner, in.Type, issue.Arc, issue.Err)
		}

		rows := make([]models.MeasurementRow, len(parsed))
		for i := range parsed {
			rows[i] = parsed[i].Row
		}

		results, err := vr.EvaluateFile(rows, in.Corner, in.Type)
		if err != nil {
			return nil, err
		}
		ev.Files = append(ev.Files, fileEval{
			Input: in, File: f, Rows: parsed, Issues: issues, Results: results,
		})
	}

	sum, err := vr.Finalize()
	if err != nil {
		return nil, err
	}
	ev.Summary = sum
	return ev, nil
}
