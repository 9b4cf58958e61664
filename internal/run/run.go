// Package run owns the lifecycle of one validation run: rows are evaluated
// statelessly (in parallel shards), folded into an explicit accumulator,
// and finalized exactly once. No state survives between runs.
package run

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evogel/arccheck/internal/criteria"
	"github.com/evogel/arccheck/internal/crosscorner"
	"github.com/evogel/arccheck/internal/errmetric"
	"github.com/evogel/arccheck/internal/logging"
	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/report"
	"github.com/evogel/arccheck/internal/tiering"
)

// ErrorRecord is one (location, kind) entry of the run's error ledger.
// Per-row errors never abort a file and per-file errors never abort a
// corner; they land here for user-visible reporting instead.
type ErrorRecord struct {
	Location string           `json:"location"`
	Kind     models.ErrorKind `json:"kind"`
	Detail   string           `json:"detail"`
}

// ParamOutcome is the evaluation of one parameter on one row.
type ParamOutcome struct {
	Parameter models.Parameter
	// Skipped marks a schema miss (required column absent); skipped
	// outcomes carry no verdicts and are counted apart from fails.
	Skipped bool
	Metric  errmetric.Result
	Tier    models.TierVerdict
	Waiver  models.WaiverVerdict
}

// RowResult is the full per-parameter evaluation of one row, in the order
// of models.ParametersFor.
type RowResult struct {
	Arc      string
	Outcomes []ParamOutcome
}

// Accumulator folds verdicts into reporters and cross-corner sets. Merge
// is commutative and associative so shards can combine in any order.
type Accumulator struct {
	// Tier carries the cascade semantics (CI containment counts toward
	// the overall pass).
	Tier *report.Reporter

	// Base, Waiver1, and Optimistic carry the unified waiver semantics:
	// base pass, base-or-waiver1, and base-or-waiver1-or-pessimistic.
	Base       *report.Reporter
	Waiver1    *report.Reporter
	Optimistic *report.Reporter

	Cross *crosscorner.Aggregator

	Errors      []ErrorRecord
	Rows        int
	SkippedRows int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		Tier:       report.NewReporter(),
		Base:       report.NewReporter(),
		Waiver1:    report.NewReporter(),
		Optimistic: report.NewReporter(),
		Cross:      crosscorner.NewAggregator(),
	}
}

// Merge folds other into a.
func (a *Accumulator) Merge(other *Accumulator) {
	a.Tier.Merge(other.Tier)
	a.Base.Merge(other.Base)
	a.Waiver1.Merge(other.Waiver1)
	a.Optimistic.Merge(other.Optimistic)
	a.Cross.Merge(other.Cross)
	a.Errors = append(a.Errors, other.Errors...)
	a.Rows += other.Rows
	a.SkippedRows += other.SkippedRows
}

// Config wires a validation run.
type Config struct {
	// Registry supplies the criteria table. Required.
	Registry *criteria.Registry

	// Policy supplies waiver-2 safe directions. Nil disables waiver 2.
	Policy *tiering.WaiverPolicy

	// Workers caps the evaluation fan-out. Defaults to runtime.NumCPU().
	Workers int

	// Logger receives operational output. Nil means silent.
	Logger *slog.Logger

	// Trace receives per-row verdict events. Nil-safe.
	Trace *logging.VerdictLogger
}

// ValidationRun accumulates one run's verdicts. Create with New, feed it
// files with EvaluateFile, then call Finalize exactly once. The zero value
// is not usable.
type ValidationRun struct {
	ID        string
	StartedAt time.Time

	registry *criteria.Registry
	policy   *tiering.WaiverPolicy
	workers  int
	log      *slog.Logger
	trace    *logging.VerdictLogger

	mu        sync.Mutex
	acc       *Accumulator
	finalized bool
}

// New creates a validation run.
func New(cfg Config) (*ValidationRun, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("run: criteria registry is required")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ValidationRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		registry:  cfg.Registry,
		policy:    cfg.Policy,
		workers:   workers,
		log:       log,
		trace:     cfg.Trace,
		acc:       NewAccumulator(),
	}, nil
}

// EvaluateFile evaluates all rows of one (corner, type) file and folds the
// verdicts into the run. Rows are sharded across workers; each shard folds
// into a private accumulator merged at the end, so evaluation order never
// affects the result.
func (r *ValidationRun) EvaluateFile(rows []models.MeasurementRow, corner string, t models.TimingType) ([]RowResult, error) {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return nil, fmt.Errorf("run %s: already finalized", r.ID)
	}
	r.mu.Unlock()

	local := NewAccumulator()
	local.Cross.MarkObserved(corner)

	if len(rows) == 0 {
		local.Errors = append(local.Errors, ErrorRecord{
			Location: fmt.Sprintf("%s/%s", corner, t),
			Kind:     models.KindEmptyInput,
			Detail:   "no rows",
		})
		r.merge(local)
		return nil, nil
	}

	results := make([]RowResult, len(rows))

	workers := r.workers
	if workers > len(rows) {
		workers = len(rows)
	}
	chunk := (len(rows) + workers - 1) / workers

	var wg sync.WaitGroup
	shards := make([]*Accumulator, workers)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(rows) {
			hi = len(rows)
		}
		shards[w] = NewAccumulator()
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(acc *Accumulator, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				results[i] = r.evaluateRow(acc, &rows[i], corner, t)
			}
		}(shards[w], lo, hi)
	}
	wg.Wait()

	for _, s := range shards {
		local.Merge(s)
	}
	r.merge(local)

	r.log.Debug("file evaluated", "corner", corner, "type", t.String(),
		"rows", len(rows), "errors", len(local.Errors))
	return results, nil
}

func (r *ValidationRun) merge(local *Accumulator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acc.Merge(local)
}

// RecordFileError adds a file-level failure (unreadable file, schema
// mismatch) to the run's error ledger without aborting the run.
func (r *ValidationRun) RecordFileError(corner string, t models.TimingType, err error) {
	r.recordError(fmt.Sprintf("%s/%s", corner, t), err)
}

// RecordRowError adds a row-level parse failure to the run's error ledger.
func (r *ValidationRun) RecordRowError(corner string, t models.TimingType, arc string, err error) {
	r.recordError(fmt.Sprintf("%s/%s/%s", corner, t, arc), err)
}

func (r *ValidationRun) recordError(location string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acc.Errors = append(r.acc.Errors, ErrorRecord{
		Location: location,
		Kind:     models.KindOf(err),
		Detail:   err.Error(),
	})
}

// evaluateRow runs every parameter of one row through the cascade and the
// waiver rules, folding verdicts into acc.
func (r *ValidationRun) evaluateRow(acc *Accumulator, row *models.MeasurementRow, corner string, t models.TimingType) RowResult {
	acc.Rows++
	result := RowResult{Arc: row.Arc}

	if row.RelPinSlew == nil {
		acc.SkippedRows++
		acc.Errors = append(acc.Errors, ErrorRecord{
			Location: fmt.Sprintf("%s/%s/%s", corner, t, row.Arc),
			Kind:     models.KindMissingColumn,
			Detail:   "rel pin slew absent",
		})
		return result
	}
	relPinSlew := *row.RelPinSlew

	for _, p := range models.ParametersFor(t) {
		key := report.GroupKey{Corner: corner, Type: t, Parameter: p}
		outcome := ParamOutcome{Parameter: p}

		spec, err := r.registry.Lookup(t, p)
		if err != nil {
			// Registry is total over ParametersFor; reaching this means
			// the criteria table was misconfigured.
			acc.Errors = append(acc.Errors, ErrorRecord{
				Location: fmt.Sprintf("%s/%s/%s", corner, t, row.Arc),
				Kind:     models.KindMissingColumn,
				Detail:   err.Error(),
			})
			continue
		}

		res, err := errmetric.Compute(row, p)
		switch {
		case err == nil:
			outcome.Metric = res
			outcome.Tier = tiering.Evaluate(res, spec, relPinSlew)
			outcome.Waiver = tiering.EvaluateWaivers(res, spec, relPinSlew, t, p, r.policy)

		case models.KindOf(err) == models.KindDenominatorDegenerate:
			// Compute checks MC and Lib before the denominator, so both
			// are present here.
			pv, _ := row.Param(p)
			outcome.Tier = tiering.Degenerate()
			outcome.Waiver = tiering.DegenerateWaiver(*pv.Lib, *pv.MC)
			acc.Errors = append(acc.Errors, ErrorRecord{
				Location: fmt.Sprintf("%s/%s/%s/%s", corner, t, row.Arc, p),
				Kind:     models.KindDenominatorDegenerate,
				Detail:   err.Error(),
			})

		default:
			// Schema miss: skipped, counted apart from fails.
			outcome.Skipped = true
			acc.Tier.ObserveSkip(key)
			acc.Base.ObserveSkip(key)
			acc.Waiver1.ObserveSkip(key)
			acc.Optimistic.ObserveSkip(key)
			acc.Errors = append(acc.Errors, ErrorRecord{
				Location: fmt.Sprintf("%s/%s/%s/%s", corner, t, row.Arc, p),
				Kind:     models.KindOf(err),
				Detail:   err.Error(),
			})
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		acc.Tier.Observe(key, outcome.Tier.OverallPass)
		acc.Base.Observe(key, outcome.Waiver.BasePass)
		acc.Waiver1.Observe(key, outcome.Waiver.BasePass || outcome.Waiver.Waiver1Pass)
		acc.Optimistic.Observe(key, outcome.Waiver.BasePass || outcome.Waiver.Waiver1Pass ||
			outcome.Waiver.Direction == models.DirectionPessimistic)

		if outcome.Tier.OverallPass {
			acc.Cross.AddPass(p, corner, row.Arc)
		}

		r.trace.LogRow(row.Arc, corner, t.String(), p.String(), outcome.Tier.Reason, outcome.Tier.OverallPass)
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result
}

// Summary is the finalized state of a run.
type Summary struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Rows        int
	SkippedRows int
	Errors      []ErrorRecord

	Tier       *report.Reporter
	Base       *report.Reporter
	Waiver1    *report.Reporter
	Optimistic *report.Reporter
	Cross      *crosscorner.Aggregator
}

// Sections returns the canonical three-section waiver report.
func (s *Summary) Sections() []report.Section {
	return []report.Section{
		{Name: report.SectionBase, Reporter: s.Base},
		{Name: report.SectionWithWaiver1, Reporter: s.Waiver1},
		{Name: report.SectionOptimisticWaiver1, Reporter: s.Optimistic},
	}
}

// Finalize seals the run and hands its accumulated state to the caller.
// Further EvaluateFile or Finalize calls fail.
func (r *ValidationRun) Finalize() (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return nil, fmt.Errorf("run %s: already finalized", r.ID)
	}
	r.finalized = true

	return &Summary{
		RunID:       r.ID,
		StartedAt:   r.StartedAt,
		FinishedAt:  time.Now().UTC(),
		Rows:        r.acc.Rows,
		SkippedRows: r.acc.SkippedRows,
		Errors:      r.acc.Errors,
		Tier:        r.acc.Tier,
		Base:        r.acc.Base,
		Waiver1:     r.acc.Waiver1,
		Optimistic:  r.acc.Optimistic,
		Cross:       r.acc.Cross,
	}, nil
}
