package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/report"
	"github.com/evogel/arccheck/internal/run"
)

// DBFileName is the database file created under the output directory.
const DBFileName = "arccheck.db"

// RunStore persists validation runs in SQLite.
type RunStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open creates or opens the run database under outputDir.
func Open(outputDir string) (*RunStore, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	dbPath := filepath.Join(outputDir, DBFileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &RunStore{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Root        string    `json:"root"`
	Rows        int       `json:"rows"`
	SkippedRows int       `json:"skipped_rows"`
	ErrorCount  int       `json:"error_count"`
}

// SaveRun records a finalized run.
func (s *RunStore) SaveRun(ctx context.Context, sum *run.Summary, root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, root, rows_total, rows_skipped, error_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID,
		sum.StartedAt.UTC().Format(time.RFC3339Nano),
		sum.FinishedAt.UTC().Format(time.RFC3339Nano),
		root,
		sum.Rows,
		sum.SkippedRows,
		len(sum.Errors))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", sum.RunID, err)
	}
	return nil
}

// SaveVerdicts records the per-parameter verdicts of one (corner, type)
// file. All rows land in a single transaction.
func (s *RunStore) SaveVerdicts(ctx context.Context, runID, corner string,
	t models.TimingType, results []run.RowResult) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verdicts (run_id, arc, corner, timing_type, parameter,
		    skipped, abs_err, rel_err,
		    tier1, tier2, tier3, tier4, overall, reason,
		    base_pass, waiver1, waiver2, direction, final_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare verdict insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range results {
		for _, o := range row.Outcomes {
			var absErr, relErr any
			if !o.Skipped {
				absErr, relErr = o.Metric.AbsErr, o.Metric.RelErr
			}
			_, err := stmt.ExecContext(ctx,
				runID, row.Arc, corner, t.String(), o.Parameter.String(),
				boolInt(o.Skipped), absErr, relErr,
				boolInt(o.Tier.Tier1Pass), boolInt(o.Tier.Tier2Pass),
				boolInt(o.Tier.Tier3Pass), boolInt(o.Tier.Tier4Pass),
				boolInt(o.Tier.OverallPass), o.Tier.Reason,
				boolInt(o.Waiver.BasePass), boolInt(o.Waiver.Waiver1Pass),
				boolInt(o.Waiver.Waiver2Pass),
				string(o.Waiver.Direction), string(o.Waiver.Final))
			if err != nil {
				return fmt.Errorf("failed to insert verdict for arc %s: %w", row.Arc, err)
			}
		}
	}

	return tx.Commit()
}

// SavePassRates records the flattened pass-rate cells of a run.
func (s *RunStore) SavePassRates(ctx context.Context, runID string, cells []report.Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pass_rates (run_id, section, corner, timing_type, parameter,
		    total, pass, fail, skipped, pass_pct)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare pass-rate insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cells {
		var pct any
		if c.PassPct != nil {
			pct = *c.PassPct
		}
		_, err := stmt.ExecContext(ctx,
			runID, c.Section, c.Corner, c.Type.String(), c.Param.String(),
			c.Counts.Total, c.Counts.Pass, c.Counts.Fail, c.Counts.Skipped, pct)
		if err != nil {
			return fmt.Errorf("failed to insert pass rate %s/%s/%s/%s: %w",
				c.Section, c.Corner, c.Type, c.Param, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns all recorded runs, most recent first.
func (s *RunStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, root, rows_total, rows_skipped, error_count
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Root,
			&r.Rows, &r.SkippedRows, &r.ErrorCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at for run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PassRates returns a run's stored pass-rate cells in insertion order.
func (s *RunStore) PassRates(ctx context.Context, runID string) ([]report.Cell, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT section, corner, timing_type, parameter, total, pass, fail, skipped, pass_pct
		 FROM pass_rates WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pass rates: %w", err)
	}
	defer rows.Close()

	var out []report.Cell
	for rows.Next() {
		var c report.Cell
		var tt, p string
		var pct sql.NullFloat64
		if err := rows.Scan(&c.Section, &c.Corner, &tt, &p,
			&c.Counts.Total, &c.Counts.Pass, &c.Counts.Fail, &c.Counts.Skipped,
			&pct); err != nil {
			return nil, fmt.Errorf("failed to scan pass rate: %w", err)
		}
		c.Type = models.TimingType(tt)
		c.Param = models.Parameter(p)
		if pct.Valid {
			v := pct.Float64
			c.PassPct = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FailedVerdict identifies one stored non-passing (row, parameter) pair.
type FailedVerdict struct {
	Arc       string             `json:"arc"`
	Corner    string             `json:"corner"`
	Type      models.TimingType  `json:"type"`
	Parameter models.Parameter   `json:"parameter"`
	Reason    string             `json:"reason"`
	Status    models.FinalStatus `json:"final_status"`
}

// FailedVerdicts returns a run's verdicts with final status Fail, for
// triage. Skipped rows are excluded; they are schema misses, not fails.
func (s *RunStore) FailedVerdicts(ctx context.Context, runID string) ([]FailedVerdict, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT arc, corner, timing_type, parameter, reason, final_status
		 FROM verdicts
		 WHERE run_id = ? AND final_status = ? AND skipped = 0
		 ORDER BY corner, timing_type, arc, parameter`,
		runID, string(models.StatusFail))
	if err != nil {
		return nil, fmt.Errorf("failed to query failed verdicts: %w", err)
	}
	defer rows.Close()

	var out []FailedVerdict
	for rows.Next() {
		var f FailedVerdict
		var tt, p string
		var status string
		if err := rows.Scan(&f.Arc, &f.Corner, &tt, &p, &f.Reason, &status); err != nil {
			return nil, fmt.Errorf("failed to scan failed verdict: %w", err)
		}
		f.Type = models.TimingType(tt)
		f.Parameter = models.Parameter(p)
		f.Status = models.FinalStatus(status)
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
