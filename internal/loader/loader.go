// Package loader reads measurement CSV files into rows and writes them
// back out with verdict columns appended. The vendor schema is resolved
// once per file and injected into all row parsing.
package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/schema"
)

// File is one loaded measurement CSV.
type File struct {
	Path   string
	Corner string
	Type   models.TimingType
	Vendor schema.Vendor

	Header  []string
	Records [][]string

	colIdx map[string]int
}

// Issue is a per-row parse problem. Rows with issues are skipped and
// counted apart from fails; they never abort the file.
type Issue struct {
	Line int
	Arc  string
	Err  error
}

// ParsedRow pairs a parsed measurement row with its original record so
// verdict columns can be appended without disturbing the input columns.
type ParsedRow struct {
	Line   int
	Record []string
	Row    models.MeasurementRow
}

// Load reads the file, detects its vendor from the header, and validates
// the header against the schema for (vendor, t). A schema mismatch fails
// the whole file fast; nothing row-level has happened yet.
func Load(path, corner string, t models.TimingType) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	vendor, err := schema.DetectVendor(header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := schema.Validate(header, vendor, t); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}

	return &File{
		Path:    path,
		Corner:  corner,
		Type:    t,
		Vendor:  vendor,
		Header:  header,
		Records: records,
		colIdx:  colIdx,
	}, nil
}

// cell returns the trimmed value of col for record, or "" when the column
// does not exist in this file.
func (f *File) cell(record []string, col string) string {
	i, ok := f.colIdx[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// optFloat parses an optional cell: blank means absent, never zero.
func (f *File) optFloat(record []string, col string) (*float64, error) {
	s := f.cell(record, col)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", col, err)
	}
	return &v, nil
}

// reqFloat parses a required cell; a blank is a schema miss for the row.
func (f *File) reqFloat(record []string, arc, col string) (*float64, error) {
	v, err := f.optFloat(record, col)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &models.MissingColumnError{Arc: arc, Column: col}
	}
	return v, nil
}

// ParseRows converts records into measurement rows. Rows that cannot be
// parsed come back as issues; the good rows are returned in file order.
func (f *File) ParseRows() ([]ParsedRow, []Issue) {
	rows := make([]ParsedRow, 0, len(f.Records))
	var issues []Issue

	for i, record := range f.Records {
		line := i + 2 // header is line 1
		row, err := f.parseRow(record)
		if err != nil {
			issues = append(issues, Issue{Line: line, Arc: row.Arc, Err: err})
			continue
		}
		rows = append(rows, ParsedRow{Line: line, Record: record, Row: row})
	}
	return rows, issues
}

func (f *File) parseRow(record []string) (models.MeasurementRow, error) {
	row := models.MeasurementRow{
		Corner: f.Corner,
		Type:   f.Type,
		Params: make(map[models.Parameter]models.ParamValues),
	}

	row.Arc = f.cell(record, schema.ColArc)
	if row.Arc == "" {
		return row, &models.MissingColumnError{Column: schema.ColArc}
	}

	var err error
	if row.MCNominal, err = f.reqFloat(record, row.Arc, schema.ColMCNominal); err != nil {
		return row, err
	}
	if row.LibNominal, err = f.reqFloat(record, row.Arc, f.Vendor.LibNominalColumn()); err != nil {
		return row, err
	}
	if row.RelPinSlew, err = f.reqFloat(record, row.Arc, schema.ColRelPinSlew); err != nil {
		return row, err
	}
	if row.Voltage, err = f.optFloat(record, schema.ColVoltage); err != nil {
		return row, err
	}

	for _, p := range models.ParametersFor(f.Type) {
		var pv models.ParamValues
		if pv.MC, err = f.optFloat(record, schema.MCColumn(p)); err != nil {
			return row, err
		}
		lb, ub := schema.CIColumns(p)
		if pv.MCLB, err = f.optFloat(record, lb); err != nil {
			return row, err
		}
		if pv.MCUB, err = f.optFloat(record, ub); err != nil {
			return row, err
		}
		if pv.MCLB == nil && pv.MCUB == nil {
			if err = f.percentileBounds(record, p, row.MCNominal, &pv); err != nil {
				return row, err
			}
		}
		if pv.Lib, err = f.optFloat(record, f.Vendor.LibColumn(p)); err != nil {
			return row, err
		}
		absCol, relCol := schema.ErrColumns(p)
		if pv.AbsErr, err = f.optFloat(record, absCol); err != nil {
			return row, err
		}
		if pv.RelErr, err = f.optFloat(record, relCol); err != nil {
			return row, err
		}
		row.Params[p] = pv
	}
	return row, nil
}

// percentileBounds reconstructs sigma CI bounds from 3-sigma percentile
// columns when the sigma bound columns are absent. The early-side
// conversion inverts the bound order; the min/max correction in the tier
// evaluator handles that downstream.
func (f *File) percentileBounds(record []string, p models.Parameter, nominal *float64, pv *models.ParamValues) error {
	lbCol, ubCol, ok := schema.PercentileColumns(p)
	if !ok || nominal == nil {
		return nil
	}
	plb, err := f.optFloat(record, lbCol)
	if err != nil {
		return err
	}
	pub, err := f.optFloat(record, ubCol)
	if err != nil {
		return err
	}
	if plb == nil || pub == nil {
		return nil
	}

	fromPctl := models.SigmaFromLatePercentile
	if p == models.ParamEarlySigma {
		fromPctl = models.SigmaFromEarlyPercentile
	}
	lb := fromPctl(*nominal, *plb)
	ub := fromPctl(*nominal, *pub)
	pv.MCLB, pv.MCUB = &lb, &ub
	return nil
}
