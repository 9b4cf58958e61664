// Package schema maps logical row fields to the physical CSV columns each
// vendor writes. The vendor is detected once per file from the header and
// injected into all row-level parsing; nothing downstream re-detects it
// per row.
package schema

import (
	"fmt"
	"strings"

	"github.com/evogel/arccheck/internal/models"
)

// Vendor identifies the EDA tool whose characterization produced a file.
type Vendor string

const (
	VendorCDNS Vendor = "CDNS"
	VendorSNPS Vendor = "SNPS"
)

// Valid returns true if the vendor is a recognized value.
func (v Vendor) Valid() bool {
	return v == VendorCDNS || v == VendorSNPS
}

// String returns the string representation of the vendor.
func (v Vendor) String() string {
	return string(v)
}

// Shared column names, vendor-independent.
const (
	ColArc        = "Arc"
	ColMCNominal  = "MC_Nominal"
	ColRelPinSlew = "Rel_Pin_Slew"
	ColVoltage    = "VDD"
)

// paramStems maps logical parameters to the physical column stem shared by
// both vendors. The table is static: parameter identity is never inferred
// from substring checks on arbitrary columns.
var paramStems = map[models.Parameter]string{
	models.ParamEarlySigma: "Early_Sigma",
	models.ParamLateSigma:  "Late_Sigma",
	models.ParamMeanshift:  "Meanshift",
	models.ParamStd:        "Std",
	models.ParamSkew:       "Skew",
}

// Stem returns the physical column stem for a parameter.
func Stem(p models.Parameter) string {
	return paramStems[p]
}

// MCColumn returns the Monte-Carlo value column for a parameter.
func MCColumn(p models.Parameter) string {
	return "MC_" + paramStems[p]
}

// CIColumns returns the Monte-Carlo confidence bound columns (lb, ub).
func CIColumns(p models.Parameter) (string, string) {
	stem := paramStems[p]
	return "MC_" + stem + "_LB", "MC_" + stem + "_UB"
}

// PercentileColumns returns the 3-sigma percentile bound columns some
// producers export instead of sigma bounds. Only the sigma parameters
// have a percentile form.
func PercentileColumns(p models.Parameter) (lb, ub string, ok bool) {
	switch p {
	case models.ParamEarlySigma, models.ParamLateSigma:
		side := strings.TrimSuffix(paramStems[p], "_Sigma")
		return "MC_" + side + "_Percentile_LB", "MC_" + side + "_Percentile_UB", true
	}
	return "", "", false
}

// LibColumn returns the vendor library value column for a parameter.
func (v Vendor) LibColumn(p models.Parameter) string {
	return string(v) + "_Lib_" + paramStems[p]
}

// LibNominalColumn returns the vendor library nominal column.
func (v Vendor) LibNominalColumn() string {
	return string(v) + "_Lib_Nominal"
}

// ErrColumns returns the optional pre-computed error columns (abs, rel).
func ErrColumns(p models.Parameter) (string, string) {
	stem := paramStems[p]
	return "Abs_Err_" + stem, "Rel_Err_" + stem
}

// DetectVendor scans a header once and returns the vendor whose prefix
// appears in the column names. Matching is a case-insensitive substring
// scan, applied uniformly to the whole file afterwards. An ambiguous or
// prefix-free header is a schema error.
func DetectVendor(header []string) (Vendor, error) {
	var cdns, snps bool
	for _, col := range header {
		lc := strings.ToLower(col)
		if strings.Contains(lc, "cdns") {
			cdns = true
		}
		if strings.Contains(lc, "snps") {
			snps = true
		}
	}
	switch {
	case cdns && snps:
		return "", fmt.Errorf("header matches both CDNS and SNPS prefixes")
	case cdns:
		return VendorCDNS, nil
	case snps:
		return VendorSNPS, nil
	}
	return "", fmt.Errorf("no vendor prefix found in header")
}

// RequiredColumns lists the columns a file of the given timing type must
// carry for the vendor. CI bound and pre-computed error columns are
// optional; their absence disables the tiers that need them rather than
// invalidating the file.
func RequiredColumns(v Vendor, t models.TimingType) []string {
	cols := []string{ColArc, ColMCNominal, v.LibNominalColumn(), ColRelPinSlew}
	for _, p := range models.ParametersFor(t) {
		cols = append(cols, MCColumn(p), v.LibColumn(p))
	}
	return cols
}

// Validate checks a header against the required column set for (v, t) and
// fails fast on the first schema mismatch.
func Validate(header []string, v Vendor, t models.TimingType) error {
	have := make(map[string]bool, len(header))
	for _, col := range header {
		have[col] = true
	}
	for _, col := range RequiredColumns(v, t) {
		if !have[col] {
			return &models.MissingColumnError{Column: col}
		}
	}
	return nil
}
