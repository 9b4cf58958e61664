// Package report reduces per-row verdicts into pass-rate tables grouped by
// corner, timing type, and parameter.
package report

import (
	"fmt"

	"github.com/evogel/arccheck/internal/models"
)

// GroupKey identifies one pass-rate cell.
type GroupKey struct {
	Corner    string            `json:"corner"`
	Type      models.TimingType `json:"type"`
	Parameter models.Parameter  `json:"parameter"`
}

// Counts accumulates verdict tallies for one group. Skipped rows (schema
// errors) are tracked separately and never fold into the fail count.
type Counts struct {
	Total   int `json:"total"`
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Skipped int `json:"skipped"`
}

// Reporter is a pure reduction over tagged verdicts. Merging two reporters
// is commutative and associative, so shards evaluated in parallel can be
// combined in any order.
type Reporter struct {
	groups map[GroupKey]*Counts
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{groups: make(map[GroupKey]*Counts)}
}

func (r *Reporter) counts(key GroupKey) *Counts {
	c, ok := r.groups[key]
	if !ok {
		c = &Counts{}
		r.groups[key] = c
	}
	return c
}

// Observe folds one verdict into the group.
func (r *Reporter) Observe(key GroupKey, pass bool) {
	c := r.counts(key)
	c.Total++
	if pass {
		c.Pass++
	} else {
		c.Fail++
	}
}

// ObserveSkip counts a row excluded by a schema error. Skips do not enter
// Total: a skipped row is neither a pass nor a fail.
func (r *Reporter) ObserveSkip(key GroupKey) {
	r.counts(key).Skipped++
}

// Merge folds other into r.
func (r *Reporter) Merge(other *Reporter) {
	for key, oc := range other.groups {
		c := r.counts(key)
		c.Total += oc.Total
		c.Pass += oc.Pass
		c.Fail += oc.Fail
		c.Skipped += oc.Skipped
	}
}

// Counts returns the tallies for a group, zero-valued when unseen.
func (r *Reporter) Counts(key GroupKey) Counts {
	if c, ok := r.groups[key]; ok {
		return *c
	}
	return Counts{}
}

// PassPct returns the pass percentage for a group. ok is false for empty
// groups, which render as "N/A" — never as 0% or 100%.
func (r *Reporter) PassPct(key GroupKey) (float64, bool) {
	c, exists := r.groups[key]
	if !exists || c.Total == 0 {
		return 0, false
	}
	return float64(c.Pass) / float64(c.Total) * 100.0, true
}

// FormatPct renders a pass percentage cell to one decimal place.
func (r *Reporter) FormatPct(key GroupKey) string {
	pct, ok := r.PassPct(key)
	if !ok {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", pct)
}

// Groups returns every group key seen by the reporter.
func (r *Reporter) Groups() []GroupKey {
	keys := make([]GroupKey, 0, len(r.groups))
	for k := range r.groups {
		keys = append(keys, k)
	}
	return keys
}
