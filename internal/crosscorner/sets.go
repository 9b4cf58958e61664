// Package crosscorner collects per-(parameter, corner) sets of passing
// arcs and computes the intersections behind "validated everywhere" and
// parameter-overlap analyses.
package crosscorner

import (
	"sort"

	"github.com/evogel/arccheck/internal/models"
)

// ArcSet is a set of arc identifiers.
type ArcSet map[string]struct{}

// NewArcSet builds a set from arc identifiers.
func NewArcSet(arcs ...string) ArcSet {
	s := make(ArcSet, len(arcs))
	for _, a := range arcs {
		s[a] = struct{}{}
	}
	return s
}

// Intersect returns the arcs present in both sets.
func (s ArcSet) Intersect(other ArcSet) ArcSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(ArcSet)
	for a := range small {
		if _, ok := large[a]; ok {
			out[a] = struct{}{}
		}
	}
	return out
}

// Diff returns the arcs in s that are not in other.
func (s ArcSet) Diff(other ArcSet) ArcSet {
	out := make(ArcSet)
	for a := range s {
		if _, ok := other[a]; !ok {
			out[a] = struct{}{}
		}
	}
	return out
}

// Sorted returns the arcs in lexical order, for stable output.
func (s ArcSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

type setKey struct {
	param  models.Parameter
	corner string
}

// Aggregator accumulates passing arcs per (parameter, corner). It is
// built once per report run by folding rows, merged shard-wise, and read
// only afterwards.
type Aggregator struct {
	sets     map[setKey]ArcSet
	observed map[string]struct{}
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		sets:     make(map[setKey]ArcSet),
		observed: make(map[string]struct{}),
	}
}

// MarkObserved records that data for a corner was processed, so a corner
// with zero passes is reported as empty rather than missing.
func (g *Aggregator) MarkObserved(corner string) {
	g.observed[corner] = struct{}{}
}

// AddPass records a validated arc for (param, corner) and marks the
// corner observed.
func (g *Aggregator) AddPass(param models.Parameter, corner, arc string) {
	g.MarkObserved(corner)
	k := setKey{param, corner}
	if g.sets[k] == nil {
		g.sets[k] = make(ArcSet)
	}
	g.sets[k][arc] = struct{}{}
}

// Merge folds other into g. The operation is commutative and associative,
// so shards evaluated in parallel can be combined in any order.
func (g *Aggregator) Merge(other *Aggregator) {
	for corner := range other.observed {
		g.observed[corner] = struct{}{}
	}
	for k, set := range other.sets {
		if g.sets[k] == nil {
			g.sets[k] = make(ArcSet, len(set))
		}
		for a := range set {
			g.sets[k][a] = struct{}{}
		}
	}
}

// Set returns the passing arcs for (param, corner). The second return is
// false when the corner was never observed (data missing) as opposed to
// observed with zero passes.
func (g *Aggregator) Set(param models.Parameter, corner string) (ArcSet, bool) {
	if _, ok := g.observed[corner]; !ok {
		return nil, false
	}
	set := g.sets[setKey{param, corner}]
	if set == nil {
		set = make(ArcSet)
	}
	return set, true
}

// Corners returns the observed corners in lexical order.
func (g *Aggregator) Corners() []string {
	out := make([]string, 0, len(g.observed))
	for c := range g.observed {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Intersection is the result of an all-corners intersection for one
// parameter.
type Intersection struct {
	// Arcs validated at every requested corner. A corner observed with
	// zero passes legitimately collapses this to empty.
	Arcs ArcSet

	// Missing lists requested corners with no processed data at all,
	// reported distinctly from an empty pass set.
	Missing []string
}

// IntersectAllCorners intersects param's pass sets across the requested
// corners. The intersection is commutative and associative under corner
// permutation; intersecting with an unobserved corner does not silently
// empty the result — the corner is reported in Missing instead.
func (g *Aggregator) IntersectAllCorners(param models.Parameter, corners []string) Intersection {
	out := Intersection{}
	var acc ArcSet
	for _, corner := range corners {
		set, ok := g.Set(param, corner)
		if !ok {
			out.Missing = append(out.Missing, corner)
			continue
		}
		if acc == nil {
			acc = set
		} else {
			acc = acc.Intersect(set)
		}
	}
	if acc == nil {
		acc = make(ArcSet)
	}
	out.Arcs = acc
	return out
}

// Overlap categorizes arcs passing parameter a versus parameter b at one
// corner: both, a-only, b-only.
type Overlap struct {
	Both  ArcSet
	AOnly ArcSet
	BOnly ArcSet
}

// OverlapAt computes the overlap of two parameters' pass sets at a corner.
func (g *Aggregator) OverlapAt(a, b models.Parameter, corner string) (Overlap, bool) {
	setA, okA := g.Set(a, corner)
	setB, okB := g.Set(b, corner)
	if !okA || !okB {
		return Overlap{}, false
	}
	return Overlap{
		Both:  setA.Intersect(setB),
		AOnly: setA.Diff(setB),
		BOnly: setB.Diff(setA),
	}, true
}
