package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/nocap/pkg/kernel"
)

// groupTol is the spacing below which GroupBy treats positions as equal.
const groupTol = 1e-6

// Inclusive marks whether the low and high bounds of a positional filter
// are part of the range.
type Inclusive [2]bool

var (
	Closed = Inclusive{true, true}
	Open   = Inclusive{false, false}
)

// Selection is a read-only view of model features, valid only for the model
// generation it was taken at. Filtering never fails; the terminal methods
// At, One and All report stale or ill-sized selections.
type Selection[T Feature] struct {
	model *Model
	gen   uint64
	items []T
	query string
}

func (s Selection[T]) derive(items []T, step string) Selection[T] {
	return Selection[T]{model: s.model, gen: s.gen, items: items, query: s.query + "." + step}
}

// Len returns the number of features in the selection.
func (s Selection[T]) Len() int { return len(s.items) }

// Query describes how the selection was built.
func (s Selection[T]) Query() string { return s.query }

// Filter keeps the features for which keep returns true.
func (s Selection[T]) Filter(name string, keep func(T) bool) Selection[T] {
	var out []T
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return s.derive(out, name)
}

// FilterByPosition keeps features whose position along axis lies within
// [lo, hi], with each bound included or excluded per incl.
func (s Selection[T]) FilterByPosition(axis Axis, lo, hi float64, incl Inclusive) Selection[T] {
	const tol = 1e-9
	step := fmt.Sprintf("filter(%s in %s%.4f, %.4f%s)", axis, bracket(incl[0], "[", "("), lo, hi, bracket(incl[1], "]", ")"))
	return s.Filter(step, func(it T) bool {
		v := axis.Of(it.Position())
		if incl[0] && v < lo-tol || !incl[0] && v <= lo+tol {
			return false
		}
		if incl[1] && v > hi+tol || !incl[1] && v >= hi-tol {
			return false
		}
		return true
	})
}

func bracket(in bool, closed, open string) string {
	if in {
		return closed
	}
	return open
}

// SortBy orders features by position along axis, ascending. Ties keep
// creation order.
func (s Selection[T]) SortBy(axis Axis) Selection[T] {
	out := append([]T(nil), s.items...)
	sort.SliceStable(out, func(i, j int) bool {
		return axis.Of(out[i].Position()) < axis.Of(out[j].Position())
	})
	return s.derive(out, "sort("+axis.String()+")")
}

// GroupBy splits the selection into groups sharing a position along axis,
// ordered ascending.
func (s Selection[T]) GroupBy(axis Axis) []Selection[T] {
	sorted := s.SortBy(axis)
	var groups []Selection[T]
	var cur []T
	var at float64
	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, s.derive(cur, fmt.Sprintf("group(%s=%.4f)", axis, at)))
		}
	}
	for _, it := range sorted.items {
		v := axis.Of(it.Position())
		if len(cur) > 0 && math.Abs(v-at) > groupTol {
			flush()
			cur = nil
		}
		if len(cur) == 0 {
			at = v
		}
		cur = append(cur, it)
	}
	flush()
	return groups
}

func (s Selection[T]) fail(reason string) *kernel.SelectionError {
	return &kernel.SelectionError{Stage: s.model.stage, Query: s.query, Matches: len(s.items), Reason: reason}
}

func (s Selection[T]) check() error {
	if s.model == nil {
		return &kernel.SelectionError{Query: s.query, Reason: "selection has no model"}
	}
	if s.gen != s.model.gen {
		return s.fail(fmt.Sprintf("stale selection from generation %d, model is at %d", s.gen, s.model.gen))
	}
	return nil
}

// At returns the i-th feature. Negative indices count from the end.
func (s Selection[T]) At(i int) (T, error) {
	var zero T
	if err := s.check(); err != nil {
		return zero, err
	}
	j := i
	if j < 0 {
		j += len(s.items)
	}
	if j < 0 || j >= len(s.items) {
		return zero, s.fail(fmt.Sprintf("index %d out of range", i))
	}
	return s.items[j], nil
}

// One returns the only feature of the selection.
func (s Selection[T]) One() (T, error) {
	var zero T
	if err := s.check(); err != nil {
		return zero, err
	}
	switch len(s.items) {
	case 1:
		return s.items[0], nil
	case 0:
		return zero, s.fail("no match")
	default:
		return zero, s.fail("ambiguous match")
	}
}

// All returns every feature of a non-empty selection.
func (s Selection[T]) All() ([]T, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if len(s.items) == 0 {
		return nil, s.fail("no match")
	}
	return append([]T(nil), s.items...), nil
}

// FromStage keeps features created by the named stage.
func (s Selection[T]) FromStage(stage string) Selection[T] {
	return s.Filter("stage("+stage+")", func(it T) bool { return it.CreatedBy() == stage })
}

// SameIDs reports whether two feature lists hold the same IDs in any order.
func SameIDs[T Feature](got []T, want []FeatureID) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[FeatureID]int, len(want))
	for _, id := range want {
		seen[id]++
	}
	for _, it := range got {
		id := it.FeatureID()
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
