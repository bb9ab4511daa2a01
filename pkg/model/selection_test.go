package model

import (
	"testing"

	"github.com/chazu/nocap/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestSelectionFilterByPosition(t *testing.T) {
	m, _, _ := cup(t)
	tests := []struct {
		name string
		lo   float64
		hi   float64
		incl Inclusive
		want int
	}{
		{"exact z match", 1, 1, Closed, 1},
		{"top plane", 4, 4, Closed, 2},
		{"open interval excludes bounds", 1, 4, Open, 0},
		{"closed interval", 0, 4, Closed, 4},
		{"half open", 0, 1, Inclusive{false, true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Edges().FilterByPosition(AxisZ, tt.lo, tt.hi, tt.incl)
			if got.Len() != tt.want {
				t.Errorf("Len() = %d, want %d (query %s)", got.Len(), tt.want, got.Query())
			}
		})
	}
}

func TestSelectionSortAndAt(t *testing.T) {
	m, _, _ := cup(t)
	faces := m.Faces().SortBy(AxisZ)
	wantZ := []float64{0, 1, 4}
	for i, z := range wantZ {
		f, err := faces.At(i)
		if err != nil {
			t.Fatalf("At(%d): %v", i, err)
		}
		if f.Z != z {
			t.Errorf("At(%d).Z = %v, want %v", i, f.Z, z)
		}
	}
	// Negative indices count from the top.
	second, err := faces.At(-2)
	if err != nil {
		t.Fatalf("At(-2): %v", err)
	}
	if second.Z != 1 {
		t.Errorf("second from top z = %v, want 1", second.Z)
	}
	_, err = faces.At(3)
	se := wantSelectionError(t, err)
	if se.Matches != 3 {
		t.Errorf("Matches = %d, want 3", se.Matches)
	}
}

func TestSelectionGroupBy(t *testing.T) {
	m, _, _ := cup(t)
	groups := m.Edges().GroupBy(AxisZ)
	wantSizes := []int{1, 1, 2}
	if len(groups) != len(wantSizes) {
		t.Fatalf("GroupBy returned %d groups, want %d", len(groups), len(wantSizes))
	}
	for i, g := range groups {
		if g.Len() != wantSizes[i] {
			t.Errorf("group %d has %d edges, want %d", i, g.Len(), wantSizes[i])
		}
	}
	top, err := groups[len(groups)-1].All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	for _, e := range top {
		if e.Z != 4 {
			t.Errorf("top group edge at z=%v", e.Z)
		}
	}
}

func TestSelectionOneCardinality(t *testing.T) {
	m, _, _ := cup(t)
	tests := []struct {
		name   string
		sel    Selection[*Edge]
		reason string
	}{
		{"none", m.Edges().FilterByPosition(AxisZ, 2, 3, Closed), "no match"},
		{"many", m.Edges().FilterByPosition(AxisZ, 4, 4, Closed), "ambiguous match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sel.One()
			se := wantSelectionError(t, err)
			if se.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", se.Reason, tt.reason)
			}
		})
	}
	if _, err := m.Edges().FilterByPosition(AxisZ, 1, 1, Closed).One(); err != nil {
		t.Errorf("unique selection failed: %v", err)
	}
}

func TestSelectionStale(t *testing.T) {
	m, _, _ := cup(t)
	sel := m.Edges().FilterByPosition(AxisZ, 1, 1, Closed)
	if _, err := m.Extrude(kernel.NewSketch("post").Add(kernel.Circle{Center: r2.Vec{X: 2}, Radius: 0.5}), XY(1), 1, kernel.ModeAdd); err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	_, err := sel.One()
	se := wantSelectionError(t, err)
	if se.Query != sel.Query() {
		t.Errorf("Query = %q, want %q", se.Query, sel.Query())
	}
	if _, err := sel.All(); err == nil {
		t.Error("All() on stale selection succeeded")
	}
	if _, err := sel.At(0); err == nil {
		t.Error("At() on stale selection succeeded")
	}
}

func TestSelectionFromStage(t *testing.T) {
	m, _, _ := cup(t)
	if n := m.Edges().FromStage("pocket").Len(); n != 2 {
		t.Errorf("pocket edges = %d, want 2", n)
	}
	if n := m.Faces().FromStage("body").Len(); n != 2 {
		t.Errorf("body faces = %d, want 2", n)
	}
}

func TestSameIDs(t *testing.T) {
	m, body, _ := cup(t)
	edges, err := m.Edges().FromStage("body").All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	want := append(append([]FeatureID(nil), body.EndEdges...), body.StartEdges...)
	if !SameIDs(edges, want) {
		t.Errorf("SameIDs(%v, %v) = false", edges, want)
	}
	if SameIDs(edges, body.StartEdges) {
		t.Error("SameIDs matched a shorter list")
	}
}

func TestEmptySelectionAll(t *testing.T) {
	m := New(nil)
	_, err := m.Edges().All()
	wantSelectionError(t, err)
}
