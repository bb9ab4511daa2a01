package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/nocap/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func disk(r float64) *kernel.Sketch {
	return kernel.NewSketch("disk").Add(kernel.Circle{Radius: r})
}

func cylinder(t *testing.T, k *SdfxKernel, r, h float64) (kernel.Solid, *kernel.Sketch) {
	t.Helper()
	sk := disk(r)
	s, err := k.Extrude(sk, 0, h)
	if err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	return s, sk
}

// --- Sketch regions ---

func TestRegionCircle(t *testing.T) {
	k := New()
	reg, err := k.Region(disk(5))
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	tests := []struct {
		name string
		x, y float64
		want float64
	}{
		{"center", 0, 0, -5},
		{"on boundary", 5, 0, 0},
		{"outside", 0, 8, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.Distance(tt.x, tt.y); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance(%v, %v) = %f, want %f", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRegionRotatedRect(t *testing.T) {
	k := New()
	sk := kernel.NewSketch("bar").Add(kernel.Rect{Width: 10, Height: 2, Angle: 90})
	reg, err := k.Region(sk)
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	// Rotated a quarter turn the long side runs along Y.
	if d := reg.Distance(0, 4.5); d >= 0 {
		t.Errorf("Distance(0, 4.5) = %f, want inside", d)
	}
	if d := reg.Distance(4.5, 0); d <= 0 {
		t.Errorf("Distance(4.5, 0) = %f, want outside", d)
	}
}

func TestRegionSubtract(t *testing.T) {
	k := New()
	sk := kernel.NewSketch("ring").
		Add(kernel.Circle{Radius: 5}).
		Subtract(kernel.Circle{Radius: 3})
	reg, err := k.Region(sk)
	if err != nil {
		t.Fatalf("Region failed: %v", err)
	}
	if d := reg.Distance(0, 0); d <= 0 {
		t.Errorf("hole center distance = %f, want outside", d)
	}
	if d := reg.Distance(4, 0); d >= 0 {
		t.Errorf("ring distance = %f, want inside", d)
	}
}

func TestRegionInvalidSketch(t *testing.T) {
	k := New()
	if _, err := k.Region(kernel.NewSketch("empty")); err == nil {
		t.Fatal("expected error for empty sketch")
	}
	if _, err := k.Region(disk(-1)); err == nil {
		t.Fatal("expected error for negative radius")
	}
}

// --- Extrusion and booleans ---

func TestExtrudeBoundingBox(t *testing.T) {
	k := New()
	s, _ := cylinder(t, k, 5, 3)
	min, max := s.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{-5, -5, 0}
	expectMax := [3]float64{5, 5, 3}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestExtrudeReversedSpan(t *testing.T) {
	k := New()
	s, err := k.Extrude(disk(1), 4, 2)
	if err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	min, max := s.BoundingBox()
	if math.Abs(min[2]-2) > 0.01 || math.Abs(max[2]-4) > 0.01 {
		t.Errorf("z span = [%f, %f], want [2, 4]", min[2], max[2])
	}
}

func TestExtrudeZeroHeight(t *testing.T) {
	k := New()
	if _, err := k.Extrude(disk(1), 2, 2); err == nil {
		t.Fatal("expected error for zero height extrusion")
	}
}

func TestDifference(t *testing.T) {
	k := New()
	outer, _ := cylinder(t, k, 5, 4)
	inner, err := k.Extrude(disk(3), 1, 5)
	if err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	cup := k.Difference(outer, inner)
	if d := k.Distance(cup, r3.Vec{Z: 2}); d <= 0 {
		t.Errorf("cavity distance = %f, want outside", d)
	}
	if d := k.Distance(cup, r3.Vec{Z: 0.5}); d >= 0 {
		t.Errorf("floor distance = %f, want inside", d)
	}
}

func TestUnion(t *testing.T) {
	k := New()
	a, _ := cylinder(t, k, 2, 2)
	b, err := k.Extrude(kernel.NewSketch("b").Add(kernel.Circle{Center: r2.Vec{X: 10}, Radius: 2}), 0, 2)
	if err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	u := k.Union(a, b)
	min, max := u.BoundingBox()
	if math.Abs(min[0]+2) > 0.01 || math.Abs(max[0]-12) > 0.01 {
		t.Errorf("union x span = [%f, %f], want [-2, 12]", min[0], max[0])
	}
}

// --- Edge treatments ---

func TestFilletConvexEdge(t *testing.T) {
	k := New()
	s, sk := cylinder(t, k, 5, 5)
	edge := kernel.EdgeFrame{
		Curve:      sk.Items[0].Shape.Outline()[0],
		Z:          5,
		Region:     sk,
		RegionSide: 1,
		PlaneSide:  -1,
		Convex:     true,
	}
	corner := r3.Vec{X: 4.95, Z: 4.95}
	if d := k.Distance(s, corner); d >= 0 {
		t.Fatalf("corner distance before fillet = %f, want inside", d)
	}
	f, err := k.Fillet(s, []kernel.EdgeFrame{edge}, 1)
	if err != nil {
		t.Fatalf("Fillet failed: %v", err)
	}
	if d := k.Distance(f, corner); d <= 0 {
		t.Errorf("corner distance after fillet = %f, want outside", d)
	}
	if d := k.Distance(f, r3.Vec{X: 3, Z: 4.9}); d >= 0 {
		t.Errorf("material away from the edge was removed (distance %f)", d)
	}
}

func TestFilletConcaveEdge(t *testing.T) {
	k := New()
	base, err := k.Extrude(kernel.NewSketch("base").Add(kernel.Rect{Width: 20, Height: 20}), 0, 2)
	if err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	pin := disk(2)
	top, err := k.Extrude(pin, 2, 6)
	if err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	s := k.Union(base, top)
	edge := kernel.EdgeFrame{
		Curve:      pin.Items[0].Shape.Outline()[0],
		Z:          2,
		Region:     pin,
		RegionSide: -1,
		PlaneSide:  1,
	}
	root := r3.Vec{X: 2.05, Z: 2.05}
	if d := k.Distance(s, root); d <= 0 {
		t.Fatalf("root distance before fillet = %f, want outside", d)
	}
	f, err := k.Fillet(s, []kernel.EdgeFrame{edge}, 0.5)
	if err != nil {
		t.Fatalf("Fillet failed: %v", err)
	}
	if d := k.Distance(f, root); d >= 0 {
		t.Errorf("root distance after fillet = %f, want inside", d)
	}
}

func TestChamfer(t *testing.T) {
	k := New()
	s, sk := cylinder(t, k, 5, 5)
	edge := kernel.EdgeFrame{
		Curve:      sk.Items[0].Shape.Outline()[0],
		Z:          0,
		Region:     sk,
		RegionSide: 1,
		PlaneSide:  1,
		Convex:     true,
	}
	c, err := k.Chamfer(s, []kernel.EdgeFrame{edge}, 1, 0.5)
	if err != nil {
		t.Fatalf("Chamfer failed: %v", err)
	}
	tests := []struct {
		name    string
		p       r3.Vec
		removed bool
	}{
		{"inside bevel", r3.Vec{X: 4.8, Z: 0.1}, true},
		{"past wall leg", r3.Vec{X: 4.8, Z: 0.6}, false},
		{"past face leg", r3.Vec{X: 3.9, Z: 0.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := k.Distance(c, tt.p)
			if tt.removed && d <= 0 {
				t.Errorf("distance = %f, want outside", d)
			}
			if !tt.removed && d >= 0 {
				t.Errorf("distance = %f, want inside", d)
			}
		})
	}
}

func TestTreatmentErrors(t *testing.T) {
	k := New()
	s, sk := cylinder(t, k, 5, 5)
	good := kernel.EdgeFrame{Curve: sk.Items[0].Shape.Outline()[0], Z: 5, Region: sk, RegionSide: 1, PlaneSide: -1, Convex: true}
	tests := []struct {
		name string
		run  func() error
	}{
		{"no edges", func() error { _, err := k.Fillet(s, nil, 1); return err }},
		{"zero radius", func() error { _, err := k.Fillet(s, []kernel.EdgeFrame{good}, 0); return err }},
		{"negative chamfer", func() error { _, err := k.Chamfer(s, []kernel.EdgeFrame{good}, -1, 1); return err }},
		{"unset sides", func() error {
			bad := good
			bad.PlaneSide = 0
			_, err := k.Fillet(s, []kernel.EdgeFrame{bad}, 1)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// --- Meshing ---

func TestToMesh(t *testing.T) {
	k := New()
	s, _ := cylinder(t, k, 5, 4)
	mesh, err := k.ToMesh(s, 40)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != mesh.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), mesh.TriangleCount()*3)
	}

	welded := mesh.Weld(1e-6)
	if open := welded.OpenEdges(); open != 0 {
		t.Errorf("welded cylinder has %d open edges", open)
	}
	want := math.Pi * 25 * 4
	if got := welded.Volume(); math.Abs(got-want)/want > 0.05 {
		t.Errorf("volume = %f, want ~%f", got, want)
	}
	t.Logf("cylinder triangles: %d, welded vertices: %d", welded.TriangleCount(), welded.VertexCount())
}
