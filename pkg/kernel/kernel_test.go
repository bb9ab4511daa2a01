package kernel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}


// --- Mesh geometry tests ---

// cubeSoup returns an unwelded unit cube: 12 outward facing triangles with
// their own copies of every corner.
func cubeSoup() *Mesh {
	faces := [][3][3]float32{
		{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}}, {{0, 0, 0}, {1, 1, 0}, {1, 0, 0}},
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}}, {{0, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}}, {{0, 0, 0}, {1, 0, 1}, {0, 0, 1}},
		{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}}, {{0, 1, 0}, {1, 1, 1}, {1, 1, 0}},
		{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}}, {{0, 0, 0}, {0, 1, 1}, {0, 1, 0}},
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}}, {{1, 0, 0}, {1, 1, 1}, {1, 0, 1}},
	}
	m := &Mesh{PartName: "cube"}
	for i, f := range faces {
		for j, v := range f {
			m.Vertices = append(m.Vertices, v[0], v[1], v[2])
			m.Normals = append(m.Normals, 0, 0, 0)
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m
}

func TestMeshBounds(t *testing.T) {
	min, max := cubeSoup().Bounds()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("Bounds() min = %v, want [0 0 0]", min)
	}
	if max != [3]float64{1, 1, 1} {
		t.Errorf("Bounds() max = %v, want [1 1 1]", max)
	}
}

func TestMeshVolume(t *testing.T) {
	if got := cubeSoup().Volume(); math.Abs(got-1) > 1e-9 {
		t.Errorf("Volume() = %f, want 1", got)
	}
}

func TestMeshWeld(t *testing.T) {
	soup := cubeSoup()
	if open := soup.OpenEdges(); open == 0 {
		t.Fatal("unwelded soup should have open edges")
	}
	w := soup.Weld(1e-6)
	if w.VertexCount() != 8 {
		t.Errorf("welded VertexCount() = %d, want 8", w.VertexCount())
	}
	if w.TriangleCount() != 12 {
		t.Errorf("welded TriangleCount() = %d, want 12", w.TriangleCount())
	}
	if open := w.OpenEdges(); open != 0 {
		t.Errorf("welded OpenEdges() = %d, want 0", open)
	}
	if len(w.Normals) != len(w.Vertices) {
		t.Errorf("normals length %d != vertices length %d", len(w.Normals), len(w.Vertices))
	}
	if w.PartName != "cube" {
		t.Errorf("PartName = %q, want cube", w.PartName)
	}
}

func TestMeshWeldDropsCollapsedTriangles(t *testing.T) {
	m := &Mesh{
		Vertices: []float32{0, 0, 0, 1e-9, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2},
	}
	if w := m.Weld(1e-6); w.TriangleCount() != 0 {
		t.Errorf("TriangleCount() = %d, want 0", w.TriangleCount())
	}
}

func TestMeshOpenEdges(t *testing.T) {
	w := cubeSoup().Weld(1e-6)
	w.Indices = w.Indices[3:]
	if open := w.OpenEdges(); open != 3 {
		t.Errorf("OpenEdges() = %d, want 3 after removing one triangle", open)
	}
}

func TestMeshCloseHoles(t *testing.T) {
	w := cubeSoup().Weld(1e-6)
	want := w.Volume()
	w.Indices = w.Indices[6:]

	if n := w.CloseHoles(2); n != 0 {
		t.Errorf("CloseHoles(2) filled %d loops, want 0 (hole has 4 edges)", n)
	}
	if n := w.CloseHoles(8); n != 1 {
		t.Fatalf("CloseHoles(8) filled %d loops, want 1", n)
	}
	if open := w.OpenEdges(); open != 0 {
		t.Errorf("OpenEdges() = %d after closing", open)
	}
	if got := w.Volume(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Volume() = %v, want %v", got, want)
	}
}

func TestMeshFaceNormal(t *testing.T) {
	m := cubeSoup()
	n := m.FaceNormal(2)
	if n != [3]float64{0, 0, 1} {
		t.Errorf("FaceNormal(2) = %v, want [0 0 1]", n)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Region(_ *Sketch) (Region, error) { return nil, nil }

func (k *stubKernel) Extrude(_ *Sketch, z0, z1 float64) (Solid, error) {
	return &stubSolid{minBB: [3]float64{0, 0, z0}, maxBB: [3]float64{1, 1, z1}}, nil
}

func (k *stubKernel) Union(a, _ Solid) Solid      { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid { return a }

func (k *stubKernel) Fillet(s Solid, _ []EdgeFrame, _ float64) (Solid, error)     { return s, nil }
func (k *stubKernel) Chamfer(s Solid, _ []EdgeFrame, _, _ float64) (Solid, error) { return s, nil }

func (k *stubKernel) Distance(_ Solid, _ r3.Vec) float64 { return 1 }

func (k *stubKernel) ToMesh(_ Solid, _ int) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelExtrudeBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Extrude(NewSketch("s"), 2, 5)
	if err != nil {
		t.Fatalf("Extrude() error = %v", err)
	}
	min, max := s.BoundingBox()
	if min[2] != 2 || max[2] != 5 {
		t.Errorf("Extrude z span = [%v, %v], want [2, 5]", min[2], max[2])
	}
}

// --- Edge frame tests ---

func TestEdgeFrameLocal(t *testing.T) {
	f := EdgeFrame{Z: 3, RegionSide: 1, PlaneSide: -1}
	u, w := f.Local(-0.5, 2)
	if u != 0.5 || w != 1 {
		t.Errorf("Local(-0.5, 2) = (%v, %v), want (0.5, 1)", u, w)
	}
}

func TestEdgeFrameValidate(t *testing.T) {
	sk := NewSketch("s").Add(Circle{Radius: 1})
	tests := []struct {
		name    string
		frame   EdgeFrame
		wantErr bool
	}{
		{"valid", EdgeFrame{Region: sk, RegionSide: -1, PlaneSide: 1}, false},
		{"no region", EdgeFrame{RegionSide: 1, PlaneSide: 1}, true},
		{"unset region side", EdgeFrame{Region: sk, PlaneSide: 1}, true},
		{"bad plane side", EdgeFrame{Region: sk, RegionSide: 1, PlaneSide: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoundProfile(t *testing.T) {
	tests := []struct {
		name   string
		u, w   float64
		inside bool
	}{
		{"near corner", 0.05, 0.05, true},
		{"under the arc", 0.9, 0.9, false},
		{"outside square", 1.5, 0.1, false},
		{"negative side", -0.1, 0.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RoundProfile(tt.u, tt.w, 1)
			if (d < 0) != tt.inside {
				t.Errorf("RoundProfile(%v, %v, 1) = %f, inside want %v", tt.u, tt.w, d, tt.inside)
			}
		})
	}
}

func TestChamferProfile(t *testing.T) {
	if d := ChamferProfile(0.2, 0.2, 1, 0.5); d >= 0 {
		t.Errorf("point inside bevel reported outside (%f)", d)
	}
	if d := ChamferProfile(0.2, 0.6, 1, 0.5); d <= 0 {
		t.Errorf("point past wall leg reported inside (%f)", d)
	}
	// On the hypotenuse the bound is zero.
	if d := ChamferProfile(0.5, 0.25, 1, 0.5); math.Abs(d) > 1e-12 {
		t.Errorf("hypotenuse distance = %g, want 0", d)
	}
}
