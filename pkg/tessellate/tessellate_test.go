package tessellate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/chazu/nocap/pkg/kernel/sdfx"
	"github.com/chazu/nocap/pkg/keycap"
	"github.com/chazu/nocap/pkg/model"
	"github.com/chazu/nocap/pkg/tessellate"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New()
}

// puck builds a cylinder of radius 5 and height 2.
func puck(t *testing.T) *model.Model {
	t.Helper()
	m := model.New(newKernel())
	m.Begin("puck")
	if _, err := m.Extrude(kernel.NewSketch("puck").Add(kernel.Circle{Radius: 5}), model.XY(0), 2, kernel.ModeAdd); err != nil {
		t.Fatalf("Extrude failed: %v", err)
	}
	return m
}

func TestTessellateCylinder(t *testing.T) {
	mesh, st, err := tessellate.Tessellate(puck(t), 60)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if mesh.OpenEdges() != 0 {
		t.Errorf("mesh has %d open edges", mesh.OpenEdges())
	}
	if st.Triangles != mesh.TriangleCount() || st.Vertices != mesh.VertexCount() {
		t.Errorf("stats %+v disagree with mesh (%d triangles, %d vertices)", st, mesh.TriangleCount(), mesh.VertexCount())
	}
	want := math.Pi * 25 * 2
	if math.Abs(st.Volume-want)/want > 0.05 {
		t.Errorf("volume = %.3f, want about %.3f", st.Volume, want)
	}
}

func TestTessellateDefaultCells(t *testing.T) {
	_, st, err := tessellate.Tessellate(puck(t), 0)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if st.Cells != tessellate.DefaultCells {
		t.Errorf("Cells = %d, want %d", st.Cells, tessellate.DefaultCells)
	}
}

func TestTessellateEmptyModel(t *testing.T) {
	_, _, err := tessellate.Tessellate(model.New(newKernel()), 20)
	var oe *kernel.OperationError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want OperationError", err)
	}
	if oe.Stage != tessellate.Stage {
		t.Errorf("Stage = %q, want %q", oe.Stage, tessellate.Stage)
	}
}

func TestTessellateKeycap(t *testing.T) {
	if testing.Short() {
		t.Skip("meshing the full keycap is slow")
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := keycap.Defaults()
	res, err := keycap.Build(context.Background(), newKernel(), p, keycap.WithLogger(log))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	const cells = 120
	mesh, st, err := tessellate.Tessellate(res.Model, cells)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}

	cylinder := math.Pi * (p.DCap / 2) * (p.DCap / 2) * p.HCap
	if st.Volume >= cylinder {
		t.Errorf("volume %.2f is not below the enclosing cylinder %.2f", st.Volume, cylinder)
	}
	if st.Volume < cylinder/10 {
		t.Errorf("volume %.2f is implausibly small", st.Volume)
	}

	// Bounds match the cap envelope to within a couple of cells.
	min, max := mesh.Bounds()
	cell := 2 * (p.DCap/2 + p.RimFilletRadius) / cells
	checks := []struct {
		name      string
		got, want float64
	}{
		{"min x", min[0], -p.DCap / 2},
		{"max x", max[0], p.DCap / 2},
		{"min y", min[1], -p.DCap / 2},
		{"max y", max[1], p.DCap / 2},
		{"min z", min[2], 0},
		{"max z", max[2], p.HCap},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 2*cell {
			t.Errorf("%s = %.3f, want %.3f within %.3f", c.name, c.got, c.want, 2*cell)
		}
	}
}
