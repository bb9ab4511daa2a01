// Package tessellate turns a finished model into a closed triangle mesh
// using the model's geometry kernel.
package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/chazu/nocap/pkg/model"
)

// DefaultCells is the marching cubes resolution along the longest axis.
const DefaultCells = 200

// Stage is the stage name carried by tessellation errors.
const Stage = "tessellate"

const (
	// weldTol merges vertices that differ only by float32 rounding.
	weldTol = 1e-5
	// maxCrack is the largest boundary loop treated as a meshing crack.
	maxCrack = 8
)

// Stats describes a tessellation.
type Stats struct {
	Cells       int
	Triangles   int
	Vertices    int
	CracksFixed int
	Volume      float64
}

// Tessellate meshes the model's current solid.
func Tessellate(m *model.Model, cells int) (*kernel.Mesh, Stats, error) {
	if m == nil || m.Solid() == nil {
		return nil, Stats{}, &kernel.OperationError{Stage: Stage, Op: "mesh", Err: errors.New("model has no solid")}
	}
	return Solid(m.Kernel(), m.Solid(), cells)
}

// Solid meshes a kernel solid, welds the marching cubes soup into an indexed
// mesh and checks that it is closed.
func Solid(k kernel.Kernel, s kernel.Solid, cells int) (*kernel.Mesh, Stats, error) {
	if cells <= 0 {
		cells = DefaultCells
	}
	st := Stats{Cells: cells}
	raw, err := k.ToMesh(s, cells)
	if err != nil {
		return nil, st, &kernel.OperationError{Stage: Stage, Op: "mesh", Err: err}
	}

	mesh := raw.Weld(weldTol)
	st.CracksFixed = mesh.CloseHoles(maxCrack)
	if open := mesh.OpenEdges(); open != 0 {
		return nil, st, &kernel.OperationError{Stage: Stage, Op: "mesh",
			Err: fmt.Errorf("mesh is not closed: %d open edges", open)}
	}
	st.Triangles = mesh.TriangleCount()
	st.Vertices = mesh.VertexCount()
	st.Volume = mesh.Volume()
	if st.Volume <= 0 || math.IsNaN(st.Volume) {
		return nil, st, &kernel.OperationError{Stage: Stage, Op: "mesh",
			Err: fmt.Errorf("mesh encloses no volume (%g)", st.Volume)}
	}
	return mesh, st, nil
}
