// Package kernel defines the abstract geometry kernel interface.
// Implementations provide prismatic solid construction, boolean operations
// and edge treatments behind this interface. The kernel abstraction keeps
// the keycap builder and the model ledger free of backend types.
package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Region is a 2D sketch region realised by a kernel. Distance is negative
// inside the region, zero on its boundary and positive outside.
type Region interface {
	Distance(x, y float64) float64
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Region builds the planar region described by a sketch.
	Region(sk *Sketch) (Region, error)

	// Extrude sweeps a sketch region along Z between the planes z0 and z1.
	Extrude(sk *Sketch, z0, z1 float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	// Edge treatments. Convex edges lose material, concave edges gain it.
	Fillet(s Solid, edges []EdgeFrame, radius float64) (Solid, error)
	Chamfer(s Solid, edges []EdgeFrame, faceLen, wallLen float64) (Solid, error)

	// Distance returns the signed distance (or a bound on it) from p to the
	// surface of s. Negative values are inside the material.
	Distance(s Solid, p r3.Vec) float64

	// Mesh output. cells is the number of sampling cells along the longest
	// bounding box axis.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
