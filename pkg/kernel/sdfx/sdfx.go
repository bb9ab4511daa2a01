// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution when the
// caller passes a non-positive cell count.
const DefaultMeshCells = 200

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// sdfxRegion wraps an sdf.SDF2 to implement kernel.Region.
type sdfxRegion struct {
	s sdf.SDF2
}

func (r *sdfxRegion) Distance(x, y float64) float64 {
	return r.s.Evaluate(v2.Vec{X: x, Y: y})
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Region builds the 2D signed distance field of a sketch by folding its
// items left to right with Union2D and Difference2D.
func (k *SdfxKernel) Region(sk *kernel.Sketch) (kernel.Region, error) {
	s, err := sketch2D(sk)
	if err != nil {
		return nil, err
	}
	return &sdfxRegion{s: s}, nil
}

func sketch2D(sk *kernel.Sketch) (sdf.SDF2, error) {
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	var acc sdf.SDF2
	for i, it := range sk.Items {
		s, err := shape2D(it.Shape)
		if err != nil {
			return nil, fmt.Errorf("sketch %q item %d: %w", sk.Name, i, err)
		}
		switch {
		case acc == nil:
			acc = s
		case it.Mode == kernel.ModeSubtract:
			acc = sdf.Difference2D(acc, s)
		default:
			acc = sdf.Union2D(acc, s)
		}
	}
	return acc, nil
}

func shape2D(sh kernel.Shape) (sdf.SDF2, error) {
	switch s := sh.(type) {
	case kernel.Circle:
		c, err := sdf.Circle2D(s.Radius)
		if err != nil {
			return nil, err
		}
		return sdf.Transform2D(c, sdf.Translate2d(v2.Vec{X: s.Center.X, Y: s.Center.Y})), nil
	case kernel.Rect:
		b := sdf.Box2D(v2.Vec{X: s.Width, Y: s.Height}, s.Round)
		m := sdf.Translate2d(v2.Vec{X: s.Center.X, Y: s.Center.Y}).Mul(sdf.Rotate2d(s.Angle * math.Pi / 180))
		return sdf.Transform2D(b, m), nil
	default:
		return nil, fmt.Errorf("unsupported sketch shape %T", sh)
	}
}

// Extrude sweeps the sketch region between z0 and z1. sdf.Extrude3D centers
// the prism on z=0, so the result is moved to the midpoint of the span.
func (k *SdfxKernel) Extrude(sk *kernel.Sketch, z0, z1 float64) (kernel.Solid, error) {
	if z1 < z0 {
		z0, z1 = z1, z0
	}
	h := z1 - z0
	if h <= 1e-9 {
		return nil, fmt.Errorf("extrusion of %q has zero height", sk.Name)
	}
	s, err := sketch2D(sk)
	if err != nil {
		return nil, err
	}
	e := sdf.Extrude3D(s, h)
	m := sdf.Translate3d(v3.Vec{X: 0, Y: 0, Z: (z0 + z1) / 2})
	return wrap(sdf.Transform3D(e, m)), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Fillet rounds the given edges with radius r.
func (k *SdfxKernel) Fillet(s kernel.Solid, edges []kernel.EdgeFrame, r float64) (kernel.Solid, error) {
	if r <= 0 {
		return nil, fmt.Errorf("fillet radius %.4f must be positive", r)
	}
	return k.treat(s, edges, r, r, func(u, w float64) float64 {
		return kernel.RoundProfile(u, w, r)
	})
}

// Chamfer bevels the given edges. faceLen is measured along the horizontal
// face, wallLen along the vertical wall.
func (k *SdfxKernel) Chamfer(s kernel.Solid, edges []kernel.EdgeFrame, faceLen, wallLen float64) (kernel.Solid, error) {
	if faceLen <= 0 || wallLen <= 0 {
		return nil, fmt.Errorf("chamfer %.4fx%.4f must be positive", faceLen, wallLen)
	}
	return k.treat(s, edges, faceLen, wallLen, func(u, w float64) float64 {
		return kernel.ChamferProfile(u, w, faceLen, wallLen)
	})
}

// treat builds one profile field per edge, then cuts the convex ones from the
// solid and adds the concave ones to it.
func (k *SdfxKernel) treat(s kernel.Solid, edges []kernel.EdgeFrame, faceLen, wallLen float64, profile func(u, w float64) float64) (kernel.Solid, error) {
	if len(edges) == 0 {
		return nil, errors.New("no edges to treat")
	}
	regions := make(map[*kernel.Sketch]sdf.SDF2)
	var convex, concave []*edgeField
	for i, e := range edges {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		reg, ok := regions[e.Region]
		if !ok {
			var err error
			if reg, err = sketch2D(e.Region); err != nil {
				return nil, fmt.Errorf("edge %d: %w", i, err)
			}
			regions[e.Region] = reg
		}
		f := newEdgeField(e, reg, faceLen, wallLen, profile)
		if e.Convex {
			convex = append(convex, f)
		} else {
			concave = append(concave, f)
		}
	}
	out := unwrap(s)
	if len(convex) > 0 {
		out = sdf.Difference3D(out, &edgeSet{edges: convex})
	}
	if len(concave) > 0 {
		out = sdf.Union3D(out, &edgeSet{edges: concave})
	}
	return wrap(out), nil
}

// Distance evaluates the solid's distance field at p.
func (k *SdfxKernel) Distance(s kernel.Solid, p r3.Vec) float64 {
	return unwrap(s).Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid, cells int) (*kernel.Mesh, error) {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, errors.New("marching cubes produced no triangles")
	}

	numVerts := len(triangles) * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
