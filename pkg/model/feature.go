package model

import (
	"fmt"

	"github.com/chazu/nocap/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// FeatureID identifies an edge or face for the lifetime of a model.
type FeatureID string

// Axis selects a coordinate for positional filtering and sorting.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// Of returns the component of p along the axis.
func (a Axis) Of(p r3.Vec) float64 {
	switch a {
	case AxisX:
		return p.X
	case AxisY:
		return p.Y
	default:
		return p.Z
	}
}

// Feature is the common view of edges and faces used by selections.
type Feature interface {
	FeatureID() FeatureID
	Position() r3.Vec
	Live() bool
	CreatedBy() string
}

// Edge is a horizontal edge where a face at height Z meets a vertical wall
// following the boundary of the Wall sketch.
type Edge struct {
	ID    FeatureID
	Stage string
	Curve kernel.Curve
	Z     float64
	Wall  *kernel.Sketch

	Convex     bool
	RegionSide int
	PlaneSide  int

	// Smooth edges are tangent seams left by a fillet. They are not sharp,
	// so they are tracked by surface membership rather than quadrant probes.
	Smooth bool

	alive bool
}

func (e *Edge) FeatureID() FeatureID { return e.ID }
func (e *Edge) Live() bool           { return e.alive }
func (e *Edge) CreatedBy() string    { return e.Stage }

// Position returns the curve reference point lifted to the edge height.
func (e *Edge) Position() r3.Vec {
	p := e.Curve.Position()
	return r3.Vec{X: p.X, Y: p.Y, Z: e.Z}
}

// Frame returns the kernel edge frame used by fillet and chamfer.
func (e *Edge) Frame() kernel.EdgeFrame {
	return kernel.EdgeFrame{
		Curve:      e.Curve,
		Z:          e.Z,
		Region:     e.Wall,
		RegionSide: e.RegionSide,
		PlaneSide:  e.PlaneSide,
		Convex:     e.Convex,
	}
}

func (e *Edge) String() string {
	kind := "concave"
	switch {
	case e.Smooth:
		kind = "smooth"
	case e.Convex:
		kind = "convex"
	}
	p := e.Position()
	return fmt.Sprintf("%s %s %s at (%.3f, %.3f, %.3f) len %.3f", e.ID, kind, e.Curve.Kind, p.X, p.Y, p.Z, e.Curve.Length())
}

// Face is a horizontal planar face at height Z. Normal is +1 when the
// material lies below the face and -1 when it lies above.
type Face struct {
	ID      FeatureID
	Stage   string
	Z       float64
	Normal  int
	Region  *kernel.Sketch
	Samples []r2.Vec

	alive bool
}

func (f *Face) FeatureID() FeatureID { return f.ID }
func (f *Face) Live() bool           { return f.alive }
func (f *Face) CreatedBy() string    { return f.Stage }

// Position returns the center of the face's sketch bounds at height Z.
func (f *Face) Position() r3.Vec {
	b := f.Region.Bounds()
	return r3.Vec{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2, Z: f.Z}
}

// Workplane returns the plane of the face, facing away from the material.
func (f *Face) Workplane() Workplane {
	return Workplane{Z: f.Z, Normal: f.Normal}
}

func (f *Face) String() string {
	return fmt.Sprintf("%s face z=%.3f normal %+d (%s)", f.ID, f.Z, f.Normal, f.Region.Name)
}

// Workplane is a horizontal sketch plane. Positive extrusion amounts move
// along Normal.
type Workplane struct {
	Z      float64
	Normal int
}

// XY returns the upward facing plane at height z.
func XY(z float64) Workplane {
	return Workplane{Z: z, Normal: 1}
}
