package sdfx

import (
	"math"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// edgeField is the distance field of one fillet or chamfer profile swept
// along an edge. The profile lives in the frame's (u, w) coordinates and is
// clipped to a box around the selected curve so that the rest of the wall
// keeps its sharp edge.
type edgeField struct {
	frame   kernel.EdgeFrame
	wall    sdf.SDF2
	profile func(u, w float64) float64
	clip    sdf.Box3
}

func newEdgeField(e kernel.EdgeFrame, wall sdf.SDF2, faceLen, wallLen float64, profile func(u, w float64) float64) *edgeField {
	m := math.Max(faceLen, wallLen) + 1e-3
	b := e.Curve.Bounds()
	return &edgeField{
		frame:   e,
		wall:    wall,
		profile: profile,
		clip: sdf.Box3{
			Min: v3.Vec{X: b.Min.X - m, Y: b.Min.Y - m, Z: e.Z - m},
			Max: v3.Vec{X: b.Max.X + m, Y: b.Max.Y + m, Z: e.Z + m},
		},
	}
}

func (f *edgeField) Evaluate(p v3.Vec) float64 {
	d := f.wall.Evaluate(v2.Vec{X: p.X, Y: p.Y})
	u, w := f.frame.Local(d, p.Z)
	return math.Max(f.profile(u, w), boxDistance(f.clip, p))
}

func (f *edgeField) BoundingBox() sdf.Box3 {
	return f.clip
}

// edgeSet is the union of several edge fields.
type edgeSet struct {
	edges []*edgeField
}

func (s *edgeSet) Evaluate(p v3.Vec) float64 {
	d := math.Inf(1)
	for _, e := range s.edges {
		d = math.Min(d, e.Evaluate(p))
	}
	return d
}

func (s *edgeSet) BoundingBox() sdf.Box3 {
	bb := s.edges[0].clip
	for _, e := range s.edges[1:] {
		bb = sdf.Box3{
			Min: v3.Vec{X: math.Min(bb.Min.X, e.clip.Min.X), Y: math.Min(bb.Min.Y, e.clip.Min.Y), Z: math.Min(bb.Min.Z, e.clip.Min.Z)},
			Max: v3.Vec{X: math.Max(bb.Max.X, e.clip.Max.X), Y: math.Max(bb.Max.Y, e.clip.Max.Y), Z: math.Max(bb.Max.Z, e.clip.Max.Z)},
		}
	}
	return bb
}

// boxDistance is the signed distance from p to an axis-aligned box.
func boxDistance(b sdf.Box3, p v3.Vec) float64 {
	q := [3]float64{
		math.Max(b.Min.X-p.X, p.X-b.Max.X),
		math.Max(b.Min.Y-p.Y, p.Y-b.Max.Y),
		math.Max(b.Min.Z-p.Z, p.Z-b.Max.Z),
	}
	var out float64
	for _, v := range q {
		if v > 0 {
			out += v * v
		}
	}
	inside := math.Min(math.Max(q[0], math.Max(q[1], q[2])), 0)
	return math.Sqrt(out) + inside
}
