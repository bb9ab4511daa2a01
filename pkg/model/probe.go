package model

import (
	"fmt"
	"math"

	"github.com/chazu/nocap/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// probeOffset is how far quadrant and face probes sit from the feature.
	probeOffset = 0.02
	// surfaceTol bounds the field value of a point considered on the surface.
	surfaceTol = 1e-4
	// planeTol is the tolerance for two features sharing a plane.
	planeTol = 1e-9
	// supportSteps is the number of marching steps along each treatment leg.
	supportSteps = 8
)

// faceInsets are the distances curve midpoints are moved into a sketch
// region to seed face samples.
var faceInsets = []float64{0.1, 0.5, 1, 2, 4, 8}

func (m *Model) solidAt(p r3.Vec) bool {
	return m.k.Distance(m.solid, p) < 0
}

func (m *Model) emptyAt(p r3.Vec) bool {
	return m.k.Distance(m.solid, p) > 0
}

// outward returns the unit normal of the region boundary near p, pointing
// out of the region. It is zero where the field has no usable gradient.
func outward(reg kernel.Region, p r2.Vec) r2.Vec {
	const h = 1e-5
	g := r2.Vec{
		X: reg.Distance(p.X+h, p.Y) - reg.Distance(p.X-h, p.Y),
		Y: reg.Distance(p.X, p.Y+h) - reg.Distance(p.X, p.Y-h),
	}
	if r2.Norm(g) < 1e-12 {
		return r2.Vec{}
	}
	return r2.Unit(g)
}

// quadrants probes the four quadrants around a curve at height z. The
// result is indexed [inside region][above plane].
func (m *Model) quadrants(c kernel.Curve, z float64, reg kernel.Region) (q [2][2]bool, ok bool) {
	mid := c.Midpoint()
	n := outward(reg, mid)
	if n == (r2.Vec{}) {
		return q, false
	}
	for i, side := range []float64{-1, 1} {
		xy := r2.Add(mid, r2.Scale(side*probeOffset, n))
		for j, dz := range []float64{-probeOffset, probeOffset} {
			q[1-i][j] = m.solidAt(r3.Vec{X: xy.X, Y: xy.Y, Z: z + dz})
		}
	}
	return q, true
}

// classify decides whether a curve at height z is a sharp edge of the
// current solid. One solid quadrant makes a convex edge, three make a
// concave edge; the frame's quadrant is the odd one out.
func (m *Model) classify(c kernel.Curve, z float64, reg kernel.Region) (convex bool, regionSide, planeSide int, ok bool) {
	q, ok := m.quadrants(c, z, reg)
	if !ok {
		return false, 0, 0, false
	}
	count := 0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if q[i][j] {
				count++
			}
		}
	}
	if count != 1 && count != 3 {
		return false, 0, 0, false
	}
	convex = count == 1
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if q[i][j] == convex {
				regionSide, planeSide = 2*i-1, 2*j-1
			}
		}
	}
	return convex, regionSide, planeSide, true
}

// edgeLive re-checks a tracked edge against the current solid.
func (m *Model) edgeLive(e *Edge) bool {
	if e.Smooth {
		mid := e.Curve.Midpoint()
		return math.Abs(m.k.Distance(m.solid, r3.Vec{X: mid.X, Y: mid.Y, Z: e.Z})) < surfaceTol
	}
	reg, err := m.region(e.Wall)
	if err != nil {
		return false
	}
	convex, rs, ps, ok := m.classify(e.Curve, e.Z, reg)
	return ok && convex == e.Convex && rs == e.RegionSide && ps == e.PlaneSide
}

// sampleLive reports whether the solid has a face with the given normal at
// the sample point.
func (m *Model) sampleLive(p r2.Vec, z float64, normal int) bool {
	dz := probeOffset * float64(normal)
	return m.solidAt(r3.Vec{X: p.X, Y: p.Y, Z: z - dz}) && m.emptyAt(r3.Vec{X: p.X, Y: p.Y, Z: z + dz})
}

// liveSamples returns the samples of a face that still lie on the solid.
func (m *Model) liveSamples(samples []r2.Vec, z float64, normal int) []r2.Vec {
	var out []r2.Vec
	for _, s := range samples {
		if m.sampleLive(s, z, normal) {
			out = append(out, s)
		}
	}
	return out
}

// faceSamples seeds probe points inside a sketch region by moving each
// outline midpoint inwards by a range of distances.
func faceSamples(curves []kernel.Curve, reg kernel.Region) []r2.Vec {
	var out []r2.Vec
	for _, c := range curves {
		mid := c.Midpoint()
		n := outward(reg, mid)
		if n == (r2.Vec{}) {
			continue
		}
		for _, d := range faceInsets {
			p := r2.Sub(mid, r2.Scale(d, n))
			if reg.Distance(p.X, p.Y) < -surfaceTol {
				out = append(out, p)
			}
		}
	}
	return out
}

// support checks that the material next to an edge extends at least faceLen
// along the face and wallLen along the wall, sampling along the curve.
func (m *Model) support(e *Edge, faceLen, wallLen float64) error {
	reg, err := m.region(e.Wall)
	if err != nil {
		return err
	}
	// Material sits inside the frame quadrant for convex edges and on the
	// far side of the face and wall for concave ones.
	side := probeOffset
	if !e.Convex {
		side = -probeOffset
	}
	rs, ps := float64(e.RegionSide), float64(e.PlaneSide)
	pts := e.Curve.Samples(supportSteps)
	for _, p := range pts[1 : len(pts)-1] {
		n := outward(reg, p)
		if n == (r2.Vec{}) {
			continue
		}
		at := func(u, w float64) r3.Vec {
			xy := r2.Sub(p, r2.Scale(rs*u, n))
			return r3.Vec{X: xy.X, Y: xy.Y, Z: e.Z + ps*w}
		}
		for k := 1; k <= supportSteps; k++ {
			t := float64(k) / supportSteps
			if u := faceLen * t; !m.solidAt(at(u, side)) {
				return fmt.Errorf("edge %s: face support ends before %.3f (at %.3f from the wall)", e.ID, faceLen, u)
			}
			if w := wallLen * t; !m.solidAt(at(side, w)) {
				return fmt.Errorf("edge %s: wall support ends before %.3f (at %.3f from the face)", e.ID, wallLen, w)
			}
		}
	}
	return nil
}
