package kernel

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// CurveKind distinguishes between planar outline curves.
type CurveKind int

const (
	CurveLine   CurveKind = iota // straight segment A-B
	CurveArc                     // circular arc
	CurveCircle                  // full circle
)

func (k CurveKind) String() string {
	switch k {
	case CurveLine:
		return "line"
	case CurveArc:
		return "arc"
	case CurveCircle:
		return "circle"
	default:
		return "unknown"
	}
}

// Curve is a planar outline curve of a sketch. Lines use A and B; arcs and
// circles use Center, Radius and, for arcs, Start and Sweep in radians.
type Curve struct {
	Kind   CurveKind
	A, B   r2.Vec
	Center r2.Vec
	Radius float64
	Start  float64
	Sweep  float64
}

// Line returns a straight segment from a to b.
func Line(a, b r2.Vec) Curve {
	return Curve{Kind: CurveLine, A: a, B: b}
}

// Midpoint returns the point halfway along the curve.
func (c Curve) Midpoint() r2.Vec {
	switch c.Kind {
	case CurveLine:
		return r2.Scale(0.5, r2.Add(c.A, c.B))
	case CurveArc:
		return c.pointAt(c.Start + c.Sweep/2)
	default:
		return c.pointAt(0)
	}
}

// Position returns the reference position used by positional filters:
// the midpoint for lines and arcs, the center for full circles.
func (c Curve) Position() r2.Vec {
	if c.Kind == CurveCircle {
		return c.Center
	}
	return c.Midpoint()
}

// Normal returns a unit vector perpendicular to the curve at its midpoint.
// Its orientation relative to the sketch region is not defined.
func (c Curve) Normal() r2.Vec {
	if c.Kind == CurveLine {
		d := r2.Sub(c.B, c.A)
		return r2.Unit(r2.Vec{X: -d.Y, Y: d.X})
	}
	return r2.Unit(r2.Sub(c.Midpoint(), c.Center))
}

// Length returns the curve length.
func (c Curve) Length() float64 {
	switch c.Kind {
	case CurveLine:
		return r2.Norm(r2.Sub(c.B, c.A))
	case CurveArc:
		return math.Abs(c.Sweep) * c.Radius
	default:
		return 2 * math.Pi * c.Radius
	}
}

// Bounds returns the axis-aligned bounding box of the curve.
func (c Curve) Bounds() r2.Box {
	switch c.Kind {
	case CurveLine:
		return r2.Box{
			Min: r2.Vec{X: math.Min(c.A.X, c.B.X), Y: math.Min(c.A.Y, c.B.Y)},
			Max: r2.Vec{X: math.Max(c.A.X, c.B.X), Y: math.Max(c.A.Y, c.B.Y)},
		}
	case CurveArc:
		a, b := c.pointAt(c.Start), c.pointAt(c.Start+c.Sweep)
		box := r2.Box{
			Min: r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
			Max: r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
		}
		for k := 0; k < 4; k++ {
			ang := float64(k) * math.Pi / 2
			if c.sweeps(ang) {
				box = growBox(box, c.pointAt(ang))
			}
		}
		return box
	default:
		r := r2.Vec{X: c.Radius, Y: c.Radius}
		return r2.Box{Min: r2.Sub(c.Center, r), Max: r2.Add(c.Center, r)}
	}
}

// Samples returns n+1 points spread along the curve, endpoints included.
func (c Curve) Samples(n int) []r2.Vec {
	if n < 1 {
		n = 1
	}
	pts := make([]r2.Vec, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		switch c.Kind {
		case CurveLine:
			pts = append(pts, r2.Add(c.A, r2.Scale(t, r2.Sub(c.B, c.A))))
		case CurveArc:
			pts = append(pts, c.pointAt(c.Start+t*c.Sweep))
		default:
			pts = append(pts, c.pointAt(t*2*math.Pi))
		}
	}
	return pts
}

// Along reports whether line o lies on the infinite line through c and its
// midpoint falls within c's span. Arcs and circles never run along anything.
func (c Curve) Along(o Curve, tol float64) bool {
	if c.Kind != CurveLine || o.Kind != CurveLine {
		return false
	}
	d := r2.Sub(c.B, c.A)
	l := r2.Norm(d)
	if l < tol {
		return false
	}
	off := func(p r2.Vec) float64 { return math.Abs(r2.Cross(d, r2.Sub(p, c.A))) / l }
	if off(o.A) > tol || off(o.B) > tol {
		return false
	}
	t := r2.Dot(d, r2.Sub(o.Midpoint(), c.A)) / (l * l)
	return t >= -tol/l && t <= 1+tol/l
}

// SameAs reports whether two curves describe the same geometry within tol.
func (c Curve) SameAs(o Curve, tol float64) bool {
	if c.Kind != o.Kind {
		return false
	}
	near := func(a, b r2.Vec) bool { return r2.Norm(r2.Sub(a, b)) <= tol }
	switch c.Kind {
	case CurveLine:
		return (near(c.A, o.A) && near(c.B, o.B)) || (near(c.A, o.B) && near(c.B, o.A))
	case CurveArc:
		return near(c.Center, o.Center) && math.Abs(c.Radius-o.Radius) <= tol &&
			near(c.Midpoint(), o.Midpoint())
	default:
		return near(c.Center, o.Center) && math.Abs(c.Radius-o.Radius) <= tol
	}
}

func (c Curve) pointAt(ang float64) r2.Vec {
	return r2.Add(c.Center, r2.Vec{X: c.Radius * math.Cos(ang), Y: c.Radius * math.Sin(ang)})
}

// sweeps reports whether the arc passes through angle ang.
func (c Curve) sweeps(ang float64) bool {
	lo, hi := c.Start, c.Start+c.Sweep
	if hi < lo {
		lo, hi = hi, lo
	}
	for ang < lo {
		ang += 2 * math.Pi
	}
	return ang <= hi
}

func growBox(b r2.Box, p r2.Vec) r2.Box {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	return b
}

// splitLines cuts every line at the points where other lines cross or touch
// it, so that each resulting piece lies entirely on or entirely off the
// boundary of a boolean sketch region. Arcs and circles pass through.
func splitLines(curves []Curve) []Curve {
	const eps = 1e-9
	var out []Curve
	for i, c := range curves {
		if c.Kind != CurveLine {
			out = append(out, c)
			continue
		}
		ts := []float64{0, 1}
		for j, o := range curves {
			if i == j || o.Kind != CurveLine {
				continue
			}
			if t, ok := lineCut(c, o); ok && t > eps && t < 1-eps {
				ts = append(ts, t)
			}
		}
		sort.Float64s(ts)
		d := r2.Sub(c.B, c.A)
		for k := 1; k < len(ts); k++ {
			if ts[k]-ts[k-1] <= eps {
				continue
			}
			a := r2.Add(c.A, r2.Scale(ts[k-1], d))
			b := r2.Add(c.A, r2.Scale(ts[k], d))
			out = append(out, Line(a, b))
		}
	}
	return out
}

// lineCut returns the parameter along c where segment o crosses or touches it.
func lineCut(c, o Curve) (float64, bool) {
	const eps = 1e-9
	d1 := r2.Sub(c.B, c.A)
	d2 := r2.Sub(o.B, o.A)
	den := d1.X*d2.Y - d1.Y*d2.X
	if math.Abs(den) < eps {
		return 0, false
	}
	w := r2.Sub(o.A, c.A)
	t := (w.X*d2.Y - w.Y*d2.X) / den
	u := (w.X*d1.Y - w.Y*d1.X) / den
	if u < -eps || u > 1+eps {
		return 0, false
	}
	return t, true
}
