package kernel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Mode says whether a sketch item adds to or cuts from the region built so far.
type Mode int

const (
	ModeAdd Mode = iota
	ModeSubtract
)

func (m Mode) String() string {
	if m == ModeSubtract {
		return "subtract"
	}
	return "add"
}

// Shape is a planar primitive usable in a sketch.
type Shape interface {
	// Outline returns the boundary curves of the primitive on its own.
	Outline() []Curve
	// MirrorX returns the shape reflected about the X axis (y -> -y).
	MirrorX() Shape
	validate() error
}

// Circle is a circle of the given radius.
type Circle struct {
	Center r2.Vec
	Radius float64
}

func (c Circle) Outline() []Curve {
	return []Curve{{Kind: CurveCircle, Center: c.Center, Radius: c.Radius}}
}

func (c Circle) MirrorX() Shape {
	c.Center.Y = -c.Center.Y
	return c
}

func (c Circle) validate() error {
	if c.Radius <= 0 {
		return fmt.Errorf("circle radius %.4f must be positive", c.Radius)
	}
	return nil
}

// Rect is a Width x Height rectangle centered on Center, rotated
// counter-clockwise by Angle degrees, with corners rounded by Round.
type Rect struct {
	Center r2.Vec
	Width  float64
	Height float64
	Angle  float64
	Round  float64
}

func (r Rect) Outline() []Curve {
	hw, hh, rr := r.Width/2, r.Height/2, r.Round
	var local []Curve
	local = append(local,
		Line(r2.Vec{X: -hw + rr, Y: -hh}, r2.Vec{X: hw - rr, Y: -hh}),
		Line(r2.Vec{X: hw, Y: -hh + rr}, r2.Vec{X: hw, Y: hh - rr}),
		Line(r2.Vec{X: hw - rr, Y: hh}, r2.Vec{X: -hw + rr, Y: hh}),
		Line(r2.Vec{X: -hw, Y: hh - rr}, r2.Vec{X: -hw, Y: -hh + rr}),
	)
	if rr > 0 {
		corners := []struct {
			c     r2.Vec
			start float64
		}{
			{r2.Vec{X: hw - rr, Y: -hh + rr}, -math.Pi / 2},
			{r2.Vec{X: hw - rr, Y: hh - rr}, 0},
			{r2.Vec{X: -hw + rr, Y: hh - rr}, math.Pi / 2},
			{r2.Vec{X: -hw + rr, Y: -hh + rr}, math.Pi},
		}
		for _, k := range corners {
			local = append(local, Curve{Kind: CurveArc, Center: k.c, Radius: rr, Start: k.start, Sweep: math.Pi / 2})
		}
	}
	out := make([]Curve, 0, len(local))
	for _, c := range local {
		if c.Kind == CurveLine && c.Length() < 1e-12 {
			continue
		}
		out = append(out, r.place(c))
	}
	return out
}

// place rotates a curve given in rectangle-local coordinates and moves it
// to the rectangle's center.
func (r Rect) place(c Curve) Curve {
	ang := r.Angle * math.Pi / 180
	sin, cos := math.Sincos(ang)
	tf := func(p r2.Vec) r2.Vec {
		return r2.Add(r.Center, r2.Vec{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos})
	}
	c.A, c.B, c.Center = tf(c.A), tf(c.B), tf(c.Center)
	c.Start += ang
	return c
}

func (r Rect) MirrorX() Shape {
	r.Center.Y = -r.Center.Y
	r.Angle = -r.Angle
	return r
}

func (r Rect) validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("rectangle %.4fx%.4f must have positive size", r.Width, r.Height)
	}
	if r.Round < 0 || r.Round > math.Min(r.Width, r.Height)/2 {
		return fmt.Errorf("rectangle corner radius %.4f does not fit %.4fx%.4f", r.Round, r.Width, r.Height)
	}
	return nil
}

// Item is one primitive of a sketch together with its combine mode.
type Item struct {
	Shape Shape
	Mode  Mode
}

// Sketch is an ordered list of primitives combined left to right: each
// added item is unioned with the region so far, each subtracted item is cut
// from it. A sketch is placed on a workplane by the operation that uses it.
type Sketch struct {
	Name  string
	Items []Item
}

// NewSketch returns an empty sketch.
func NewSketch(name string) *Sketch {
	return &Sketch{Name: name}
}

// Add unions a shape with the sketch region.
func (s *Sketch) Add(sh Shape) *Sketch {
	s.Items = append(s.Items, Item{Shape: sh, Mode: ModeAdd})
	return s
}

// Subtract cuts a shape from the sketch region.
func (s *Sketch) Subtract(sh Shape) *Sketch {
	s.Items = append(s.Items, Item{Shape: sh, Mode: ModeSubtract})
	return s
}

// MirrorX appends a reflected copy of every item about the X axis.
func (s *Sketch) MirrorX() *Sketch {
	n := len(s.Items)
	for i := 0; i < n; i++ {
		it := s.Items[i]
		s.Items = append(s.Items, Item{Shape: it.Shape.MirrorX(), Mode: it.Mode})
	}
	return s
}

// Validate checks the sketch is non-empty, starts with an added shape and
// that every primitive is well formed.
func (s *Sketch) Validate() error {
	if s == nil || len(s.Items) == 0 {
		return errors.New("sketch is empty")
	}
	if s.Items[0].Mode != ModeAdd {
		return fmt.Errorf("sketch %q starts with a subtracted shape", s.Name)
	}
	for i, it := range s.Items {
		if err := it.Shape.validate(); err != nil {
			return fmt.Errorf("sketch %q item %d: %w", s.Name, i, err)
		}
	}
	return nil
}

// Candidates returns every primitive outline curve, with lines split where
// they meet other lines. Some candidates lie inside or outside the final
// region; callers trim them against the realised Region.
func (s *Sketch) Candidates() []Curve {
	var all []Curve
	for _, it := range s.Items {
		all = append(all, it.Shape.Outline()...)
	}
	return splitLines(all)
}

// Bounds returns a box containing every added primitive.
func (s *Sketch) Bounds() r2.Box {
	first := true
	var box r2.Box
	for _, it := range s.Items {
		if it.Mode != ModeAdd {
			continue
		}
		for _, c := range it.Shape.Outline() {
			b := c.Bounds()
			if first {
				box, first = b, false
				continue
			}
			box = growBox(growBox(box, b.Min), b.Max)
		}
	}
	return box
}

// Outline trims the sketch candidates to the curves lying on the boundary of
// the realised region: the region must be inside on one side of the curve
// midpoint and outside on the other.
func Outline(sk *Sketch, reg Region) []Curve {
	const probe = 1e-3
	var out []Curve
	for _, c := range sk.Candidates() {
		m, n := c.Midpoint(), c.Normal()
		a := r2.Add(m, r2.Scale(probe, n))
		b := r2.Sub(m, r2.Scale(probe, n))
		da, db := reg.Distance(a.X, a.Y), reg.Distance(b.X, b.Y)
		if (da < 0) != (db < 0) {
			out = append(out, c)
		}
	}
	return out
}
