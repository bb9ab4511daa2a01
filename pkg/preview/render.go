// Package preview renders keycap meshes to PNG and serves them over HTTP.
package preview

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/chazu/nocap/pkg/model"
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
)

const (
	supersample = 2  // rendered at this multiple and downsampled
	fovy        = 30 // vertical field of view in degrees
	near, far   = 1, 10
	arcSegments = 48
	gridStep    = 1.0 // millimetres between grid lines
)

var (
	eye    = fauxgl.V(2.4, -2.4, 2.4) // iso view from above the cavity
	center = fauxgl.V(0, 0, 0)
	up     = fauxgl.V(0, 0, 1)
	light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
)

// Options controls a rendering.
type Options struct {
	Width, Height int

	// Grid names the axes whose normal planes get a millimetre grid through
	// the origin, e.g. "z" or "xyz".
	Grid string
	Axes bool

	// Color is a named colour or #rrggbb hex value for the part.
	Color       string
	Background  string
	Transparent bool

	// Highlight edges are drawn over the part in HighlightColor.
	Highlight      []model.Edge
	HighlightColor string
}

// DefaultOptions returns an 800x600 magenta render on the default
// background.
func DefaultOptions() Options {
	return Options{
		Width:          800,
		Height:         600,
		Color:          "magenta",
		Background:     "#FFF8E3",
		HighlightColor: "yellow",
	}
}

var namedColors = map[string]string{
	"black":   "#000000",
	"white":   "#FFFFFF",
	"gray":    "#808080",
	"red":     "#FF0000",
	"green":   "#00A000",
	"blue":    "#0000FF",
	"cyan":    "#00FFFF",
	"magenta": "#FF00FF",
	"yellow":  "#FFD700",
	"orange":  "#FFA500",
	"teal":    "#468966",
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ParseColor resolves a named or hex colour.
func ParseColor(s string) (fauxgl.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if hex, ok := namedColors[s]; ok {
		s = hex
	}
	if !hexColor.MatchString(s) {
		return fauxgl.Color{}, fmt.Errorf("unknown color %q", s)
	}
	return fauxgl.HexColor(s), nil
}

// ParseGrid reports which axis planes get a grid.
func ParseGrid(s string) (planes [3]bool, err error) {
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'x':
			planes[0] = true
		case 'y':
			planes[1] = true
		case 'z':
			planes[2] = true
		default:
			return planes, fmt.Errorf("grid axis %q is not one of x, y, z", r)
		}
	}
	return planes, nil
}

// fit maps model coordinates into the bi-unit cube the camera frames.
type fit struct {
	center [3]float64
	scale  float64
}

func fitMesh(m *kernel.Mesh) fit {
	min, max := m.Bounds()
	f := fit{scale: 1}
	size := 0.0
	for i := 0; i < 3; i++ {
		f.center[i] = (min[i] + max[i]) / 2
		size = math.Max(size, max[i]-min[i])
	}
	if size > 0 {
		f.scale = 2 / size
	}
	return f
}

func (f fit) v(x, y, z float64) fauxgl.Vector {
	return fauxgl.V((x-f.center[0])*f.scale, (y-f.center[1])*f.scale, (z-f.center[2])*f.scale)
}

// Render draws the mesh with a Phong shader and the requested overlays.
func Render(m *kernel.Mesh, opts Options) (image.Image, error) {
	if m == nil || m.IsEmpty() {
		return nil, fmt.Errorf("nothing to render")
	}
	def := DefaultOptions()
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Color == "" {
		opts.Color = def.Color
	}
	if opts.Background == "" {
		opts.Background = def.Background
	}
	if opts.HighlightColor == "" {
		opts.HighlightColor = def.HighlightColor
	}
	color, err := ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}
	bg, err := ParseColor(opts.Background)
	if err != nil {
		return nil, err
	}
	hl, err := ParseColor(opts.HighlightColor)
	if err != nil {
		return nil, err
	}
	planes, err := ParseGrid(opts.Grid)
	if err != nil {
		return nil, err
	}

	f := fitMesh(m)
	tris := make([]*fauxgl.Triangle, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		tris = append(tris, fauxgl.NewTriangleForPoints(
			f.v(tri[0][0], tri[0][1], tri[0][2]),
			f.v(tri[1][0], tri[1][1], tri[1][2]),
			f.v(tri[2][0], tri[2][1], tri[2][2]),
		))
	}
	mesh := fauxgl.NewTriangleMesh(tris)
	mesh.SmoothNormalsThreshold(fauxgl.Radians(30))

	w, h := opts.Width*supersample, opts.Height*supersample
	ctx := fauxgl.NewContext(w, h)
	ctx.ClearColorBufferWith(bg)
	ctx.LineWidth = supersample
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, float64(w)/float64(h), near, far)

	if lines := gridLines(m, f, planes); len(lines) > 0 {
		ctx.Shader = fauxgl.NewSolidColorShader(matrix, fauxgl.HexColor("#C8C8C8"))
		ctx.DrawMesh(fauxgl.NewLineMesh(lines))
	}

	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = color
	if opts.Transparent {
		shader.ObjectColor.A = 0.45
		ctx.AlphaBlend = true
		ctx.WriteDepth = false
	}
	ctx.Shader = shader
	ctx.DrawMesh(mesh)
	ctx.WriteDepth = true

	// Overlays stay visible through the part.
	ctx.ReadDepth = false
	if opts.Axes {
		for i, c := range []string{"#E00000", "#00A000", "#0000E0"} {
			var end [3]float64
			end[i] = 1 / f.scale
			ctx.Shader = fauxgl.NewSolidColorShader(matrix, fauxgl.HexColor(c))
			ctx.DrawMesh(fauxgl.NewLineMesh([]*fauxgl.Line{
				fauxgl.NewLineForPoints(f.v(0, 0, 0), f.v(end[0], end[1], end[2])),
			}))
		}
	}
	if lines := edgeLines(opts.Highlight, f); len(lines) > 0 {
		ctx.Shader = fauxgl.NewSolidColorShader(matrix, hl)
		ctx.DrawMesh(fauxgl.NewLineMesh(lines))
	}
	ctx.ReadDepth = true

	return resize.Resize(uint(opts.Width), uint(opts.Height), ctx.Image(), resize.Bilinear), nil
}

// gridLines draws a millimetre grid in each selected axis plane through the
// origin, reaching a quarter of the part size past its bounds.
func gridLines(m *kernel.Mesh, f fit, planes [3]bool) []*fauxgl.Line {
	min, max := m.Bounds()
	pad := 0.5 / f.scale
	var lines []*fauxgl.Line
	for axis, on := range planes {
		if !on {
			continue
		}
		// u and v are the two in-plane axes.
		u, v := (axis+1)%3, (axis+2)%3
		lo := [3]float64{math.Floor(min[0] - pad), math.Floor(min[1] - pad), math.Floor(min[2] - pad)}
		hi := [3]float64{math.Ceil(max[0] + pad), math.Ceil(max[1] + pad), math.Ceil(max[2] + pad)}
		line := func(a, b [3]float64) {
			lines = append(lines, fauxgl.NewLineForPoints(f.v(a[0], a[1], a[2]), f.v(b[0], b[1], b[2])))
		}
		for s := lo[u]; s <= hi[u]; s += gridStep {
			var a, b [3]float64
			a[u], b[u] = s, s
			a[v], b[v] = lo[v], hi[v]
			line(a, b)
		}
		for s := lo[v]; s <= hi[v]; s += gridStep {
			var a, b [3]float64
			a[v], b[v] = s, s
			a[u], b[u] = lo[u], hi[u]
			line(a, b)
		}
	}
	return lines
}

func edgeLines(edges []model.Edge, f fit) []*fauxgl.Line {
	var lines []*fauxgl.Line
	for _, e := range edges {
		n := 1
		if e.Curve.Kind != kernel.CurveLine {
			n = arcSegments
		}
		pts := e.Curve.Samples(n)
		for i := 1; i < len(pts); i++ {
			lines = append(lines, fauxgl.NewLineForPoints(
				f.v(pts[i-1].X, pts[i-1].Y, e.Z),
				f.v(pts[i].X, pts[i].Y, e.Z),
			))
		}
	}
	return lines
}

// WritePNG encodes a rendering of the mesh as PNG.
func WritePNG(w io.Writer, m *kernel.Mesh, opts Options) error {
	img, err := Render(m, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// SavePNG renders the mesh to path, replacing any existing file.
func SavePNG(path string, m *kernel.Mesh, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return &kernel.ExportError{Format: "png", Path: path, Err: err}
	}
	if err := WritePNG(f, m, opts); err != nil {
		f.Close()
		return &kernel.ExportError{Format: "png", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &kernel.ExportError{Format: "png", Path: path, Err: err}
	}
	return nil
}
