package kernel

import (
	"math"
	"sort"
)

// Mesh is a triangle mesh suitable for rendering and export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which model this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as float64 coordinates.
func (m *Mesh) Vertex(i uint32) [3]float64 {
	return [3]float64{
		float64(m.Vertices[3*i]),
		float64(m.Vertices[3*i+1]),
		float64(m.Vertices[3*i+2]),
	}
}

// Triangle returns the three corner positions of triangle t.
func (m *Mesh) Triangle(t int) [3][3]float64 {
	return [3][3]float64{
		m.Vertex(m.Indices[3*t]),
		m.Vertex(m.Indices[3*t+1]),
		m.Vertex(m.Indices[3*t+2]),
	}
}

// Bounds returns the axis-aligned bounds of all vertices.
func (m *Mesh) Bounds() (min, max [3]float64) {
	for i := 0; i < 3; i++ {
		min[i], max[i] = math.Inf(1), math.Inf(-1)
	}
	for v := 0; v < m.VertexCount(); v++ {
		p := m.Vertex(uint32(v))
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], p[i])
			max[i] = math.Max(max[i], p[i])
		}
	}
	return min, max
}

// Volume returns the enclosed volume using the divergence theorem.
// The result is only meaningful for closed, consistently oriented meshes.
func (m *Mesh) Volume() float64 {
	var vol float64
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		a, b, c := tri[0], tri[1], tri[2]
		vol += a[0]*(b[1]*c[2]-b[2]*c[1]) -
			a[1]*(b[0]*c[2]-b[2]*c[0]) +
			a[2]*(b[0]*c[1]-b[1]*c[0])
	}
	return vol / 6
}

// Weld merges vertices closer than tol and drops triangles that collapse,
// returning a new indexed mesh. Normals are recomputed per face and stored
// on the welded vertices as area-weighted averages.
func (m *Mesh) Weld(tol float64) *Mesh {
	type key [3]int64
	quant := func(p [3]float64) key {
		return key{
			int64(math.Round(p[0] / tol)),
			int64(math.Round(p[1] / tol)),
			int64(math.Round(p[2] / tol)),
		}
	}
	out := &Mesh{PartName: m.PartName}
	index := make(map[key]uint32)
	var acc [][3]float64
	lookup := func(p [3]float64) uint32 {
		k := quant(p)
		if i, ok := index[k]; ok {
			return i
		}
		i := uint32(len(index))
		index[k] = i
		out.Vertices = append(out.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
		acc = append(acc, [3]float64{})
		return i
	}
	for t := 0; t < m.TriangleCount(); t++ {
		tri := m.Triangle(t)
		ia, ib, ic := lookup(tri[0]), lookup(tri[1]), lookup(tri[2])
		if ia == ib || ib == ic || ia == ic {
			continue
		}
		out.Indices = append(out.Indices, ia, ib, ic)
		n := cross(sub(tri[1], tri[0]), sub(tri[2], tri[0]))
		for _, i := range []uint32{ia, ib, ic} {
			for j := 0; j < 3; j++ {
				acc[i][j] += n[j]
			}
		}
	}
	out.Normals = make([]float32, 0, len(out.Vertices))
	for _, n := range acc {
		l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if l == 0 {
			l = 1
		}
		out.Normals = append(out.Normals, float32(n[0]/l), float32(n[1]/l), float32(n[2]/l))
	}
	return out
}

// OpenEdges counts directed edges that have no matching reverse edge.
// A welded mesh with zero open edges is closed and consistently oriented.
func (m *Mesh) OpenEdges() int {
	type edge [2]uint32
	count := make(map[edge]int)
	for t := 0; t < m.TriangleCount(); t++ {
		i := m.Indices[3*t : 3*t+3]
		for k := 0; k < 3; k++ {
			a, b := i[k], i[(k+1)%3]
			count[edge{a, b}]++
			count[edge{b, a}]--
		}
	}
	open := 0
	for _, c := range count {
		if c != 0 {
			open++
		}
	}
	return open / 2
}

// CloseHoles fills boundary loops of at most maxLoop edges with triangle
// fans and returns the number of loops filled. Marching cubes leaves such
// cracks where neighbouring cells split an ambiguous face differently.
// Loops that pass through a vertex twice are left open.
func (m *Mesh) CloseHoles(maxLoop int) int {
	type edge [2]uint32
	count := make(map[edge]int)
	for t := 0; t < m.TriangleCount(); t++ {
		i := m.Indices[3*t : 3*t+3]
		for k := 0; k < 3; k++ {
			count[edge{i[k], i[(k+1)%3]}]++
		}
	}
	// An unmatched edge a->b needs a filling edge b->a; succ walks the hole
	// in that direction.
	succ := make(map[uint32]uint32)
	ambiguous := make(map[uint32]bool)
	var starts []uint32
	for e, c := range count {
		if c != 1 || count[edge{e[1], e[0]}] != 0 {
			continue
		}
		if _, dup := succ[e[1]]; dup {
			ambiguous[e[1]] = true
		}
		succ[e[1]] = e[0]
		starts = append(starts, e[1])
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	filled := 0
	done := make(map[uint32]bool)
	for _, start := range starts {
		if done[start] {
			continue
		}
		loop := []uint32{start}
		ok := true
		for v := succ[start]; v != start; v = succ[v] {
			if _, has := succ[v]; !has || ambiguous[v] || done[v] || len(loop) > maxLoop {
				ok = false
				break
			}
			loop = append(loop, v)
			done[v] = true
		}
		done[start] = true
		if !ok || len(loop) < 3 || len(loop) > maxLoop {
			continue
		}
		for k := 1; k+1 < len(loop); k++ {
			m.Indices = append(m.Indices, loop[0], loop[k], loop[k+1])
		}
		filled++
	}
	return filled
}

// FaceNormal returns the unit normal of triangle t.
func (m *Mesh) FaceNormal(t int) [3]float64 {
	tri := m.Triangle(t)
	n := cross(sub(tri[1], tri[0]), sub(tri[2], tri[0]))
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return n
	}
	return [3]float64{n[0] / l, n[1] / l, n[2] / l}
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
