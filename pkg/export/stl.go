package export

import (
	"fmt"
	"io"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/hschendel/stl"
)

// toSTL converts an indexed mesh into an STL solid with per-face normals.
func toSTL(m *kernel.Mesh, name string) *stl.Solid {
	solid := &stl.Solid{Name: name, Triangles: make([]stl.Triangle, m.TriangleCount())}
	for t := range solid.Triangles {
		tri := m.Triangle(t)
		n := m.FaceNormal(t)
		st := &solid.Triangles[t]
		st.Normal = stl.Vec3{float32(n[0]), float32(n[1]), float32(n[2])}
		for j, v := range tri {
			st.Vertices[j] = stl.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
		}
	}
	return solid
}

// WriteSTL writes the mesh as binary STL.
func WriteSTL(w io.Writer, m *kernel.Mesh, name string) error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("empty mesh")
	}
	return toSTL(m, name).WriteAll(w)
}

// STL writes the mesh to path, replacing any existing file.
func STL(m *kernel.Mesh, path, name string) error {
	return writeFile("stl", path, func(w io.Writer) error {
		return WriteSTL(w, m, name)
	})
}
