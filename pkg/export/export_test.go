package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/hschendel/stl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cube returns a welded unit cube with outward facing triangles.
func cube() *kernel.Mesh {
	faces := [][3][3]float32{
		{{0, 0, 0}, {0, 1, 0}, {1, 1, 0}}, {{0, 0, 0}, {1, 1, 0}, {1, 0, 0}},
		{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}}, {{0, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}}, {{0, 0, 0}, {1, 0, 1}, {0, 0, 1}},
		{{0, 1, 0}, {0, 1, 1}, {1, 1, 1}}, {{0, 1, 0}, {1, 1, 1}, {1, 1, 0}},
		{{0, 0, 0}, {0, 0, 1}, {0, 1, 1}}, {{0, 0, 0}, {0, 1, 1}, {0, 1, 0}},
		{{1, 0, 0}, {1, 1, 0}, {1, 1, 1}}, {{1, 0, 0}, {1, 1, 1}, {1, 0, 1}},
	}
	m := &kernel.Mesh{PartName: "cube"}
	for i, f := range faces {
		for j, v := range f {
			m.Vertices = append(m.Vertices, v[0], v[1], v[2])
			m.Normals = append(m.Normals, 0, 0, 0)
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m.Weld(1e-6)
}

var stamp = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestWriteSTEPStructure(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSTEP(&buf, cube(), "NoCap", stamp))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "ISO-10303-21;\nHEADER;\n"))
	assert.True(t, strings.HasSuffix(out, "ENDSEC;\nEND-ISO-10303-21;\n"))
	assert.Contains(t, out, "AUTOMOTIVE_DESIGN")
	assert.Contains(t, out, "FILE_NAME('NoCap.step','2024-03-01T12:00:00'")
	assert.Contains(t, out, "SI_UNIT(.MILLI.,.METRE.)")

	// 8 corners plus the placement origin.
	assert.Equal(t, 9, strings.Count(out, "CARTESIAN_POINT("))
	assert.Equal(t, 12, strings.Count(out, "POLY_LOOP("))
	assert.Equal(t, 12, strings.Count(out, "=FACE("))
	assert.Equal(t, 1, strings.Count(out, "CLOSED_SHELL("))
	assert.Equal(t, 1, strings.Count(out, "=FACETED_BREP("))
}

func TestWriteSTEPReferencesResolve(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSTEP(&buf, cube(), "NoCap", stamp))

	defined := map[string]bool{}
	def := regexp.MustCompile(`(?m)^(#\d+)=`)
	for _, m := range def.FindAllStringSubmatch(buf.String(), -1) {
		assert.False(t, defined[m[1]], "entity %s defined twice", m[1])
		defined[m[1]] = true
	}
	ref := regexp.MustCompile(`[(,](#\d+)`)
	for _, m := range ref.FindAllStringSubmatch(buf.String(), -1) {
		assert.True(t, defined[m[1]], "reference %s is not defined", m[1])
	}
}

func TestWriteSTEPRealsHaveDecimalPoint(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0."},
		{1, "1."},
		{-2, "-2."},
		{0.25, "0.25"},
		{18.5, "18.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stepReal(tt.in))
	}
}

func TestWriteSTEPQuotesName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSTEP(&buf, cube(), "Bob's cap", stamp))
	assert.Contains(t, buf.String(), "PRODUCT('Bob''s cap'")
}

func TestWriteSTEPEmptyMesh(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteSTEP(&buf, &kernel.Mesh{}, "NoCap", stamp))
	assert.Error(t, WriteSTEP(&buf, nil, "NoCap", stamp))
}

func TestWriteSTLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSTL(&buf, cube(), "NoCap"))
	// Binary STL: 80 byte header, count, 50 bytes per triangle.
	assert.Equal(t, 84+12*50, buf.Len())

	solid, err := stl.ReadAll(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, solid.Triangles, 12)
	assert.Equal(t, stl.Vec3{0, 0, -1}, solid.Triangles[0].Normal)
	assert.Equal(t, stl.Vec3{0, 0, 1}, solid.Triangles[2].Normal)
}

func TestFilesOverwrite(t *testing.T) {
	dir := t.TempDir()
	step := filepath.Join(dir, "NoCap.step")
	stlPath := filepath.Join(dir, "NoCap.stl")
	require.NoError(t, os.WriteFile(step, []byte("stale contents that are long enough to notice"), 0o644))

	require.NoError(t, STEP(cube(), step, "NoCap"))
	require.NoError(t, STL(cube(), stlPath, "NoCap"))

	data, err := os.ReadFile(step)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "ISO-10303-21;"))
	assert.NotContains(t, string(data), "stale")

	solid, err := stl.ReadFile(stlPath)
	require.NoError(t, err)
	assert.Len(t, solid.Triangles, 12)
}

func TestFileErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "NoCap.step")
	tests := []struct {
		name   string
		format string
		write  func() error
	}{
		{"step", "step", func() error { return STEP(cube(), missing, "NoCap") }},
		{"stl", "stl", func() error { return STL(cube(), missing, "NoCap") }},
		{"empty mesh", "stl", func() error { return STL(&kernel.Mesh{}, filepath.Join(t.TempDir(), "x.stl"), "NoCap") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.write()
			var ee *kernel.ExportError
			require.True(t, errors.As(err, &ee), "error = %v", err)
			assert.Equal(t, tt.format, ee.Format)
		})
	}
}
