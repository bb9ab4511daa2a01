// Package export writes finished keycap meshes to interchange files.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chazu/nocap/pkg/kernel"
)

// stepWriter numbers entities as it writes them.
type stepWriter struct {
	w    *bufio.Writer
	next int
	err  error
}

func (s *stepWriter) entity(format string, args ...any) int {
	s.next++
	if s.err == nil {
		_, s.err = fmt.Fprintf(s.w, "#%d=%s;\n", s.next, fmt.Sprintf(format, args...))
	}
	return s.next
}

func stepReal(v float64) string {
	str := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(str, ".eE") {
		str += "."
	}
	return str
}

func stepString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func refs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = "#" + strconv.Itoa(id)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// WriteSTEP writes the mesh as an ISO 10303-21 AP214 file holding a single
// faceted B-rep, one planar face per triangle, in millimetres.
func WriteSTEP(w io.Writer, m *kernel.Mesh, name string, stamp time.Time) error {
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("empty mesh")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ISO-10303-21;\nHEADER;\n")
	fmt.Fprintf(bw, "FILE_DESCRIPTION((%s),'2;1');\n", stepString(name+" faceted solid"))
	fmt.Fprintf(bw, "FILE_NAME(%s,%s,(''),(''),'nocap','nocap','');\n",
		stepString(name+".step"), stepString(stamp.UTC().Format("2006-01-02T15:04:05")))
	fmt.Fprintf(bw, "FILE_SCHEMA(('AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }'));\nENDSEC;\nDATA;\n")

	s := &stepWriter{w: bw}
	ac := s.entity("APPLICATION_CONTEXT('core data for automotive mechanical design processes')")
	s.entity("APPLICATION_PROTOCOL_DEFINITION('international standard','automotive_design',2000,#%d)", ac)
	pc := s.entity("PRODUCT_CONTEXT('',#%d,'mechanical')", ac)
	prod := s.entity("PRODUCT(%s,%s,'',(#%d))", stepString(name), stepString(name), pc)
	pdf := s.entity("PRODUCT_DEFINITION_FORMATION('','',#%d)", prod)
	pdc := s.entity("PRODUCT_DEFINITION_CONTEXT('part definition',#%d,'design')", ac)
	pd := s.entity("PRODUCT_DEFINITION('design','',#%d,#%d)", pdf, pdc)
	pds := s.entity("PRODUCT_DEFINITION_SHAPE('','',#%d)", pd)

	lu := s.entity("(LENGTH_UNIT() NAMED_UNIT(*) SI_UNIT(.MILLI.,.METRE.))")
	au := s.entity("(NAMED_UNIT(*) PLANE_ANGLE_UNIT() SI_UNIT($,.RADIAN.))")
	sau := s.entity("(NAMED_UNIT(*) SI_UNIT($,.STERADIAN.) SOLID_ANGLE_UNIT())")
	unc := s.entity("UNCERTAINTY_MEASURE_WITH_UNIT(LENGTH_MEASURE(1.E-06),#%d,'distance_accuracy_value','')", lu)
	ctx := s.entity("(GEOMETRIC_REPRESENTATION_CONTEXT(3) GLOBAL_UNCERTAINTY_ASSIGNED_CONTEXT((#%d)) "+
		"GLOBAL_UNIT_ASSIGNED_CONTEXT((#%d,#%d,#%d)) REPRESENTATION_CONTEXT('',''))", unc, lu, au, sau)

	origin := s.entity("CARTESIAN_POINT('',(0.,0.,0.))")
	zdir := s.entity("DIRECTION('',(0.,0.,1.))")
	xdir := s.entity("DIRECTION('',(1.,0.,0.))")
	axis := s.entity("AXIS2_PLACEMENT_3D('',#%d,#%d,#%d)", origin, zdir, xdir)

	points := make([]int, m.VertexCount())
	for i := range points {
		v := m.Vertex(uint32(i))
		points[i] = s.entity("CARTESIAN_POINT('',(%s,%s,%s))", stepReal(v[0]), stepReal(v[1]), stepReal(v[2]))
	}
	faces := make([]int, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		i := m.Indices[3*t : 3*t+3]
		loop := s.entity("POLY_LOOP('',%s)", refs([]int{points[i[0]], points[i[1]], points[i[2]]}))
		bound := s.entity("FACE_OUTER_BOUND('',#%d,.T.)", loop)
		faces = append(faces, s.entity("FACE('',(#%d))", bound))
	}
	shell := s.entity("CLOSED_SHELL('',%s)", refs(faces))
	brep := s.entity("FACETED_BREP(%s,#%d)", stepString(name), shell)
	rep := s.entity("FACETED_BREP_SHAPE_REPRESENTATION(%s,(#%d,#%d),#%d)", stepString(name), axis, brep, ctx)
	s.entity("SHAPE_DEFINITION_REPRESENTATION(#%d,#%d)", pds, rep)

	if s.err != nil {
		return s.err
	}
	fmt.Fprintf(bw, "ENDSEC;\nEND-ISO-10303-21;\n")
	return bw.Flush()
}

// STEP writes the mesh to path, replacing any existing file.
func STEP(m *kernel.Mesh, path, name string) error {
	return writeFile("step", path, func(w io.Writer) error {
		return WriteSTEP(w, m, name, time.Now())
	})
}

func writeFile(format, path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return &kernel.ExportError{Format: format, Path: path, Err: err}
	}
	if err := write(f); err != nil {
		f.Close()
		return &kernel.ExportError{Format: format, Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &kernel.ExportError{Format: format, Path: path, Err: err}
	}
	return nil
}
