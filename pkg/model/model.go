package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/nocap/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r2"
)

// Model is the solid under construction plus its feature ledger. It has a
// single owner and is not safe for concurrent use.
type Model struct {
	k     kernel.Kernel
	solid kernel.Solid
	gen   uint64
	stage string

	edges     []*Edge
	faces     []*Face
	edgeIndex map[FeatureID]*Edge
	faceIndex map[FeatureID]*Face
	regions   map[*kernel.Sketch]kernel.Region
	nextID    int
}

// New returns an empty model backed by the given kernel.
func New(k kernel.Kernel) *Model {
	return &Model{
		k:         k,
		edgeIndex: make(map[FeatureID]*Edge),
		faceIndex: make(map[FeatureID]*Face),
		regions:   make(map[*kernel.Sketch]kernel.Region),
	}
}

// Extrusion lists the features an extrusion created or found on its start
// and end planes.
type Extrusion struct {
	StartEdges []FeatureID
	EndEdges   []FeatureID
	StartFace  FeatureID
	EndFace    FeatureID
}

// Treatment lists the features a fillet or chamfer created.
type Treatment struct {
	Tangents []FeatureID
}

// Begin names the stage subsequent operations and errors belong to.
func (m *Model) Begin(stage string) {
	m.stage = stage
}

// Stage returns the current stage name.
func (m *Model) Stage() string { return m.stage }

// Generation returns a counter bumped by every mutation.
func (m *Model) Generation() uint64 { return m.gen }

// Solid returns the current kernel solid, or nil before the first extrusion.
func (m *Model) Solid() kernel.Solid { return m.solid }

// Kernel returns the kernel the model is built with.
func (m *Model) Kernel() kernel.Kernel { return m.k }

func (m *Model) opError(op string, err error) error {
	return &kernel.OperationError{Stage: m.stage, Op: op, Err: err}
}

func (m *Model) region(sk *kernel.Sketch) (kernel.Region, error) {
	if reg, ok := m.regions[sk]; ok {
		return reg, nil
	}
	reg, err := m.k.Region(sk)
	if err != nil {
		return nil, err
	}
	m.regions[sk] = reg
	return reg, nil
}

func (m *Model) newID(prefix string) FeatureID {
	m.nextID++
	return FeatureID(fmt.Sprintf("%s%d", prefix, m.nextID))
}

// Extrude sweeps a sketch from the workplane by amount along its normal.
// Negative amounts extrude against the normal. ModeAdd unions the prism with
// the solid, ModeSubtract cuts it away.
func (m *Model) Extrude(sk *kernel.Sketch, wp Workplane, amount float64, mode kernel.Mode) (*Extrusion, error) {
	op := "extrude " + mode.String()
	if amount == 0 || math.IsNaN(amount) {
		return nil, m.opError(op, errors.New("extrusion amount is zero"))
	}
	if wp.Normal != 1 && wp.Normal != -1 {
		return nil, m.opError(op, fmt.Errorf("workplane normal %d is not vertical", wp.Normal))
	}
	reg, err := m.region(sk)
	if err != nil {
		return nil, m.opError(op, err)
	}
	z0 := wp.Z
	z1 := wp.Z + amount*float64(wp.Normal)
	prism, err := m.k.Extrude(sk, z0, z1)
	if err != nil {
		return nil, m.opError(op, err)
	}
	switch {
	case m.solid == nil && mode == kernel.ModeSubtract:
		return nil, m.opError(op, errors.New("nothing to cut from"))
	case m.solid == nil:
		m.solid = prism
	case mode == kernel.ModeSubtract:
		m.solid = m.k.Difference(m.solid, prism)
	default:
		m.solid = m.k.Union(m.solid, prism)
	}
	m.mutated()

	curves := kernel.Outline(sk, reg)
	out := &Extrusion{
		StartEdges: m.proposeEdges(curves, z0, sk, reg),
		EndEdges:   m.proposeEdges(curves, z1, sk, reg),
		StartFace:  m.proposeFace(curves, z0, sk, reg),
		EndFace:    m.proposeFace(curves, z1, sk, reg),
	}
	return out, nil
}

// Trace records the sharp edges the outline of a sketch leaves on the plane
// at height z of the current solid, without changing it. Outline curves
// that are not edges there are skipped.
func (m *Model) Trace(sk *kernel.Sketch, z float64) ([]FeatureID, error) {
	if m.solid == nil {
		return nil, m.opError("trace", errors.New("model is empty"))
	}
	reg, err := m.region(sk)
	if err != nil {
		return nil, m.opError("trace", err)
	}
	return m.proposeEdges(kernel.Outline(sk, reg), z, sk, reg), nil
}

// Fillet rounds the given edges with radius r. Full circle edges leave two
// smooth tangent seams that are added to the ledger.
func (m *Model) Fillet(edges []*Edge, r float64) (*Treatment, error) {
	if err := m.checkEdges("fillet", edges); err != nil {
		return nil, err
	}
	if r <= 0 {
		return nil, m.opError("fillet", fmt.Errorf("radius %.4f must be positive", r))
	}
	for _, e := range edges {
		if err := m.support(e, r, r); err != nil {
			return nil, m.opError("fillet", fmt.Errorf("radius %.4f exceeds local support: %w", r, err))
		}
	}
	s, err := m.k.Fillet(m.solid, frames(edges), r)
	if err != nil {
		return nil, m.opError("fillet", err)
	}
	m.solid = s
	m.mutated()

	out := &Treatment{}
	for _, e := range edges {
		if e.Curve.Kind == kernel.CurveCircle {
			out.Tangents = append(out.Tangents, m.tangents(e, r)...)
		}
	}
	return out, nil
}

// Chamfer bevels the given edges by faceLen along the face and wallLen along
// the wall.
func (m *Model) Chamfer(edges []*Edge, faceLen, wallLen float64) (*Treatment, error) {
	if err := m.checkEdges("chamfer", edges); err != nil {
		return nil, err
	}
	if faceLen <= 0 || wallLen <= 0 {
		return nil, m.opError("chamfer", fmt.Errorf("lengths %.4f x %.4f must be positive", faceLen, wallLen))
	}
	for _, e := range edges {
		if err := m.support(e, faceLen, wallLen); err != nil {
			return nil, m.opError("chamfer", fmt.Errorf("%.4f x %.4f exceeds local support: %w", faceLen, wallLen, err))
		}
	}
	s, err := m.k.Chamfer(m.solid, frames(edges), faceLen, wallLen)
	if err != nil {
		return nil, m.opError("chamfer", err)
	}
	m.solid = s
	m.mutated()
	return &Treatment{}, nil
}

func frames(edges []*Edge) []kernel.EdgeFrame {
	out := make([]kernel.EdgeFrame, len(edges))
	for i, e := range edges {
		out[i] = e.Frame()
	}
	return out
}

// checkEdges rejects empty, foreign and consumed edges.
func (m *Model) checkEdges(op string, edges []*Edge) error {
	if len(edges) == 0 {
		return &kernel.SelectionError{Stage: m.stage, Query: op, Reason: "no edges given"}
	}
	if m.solid == nil {
		return m.opError(op, errors.New("model is empty"))
	}
	for _, e := range edges {
		if m.edgeIndex[e.ID] != e {
			return &kernel.SelectionError{Stage: m.stage, Query: op, Matches: len(edges), Reason: fmt.Sprintf("edge %s does not belong to this model", e.ID)}
		}
		if !e.alive {
			return &kernel.SelectionError{Stage: m.stage, Query: op, Matches: len(edges), Reason: fmt.Sprintf("edge %s was consumed", e.ID)}
		}
		if e.Smooth {
			return &kernel.SelectionError{Stage: m.stage, Query: op, Matches: len(edges), Reason: fmt.Sprintf("edge %s is a smooth seam", e.ID)}
		}
	}
	return nil
}

// mutated bumps the generation and re-probes the ledger, retiring features
// the last operation consumed.
func (m *Model) mutated() {
	m.gen++
	for _, e := range m.edges {
		if e.alive && !m.edgeLive(e) {
			e.alive = false
		}
	}
	for _, f := range m.faces {
		if f.alive && len(m.liveSamples(f.Samples, f.Z, f.Normal)) == 0 {
			f.alive = false
		}
	}
}

// proposeEdges classifies candidate curves on a plane and records the sharp
// ones. Curves already tracked at the same height keep their existing ID.
func (m *Model) proposeEdges(curves []kernel.Curve, z float64, wall *kernel.Sketch, reg kernel.Region) []FeatureID {
	var ids []FeatureID
	for _, c := range curves {
		convex, rs, ps, ok := m.classify(c, z, reg)
		if !ok {
			continue
		}
		if e := m.findEdge(c, z); e != nil {
			ids = append(ids, e.ID)
			continue
		}
		e := &Edge{
			ID:         m.newID("E"),
			Stage:      m.stage,
			Curve:      c,
			Z:          z,
			Wall:       wall,
			Convex:     convex,
			RegionSide: rs,
			PlaneSide:  ps,
			alive:      true,
		}
		m.addEdge(e)
		ids = append(ids, e.ID)
	}
	return ids
}

// findEdge returns the live edge a curve at height z is already tracked as.
// A line running through the span of a tracked line is that edge.
func (m *Model) findEdge(c kernel.Curve, z float64) *Edge {
	var along *Edge
	for _, e := range m.edges {
		if !e.alive || math.Abs(e.Z-z) > planeTol {
			continue
		}
		if e.Curve.SameAs(c, 1e-6) {
			return e
		}
		if along == nil && e.Curve.Along(c, 1e-6) {
			along = e
		}
	}
	return along
}

func (m *Model) addEdge(e *Edge) {
	m.edges = append(m.edges, e)
	m.edgeIndex[e.ID] = e
}

// proposeFace records the part of a sketch region lying on the surface at
// height z. A face whose live samples all fall inside an already tracked
// face on the same plane is that face.
func (m *Model) proposeFace(curves []kernel.Curve, z float64, sk *kernel.Sketch, reg kernel.Region) FeatureID {
	samples := faceSamples(curves, reg)
	up := m.liveSamples(samples, z, 1)
	down := m.liveSamples(samples, z, -1)
	normal, live := 1, up
	if len(down) > len(up) {
		normal, live = -1, down
	}
	if len(live) == 0 {
		return ""
	}
	for _, f := range m.faces {
		if !f.alive || f.Normal != normal || math.Abs(f.Z-z) > planeTol {
			continue
		}
		if m.covers(f, live) {
			return f.ID
		}
	}
	f := &Face{
		ID:      m.newID("F"),
		Stage:   m.stage,
		Z:       z,
		Normal:  normal,
		Region:  sk,
		Samples: samples,
		alive:   true,
	}
	m.faces = append(m.faces, f)
	m.faceIndex[f.ID] = f
	return f.ID
}

func (m *Model) covers(f *Face, pts []r2.Vec) bool {
	reg, err := m.region(f.Region)
	if err != nil {
		return false
	}
	for _, p := range pts {
		if reg.Distance(p.X, p.Y) > surfaceTol {
			return false
		}
	}
	return true
}

// tangents registers the seams a fillet of radius r leaves on a circular
// edge: one on the face, one on the wall.
func (m *Model) tangents(e *Edge, r float64) []FeatureID {
	reg, err := m.region(e.Wall)
	if err != nil {
		return nil
	}
	mid := e.Curve.Midpoint()
	n := outward(reg, mid)
	onFace := r2.Sub(mid, r2.Scale(float64(e.RegionSide)*r, n))
	faceCurve := e.Curve
	faceCurve.Radius = r2.Norm(r2.Sub(onFace, e.Curve.Center))

	seams := []struct {
		c kernel.Curve
		z float64
	}{
		{faceCurve, e.Z},
		{e.Curve, e.Z + float64(e.PlaneSide)*r},
	}
	var ids []FeatureID
	for _, s := range seams {
		if s.c.Radius <= 0 {
			continue
		}
		t := &Edge{
			ID:         m.newID("E"),
			Stage:      m.stage,
			Curve:      s.c,
			Z:          s.z,
			Wall:       e.Wall,
			Convex:     e.Convex,
			RegionSide: e.RegionSide,
			PlaneSide:  e.PlaneSide,
			Smooth:     true,
		}
		t.alive = m.edgeLive(t)
		if !t.alive {
			continue
		}
		m.addEdge(t)
		ids = append(ids, t.ID)
	}
	return ids
}

// Edge resolves a handle. Unknown and consumed edges are selection errors.
func (m *Model) Edge(id FeatureID) (*Edge, error) {
	e, ok := m.edgeIndex[id]
	if !ok {
		return nil, &kernel.SelectionError{Stage: m.stage, Query: "edge " + string(id), Reason: "no such edge"}
	}
	if !e.alive {
		return nil, &kernel.SelectionError{Stage: m.stage, Query: "edge " + string(id), Matches: 1, Reason: "edge was consumed by a later operation"}
	}
	return e, nil
}

// EdgesByID resolves several handles at once.
func (m *Model) EdgesByID(ids []FeatureID) ([]*Edge, error) {
	if len(ids) == 0 {
		return nil, &kernel.SelectionError{Stage: m.stage, Query: "edges by handle", Reason: "no handles given"}
	}
	out := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		e, err := m.Edge(id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Face resolves a face handle.
func (m *Model) Face(id FeatureID) (*Face, error) {
	f, ok := m.faceIndex[id]
	if !ok {
		return nil, &kernel.SelectionError{Stage: m.stage, Query: "face " + string(id), Reason: "no such face"}
	}
	if !f.alive {
		return nil, &kernel.SelectionError{Stage: m.stage, Query: "face " + string(id), Matches: 1, Reason: "face was consumed by a later operation"}
	}
	return f, nil
}

// Edges selects every live edge in creation order.
func (m *Model) Edges() Selection[*Edge] {
	var live []*Edge
	for _, e := range m.edges {
		if e.alive {
			live = append(live, e)
		}
	}
	return Selection[*Edge]{model: m, gen: m.gen, items: live, query: "edges()"}
}

// Faces selects every live face in creation order.
func (m *Model) Faces() Selection[*Face] {
	var live []*Face
	for _, f := range m.faces {
		if f.alive {
			live = append(live, f)
		}
	}
	return Selection[*Face]{model: m, gen: m.gen, items: live, query: "faces()"}
}

// Counts returns the number of live edges and faces.
func (m *Model) Counts() (edges, faces int) {
	return m.Edges().Len(), m.Faces().Len()
}

// Entry is one live feature in the ledger.
type Entry struct {
	Kind    string `json:"kind"`
	Feature string `json:"feature"`
	Stage   string `json:"stage"`
}

// Ledger lists every live edge followed by every live face.
func (m *Model) Ledger() []Entry {
	var out []Entry
	for _, e := range m.Edges().items {
		out = append(out, Entry{Kind: "edge", Feature: e.String(), Stage: e.Stage})
	}
	for _, f := range m.Faces().items {
		out = append(out, Entry{Kind: "face", Feature: f.String(), Stage: f.Stage})
	}
	return out
}

// LogLedger writes every live feature at debug level.
func (m *Model) LogLedger(ctx context.Context, log *slog.Logger) {
	if !log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	for _, en := range m.Ledger() {
		log.DebugContext(ctx, en.Kind, "stage", m.stage, "feature", en.Feature, "from", en.Stage)
	}
}
