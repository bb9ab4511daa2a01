package keycap

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/chazu/nocap/pkg/kernel"
	"github.com/chazu/nocap/pkg/model"
)

// Stage names, in build order.
const (
	StageOuterBody      = "outer-body"
	StageTopFillet      = "top-fillet"
	StageHollow         = "hollow"
	StageRimFillet      = "rim-fillet"
	StageStemShaft      = "stem-shaft"
	StageSlotChamfer    = "slot-chamfer"
	StageStemBase       = "stem-base"
	StageCornerNotches  = "corner-notches"
	StageClearanceCut   = "clearance-cut"
	StageStemRootFillet = "stem-root-fillet"
)

// Stages lists every stage in the order Build runs them.
var Stages = []string{
	StageOuterBody,
	StageTopFillet,
	StageHollow,
	StageRimFillet,
	StageStemShaft,
	StageSlotChamfer,
	StageStemBase,
	StageCornerNotches,
	StageClearanceCut,
	StageStemRootFillet,
}

// Names of the boundary sub-selections recorded in Result.Highlights.
const (
	HighlightRimEdge      = "inside-circle-edge"
	HighlightSlotRimEdges = "stem-top-inner-edges"
)

// Handles are the features stages hand to later stages. The cap is built
// touch surface down: the touch surface lies on z=0 and the cavity opens
// at z=h_cap.
type Handles struct {
	TouchEdge   model.FeatureID // outer edge of the touch surface
	TouchFace   model.FeatureID
	TopFace     model.FeatureID // open end of the cap, z=h_cap
	RimEdge     model.FeatureID // cavity wall meets cavity floor
	CavityFloor model.FeatureID
	ShaftTop    model.FeatureID
	StemRoot    []model.FeatureID // stem shaft meets cavity floor
	SlotRim     []model.FeatureID // slot opening on the shaft top
	SlotFloor   model.FeatureID
	NotchFloor  model.FeatureID
}

// Result is a finished (or deliberately stopped) build.
type Result struct {
	Model      *model.Model
	Params     Params
	Handles    Handles
	Completed  []string
	Highlights map[string][]model.Edge
}

type options struct {
	log       *slog.Logger
	stopAfter string
}

// Option configures Build.
type Option func(*options)

// WithLogger sets the logger stage progress is written to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// StopAfter ends the build once the named stage has run.
func StopAfter(stage string) Option {
	return func(o *options) { o.stopAfter = stage }
}

type builder struct {
	p   Params
	m   *model.Model
	h   Handles
	hl  map[string][]model.Edge
	log *slog.Logger
}

// Build runs the keycap stages against the kernel. Any failure aborts the
// run and the partial model is discarded.
func Build(ctx context.Context, k kernel.Kernel, p Params, opts ...Option) (*Result, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if o.stopAfter != "" && !knownStage(o.stopAfter) {
		return nil, fmt.Errorf("unknown stage %q", o.stopAfter)
	}

	b := &builder{p: p, m: model.New(k), hl: make(map[string][]model.Edge), log: o.log}
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{StageOuterBody, b.outerBody},
		{StageTopFillet, b.topFillet},
		{StageHollow, b.hollow},
		{StageRimFillet, b.rimFillet},
		{StageStemShaft, b.stemShaft},
		{StageSlotChamfer, b.slotChamfer},
		{StageStemBase, b.stemBase},
		{StageCornerNotches, b.cornerNotches},
		{StageClearanceCut, b.clearanceCut},
		{StageStemRootFillet, b.stemRootFillet},
	}

	var done []string
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build cancelled before %s: %w", s.name, err)
		}
		b.m.Begin(s.name)
		start := time.Now()
		if err := s.run(ctx); err != nil {
			b.log.ErrorContext(ctx, "stage failed", "stage", s.name, "error", err)
			return nil, err
		}
		edges, faces := b.m.Counts()
		b.log.InfoContext(ctx, "stage complete",
			"stage", s.name,
			"generation", b.m.Generation(),
			"edges", edges,
			"faces", faces,
			"elapsed", time.Since(start),
		)
		b.m.LogLedger(ctx, b.log)
		done = append(done, s.name)
		if s.name == o.stopAfter {
			break
		}
	}
	return &Result{Model: b.m, Params: p, Handles: b.h, Completed: done, Highlights: b.hl}, nil
}

func knownStage(name string) bool {
	for _, s := range Stages {
		if s == name {
			return true
		}
	}
	return false
}

func (b *builder) selErr(query, reason string, matches int) error {
	return &kernel.SelectionError{Stage: b.m.Stage(), Query: query, Matches: matches, Reason: reason}
}

func (b *builder) one(ids []model.FeatureID, what string) (model.FeatureID, error) {
	if len(ids) != 1 {
		return "", b.selErr(what, "expected exactly one feature", len(ids))
	}
	return ids[0], nil
}

func snapshot(edges []*model.Edge) []model.Edge {
	out := make([]model.Edge, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}

// outerBody extrudes the full cylinder.
func (b *builder) outerBody(context.Context) error {
	sk := kernel.NewSketch("cap").Add(kernel.Circle{Radius: b.p.DCap / 2})
	ex, err := b.m.Extrude(sk, model.XY(0), b.p.HCap, kernel.ModeAdd)
	if err != nil {
		return err
	}
	if b.h.TouchEdge, err = b.one(ex.StartEdges, "touch surface edge"); err != nil {
		return err
	}
	if ex.StartFace == "" || ex.EndFace == "" {
		return b.selErr("cylinder end faces", "extrusion left no end face", 0)
	}
	b.h.TouchFace, b.h.TopFace = ex.StartFace, ex.EndFace
	return nil
}

// topFillet rounds the touch surface edge. The fillet has to stay within the
// top thickness so the wall keeps its full section above it.
func (b *builder) topFillet(context.Context) error {
	r := b.p.RCapTopFillet
	if r > b.p.TCapTop {
		return &kernel.OperationError{Stage: b.m.Stage(), Op: "fillet",
			Err: fmt.Errorf("r_cap_top_fillet %g exceeds t_cap_top %g", r, b.p.TCapTop)}
	}
	edge, err := b.m.Edge(b.h.TouchEdge)
	if err != nil {
		return err
	}
	lowest, err := b.m.Edges().SortBy(model.AxisZ).At(0)
	if err != nil {
		return err
	}
	if lowest.ID != edge.ID {
		return b.selErr("edges().sort(z)[0]", fmt.Sprintf("lowest edge %s is not the touch edge %s", lowest.ID, edge.ID), 1)
	}
	_, err = b.m.Fillet([]*model.Edge{edge}, r)
	return err
}

// hollow cuts the cavity from the open end down to the top thickness.
func (b *builder) hollow(context.Context) error {
	top, err := b.m.Face(b.h.TopFace)
	if err != nil {
		return err
	}
	sk := kernel.NewSketch("cavity").Add(kernel.Circle{Radius: b.p.InnerRadius()})
	ex, err := b.m.Extrude(sk, top.Workplane(), -(b.p.HCap - b.p.TCapTop), kernel.ModeSubtract)
	if err != nil {
		return err
	}
	if b.h.RimEdge, err = b.one(ex.EndEdges, "cavity rim edge"); err != nil {
		return err
	}
	if ex.EndFace == "" {
		return b.selErr("cavity floor", "cut left no floor face", 0)
	}
	b.h.CavityFloor = ex.EndFace
	return nil
}

// rimFillet rounds the cavity rim. The positional query must agree with the
// handle captured when the cavity was cut.
func (b *builder) rimFillet(context.Context) error {
	z := b.p.TCapTop
	found, err := b.m.Edges().FilterByPosition(model.AxisZ, z, z, model.Closed).One()
	if err != nil {
		return err
	}
	if found.ID != b.h.RimEdge {
		return b.selErr(fmt.Sprintf("edges at z=%g", z), fmt.Sprintf("matched %s, expected rim edge %s", found.ID, b.h.RimEdge), 1)
	}
	b.hl[HighlightRimEdge] = snapshot([]*model.Edge{found})
	_, err = b.m.Fillet([]*model.Edge{found}, b.p.RimFilletRadius)
	return err
}

// footprint is the rounded stem shaft outline.
func (b *builder) footprint(name string) *kernel.Sketch {
	return kernel.NewSketch(name).Add(kernel.Rect{
		Width:  b.p.LShaft(),
		Height: b.p.WShaft(),
		Round:  b.p.StemRadius,
	})
}

// slotArms are the two arms of the plus shaped slot. The t_stem arm spans
// the full shaft width and opens through both long sides.
func (b *builder) slotArms() (kernel.Rect, kernel.Rect) {
	return kernel.Rect{Width: b.p.TStem(), Height: b.p.WShaft()},
		kernel.Rect{Width: b.p.LStem(), Height: b.p.TStem()}
}

// shaftOutline is the footprint with the slot taken out, as seen on the
// cavity floor.
func (b *builder) shaftOutline() *kernel.Sketch {
	arm, cross := b.slotArms()
	return b.footprint("stem-outline").Subtract(arm).Subtract(cross)
}

// stemShaft raises the shaft from the cavity floor, cuts the plus shaped
// slot through it and fills the slot back up from the floor so it is h_stem
// deep from the open end.
func (b *builder) stemShaft(ctx context.Context) error {
	floor, err := b.m.Face(b.h.CavityFloor)
	if err != nil {
		return err
	}
	second, err := b.m.Faces().SortBy(model.AxisZ).At(-2)
	if err != nil {
		return err
	}
	if second.ID != floor.ID {
		return b.selErr("faces().sort(z)[-2]", fmt.Sprintf("second from top is %s, cavity floor is %s", second.ID, floor.ID), 1)
	}

	shaft, err := b.m.Extrude(b.footprint("stem-shaft"), floor.Workplane(), b.p.HShaft, kernel.ModeAdd)
	if err != nil {
		return err
	}
	if shaft.EndFace == "" {
		return b.selErr("shaft top", "shaft left no top face", 0)
	}
	b.h.ShaftTop = shaft.EndFace

	top, err := b.m.Face(shaft.EndFace)
	if err != nil {
		return err
	}
	arm, cross := b.slotArms()
	slot := kernel.NewSketch("stem-slot").Add(arm).Add(cross)
	cut, err := b.m.Extrude(slot, top.Workplane(), -b.p.HShaft, kernel.ModeSubtract)
	if err != nil {
		return err
	}
	if len(cut.StartEdges) == 0 {
		return b.selErr("slot rim edges", "slot left no edges on the shaft top", 0)
	}
	b.h.SlotRim = cut.StartEdges

	fill, err := b.m.Extrude(slot, floor.Workplane(), b.p.HShaft-b.p.HStem(), kernel.ModeAdd)
	if err != nil {
		return err
	}
	if fill.EndFace == "" {
		return b.selErr("slot floor", "slot left no floor face", 0)
	}
	b.h.SlotFloor = fill.EndFace

	// The root loop follows the slotted outline, so it breaks where the slot
	// opens through the long sides and only runs along full height wall.
	if b.h.StemRoot, err = b.m.Trace(b.shaftOutline(), floor.Z); err != nil {
		return err
	}
	if len(b.h.StemRoot) == 0 {
		return b.selErr("stem root edges", "shaft left no edges on the floor", 0)
	}
	b.log.DebugContext(ctx, "stem root traced", "stage", b.m.Stage(), "edges", len(b.h.StemRoot), "slot_rim", len(b.h.SlotRim))
	return nil
}

// slotChamfer bevels the slot opening so the switch stem finds its way in.
func (b *builder) slotChamfer(context.Context) error {
	groups := b.m.Edges().FromStage(StageStemShaft).GroupBy(model.AxisZ)
	if len(groups) == 0 {
		return b.selErr("stem edges", "no edges left from the stem", 0)
	}
	x := b.p.LStem() / 1.85
	sel := groups[len(groups)-1].
		FilterByPosition(model.AxisX, -x, x, model.Closed).
		FilterByPosition(model.AxisY, -b.p.WShaft()/2, b.p.WShaft()/2.05, model.Open)
	edges, err := sel.All()
	if err != nil {
		return err
	}
	if !model.SameIDs(edges, b.h.SlotRim) {
		return b.selErr(sel.Query(), fmt.Sprintf("selection does not match the %d slot rim edges", len(b.h.SlotRim)), len(edges))
	}
	b.hl[HighlightSlotRimEdges] = snapshot(edges)
	_, err = b.m.Chamfer(edges, b.p.LStemSlotChamfer, b.p.HStemSlotChamfer)
	return err
}

// stemBase thickens the root of the stem. Its height is clamped to the slot
// floor.
func (b *builder) stemBase(ctx context.Context) error {
	floor, err := b.m.Face(b.h.CavityFloor)
	if err != nil {
		return err
	}
	h := b.p.BaseHeight()
	if b.p.StemBaseHeight-h > 1e-9 {
		b.log.WarnContext(ctx, "stem base clamped to the slot floor",
			"stage", b.m.Stage(), "stem_base_height", b.p.StemBaseHeight, "height", h)
	}
	_, err = b.m.Extrude(b.footprint("stem-base"), floor.Workplane(), h, kernel.ModeAdd)
	return err
}

// cornerNotches cuts clearance for the switch housing corners into the open
// end of the wall.
func (b *builder) cornerNotches(context.Context) error {
	top, err := b.m.Face(b.h.TopFace)
	if err != nil {
		return err
	}
	sk := kernel.NewSketch("corner-gaps").
		Add(kernel.Rect{Width: b.p.WCornerGaps, Height: b.p.DCap, Angle: 45}).
		MirrorX()
	ex, err := b.m.Extrude(sk, top.Workplane(), -b.p.HCornerGaps(), kernel.ModeSubtract)
	if err != nil {
		return err
	}
	b.h.NotchFloor = ex.EndFace
	return nil
}

// clearanceCut clears the cavity above the shaft-top plane, cutting away
// from the material.
func (b *builder) clearanceCut(ctx context.Context) error {
	shaftTop, err := b.m.Face(b.h.ShaftTop)
	if err != nil {
		return err
	}
	third, err := b.m.Faces().SortBy(model.AxisZ).At(-3)
	if err != nil {
		return err
	}
	if math.Abs(third.Z-shaftTop.Z) > 1e-9 {
		return b.selErr("faces().sort(z)[-3]", fmt.Sprintf("third from top %s lies at z=%g, shaft top at z=%g", third.ID, third.Z, shaftTop.Z), 1)
	}
	depth := math.Abs(b.p.StemBaseHeight - b.p.TCapTop)
	if depth < 1e-9 {
		b.log.WarnContext(ctx, "clearance cut skipped: zero depth", "stage", b.m.Stage())
		return nil
	}
	sk := kernel.NewSketch("clearance").Add(kernel.Circle{Radius: b.p.InnerRadius()})
	_, err = b.m.Extrude(sk, shaftTop.Workplane(), depth, kernel.ModeSubtract)
	return err
}

// stemRootFillet rounds the loop where the stem meets the cavity floor.
// A positional query at the floor height also finds the rim fillet seam and
// the slot openings, so the loop is resolved by handle.
func (b *builder) stemRootFillet(ctx context.Context) error {
	z := b.p.TCapTop
	if n := b.m.Edges().FilterByPosition(model.AxisZ, z, z, model.Closed).Len(); n != len(b.h.StemRoot) {
		b.log.DebugContext(ctx, "positional query differs from stem root handle", "stage", b.m.Stage(), "z", z, "matches", n, "handle", len(b.h.StemRoot))
	}
	edges, err := b.m.EdgesByID(b.h.StemRoot)
	if err != nil {
		return err
	}
	_, err = b.m.Fillet(edges, b.p.StemRootFilletRadius)
	return err
}
