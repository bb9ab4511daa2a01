// Package keycap builds the NoCap Cherry MX keycap from its design
// parameters.
package keycap

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// Default design parameters, in millimetres.
const (
	DefaultDCap            = 19.50 // outer diameter of the keycap
	DefaultHCap            = 9     // overall height of the keycap
	DefaultTCapTop         = 3.50  // thickness of the top of the keycap
	DefaultTCapWalls       = 1.25  // thickness of the keycap walls
	DefaultRCapTopFillet   = 2     // fillet radius of the top outer edge
	DefaultSlopWShaft      = 0     // increase if the stem doesn't fit the switch housing due to width
	DefaultSlopLShaft      = 0     // increase if the stem doesn't fit the switch housing due to length
	DefaultSlopTStem       = 0     // increase if the stem slot is too thin (the - of the +)
	DefaultSlopLStem       = 0     // increase if the stem slot is too short (the - of the +)
	DefaultSlopHStem       = 0.2   // increase if the stem doesn't go all the way into the shaft
	DefaultHStemChamfer    = 0.75  // height of the stem slot chamfer
	DefaultLStemChamfer    = 0.35  // length of the stem slot chamfer
	DefaultStemBaseHeight  = 0.8   // height of the stem base
	DefaultStemRadius      = 1.0   // corner radius of the stem footprint
	DefaultHShaft          = 4.6   // height of the stem shaft
	DefaultWCornerGaps     = 5     // width of the switch corner clearance notches
	DefaultRimFilletRadius = 2     // fillet radius where the cavity wall meets the floor
	DefaultStemRootFillet  = 0.799 // fillet radius where the stem meets the floor
)

// Cherry MX reference dimensions the derived sizes start from.
const (
	mxStemThickness = 1.17 // +-0.02
	mxStemLength    = 4.1  // +-0.05
	mxStemDepth     = 3.6
	mxShaftWidth    = 4.3
	mxShaftLength   = 6.1
)

// Params is the flat set of keycap design parameters. Field tags name the
// keys accepted in parameter files.
type Params struct {
	DCap                 float64 `toml:"d_cap"`
	HCap                 float64 `toml:"h_cap"`
	TCapTop              float64 `toml:"t_cap_top"`
	TCapWalls            float64 `toml:"t_cap_walls"`
	RCapTopFillet        float64 `toml:"r_cap_top_fillet"`
	SlopWShaft           float64 `toml:"slop_w_shaft"`
	SlopLShaft           float64 `toml:"slop_l_shaft"`
	SlopTStem            float64 `toml:"slop_t_stem"`
	SlopLStem            float64 `toml:"slop_l_stem"`
	SlopHStem            float64 `toml:"slop_h_stem"`
	HStemSlotChamfer     float64 `toml:"h_stem_slot_chamfer"`
	LStemSlotChamfer     float64 `toml:"l_stem_slot_chamfer"`
	StemBaseHeight       float64 `toml:"stem_base_height"`
	StemRadius           float64 `toml:"stem_radius"`
	HShaft               float64 `toml:"h_shaft"`
	WCornerGaps          float64 `toml:"w_corner_gaps"`
	RimFilletRadius      float64 `toml:"rim_fillet_radius"`
	StemRootFilletRadius float64 `toml:"stem_root_fillet_radius"`
}

// Defaults returns the reference NoCap parameters.
func Defaults() Params {
	return Params{
		DCap:                 DefaultDCap,
		HCap:                 DefaultHCap,
		TCapTop:              DefaultTCapTop,
		TCapWalls:            DefaultTCapWalls,
		RCapTopFillet:        DefaultRCapTopFillet,
		SlopWShaft:           DefaultSlopWShaft,
		SlopLShaft:           DefaultSlopLShaft,
		SlopTStem:            DefaultSlopTStem,
		SlopLStem:            DefaultSlopLStem,
		SlopHStem:            DefaultSlopHStem,
		HStemSlotChamfer:     DefaultHStemChamfer,
		LStemSlotChamfer:     DefaultLStemChamfer,
		StemBaseHeight:       DefaultStemBaseHeight,
		StemRadius:           DefaultStemRadius,
		HShaft:               DefaultHShaft,
		WCornerGaps:          DefaultWCornerGaps,
		RimFilletRadius:      DefaultRimFilletRadius,
		StemRootFilletRadius: DefaultStemRootFillet,
	}
}

// TStem is the slot arm thickness.
func (p Params) TStem() float64 { return mxStemThickness + p.SlopTStem }

// LStem is the end-to-end slot length.
func (p Params) LStem() float64 { return mxStemLength + p.SlopLStem }

// HStem is the slot depth.
func (p Params) HStem() float64 { return mxStemDepth + p.SlopHStem }

// WShaft is the outer width of the stem shaft.
func (p Params) WShaft() float64 { return mxShaftWidth - p.SlopWShaft }

// LShaft is the outer length of the stem shaft.
func (p Params) LShaft() float64 { return mxShaftLength - p.SlopLShaft }

// HCornerGaps is the depth of the switch corner notches.
func (p Params) HCornerGaps() float64 { return p.HCap - (p.HShaft + p.TCapTop) }

// InnerRadius is the radius of the cavity.
func (p Params) InnerRadius() float64 { return p.DCap/2 - p.TCapWalls }

// BaseHeight is the stem base height actually built: the base never reaches
// into the slot.
func (p Params) BaseHeight() float64 { return math.Min(p.StemBaseHeight, p.HShaft-p.HStem()) }

// ParamError is one violated parameter constraint.
type ParamError struct {
	Field   string
	Message string
}

func (e ParamError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError lists every violated constraint of a parameter set.
type ValidationError struct {
	Problems []ParamError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid parameters: " + strings.Join(msgs, "; ")
}

// Validate checks the parameter invariants and returns a *ValidationError
// naming every violation, or nil.
func (p Params) Validate() error {
	var probs []ParamError
	add := func(field, format string, args ...any) {
		probs = append(probs, ParamError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for _, f := range fields() {
		v := p.get(f)
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			add(f.key, "must be finite")
		case strings.HasPrefix(f.key, "slop_"):
			if v < 0 {
				add(f.key, "must not be negative, got %g", v)
			}
		case v <= 0:
			add(f.key, "must be positive, got %g", v)
		}
	}
	if len(probs) > 0 {
		return &ValidationError{Problems: probs}
	}

	if g := p.HCornerGaps(); g <= 0 {
		add("h_corner_gaps", "h_cap - (h_shaft + t_cap_top) = %g must be positive", g)
	}
	if p.TCapTop >= p.HCap {
		add("t_cap_top", "%g must be less than h_cap %g", p.TCapTop, p.HCap)
	}
	if p.TCapWalls >= p.DCap/2 {
		add("t_cap_walls", "%g must be less than the outer radius %g", p.TCapWalls, p.DCap/2)
	}
	if p.WShaft() <= 0 || p.LShaft() <= 0 {
		add("slop_w_shaft", "shaft footprint %g x %g must be positive", p.LShaft(), p.WShaft())
	}
	if p.TStem() >= p.WShaft() {
		add("slop_t_stem", "slot thickness %g must be less than shaft width %g", p.TStem(), p.WShaft())
	}
	if p.LStem() >= p.LShaft() {
		add("slop_l_stem", "slot length %g must be less than shaft length %g", p.LStem(), p.LShaft())
	}
	if p.TStem() >= p.LStem() {
		add("slop_t_stem", "slot thickness %g must be less than slot length %g", p.TStem(), p.LStem())
	}
	if p.HStem() >= p.HShaft {
		add("slop_h_stem", "slot depth %g must be less than shaft height %g", p.HStem(), p.HShaft)
	}
	if p.StemRadius > p.WShaft()/2 {
		add("stem_radius", "%g must not exceed half the shaft width %g", p.StemRadius, p.WShaft()/2)
	}
	if reach := math.Hypot(p.LShaft()/2, p.WShaft()/2); reach >= p.InnerRadius() {
		add("d_cap", "stem footprint reaches %g, beyond the cavity radius %g", reach, p.InnerRadius())
	}
	if len(probs) > 0 {
		return &ValidationError{Problems: probs}
	}
	return nil
}

// field describes one Params field and its file key.
type field struct {
	key   string
	index int
}

func fields() []field {
	t := reflect.TypeOf(Params{})
	out := make([]field, t.NumField())
	for i := range out {
		out[i] = field{key: t.Field(i).Tag.Get("toml"), index: i}
	}
	return out
}

func (p Params) get(f field) float64 {
	return reflect.ValueOf(p).Field(f.index).Float()
}

// Keys returns the accepted parameter names, sorted.
func Keys() []string {
	var keys []string
	for _, f := range fields() {
		keys = append(keys, f.key)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a parameter by name. Hyphens are accepted in place of
// underscores, so script keywords like :slop-h-stem resolve.
func (p *Params) Set(name string, v float64) error {
	key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for _, f := range fields() {
		if f.key == key {
			reflect.ValueOf(p).Elem().Field(f.index).SetFloat(v)
			return nil
		}
	}
	return fmt.Errorf("unknown parameter %q (known: %s)", name, strings.Join(Keys(), ", "))
}
