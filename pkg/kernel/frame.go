package kernel

import (
	"fmt"
	"math"
)

// EdgeFrame describes an edge as the meeting of a horizontal face at
// height Z and a vertical wall that follows the boundary of Region.
//
// The frame names one quadrant Q around the edge. With f the region
// distance, the local coordinates are
//
//	u = -RegionSide * f     (distance from the wall, positive inside Q)
//	w = PlaneSide * (z - Z) (distance from the face, positive inside Q)
//
// For a convex edge Q is the only quadrant filled with material; for a
// concave edge Q is the only empty one.
type EdgeFrame struct {
	Curve      Curve
	Z          float64
	Region     *Sketch
	RegionSide int
	PlaneSide  int
	Convex     bool
}

// Validate checks the side markers are set.
func (f EdgeFrame) Validate() error {
	if f.Region == nil {
		return fmt.Errorf("edge frame at z=%.4f has no wall region", f.Z)
	}
	if abs(f.RegionSide) != 1 || abs(f.PlaneSide) != 1 {
		return fmt.Errorf("edge frame at z=%.4f has unset sides (%d, %d)", f.Z, f.RegionSide, f.PlaneSide)
	}
	return nil
}

// Local maps a region distance and a height to the frame's (u, w).
func (f EdgeFrame) Local(dist, z float64) (u, w float64) {
	return -float64(f.RegionSide) * dist, float64(f.PlaneSide) * (z - f.Z)
}

// RoundProfile returns a distance bound to the fillet profile of radius r
// in frame coordinates: the square [0,r]x[0,r] minus the disk of radius r
// centered at (r,r).
func RoundProfile(u, w, r float64) float64 {
	box := math.Max(math.Max(u-r, w-r), math.Max(-u, -w))
	return math.Max(box, r-math.Hypot(u-r, w-r))
}

// ChamferProfile returns a distance bound to the chamfer triangle with legs
// a along the face (u) and b along the wall (w).
func ChamferProfile(u, w, a, b float64) float64 {
	hyp := (u/a + w/b - 1) / math.Sqrt(1/(a*a)+1/(b*b))
	return math.Max(hyp, math.Max(-u, -w))
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
