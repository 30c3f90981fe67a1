package homography

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genQuad generates a convex quadrilateral near the origin.
func genQuad() gopter.Gen {
	return genQuadAt(500)
}

// genQuadAt generates a convex quadrilateral: the corners of a w x h box at
// (ox, oy) with |ox|, |oy| <= spread, each moved by up to 20% of the box
// size. No three corners can be collinear.
func genQuadAt(spread float64) gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-spread, spread),
		gen.Float64Range(-spread, spread),
		gen.Float64Range(10, 2000),
		gen.Float64Range(10, 2000),
		gen.SliceOfN(8, gen.Float64Range(-0.2, 0.2)),
	).Map(func(vals []interface{}) [4]Point {
		ox, oy := vals[0].(float64), vals[1].(float64)
		w, h := vals[2].(float64), vals[3].(float64)
		j := vals[4].([]float64)
		return [4]Point{
			{X: ox + j[0]*w, Y: oy + j[1]*h},
			{X: ox + w + j[2]*w, Y: oy + j[3]*h},
			{X: ox + j[4]*w, Y: oy + h + j[5]*h},
			{X: ox + w + j[6]*w, Y: oy + h + j[7]*h},
		}
	})
}

// relTol scales an absolute tolerance by the size of the destination quad.
func relTol(dst [4]Point) float64 {
	m := 1.0
	for _, p := range dst {
		m = math.Max(m, math.Max(math.Abs(p.X), math.Abs(p.Y)))
	}
	return 1e-6 * m
}

func TestEstimate_ExactnessProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("H maps every source point onto its destination", prop.ForAll(
		func(src, dst [4]Point) bool {
			h, err := Estimate(src, dst)
			if err != nil {
				return false
			}
			return Reproject(h, src, dst) <= relTol(dst)
		},
		genQuad(),
		genQuad(),
	))

	properties.Property("bottom-right entry is exactly one", prop.ForAll(
		func(src, dst [4]Point) bool {
			h, err := Estimate(src, dst)
			return err == nil && h[8] == 1.0
		},
		genQuad(),
		genQuad(),
	))

	properties.TestingRun(t)
}

func TestEstimate_FarFromOriginProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("far source quads map exactly onto far destinations", prop.ForAll(
		func(src, dst [4]Point) bool {
			h, err := Estimate(src, dst)
			if err != nil {
				return false
			}
			return h[8] == 1.0 && Reproject(h, src, dst) <= relTol(dst)
		},
		genQuadAt(1e5),
		genQuadAt(1e5),
	))

	properties.Property("crops far from the origin are invertible", prop.ForAll(
		func(src, dst [4]Point) bool {
			h, err := Estimate(src, dst)
			if err != nil {
				return false
			}
			inv, err := h.Inverse()
			if err != nil {
				return false
			}
			return Reproject(inv, dst, src) <= relTol(src)
		},
		genQuadAt(1e5),
		genQuad(),
	))

	properties.TestingRun(t)
}

func TestEstimate_InverseRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("inverse maps destinations back to sources", prop.ForAll(
		func(src, dst [4]Point) bool {
			h, err := Estimate(src, dst)
			if err != nil {
				return false
			}
			inv, err := h.Inverse()
			if err != nil {
				return false
			}
			return Reproject(inv, dst, src) <= relTol(src)
		},
		genQuad(),
		genQuad(),
	))

	properties.TestingRun(t)
}

func TestEstimate_CollinearProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("three collinear source points are rejected", prop.ForAll(
		func(dst [4]Point, t1, t2 float64) bool {
			a := dst[0]
			dir := Point{X: 3, Y: -7}
			src := [4]Point{
				a,
				{X: a.X + dir.X, Y: a.Y + dir.Y},
				{X: a.X + t1*dir.X, Y: a.Y + t1*dir.Y},
				{X: a.X + t2*dir.X, Y: a.Y + 50},
			}
			_, err := Estimate(src, dst)
			return err != nil
		},
		genQuad(),
		gen.Float64Range(2, 100),
		gen.Float64Range(-100, 100),
	))

	properties.TestingRun(t)
}
