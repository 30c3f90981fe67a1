// Package homography estimates planar projective transforms from four point
// correspondences.
package homography

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDegenerateInput is returned when the source points are coincident or
	// collinear, leaving the 8x8 system without a unique solution.
	ErrDegenerateInput = errors.New("degenerate correspondences")
	// ErrSingularHomography is returned when a matrix has no inverse.
	ErrSingularHomography = errors.New("singular homography")
)

// Estimate computes the 3x3 matrix H mapping src[i] -> dst[i], with H[8]
// fixed to 1.
func Estimate(src, dst [4]Point) (Matrix, error) {
	if err := (Correspondences{Src: src, Dst: dst}).Validate(); err != nil {
		return Matrix{}, err
	}

	sys := newConditionedSystem(src, dst)
	h, ok := solve8x8(sys.a, sys.b)
	if !ok {
		return Matrix{}, fmt.Errorf("%w: coefficient matrix is singular", ErrDegenerateInput)
	}
	return sys.denormalize(h)
}

// conditioner is a similarity transform that moves a point set's centroid to
// the origin and scales its mean distance from it to sqrt(2). Solving in
// conditioned coordinates keeps the -x'X columns of the system on the same
// scale as the rest, wherever the points lie.
type conditioner struct {
	centroid Point
	scale    float64
}

func newConditioner(pts [4]Point) conditioner {
	var c Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= 4
	c.Y /= 4

	mean := 0.0
	for _, p := range pts {
		mean += p.sub(c).norm()
	}
	mean /= 4

	// Coincident points are left unscaled; the solve rejects them.
	s := 1.0
	if mean > 0 {
		s = math.Sqrt2 / mean
	}
	return conditioner{centroid: c, scale: s}
}

func (c conditioner) apply(p Point) Point {
	return Point{X: c.scale * (p.X - c.centroid.X), Y: c.scale * (p.Y - c.centroid.Y)}
}

func (c conditioner) matrix() Matrix {
	s := c.scale
	return Matrix{s, 0, -s * c.centroid.X, 0, s, -s * c.centroid.Y, 0, 0, 1}
}

func (c conditioner) inverse() Matrix {
	s := 1 / c.scale
	return Matrix{s, 0, c.centroid.X, 0, s, c.centroid.Y, 0, 0, 1}
}

// conditionedSystem is the 8x8 system of a correspondence set expressed in
// conditioned coordinates.
type conditionedSystem struct {
	src, dst conditioner
	a        [8][8]float64
	b        [8]float64
}

func newConditionedSystem(src, dst [4]Point) conditionedSystem {
	sys := conditionedSystem{src: newConditioner(src), dst: newConditioner(dst)}
	var cs, cd [4]Point
	for i := range 4 {
		cs[i] = sys.src.apply(src[i])
		cd[i] = sys.dst.apply(dst[i])
	}
	sys.a, sys.b = buildSystem(cs, cd)
	return sys
}

// denormalize maps the solution h of the conditioned system back to image
// coordinates and rescales it so that H[8] is 1.
func (sys conditionedSystem) denormalize(h [8]float64) (Matrix, error) {
	hn := Matrix{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}
	m := sys.dst.inverse().Mul(hn).Mul(sys.src.matrix())

	if math.Abs(m[8]) <= pivotEpsilon*math.Max(math.Abs(m[6]), math.Abs(m[7])) {
		return Matrix{}, fmt.Errorf("%w: the origin maps to infinity, H[8] cannot be 1", ErrDegenerateInput)
	}
	m, _ = m.Normalize()
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Matrix{}, fmt.Errorf("%w: non-finite solution", ErrDegenerateInput)
		}
	}
	return m, nil
}

// buildSystem stacks two rows per correspondence, interleaving the x' and y'
// equations in correspondence order.
func buildSystem(src, dst [4]Point) ([8][8]float64, [8]float64) {
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i

		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		a[r] = [8]float64{X, Y, 1, 0, 0, 0, -x * X, -x * Y}
		b[r] = x

		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		a[r+1] = [8]float64{0, 0, 0, X, Y, 1, -y * X, -y * Y}
		b[r+1] = y
	}
	return a, b
}

// Reproject returns the largest distance between H applied to src[i] and
// dst[i]. Pairs that map to infinity yield +Inf.
func Reproject(h Matrix, src, dst [4]Point) float64 {
	worst := 0.0
	for i := range 4 {
		x, y, ok := h.Apply(src[i].X, src[i].Y)
		if !ok {
			return posInf
		}
		if d := (Point{X: x, Y: y}).sub(dst[i]).norm(); d > worst {
			worst = d
		}
	}
	return worst
}
