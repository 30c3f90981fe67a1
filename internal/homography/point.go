package homography

import (
	"fmt"
	"math"
)

// collinearEpsilon bounds |sin| of the angle spanned by three source points
// below which they are treated as collinear.
const collinearEpsilon = 1e-9

// Point is a 2D coordinate in either the source or the destination plane.
type Point struct {
	X, Y float64
}

// String renders the point as "x,y", the same form ParsePoints accepts.
func (p Point) String() string {
	return fmt.Sprintf("%g,%g", p.X, p.Y)
}

func (p Point) sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

func (p Point) norm() float64 { return math.Hypot(p.X, p.Y) }

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Correspondences pairs four source points with four destination points.
// Src[i] and Dst[i] describe the same physical location.
type Correspondences struct {
	Src [4]Point
	Dst [4]Point
}

// Validate reports ErrDegenerateInput when the pairs cannot determine a
// unique homography.
func (c Correspondences) Validate() error {
	for i := range 4 {
		if !c.Src[i].finite() || !c.Dst[i].finite() {
			return fmt.Errorf("%w: pair %d has a non-finite coordinate", ErrDegenerateInput, i)
		}
	}
	return checkSourceGeometry(c.Src)
}

// Estimate computes the homography mapping Src onto Dst.
func (c Correspondences) Estimate() (Matrix, error) {
	return Estimate(c.Src, c.Dst)
}

// checkSourceGeometry rejects coincident and collinear source points.
func checkSourceGeometry(p [4]Point) error {
	for i := range 4 {
		for j := i + 1; j < 4; j++ {
			if p[i] == p[j] {
				return fmt.Errorf("%w: source points %d and %d coincide (%s)", ErrDegenerateInput, i, j, p[i])
			}
		}
	}

	triples := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
	for _, t := range triples {
		if collinear(p[t[0]], p[t[1]], p[t[2]]) {
			return fmt.Errorf("%w: source points %d, %d and %d are collinear", ErrDegenerateInput, t[0], t[1], t[2])
		}
	}
	return nil
}

func collinear(a, b, c Point) bool {
	u := b.sub(a)
	v := c.sub(a)
	cross := u.X*v.Y - u.Y*v.X
	return math.Abs(cross) <= collinearEpsilon*u.norm()*v.norm()
}
