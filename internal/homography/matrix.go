package homography

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var posInf = math.Inf(1)

// Matrix is a row-major 3x3 homography acting on homogeneous coordinates:
// [x' y' w'] = H [x y 1].
type Matrix [9]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// At returns the entry at row r, column c.
func (m Matrix) At(r, c int) float64 {
	return m[3*r+c]
}

// Apply maps (x, y) through m and divides by w. ok is false when w is zero
// or the result is not finite.
func (m Matrix) Apply(x, y float64) (float64, float64, bool) {
	w := m[6]*x + m[7]*y + m[8]
	if w == 0 {
		return 0, 0, false
	}
	px := (m[0]*x + m[1]*y + m[2]) / w
	py := (m[3]*x + m[4]*y + m[5]) / w
	if math.IsNaN(px) || math.IsNaN(py) || math.IsInf(px, 0) || math.IsInf(py, 0) {
		return 0, 0, false
	}
	return px, py, true
}

// Determinant returns det(m).
func (m Matrix) Determinant() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Normalize scales m so that its bottom-right entry is 1. It reports false
// when that entry is zero.
func (m Matrix) Normalize() (Matrix, bool) {
	if m[8] == 0 {
		return m, false
	}
	s := m[8]
	for i := range m {
		m[i] /= s
	}
	m[8] = 1
	return m, true
}

// Inverse returns m^-1, or ErrSingularHomography when m is singular to
// working precision: its condition number exceeds mat.ConditionTolerance.
func (m Matrix) Inverse() (Matrix, error) {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Matrix{}, fmt.Errorf("%w: non-finite entry", ErrSingularHomography)
		}
	}

	if det := m.Determinant(); det == 0 {
		return Matrix{}, fmt.Errorf("%w: determinant is zero", ErrSingularHomography)
	}

	a := mat.NewDense(3, 3, append([]float64(nil), m[:]...))
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return Matrix{}, fmt.Errorf("%w: condition number %g", ErrSingularHomography, float64(cond))
		}
		return Matrix{}, fmt.Errorf("%w: %v", ErrSingularHomography, err)
	}

	var out Matrix
	for r := range 3 {
		for c := range 3 {
			v := inv.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Matrix{}, fmt.Errorf("%w: non-finite inverse", ErrSingularHomography)
			}
			out[3*r+c] = v
		}
	}
	return out, nil
}

// Mul returns the product m*n.
func (m Matrix) Mul(n Matrix) Matrix {
	var out Matrix
	for r := range 3 {
		for c := range 3 {
			out[3*r+c] = m[3*r]*n[c] + m[3*r+1]*n[3+c] + m[3*r+2]*n[6+c]
		}
	}
	return out
}

// MaxAbsDiff returns the largest element-wise difference between m and n.
func (m Matrix) MaxAbsDiff(n Matrix) float64 {
	d := 0.0
	for i := range m {
		d = math.Max(d, math.Abs(m[i]-n[i]))
	}
	return d
}

// Rows returns the matrix as a nested slice, convenient for encoders.
func (m Matrix) Rows() [][]float64 {
	return [][]float64{
		{m[0], m[1], m[2]},
		{m[3], m[4], m[5]},
		{m[6], m[7], m[8]},
	}
}

func (m Matrix) String() string {
	str := fmt.Sprintf("[%14.8f, %14.8f, %14.8f]\n", m[0], m[1], m[2])
	str += fmt.Sprintf("[%14.8f, %14.8f, %14.8f]\n", m[3], m[4], m[5])
	str += fmt.Sprintf("[%14.8f, %14.8f, %14.8f]\n", m[6], m[7], m[8])
	return str
}
