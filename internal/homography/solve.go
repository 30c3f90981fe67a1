package homography

import "math"

// pivotEpsilon is the smallest usable pivot relative to the largest entry of
// its column in the unreduced system.
const pivotEpsilon = 1e-12

// augmented holds an 8x8 system with its right-hand side as the ninth column.
type augmented [8][9]float64

func newAugmented(a [8][8]float64, b [8]float64) augmented {
	var m augmented
	for r := range 8 {
		copy(m[r][:8], a[r][:])
		m[r][8] = b[r]
	}
	return m
}

// solve8x8 solves a*x = b by Gauss-Jordan elimination with partial pivoting.
// It reports false when a is singular to working precision.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	m := newAugmented(a, b)
	scale := columnScale(a)

	for col := range 8 {
		p := m.pivotRow(col)
		// Negated so that NaN pivots are rejected too.
		if !(math.Abs(m[p][col]) > pivotEpsilon*scale[col]) {
			return [8]float64{}, false
		}
		m[col], m[p] = m[p], m[col]
		m.unitDiagonal(col)
		m.clearColumn(col)
	}

	var x [8]float64
	for r := range 8 {
		x[r] = m[r][8]
	}
	return x, true
}

// columnScale returns the largest magnitude in each column of a.
func columnScale(a [8][8]float64) [8]float64 {
	var s [8]float64
	for _, row := range a {
		for c, v := range row {
			s[c] = math.Max(s[c], math.Abs(v))
		}
	}
	return s
}

// pivotRow returns the row at or below col with the largest magnitude in
// column col.
func (m *augmented) pivotRow(col int) int {
	best := col
	for r := col + 1; r < 8; r++ {
		if math.Abs(m[r][col]) > math.Abs(m[best][col]) {
			best = r
		}
	}
	return best
}

// unitDiagonal scales row r so that m[r][r] becomes 1.
func (m *augmented) unitDiagonal(r int) {
	d := m[r][r]
	for c := r + 1; c < 9; c++ {
		m[r][c] /= d
	}
	m[r][r] = 1
}

// clearColumn subtracts multiples of row col from every other row so that
// column col is zero outside the diagonal.
func (m *augmented) clearColumn(col int) {
	pivot := m[col]
	for r := range 8 {
		f := m[r][col]
		if r == col || f == 0 {
			continue
		}
		m[r][col] = 0
		for c := col + 1; c < 9; c++ {
			m[r][c] -= f * pivot[c]
		}
	}
}
