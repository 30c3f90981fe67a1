package homography

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// EstimateReference solves the same conditioned 8x8 system as Estimate with
// gonum's LU solver. It performs no geometric checks of its own and exists to
// cross-check Estimate.
func EstimateReference(src, dst [4]Point) (Matrix, error) {
	sys := newConditionedSystem(src, dst)

	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)
	for r := range 8 {
		for c := range 8 {
			A.Set(r, c, sys.a[r][c])
		}
		B.SetVec(r, sys.b[r])
	}

	var x mat.VecDense
	if err := x.SolveVec(A, B); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return Matrix{}, fmt.Errorf("%w: %v", ErrDegenerateInput, err)
		}
	}

	var h [8]float64
	for i := range 8 {
		h[i] = x.AtVec(i)
	}
	return sys.denormalize(h)
}
