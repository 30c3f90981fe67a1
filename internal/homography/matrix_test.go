package homography

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_Apply(t *testing.T) {
	x, y, ok := Identity().Apply(10, 20)
	require.True(t, ok)
	assert.InDelta(t, 10, x, 1e-12)
	assert.InDelta(t, 20, y, 1e-12)

	// w = 0 everywhere
	_, _, ok = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 0}.Apply(0, 0)
	assert.False(t, ok)

	// w = 0 along the line x = 1
	_, _, ok = Matrix{1, 0, 0, 0, 1, 0, -1, 0, 1}.Apply(1, 5)
	assert.False(t, ok)
}

func TestMatrix_Inverse(t *testing.T) {
	h, err := Estimate(sampleSrc, sampleDst)
	require.NoError(t, err)

	inv, err := h.Inverse()
	require.NoError(t, err)

	prod := h.Mul(inv)
	id := Identity()
	for i := range prod {
		assert.InDelta(t, id[i], prod[i], 1e-9, "entry %d", i)
	}

	// The inverse maps destination corners back onto the source quad.
	for i := range 4 {
		x, y, ok := inv.Apply(sampleDst[i].X, sampleDst[i].Y)
		require.True(t, ok)
		assert.InDelta(t, sampleSrc[i].X, x, 1e-6)
		assert.InDelta(t, sampleSrc[i].Y, y, 1e-6)
	}
}

func TestMatrix_InverseLargeTranslation(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		want Matrix
	}{
		{"translate 1e4", Matrix{1, 0, 1e4, 0, 1, 1e4, 0, 0, 1}, Matrix{1, 0, -1e4, 0, 1, -1e4, 0, 0, 1}},
		{"translate 1e6", Matrix{1, 0, -1e6, 0, 1, 1e6, 0, 0, 1}, Matrix{1, 0, 1e6, 0, 1, -1e6, 0, 0, 1}},
		{"zoom crop at 5e3", Matrix{10, 0, -5e4, 0, 10, -5e4, 0, 0, 1}, Matrix{0.1, 0, 5000, 0, 0.1, 5000, 0, 0, 1}},
		{"shrink crop at 1e5", Matrix{0.01, 0, -1000, 0, 0.01, -1000, 0, 0, 1}, Matrix{100, 0, 1e5, 0, 100, 1e5, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := tt.m.Inverse()
			require.NoError(t, err)
			for i := range inv {
				assert.InDelta(t, tt.want[i], inv[i], 1e-9*math.Max(1, math.Abs(tt.want[i])), "entry %d", i)
			}
		})
	}
}

func TestMatrix_InverseSingular(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{"zero", Matrix{}},
		{"rank one", Matrix{1, 2, 3, 2, 4, 6, 3, 6, 9}},
		{"rank two", Matrix{1, 0, 0, 0, 1, 0, 0, 0, 0}},
		{"rank two with translation", Matrix{1, 2, 1e4, 2, 4, 2e4, 0, 0, 1}},
		{"non-finite", Matrix{math.NaN(), 0, 0, 0, 1, 0, 0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.m.Inverse()
			assert.ErrorIs(t, err, ErrSingularHomography)
		})
	}
}

func TestMatrix_Determinant(t *testing.T) {
	assert.Equal(t, 1.0, Identity().Determinant())
	assert.InDelta(t, 0.25, Matrix{0.5, 0, 0, 0, 0.5, 0, 0, 0, 1}.Determinant(), 1e-15)
	assert.Equal(t, 0.0, Matrix{1, 2, 3, 2, 4, 6, 3, 6, 9}.Determinant())
}

func TestMatrix_Normalize(t *testing.T) {
	m, ok := Matrix{2, 0, 0, 0, 2, 0, 0, 0, 2}.Normalize()
	require.True(t, ok)
	assert.Equal(t, Identity(), m)

	_, ok = Matrix{1, 0, 0, 0, 1, 0, 0, 0, 0}.Normalize()
	assert.False(t, ok)
}

func TestMatrix_AtAndRows(t *testing.T) {
	m := Matrix{1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, 6.0, m.At(1, 2))
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, m.Rows())
	assert.Contains(t, m.String(), "9.00000000")
}
