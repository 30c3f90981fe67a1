package utils

import (
	"testing"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoints(t *testing.T) {
	pts, err := ParsePoints(" 559,529; 2041, 349 ;573,1733;2053.5,-1887 ")
	require.NoError(t, err)

	want := [4]homography.Point{{X: 559, Y: 529}, {X: 2041, Y: 349}, {X: 573, Y: 1733}, {X: 2053.5, Y: -1887}}
	assert.Equal(t, want, pts)
}

func TestParsePoints_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"three points", "0,0;1,0;0,1"},
		{"five points", "0,0;1,0;0,1;1,1;2,2"},
		{"missing y", "0,0;1;0,1;1,1"},
		{"extra coordinate", "0,0,0;1,0;0,1;1,1"},
		{"not a number", "0,0;1,a;0,1;1,1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePoints(tt.input)
			assert.ErrorIs(t, err, ErrPointSyntax)
		})
	}
}

func TestFormatPoints_RoundTrip(t *testing.T) {
	in := [4]homography.Point{{X: 0, Y: 0}, {X: 1023, Y: 0}, {X: 0, Y: 767.25}, {X: 1023, Y: 767}}
	s := FormatPoints(in)
	assert.Equal(t, "0,0;1023,0;0,767.25;1023,767", s)

	out, err := ParsePoints(s)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
