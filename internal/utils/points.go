package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/homowarp/internal/homography"
)

// ErrPointSyntax is returned when a point list cannot be parsed.
var ErrPointSyntax = errors.New("invalid point list")

// ParsePoints parses exactly four points written as "x,y;x,y;x,y;x,y".
// Whitespace around numbers and separators is ignored.
func ParsePoints(s string) ([4]homography.Point, error) {
	var pts [4]homography.Point

	parts := strings.Split(strings.TrimSpace(s), ";")
	if len(parts) != 4 {
		return pts, fmt.Errorf("%w: expected 4 points, got %d in %q", ErrPointSyntax, len(parts), s)
	}

	for i, part := range parts {
		xy := strings.Split(part, ",")
		if len(xy) != 2 {
			return pts, fmt.Errorf("%w: point %d %q is not of the form x,y", ErrPointSyntax, i, strings.TrimSpace(part))
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return pts, fmt.Errorf("%w: point %d: %v", ErrPointSyntax, i, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return pts, fmt.Errorf("%w: point %d: %v", ErrPointSyntax, i, err)
		}
		pts[i] = homography.Point{X: x, Y: y}
	}
	return pts, nil
}

// FormatPoints is the inverse of ParsePoints.
func FormatPoints(pts [4]homography.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = p.String()
	}
	return strings.Join(parts, ";")
}
