package testutil

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

var (
	// White is opaque white.
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	// Black is opaque black, the default warp background.
	Black = color.NRGBA{A: 255}
)

// SolidImage returns a width x height image filled with c.
func SolidImage(width, height int, c color.Color) *image.NRGBA {
	return imaging.New(width, height, c)
}

// CoordImage encodes each pixel's position in its colour: R = x, G = y
// (both mod 256) and B = 255, so a sampled pixel reveals where it came from
// and can never be mistaken for the black background.
func CoordImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 255, A: 255}) //nolint:gosec // wraparound intended
		}
	}
	return img
}

// WriteImage encodes img to path, choosing the format from the extension,
// and returns the path.
func WriteImage(t *testing.T, img image.Image, path string) string {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, imaging.Save(img, path), "failed to save %s", path)
	return path
}

// LoadImage decodes the image at path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := imaging.Open(path)
	require.NoError(t, err, "failed to open %s", path)
	return img
}
