// Package overlay renders diagnostic images for a warp: the source with its
// quadrilateral outlined, and a side-by-side comparison with the result.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/disintegration/imaging"
)

// Gap is the horizontal spacing between the two panels of a comparison.
const Gap = 10

var (
	quadColor  = color.NRGBA{R: 255, A: 255}
	frameColor = color.NRGBA{G: 255, A: 255}
)

// Quad returns a copy of src with the quadrilateral outlined in red.
func Quad(src image.Image, quad [4]homography.Point) *image.NRGBA {
	canvas := imaging.Clone(src)
	utils.DrawQuad(canvas, shift(quad, src.Bounds().Min), quadColor, 2)
	return canvas
}

// Compare places src (with its quad) on the left and dst (framed in green)
// on the right, separated by Gap black columns.
func Compare(src image.Image, quad [4]homography.Point, dst image.Image) *image.NRGBA {
	sb, db := src.Bounds(), dst.Bounds()
	canvas := imaging.New(sb.Dx()+Gap+db.Dx(), max(sb.Dy(), db.Dy()), color.Black)

	canvas = imaging.Paste(canvas, Quad(src, quad), image.Pt(0, 0))
	xoff := sb.Dx() + Gap
	canvas = imaging.Paste(canvas, dst, image.Pt(xoff, 0))
	utils.DrawRect(canvas, image.Rect(xoff, 0, xoff+db.Dx(), db.Dy()), frameColor, 2)
	return canvas
}

// WriteQuad stores Quad(src, quad) as warp_overlay_<ns>.png in dir.
func WriteQuad(dir string, src image.Image, quad [4]homography.Point) (string, error) {
	return write(dir, "warp_overlay", Quad(src, quad))
}

// WriteQuadFor stores Quad(src, quad) as <stem>_overlay_<ns>.png in dir, so
// overlays of several inputs sharing dir can be told apart.
func WriteQuadFor(dir, stem string, src image.Image, quad [4]homography.Point) (string, error) {
	return write(dir, stem+"_overlay", Quad(src, quad))
}

// WriteCompare stores Compare(src, quad, dst) as warp_compare_<ns>.png in dir.
func WriteCompare(dir string, src image.Image, quad [4]homography.Point, dst image.Image) (string, error) {
	return write(dir, "warp_compare", Compare(src, quad, dst))
}

// maxNameAttempts bounds the search for an unused file name.
const maxNameAttempts = 100

// write encodes img as PNG into a new file named <prefix>_<ns>.png. Existing
// files are never overwritten: a taken name gets a numeric suffix.
func write(dir, prefix string, img image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	base := fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	for i := range maxNameAttempts {
		name := base + ".png"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.png", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640) //nolint:gosec // G304: debug dir is user-chosen
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := imaging.Encode(f, img, imaging.PNG); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", err
		}
		return path, f.Close()
	}
	return "", fmt.Errorf("no free file name for %s in %s", base, dir)
}

// shift moves quad from source coordinates into a canvas starting at origin.
func shift(quad [4]homography.Point, origin image.Point) [4]homography.Point {
	for i := range quad {
		quad[i].X -= float64(origin.X)
		quad[i].Y -= float64(origin.Y)
	}
	return quad
}
