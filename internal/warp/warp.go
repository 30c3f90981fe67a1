// Package warp resamples images through a homography using inverse
// (target-to-source) mapping and nearest-neighbour sampling.
package warp

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidSize is returned for non-positive output dimensions.
	ErrInvalidSize = errors.New("invalid output size")
	// ErrNilSource is returned when no source image is given.
	ErrNilSource = errors.New("source image is nil")
)

// Options controls how Warp partitions and initializes its output.
type Options struct {
	Workers    int         // number of row bands warped concurrently (0 = runtime.NumCPU())
	Background color.Color // colour of pixels that map outside the source
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the options Warp uses when none are given.
func DefaultOptions() Options {
	return Options{
		Workers:    runtime.NumCPU(),
		Background: color.Black,
	}
}

// WithWorkers sets the number of concurrent row bands.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithBackground sets the fill colour for out-of-frame pixels.
func WithBackground(c color.Color) Option {
	return func(o *Options) {
		if c != nil {
			o.Background = c
		}
	}
}

// Warp produces a width x height image whose pixel (j, i) is the source
// sample at round(H^-1 * [j i 1]). Pixels that map outside src keep the
// background colour. The source is never modified.
func Warp(src image.Image, h homography.Matrix, width, height int, opts ...Option) (*image.NRGBA, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	// Invert once, before any allocation; a singular H fails the whole call.
	inv, err := h.Inverse()
	if err != nil {
		return nil, fmt.Errorf("warp: %w", err)
	}

	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	in := asNRGBA(src)
	dst := imaging.New(width, height, o.Background)

	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, height)

	if workers == 1 {
		warpRows(in, dst, inv, 0, height)
		return dst, nil
	}

	band := (height + workers - 1) / workers
	slog.Debug("warp partitioned", "width", width, "height", height, "workers", workers, "band_rows", band)

	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += band {
		y1 := min(y0+band, height)
		wg.Add(1)
		go func() {
			defer wg.Done()
			warpRows(in, dst, inv, y0, y1)
		}()
	}
	wg.Wait()

	return dst, nil
}

// warpRows fills destination rows [y0, y1). Each call writes a disjoint
// slice of dst.Pix and only reads from src.
func warpRows(src, dst *image.NRGBA, inv homography.Matrix, y0, y1 int) {
	sb := src.Bounds()
	maxX := float64(sb.Dx() - 1)
	maxY := float64(sb.Dy() - 1)
	width := dst.Bounds().Dx()

	for i := y0; i < y1; i++ {
		for j := range width {
			xw, yw, ok := inv.Apply(float64(j), float64(i))
			if !ok {
				continue
			}
			x := math.RoundToEven(xw)
			y := math.RoundToEven(yw)
			if x < 0 || y < 0 || x > maxX || y > maxY {
				continue
			}

			s := src.PixOffset(sb.Min.X+int(x), sb.Min.Y+int(y))
			d := dst.PixOffset(j, i)
			copy(dst.Pix[d:d+3], src.Pix[s:s+3])
			dst.Pix[d+3] = 0xff
		}
	}
}

// asNRGBA returns src itself when it is already NRGBA, otherwise a copy.
func asNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(src)
}
