package server

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/MeKo-Tech/homowarp/internal/warp"
)

// warpJob describes one warp request after parsing.
type warpJob struct {
	points        homography.Correspondences
	width, height int // zero means source size
}

// warpResult is the outcome of a successful warpJob.
type warpResult struct {
	image  *image.NRGBA
	matrix homography.Matrix
}

// points resolves optional point strings against the server defaults.
func (s *Server) points(src, dst string) (homography.Correspondences, error) {
	c := s.defaults
	if src != "" {
		p, err := utils.ParsePoints(src)
		if err != nil {
			return c, fmt.Errorf("src: %w", err)
		}
		c.Src = p
	}
	if dst != "" {
		p, err := utils.ParsePoints(dst)
		if err != nil {
			return c, fmt.Errorf("dst: %w", err)
		}
		c.Dst = p
	}
	return c, nil
}

// runWarp estimates H for the job and warps img, recording metrics under
// the given source label.
func (s *Server) runWarp(source string, img image.Image, job warpJob) (*warpResult, error) {
	start := time.Now()

	b := img.Bounds()
	width, height := job.width, job.height
	if width == 0 {
		width = b.Dx()
	}
	if height == 0 {
		height = b.Dy()
	}
	if width > 0 && height > 0 && int64(width) > s.maxPixels/int64(height) {
		warpRequestsTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", errOutputTooLarge, width, height, s.maxPixels)
	}

	h, err := job.points.Estimate()
	if err != nil {
		estimateRequestsTotal.WithLabelValues(source, "error").Inc()
		warpRequestsTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	estimateRequestsTotal.WithLabelValues(source, "success").Inc()

	out, err := warp.Warp(img, h, width, height, s.warpOpts...)
	if err != nil {
		warpRequestsTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}

	elapsed := time.Since(start)
	warpRequestsTotal.WithLabelValues(source, "success").Inc()
	warpDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	warpOutputPixels.Observe(float64(width * height))
	slog.Debug("warp completed", "source", source, "width", width, "height", height, "duration", elapsed)

	return &warpResult{image: out, matrix: h}, nil
}

var errOutputTooLarge = errors.New("output image too large")

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, homography.ErrDegenerateInput), errors.Is(err, homography.ErrSingularHomography):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errOutputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, utils.ErrPointSyntax), errors.Is(err, warp.ErrInvalidSize), errors.Is(err, warp.ErrNilSource),
		errors.Is(err, errInvalidDimension):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorType is the short machine-readable name used in WebSocket errors.
func errorType(err error) string {
	switch statusForError(err) {
	case http.StatusUnprocessableEntity:
		return "degenerate_input"
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusRequestEntityTooLarge:
		return "output_too_large"
	default:
		return "processing_error"
	}
}
