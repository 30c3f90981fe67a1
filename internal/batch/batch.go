// Package batch warps many images through one homography in parallel.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"golang.org/x/sync/errgroup"
)

// ErrNoImages is returned when discovery finds nothing to warp.
var ErrNoImages = errors.New("no image files found")

// ItemResult describes the outcome for one input file.
type ItemResult struct {
	Input      string  `json:"input"`
	Output     string  `json:"output,omitempty"`
	SrcWidth   int     `json:"src_width,omitempty"`
	SrcHeight  int     `json:"src_height,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	DurationMs float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`

	err error
}

// Err returns the processing error, or nil on success.
func (r ItemResult) Err() error { return r.err }

// Result holds the result of a batch run. Items follow the discovery order.
type Result struct {
	Matrix   homography.Matrix
	Items    []ItemResult
	Duration time.Duration
	Jobs     int
}

// Failed counts the items that did not produce an output.
func (r *Result) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.err != nil || it.Error != "" {
			n++
		}
	}
	return n
}

// Process discovers the images named by paths, estimates the homography
// once and warps every image with it, cfg.Jobs at a time. Without
// ContinueOnError the first failure cancels the remaining work.
func Process(ctx context.Context, paths []string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	outputs, err := planOutputs(files, &cfg)
	if err != nil {
		return nil, err
	}

	h, err := cfg.Points.Estimate()
	if err != nil {
		return nil, err
	}

	jobs := max(cfg.Jobs, 1)
	slog.Info("batch started", "images", len(files), "jobs", jobs)

	start := time.Now()
	items := make([]ItemResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				items[i] = ItemResult{Input: files[i], Error: err.Error(), err: err}
				return err
			}
			items[i] = processSingleImage(h, files[i], outputs[i], &cfg)
			if items[i].err != nil && !cfg.ContinueOnError {
				return items[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch processing failed: %w", err)
	}

	res := &Result{
		Matrix:   h,
		Items:    items,
		Duration: time.Since(start),
		Jobs:     jobs,
	}
	slog.Info("batch finished", "images", len(items), "failed", res.Failed(), "duration_ms", res.Duration.Milliseconds())
	return res, nil
}
