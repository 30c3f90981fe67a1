package batch

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/homowarp/internal/common"
	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/overlay"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/MeKo-Tech/homowarp/internal/warp"
)

// outputPath names the warped file for input.
func outputPath(input string, cfg *Config) string {
	ext := filepath.Ext(input)
	if cfg.Format != "" {
		ext = "." + strings.ToLower(cfg.Format)
	}
	dir := filepath.Dir(input)
	if cfg.OutputDir != "" {
		dir = cfg.OutputDir
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, stem+cfg.Suffix+ext)
}

// planOutputs maps every input to its output path and rejects plans where
// two inputs would write the same file or an input would be overwritten.
func planOutputs(inputs []string, cfg *Config) ([]string, error) {
	outputs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs)*2)
	for _, in := range inputs {
		seen[filepath.Clean(in)] = in
	}
	for i, in := range inputs {
		out := outputPath(in, cfg)
		if prev, ok := seen[filepath.Clean(out)]; ok {
			return nil, fmt.Errorf("output %s for %s collides with %s", out, in, prev)
		}
		seen[filepath.Clean(out)] = in
		outputs[i] = out
	}
	return outputs, nil
}

// loadAndValidateImage loads an image with a supported extension.
func loadAndValidateImage(path string) (image.Image, utils.ImageMetadata, error) {
	if !utils.IsSupportedImage(path) {
		return nil, utils.ImageMetadata{}, fmt.Errorf("unsupported image format: %s", path)
	}

	img, meta, err := utils.LoadImage(path)
	if err != nil {
		return nil, utils.ImageMetadata{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return img, meta, nil
}

// processSingleImage loads, warps and saves one image.
func processSingleImage(h homography.Matrix, input, output string, cfg *Config) ItemResult {
	timer := common.NewTimer(filepath.Base(input))
	item := ItemResult{Input: input}
	fail := func(err error) ItemResult {
		item.err = err
		item.Error = err.Error()
		item.DurationMs = common.Millis(timer.Stop())
		return item
	}

	img, meta, err := loadAndValidateImage(input)
	if err != nil {
		return fail(err)
	}
	item.SrcWidth, item.SrcHeight = meta.Width, meta.Height

	width, height := cfg.Width, cfg.Height
	if width == 0 {
		width = meta.Width
	}
	if height == 0 {
		height = meta.Height
	}

	dst, err := warp.Warp(img, h, width, height, cfg.WarpOptions...)
	if err != nil {
		return fail(fmt.Errorf("warp failed for %s: %w", input, err))
	}
	if err := utils.SaveImage(dst, output, cfg.JPEGQuality); err != nil {
		return fail(fmt.Errorf("failed to save %s: %w", output, err))
	}

	if cfg.DebugDir != "" {
		stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		if _, err := overlay.WriteQuadFor(cfg.DebugDir, stem, img, cfg.Points.Src); err != nil {
			slog.Warn("Failed to write overlay", "file", input, "error", err)
		}
	}

	item.Output = output
	item.Width, item.Height = width, height
	item.DurationMs = common.Millis(timer.Stop())
	slog.Debug("image warped", "input", input, "output", output, "timer", timer)
	return item
}
