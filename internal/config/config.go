package config

import (
	"fmt"
	"image/color"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/MeKo-Tech/homowarp/internal/warp"
	"github.com/lucasb-eyer/go-colorful"
)

// Default correspondences: a skewed document photographed at 2592x1944
// mapped onto a 1024x768 rectangle.
const (
	DefaultSrcPoints = "559,529;2041,349;573,1733;2053,1887"
	DefaultDstPoints = "0,0;1023,0;0,767;1023,767"
)

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validOutputFormats = []string{"text", "json", "yaml"}
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Warp: WarpConfig{
			SrcPoints:  DefaultSrcPoints,
			DstPoints:  DefaultDstPoints,
			Workers:    runtime.NumCPU(),
			Background: "#000000",
		},
		Output: OutputConfig{
			Format:      "text",
			JPEGQuality: utils.DefaultJPEGQuality,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			MaxOutputPixels: 100_000_000,

			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
			MaxRequestsPerDay: 5000,
			MaxDataPerDay:     100 * 1024 * 1024,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	if c.Output.Format != "" && !slices.Contains(validOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			c.Output.Format, strings.Join(validOutputFormats, ", "))
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality: %d (must be between 1 and 100)", c.Output.JPEGQuality)
	}

	if c.Warp.Width < 0 || c.Warp.Height < 0 {
		return fmt.Errorf("invalid warp size: %dx%d (must not be negative)", c.Warp.Width, c.Warp.Height)
	}
	if c.Warp.Workers < 0 {
		return fmt.Errorf("invalid warp workers: %d (must not be negative)", c.Warp.Workers)
	}
	if _, err := c.Warp.BackgroundColor(); err != nil {
		return err
	}
	if _, err := c.Warp.Correspondences(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.MaxOutputPixels <= 0 {
		return fmt.Errorf("invalid max output pixels: %d (must be positive)", c.Server.MaxOutputPixels)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.RequestsPerHour < 0 ||
		c.Server.MaxRequestsPerDay < 0 || c.Server.MaxDataPerDay < 0 {
		return fmt.Errorf("invalid rate limit: limits must not be negative")
	}

	return nil
}

// Correspondences parses the configured point lists. It checks syntax only;
// geometric degeneracy is reported by homography.Estimate.
func (w WarpConfig) Correspondences() (homography.Correspondences, error) {
	var c homography.Correspondences
	src, err := utils.ParsePoints(w.SrcPoints)
	if err != nil {
		return c, fmt.Errorf("invalid warp.src_points: %w", err)
	}
	dst, err := utils.ParsePoints(w.DstPoints)
	if err != nil {
		return c, fmt.Errorf("invalid warp.dst_points: %w", err)
	}
	c.Src, c.Dst = src, dst
	return c, nil
}

// BackgroundColor parses the background as a "#rgb" or "#rrggbb" hex colour.
func (w WarpConfig) BackgroundColor() (color.NRGBA, error) {
	if w.Background == "" {
		return color.NRGBA{A: 0xff}, nil
	}
	c, err := colorful.Hex(w.Background)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid warp.background %q: %w", w.Background, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// Options converts the warp section to warp.Option values.
func (w WarpConfig) Options() ([]warp.Option, error) {
	bg, err := w.BackgroundColor()
	if err != nil {
		return nil, err
	}
	return []warp.Option{warp.WithWorkers(w.Workers), warp.WithBackground(bg)}, nil
}

// OutputSize resolves the configured output size against the source size.
func (w WarpConfig) OutputSize(srcWidth, srcHeight int) (int, int) {
	width, height := w.Width, w.Height
	if width == 0 {
		width = srcWidth
	}
	if height == 0 {
		height = srcHeight
	}
	return width, height
}
