package batch

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/MeKo-Tech/homowarp/internal/warp"
)

// DefaultSuffix is appended to the input stem to name each output file.
const DefaultSuffix = "_warped"

var validResultFormats = []string{"text", "json", "csv"}

// Config holds all configuration for batch warping.
type Config struct {
	// Geometry shared by every image
	Points      homography.Correspondences
	Width       int // 0 = each input's width
	Height      int // 0 = each input's height
	WarpOptions []warp.Option

	// Output naming
	OutputDir   string // empty = next to each input
	Suffix      string
	Format      string // output extension without the dot; empty keeps the input's
	JPEGQuality int
	DebugDir    string

	// Parallel processing settings
	Jobs            int // images processed concurrently
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
}

// DefaultConfig returns a Config that warps one image at a time.
func DefaultConfig() Config {
	return Config{
		Suffix:      DefaultSuffix,
		JPEGQuality: utils.DefaultJPEGQuality,
		Jobs:        1,
	}
}

// Validate checks the settings that do not depend on the inputs.
func (c *Config) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: %dx%d", warp.ErrInvalidSize, c.Width, c.Height)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("invalid jobs: %d (must not be negative)", c.Jobs)
	}
	if c.Format != "" && !utils.IsSupportedImage("x."+c.Format) {
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
	return nil
}

// ValidateResultFormat checks a format name accepted by Result.Format.
func ValidateResultFormat(format string) error {
	if format != "" && !slices.Contains(validResultFormats, format) {
		return fmt.Errorf("unsupported result format: %s (must be one of: %s)",
			format, strings.Join(validResultFormats, ", "))
	}
	return nil
}
