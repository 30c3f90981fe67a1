package cmd

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/homowarp/internal/common"
	"github.com/MeKo-Tech/homowarp/internal/config"
	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/overlay"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/MeKo-Tech/homowarp/internal/warp"
	"github.com/spf13/cobra"
)

func newWarpCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warp <image>",
		Short: "Warp an image through the homography of four correspondences",
		Long: `Estimate the homography for --src/--dst and resample the input image with it.

Every output pixel is looked up through the inverse homography and copied from
the nearest source pixel; pixels that map outside the source stay at the
background colour. The output size defaults to the input size.

Supported formats: JPEG, PNG, BMP (chosen by file extension).

Examples:
  homowarp warp photo.jpg
  homowarp warp photo.jpg -o flat.png --width 1024 --height 768
  homowarp warp photo.jpg --src "10,10;500,20;15,400;490,390" --debug-dir debug/`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWarp(cmd, a.settings(), args[0])
		},
	}

	addPointFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "output file (default <input>_warped.<ext>)")
	cmd.Flags().Int("width", 0, "output width (0 = input width)")
	cmd.Flags().Int("height", 0, "output height (0 = input height)")
	cmd.Flags().Int("workers", 0, "parallel row bands (0 = number of CPUs)")
	cmd.Flags().String("background", "#000000", "fill colour for pixels outside the source (hex)")
	cmd.Flags().Int("quality", utils.DefaultJPEGQuality, "JPEG quality (1-100)")
	cmd.Flags().String("debug-dir", "", "write overlay and side-by-side comparison PNGs to this directory")
	cmd.Flags().Bool("compare", false, "also print the reference LU solution and its difference")
	cmd.Flags().Bool("timing", false, "print a per-phase timing report")
	return cmd
}

// warpSettings merges command flags over the configuration.
func warpSettings(cmd *cobra.Command, cfg *config.Config) (config.WarpConfig, config.OutputConfig) {
	w, o := cfg.Warp, cfg.Output
	f := cmd.Flags()
	if f.Changed("width") {
		w.Width, _ = f.GetInt("width")
	}
	if f.Changed("height") {
		w.Height, _ = f.GetInt("height")
	}
	if f.Changed("workers") {
		w.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("background") {
		w.Background, _ = f.GetString("background")
	}
	if f.Changed("debug-dir") {
		w.DebugDir, _ = f.GetString("debug-dir")
	}
	if f.Changed("output") {
		o.File, _ = f.GetString("output")
	}
	if f.Changed("quality") {
		o.JPEGQuality, _ = f.GetInt("quality")
	}
	return w, o
}

func runWarp(cmd *cobra.Command, cfg *config.Config, input string) error {
	wcfg, ocfg := warpSettings(cmd, cfg)
	if wcfg.Width < 0 || wcfg.Height < 0 {
		return fmt.Errorf("%w: %dx%d", warp.ErrInvalidSize, wcfg.Width, wcfg.Height)
	}
	points, err := correspondences(cmd, wcfg)
	if err != nil {
		return err
	}
	opts, err := wcfg.Options()
	if err != nil {
		return err
	}

	outPath := ocfg.File
	if outPath == "" {
		outPath = defaultOutputPath(input)
	}
	if !utils.IsSupportedImage(outPath) {
		return fmt.Errorf("unsupported output format: %s", filepath.Ext(outPath))
	}

	var phases common.Phases

	phases.Start("load")
	src, meta, err := utils.LoadImage(input)
	if err != nil {
		return err
	}

	phases.Start("estimate")
	compare, _ := cmd.Flags().GetBool("compare")
	est, err := estimate(points, compare)
	if err != nil {
		return err
	}

	phases.Start("warp")
	width, height := wcfg.OutputSize(meta.Width, meta.Height)
	dst, err := warp.Warp(src, est.matrix, width, height, opts...)
	if err != nil {
		return err
	}

	phases.Start("save")
	if err := utils.SaveImage(dst, outPath, ocfg.JPEGQuality); err != nil {
		return err
	}
	phases.Stop()

	if wcfg.DebugDir != "" {
		if err := writeDebugImages(wcfg.DebugDir, src, points.Src, dst); err != nil {
			slog.Warn("Failed to write debug images", "dir", wcfg.DebugDir, "error", err)
		}
	}

	slog.Info("warp completed",
		"input", input, "output", outPath,
		"src_size", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		"dst_size", fmt.Sprintf("%dx%d", width, height),
		"timing", &phases)

	out := cmd.OutOrStdout()
	if err := writeEstimate(out, est, "text"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "Warped %s (%dx%d) -> %s (%dx%d)\n",
		input, meta.Width, meta.Height, outPath, width, height); err != nil {
		return err
	}
	if timing, _ := cmd.Flags().GetBool("timing"); timing {
		return phases.Report(out)
	}
	return nil
}

// defaultOutputPath derives "<dir>/<stem>_warped<ext>" from the input path.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_warped" + ext
}

func writeDebugImages(dir string, src image.Image, quad [4]homography.Point, dst image.Image) error {
	p, err := overlay.WriteQuad(dir, src, quad)
	if err != nil {
		return err
	}
	slog.Debug("Saved overlay", "path", p)

	p, err = overlay.WriteCompare(dir, src, quad, dst)
	if err != nil {
		return err
	}
	slog.Debug("Saved comparison", "path", p)
	return nil
}
