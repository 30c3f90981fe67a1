package cmd

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/homowarp/internal/batch"
	"github.com/MeKo-Tech/homowarp/internal/config"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/spf13/cobra"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [files or directories...]",
		Short: "Warp many images with the same correspondences",
		Long: `Estimate the homography for --src/--dst once and warp every input with it.

Directories are searched for JPEG, PNG and BMP files; --recursive descends into
subdirectories. Each output is named <stem><suffix>.<ext> and written next to its
input, or into --output-dir.

Examples:
  homowarp batch scans/ --output-dir flat/ --width 1024 --height 768
  homowarp batch a.jpg b.jpg --jobs 4 --results json
  homowarp batch scans/ --recursive --include "page*" --output-format png --stats`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, a.settings(), args)
		},
	}

	addPointFlags(cmd)
	cmd.Flags().StringP("output-dir", "d", "", "directory for warped images (default next to each input)")
	cmd.Flags().String("suffix", batch.DefaultSuffix, "suffix appended to each output file name")
	cmd.Flags().String("output-format", "", "output image format: png, jpg, bmp (default keeps the input's)")
	cmd.Flags().Int("width", 0, "output width (0 = input width)")
	cmd.Flags().Int("height", 0, "output height (0 = input height)")
	cmd.Flags().Int("workers", 0, "parallel row bands per image (0 = number of CPUs)")
	cmd.Flags().String("background", "#000000", "fill colour for pixels outside the source (hex)")
	cmd.Flags().Int("quality", utils.DefaultJPEGQuality, "JPEG quality (1-100)")
	cmd.Flags().String("debug-dir", "", "write a quad overlay PNG per input to this directory")
	cmd.Flags().IntP("jobs", "j", 1, "number of images warped concurrently")
	cmd.Flags().BoolP("recursive", "r", false, "search directories recursively")
	cmd.Flags().StringSlice("include", nil, "only include file names matching these patterns")
	cmd.Flags().StringSlice("exclude", nil, "skip file names matching these patterns")
	cmd.Flags().Bool("continue-on-error", false, "keep going when an image fails")
	cmd.Flags().String("results", "text", "result listing format: text, json, csv")
	cmd.Flags().String("results-file", "", "write the result listing to a file instead of stdout")
	cmd.Flags().Bool("stats", false, "print processing statistics")
	return cmd
}

// batchConfig maps the configuration and flags to batch.Config.
func batchConfig(cmd *cobra.Command, cfg *config.Config) (batch.Config, error) {
	wcfg, ocfg := warpSettings(cmd, cfg)
	points, err := correspondences(cmd, wcfg)
	if err != nil {
		return batch.Config{}, err
	}
	opts, err := wcfg.Options()
	if err != nil {
		return batch.Config{}, err
	}

	bc := batch.DefaultConfig()
	bc.Points = points
	bc.Width, bc.Height = wcfg.Width, wcfg.Height
	bc.WarpOptions = opts
	bc.JPEGQuality = ocfg.JPEGQuality
	bc.DebugDir = wcfg.DebugDir

	f := cmd.Flags()
	bc.OutputDir, _ = f.GetString("output-dir")
	bc.Suffix, _ = f.GetString("suffix")
	bc.Format, _ = f.GetString("output-format")
	bc.Jobs, _ = f.GetInt("jobs")
	bc.Recursive, _ = f.GetBool("recursive")
	bc.IncludePatterns, _ = f.GetStringSlice("include")
	bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
	bc.ContinueOnError, _ = f.GetBool("continue-on-error")
	return bc, nil
}

func runBatch(cmd *cobra.Command, cfg *config.Config, args []string) error {
	results, _ := cmd.Flags().GetString("results")
	if err := batch.ValidateResultFormat(results); err != nil {
		return err
	}
	bc, err := batchConfig(cmd, cfg)
	if err != nil {
		return err
	}

	res, err := batch.Process(cmd.Context(), args, bc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("results-file"); path != "" {
		f, err := os.Create(path) //nolint:gosec // G304: user-selected output path
		if err != nil {
			return fmt.Errorf("failed to create results file: %w", err)
		}
		if err := res.Format(f, results); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Results written to %s\n", path)
	} else if err := res.Format(out, results); err != nil {
		return err
	}

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		if err := res.WriteStats(out); err != nil {
			return err
		}
	}
	if n := res.Failed(); n > 0 {
		return fmt.Errorf("%d of %d images failed", n, len(res.Items))
	}
	return nil
}
