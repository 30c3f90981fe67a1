package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/homowarp/internal/common"
	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// EstimateOutput is the structured form of `homowarp estimate`.
type EstimateOutput struct {
	Src               string      `json:"src" yaml:"src"`
	Dst               string      `json:"dst" yaml:"dst"`
	Matrix            [][]float64 `json:"matrix" yaml:"matrix"`
	ReprojectionError float64     `json:"reprojection_error" yaml:"reprojection_error"`
	Reference         [][]float64 `json:"reference,omitempty" yaml:"reference,omitempty"`
	MaxAbsDiff        *float64    `json:"max_abs_diff,omitempty" yaml:"max_abs_diff,omitempty"`
	TimingMs          float64     `json:"timing_ms" yaml:"timing_ms"`

	matrix, reference homography.Matrix
}

func newEstimateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Compute the homography for four point correspondences",
		Long: `Compute the 3x3 homography H (with H[2][2] = 1) that maps each source
point onto its destination point.

With --compare the result is checked against an independent LU-based solver
and the maximum absolute entry difference is reported.

Examples:
  homowarp estimate
  homowarp estimate --src "0,0;2,0;0,2;2,2" --dst "0,0;1,0;0,1;1,1" --format json
  homowarp estimate --compare --format yaml`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings()

			points, err := correspondences(cmd, cfg.Warp)
			if err != nil {
				return err
			}

			format := cfg.Output.Format
			if cmd.Flags().Changed("format") {
				format, _ = cmd.Flags().GetString("format")
			}
			compare, _ := cmd.Flags().GetBool("compare")

			out, err := estimate(points, compare)
			if err != nil {
				return err
			}
			return writeEstimate(cmd.OutOrStdout(), out, format)
		},
	}

	addPointFlags(cmd)
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml")
	cmd.Flags().Bool("compare", false, "compare against the reference LU solver")
	return cmd
}

// estimate runs the estimator and, optionally, the reference solver.
func estimate(points homography.Correspondences, compare bool) (*EstimateOutput, error) {
	timer := common.NewTimer("estimate")
	h, err := points.Estimate()
	timer.Stop()
	if err != nil {
		return nil, err
	}
	slog.Debug("homography estimated", "timer", timer)

	out := &EstimateOutput{
		Src:               utils.FormatPoints(points.Src),
		Dst:               utils.FormatPoints(points.Dst),
		Matrix:            h.Rows(),
		ReprojectionError: homography.Reproject(h, points.Src, points.Dst),
		TimingMs:          common.Millis(timer.Duration()),
		matrix:            h,
	}

	if compare {
		ref, err := homography.EstimateReference(points.Src, points.Dst)
		if err != nil {
			return nil, fmt.Errorf("reference solver: %w", err)
		}
		diff := h.MaxAbsDiff(ref)
		out.Reference = ref.Rows()
		out.MaxAbsDiff = &diff
		out.reference = ref
	}
	return out, nil
}

func writeEstimate(w io.Writer, out *EstimateOutput, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		if _, err := fmt.Fprintf(w, "Homography matrix:\n%s", out.matrix); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "Reprojection error: %.3g\n", out.ReprojectionError); err != nil {
			return err
		}
		if out.MaxAbsDiff != nil {
			if _, err := fmt.Fprintf(w, "\nReference matrix (LU):\n%s", out.reference); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "Max abs difference: %.3g\n", *out.MaxAbsDiff); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "Time: %.3f ms\n", out.TimingMs)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s (must be one of: text, json, yaml)", format)
	}
}
