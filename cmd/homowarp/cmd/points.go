package cmd

import (
	"fmt"

	"github.com/MeKo-Tech/homowarp/internal/config"
	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/spf13/cobra"
)

// addPointFlags registers --src and --dst.
func addPointFlags(cmd *cobra.Command) {
	cmd.Flags().String("src", config.DefaultSrcPoints, `source points "x,y;x,y;x,y;x,y" (TL, TR, BL, BR)`)
	cmd.Flags().String("dst", config.DefaultDstPoints, `destination points "x,y;x,y;x,y;x,y" (TL, TR, BL, BR)`)
}

// correspondences resolves --src/--dst against the warp config section.
func correspondences(cmd *cobra.Command, w config.WarpConfig) (homography.Correspondences, error) {
	if cmd.Flags().Changed("src") {
		w.SrcPoints, _ = cmd.Flags().GetString("src")
	}
	if cmd.Flags().Changed("dst") {
		w.DstPoints, _ = cmd.Flags().GetString("dst")
	}
	c, err := w.Correspondences()
	if err != nil {
		return c, fmt.Errorf("invalid points: %w", err)
	}
	return c, nil
}
