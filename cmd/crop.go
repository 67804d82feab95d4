package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/heirloom-app/heirloom/internal/crop"
	"github.com/spf13/cobra"
)

type cropOptions struct {
	in       string
	out      string
	zoom     float64
	offsetX  float64
	offsetY  float64
	size     int
	viewport float64
	quality  int
}

func newCropCmd(root *rootOptions) *cobra.Command {
	opts := &cropOptions{}

	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Crop an image into a circular avatar",
		Long: `Positions an image behind the circular viewport exactly as the interactive
crop screen does and writes the visible square as a JPEG avatar.

The offset is in viewport pixels and is clamped to 100 pixels per unit of zoom.`,
		Example: `  # Centered crop of a local photo
  heirloom crop --in portrait.png

  # Zoomed in and shifted, written to a chosen file
  heirloom crop --in https://example.com/photo.jpg --zoom 1.5 --offset-x 50 --out avatar.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			g := cfg.Geometry()
			if opts.size > 0 {
				g.OutputSize = opts.size
			}
			if opts.viewport > 0 {
				g.ViewportDiameter = opts.viewport
			}
			quality := cfg.Crop.Quality
			if opts.quality > 0 {
				quality = opts.quality
			}
			return runCrop(cmd, opts, g, quality)
		},
	}

	cmd.Flags().StringVarP(&opts.in, "in", "i", "", "Source image: file path, http(s) URL or data URI")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (default avatar-<millis>.jpg)")
	cmd.Flags().Float64Var(&opts.zoom, "zoom", crop.MinZoom, "Zoom factor, clamped to [1, 3]")
	cmd.Flags().Float64Var(&opts.offsetX, "offset-x", 0, "Horizontal pan in viewport pixels")
	cmd.Flags().Float64Var(&opts.offsetY, "offset-y", 0, "Vertical pan in viewport pixels")
	cmd.Flags().IntVar(&opts.size, "size", 0, "Output edge length in pixels (overrides crop.output_size)")
	cmd.Flags().Float64Var(&opts.viewport, "viewport", 0, "Viewport diameter in pixels (overrides crop.viewport_diameter)")
	cmd.Flags().IntVar(&opts.quality, "quality", 0, "JPEG quality 1-100 (overrides crop.quality)")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}

func runCrop(cmd *cobra.Command, opts *cropOptions, g crop.Geometry, quality int) error {
	loader := crop.NewLoader()
	loader.AllowFiles = true
	engine := crop.NewEngine(loader)

	session := crop.NewSession("cli", g, quality)
	select {
	case <-engine.Open(cmd.Context(), session, opts.in):
	case <-cmd.Context().Done():
		engine.Cancel(session)
		return cmd.Context().Err()
	}

	snap := session.Snapshot()
	if snap.State != crop.StateReady {
		return fmt.Errorf("%w: %s", crop.ErrLoadFailed, snap.Error)
	}

	zoom, err := session.SetZoom(opts.zoom)
	if err != nil {
		return err
	}
	offset, err := session.Pan(opts.offsetX, opts.offsetY)
	if err != nil {
		return err
	}
	if offset.X != opts.offsetX || offset.Y != opts.offsetY {
		slog.Warn("Offset clamped", "requested_x", opts.offsetX, "requested_y", opts.offsetY, "x", offset.X, "y", offset.Y)
	}

	rect := session.Snapshot().CropRect
	result, err := session.Commit(time.Now())
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = result.Filename
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, result.Blob, 0644); err != nil {
		return fmt.Errorf("failed to write avatar: %w", err)
	}

	slog.Info("Avatar written", "path", out, "zoom", zoom, "width", result.Width, "height", result.Height, "bytes", len(result.Blob))
	if rect != nil {
		slog.Debug("Source region", "x", rect.X, "y", rect.Y, "side", rect.Side)
	}
	return nil
}
