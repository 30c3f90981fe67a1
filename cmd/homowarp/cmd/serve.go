package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/config"
	"github.com/MeKo-Tech/homowarp/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the estimate and warp API",
		Long: `Start an HTTP server that exposes homography estimation and image warping.

The server provides the following endpoints:
  GET  /health    - Health check endpoint
  POST /estimate  - JSON correspondences in, 3x3 matrix out
  POST /warp      - Multipart image upload in, warped image out
  GET  /ws/warp   - WebSocket streaming warp jobs
  GET  /metrics   - Prometheus metrics

Examples:
  homowarp serve
  homowarp serve --port 8080
  homowarp serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings()
			srvCfg, shutdownTimeout, err := serverConfig(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, srvCfg, shutdownTimeout)
		},
	}

	cmd.Flags().StringP("host", "H", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port")
	cmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	cmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	cmd.Flags().Int64("max-output-pixels", 100_000_000, "maximum width*height of a warped image")
	cmd.Flags().Int("timeout", 30, "request timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	addPointFlags(cmd)
	cmd.Flags().Int("workers", 0, "parallel row bands per warp (0 = number of CPUs)")
	cmd.Flags().String("background", "#000000", "fill colour for pixels outside the source (hex)")
	// Rate limiting flags
	cmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	cmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	cmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	cmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	cmd.Flags().Int64("max-data-per-day", 100*1024*1024, "maximum uploaded bytes per day per client")
	return cmd
}

// serverConfig merges serve flags over the configuration.
func serverConfig(cmd *cobra.Command, cfg *config.Config) (server.Config, time.Duration, error) {
	s := cfg.Server
	f := cmd.Flags()
	if f.Changed("host") {
		s.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		s.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		s.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		s.MaxUploadMB, _ = f.GetInt("max-upload-size")
	}
	if f.Changed("max-output-pixels") {
		s.MaxOutputPixels, _ = f.GetInt64("max-output-pixels")
	}
	if f.Changed("timeout") {
		s.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		s.ShutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("rate-limit-enabled") {
		s.RateLimitEnabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		s.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		s.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		s.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		s.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")
	}

	if s.Port < 1 || s.Port > 65535 {
		return server.Config{}, 0, fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", s.Port)
	}
	if s.MaxOutputPixels <= 0 {
		return server.Config{}, 0, fmt.Errorf("invalid max output pixels: %d (must be positive)", s.MaxOutputPixels)
	}

	w := cfg.Warp
	if f.Changed("workers") {
		w.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("background") {
		w.Background, _ = f.GetString("background")
	}
	points, err := correspondences(cmd, w)
	if err != nil {
		return server.Config{}, 0, err
	}
	bg, err := w.BackgroundColor()
	if err != nil {
		return server.Config{}, 0, err
	}

	return server.Config{
		Host:            s.Host,
		Port:            s.Port,
		CORSOrigin:      s.CORSOrigin,
		MaxUploadMB:     int64(s.MaxUploadMB),
		MaxOutputPixels: s.MaxOutputPixels,
		TimeoutSec:      s.TimeoutSec,
		DefaultPoints:   points,
		Workers:         w.Workers,
		Background:      bg,
		RateLimit: server.RateLimitConfig{
			Enabled:           s.RateLimitEnabled,
			RequestsPerMinute: s.RequestsPerMinute,
			RequestsPerHour:   s.RequestsPerHour,
			MaxRequestsPerDay: s.MaxRequestsPerDay,
			MaxDataPerDay:     s.MaxDataPerDay,
		},
	}, time.Duration(s.ShutdownTimeout) * time.Second, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg server.Config, shutdownTimeout time.Duration) error {
	srv := server.NewServer(cfg)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting homowarp server", "host", cfg.Host, "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		slog.Info("Graceful shutdown completed")
		return nil
	})
	return g.Wait()
}
