package cmd

import (
	"context"
	"image/color"
	"testing"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/config"
	"github.com/MeKo-Tech/homowarp/internal/server"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedServe(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := newServeCommand(&app{})
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestServeCommandFlags(t *testing.T) {
	cmd := newServeCommand(&app{})
	for _, name := range []string{
		"host", "port", "cors-origin", "max-upload-size", "max-output-pixels", "timeout", "shutdown-timeout",
		"src", "dst", "workers", "background",
		"rate-limit-enabled", "requests-per-minute", "requests-per-hour", "max-requests-per-day", "max-data-per-day",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestServerConfig_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	srvCfg, shutdown, err := serverConfig(parsedServe(t), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "localhost", srvCfg.Host)
	assert.Equal(t, 8080, srvCfg.Port)
	assert.Equal(t, int64(50), srvCfg.MaxUploadMB)
	assert.Equal(t, int64(100_000_000), srvCfg.MaxOutputPixels)
	assert.Equal(t, 10*time.Second, shutdown)
	assert.False(t, srvCfg.RateLimit.Enabled)
	assert.Equal(t, 60, srvCfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, color.NRGBA{A: 255}, srvCfg.Background)

	want, err := cfg.Warp.Correspondences()
	require.NoError(t, err)
	assert.Equal(t, want, srvCfg.DefaultPoints)
}

func TestServerConfig_FlagOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := parsedServe(t,
		"-H", "0.0.0.0", "-p", "9090", "--cors-origin", "https://example.com",
		"--max-upload-size", "5", "--max-output-pixels", "4096", "--timeout", "3", "--shutdown-timeout", "1",
		"--src", boxSrc, "--dst", boxDst, "--workers", "2", "--background", "#00ff00",
		"--rate-limit-enabled", "--requests-per-minute", "5", "--max-data-per-day", "1024",
	)

	srvCfg, shutdown, err := serverConfig(cmd, &cfg)
	require.NoError(t, err)

	assert.Equal(t, server.Config{
		Host:            "0.0.0.0",
		Port:            9090,
		CORSOrigin:      "https://example.com",
		MaxUploadMB:     5,
		MaxOutputPixels: 4096,
		TimeoutSec:      3,
		DefaultPoints:   srvCfg.DefaultPoints,
		Workers:         2,
		Background:      color.NRGBA{G: 255, A: 255},
		RateLimit: server.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 5,
			RequestsPerHour:   1000,
			MaxRequestsPerDay: 5000,
			MaxDataPerDay:     1024,
		},
	}, srvCfg)
	assert.Equal(t, time.Second, shutdown)
	assert.Equal(t, 4.0, srvCfg.DefaultPoints.Src[3].X)
	assert.Equal(t, 2.0, srvCfg.DefaultPoints.Dst[3].Y)
}

func TestServerConfig_Invalid(t *testing.T) {
	cfg := config.DefaultConfig()

	_, _, err := serverConfig(parsedServe(t, "--port", "70000"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")

	_, _, err = serverConfig(parsedServe(t, "--max-output-pixels", "0"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid max output pixels")

	_, _, err = serverConfig(parsedServe(t, "--src", "0,0"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid points")

	_, _, err = serverConfig(parsedServe(t, "--background", "#zz"), &cfg)
	require.Error(t, err)
}

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	srvCfg, _, err := serverConfig(parsedServe(t), &cfg)
	require.NoError(t, err)
	srvCfg.Host, srvCfg.Port = "127.0.0.1", 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srvCfg, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
