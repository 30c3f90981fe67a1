package server

import (
	"image/color"
	"net/http"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/warp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxOutputPixels caps the output size of a single warp request.
const DefaultMaxOutputPixels = 100_000_000

// Server holds the HTTP server state and dependencies.
type Server struct {
	corsOrigin  string
	maxUploadMB int64
	maxPixels   int64
	timeout     time.Duration
	defaults    homography.Correspondences
	warpOpts    []warp.Option
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int

	// Largest accepted output width*height; zero selects DefaultMaxOutputPixels.
	MaxOutputPixels int64

	// Correspondences used when a request omits src or dst.
	DefaultPoints homography.Correspondences

	Workers    int
	Background color.Color

	RateLimit RateLimitConfig
}

// RateLimitConfig holds per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// EstimateRequest is the body of POST /estimate. Points are [x, y] pairs
// ordered top-left, top-right, bottom-left, bottom-right.
type EstimateRequest struct {
	Src     [][]float64 `json:"src"`
	Dst     [][]float64 `json:"dst"`
	Compare bool        `json:"compare,omitempty"`
}

// EstimateResponse carries the row-major 3x3 matrix on success.
type EstimateResponse struct {
	Success           bool      `json:"success"`
	Matrix            []float64 `json:"matrix,omitempty"`
	ReprojectionError float64   `json:"reprojection_error,omitempty"`
	Reference         []float64 `json:"reference,omitempty"`
	MaxAbsDiff        *float64  `json:"max_abs_diff,omitempty"`
	Error             string    `json:"error,omitempty"`
}

// NewServer creates a new warp server instance.
func NewServer(config Config) *Server {
	s := &Server{
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		maxPixels:   config.MaxOutputPixels,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		defaults:    config.DefaultPoints,
		warpOpts:    []warp.Option{warp.WithWorkers(config.Workers), warp.WithBackground(config.Background)},
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if s.maxPixels <= 0 {
		s.maxPixels = DefaultMaxOutputPixels
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/estimate", s.corsMiddleware(s.rateLimitMiddleware(s.withTimeout(s.estimateHandler))))
	mux.HandleFunc("/warp", s.corsMiddleware(s.rateLimitMiddleware(s.withTimeout(s.warpHandler))))
	// The upgrade needs the raw ResponseWriter, so no metrics wrapper here.
	mux.HandleFunc("/ws/warp", s.rateLimitMiddleware(s.warpWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
