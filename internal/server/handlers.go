package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/utils"
	"github.com/MeKo-Tech/homowarp/internal/version"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

// outputFormats maps the "format" form value to an encoder and content type.
var outputFormats = map[string]struct {
	format      imaging.Format
	contentType string
}{
	"png":  {imaging.PNG, "image/png"},
	"jpeg": {imaging.JPEG, "image/jpeg"},
	"jpg":  {imaging.JPEG, "image/jpeg"},
	"bmp":  {imaging.BMP, "image/bmp"},
}

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Error encoding health response", "error", err)
	}
}

// estimateHandler computes the homography for four JSON correspondences.
func (s *Server) estimateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Invalid JSON body: %v", err), http.StatusBadRequest)
		return
	}

	src, err := toQuad(req.Src)
	if err != nil {
		s.writeErrorResponse(w, "src: "+err.Error(), http.StatusBadRequest)
		return
	}
	dst, err := toQuad(req.Dst)
	if err != nil {
		s.writeErrorResponse(w, "dst: "+err.Error(), http.StatusBadRequest)
		return
	}

	h, err := homography.Estimate(src, dst)
	if err != nil {
		estimateRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}
	estimateRequestsTotal.WithLabelValues("http", "success").Inc()

	resp := EstimateResponse{
		Success:           true,
		Matrix:            h[:],
		ReprojectionError: homography.Reproject(h, src, dst),
	}
	if req.Compare {
		if ref, err := homography.EstimateReference(src, dst); err == nil {
			diff := h.MaxAbsDiff(ref)
			resp.Reference = ref[:]
			resp.MaxAbsDiff = &diff
		} else {
			slog.Warn("Reference estimation failed", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Error encoding estimate response", "error", err)
	}
}

// warpHandler warps an uploaded image and returns the encoded result.
//
// Form fields: image (file), src and dst ("x,y;x,y;x,y;x,y", default to the
// server's configured points), width and height (default to the source
// size) and format (png, jpeg or bmp; default png).
func (s *Server) warpHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	job, err := s.parseWarpForm(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}

	formatName := r.FormValue("format")
	if formatName == "" {
		formatName = "png"
	}
	enc, ok := outputFormats[formatName]
	if !ok {
		s.writeErrorResponse(w, "Unsupported output format: "+formatName, http.StatusBadRequest)
		return
	}

	res, err := s.runWarp("http", img, job)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, res.image, enc.format, imaging.JPEGQuality(utils.DefaultJPEGQuality)); err != nil {
		s.writeErrorResponse(w, "Failed to encode result", http.StatusInternalServerError)
		return
	}

	m, _ := json.Marshal(res.matrix[:])
	w.Header().Set("Content-Type", enc.contentType)
	w.Header().Set("X-Homography", string(m))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Error writing warp response", "error", err)
	}
}

// parseWarpForm reads the point and size fields of a warp form.
func (s *Server) parseWarpForm(r *http.Request) (warpJob, error) {
	var job warpJob
	points, err := s.points(r.FormValue("src"), r.FormValue("dst"))
	if err != nil {
		return job, err
	}
	job.points = points

	if job.width, err = optionalSize(r.FormValue("width")); err != nil {
		return job, fmt.Errorf("width: %w", err)
	}
	if job.height, err = optionalSize(r.FormValue("height")); err != nil {
		return job, fmt.Errorf("height: %w", err)
	}
	return job, nil
}

// optionalSize parses a positive dimension; empty means zero (source size).
func optionalSize(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidDimension, v)
	}
	return n, nil
}

var errInvalidDimension = errors.New("invalid output dimension")

// toQuad converts JSON [x, y] pairs into four points.
func toQuad(pairs [][]float64) ([4]homography.Point, error) {
	var q [4]homography.Point
	if len(pairs) != 4 {
		return q, fmt.Errorf("expected 4 points, got %d", len(pairs))
	}
	for i, p := range pairs {
		if len(p) != 2 {
			return q, fmt.Errorf("point %d must be [x, y]", i)
		}
		q[i] = homography.Point{X: p[0], Y: p[1]}
	}
	return q, nil
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(EstimateResponse{Success: false, Error: message}); err != nil {
		slog.Error("Error writing error response", "error", err)
	}
}
