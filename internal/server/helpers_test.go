package server

import (
	"bytes"
	"encoding/json"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MeKo-Tech/homowarp/internal/homography"
	"github.com/MeKo-Tech/homowarp/internal/testutil"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

const (
	halfSrc = "0,0;2,0;0,2;2,2"
	halfDst = "0,0;1,0;0,1;1,1"
	// first three points on the line y = x
	collinearSrc = "0,0;1,1;2,2;5,0"
)

func newTestServer() *Server {
	return NewServer(Config{
		CORSOrigin:  "*",
		MaxUploadMB: 1,
		TimeoutSec:  30,
		Workers:     2,
		DefaultPoints: homography.Correspondences{
			Src: [4]homography.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}},
			Dst: [4]homography.Point{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}},
		},
	})
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func whitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	return encodePNG(t, testutil.SolidImage(w, h, testutil.White))
}

// createMultipartRequest builds a POST /warp request with an optional image
// part and the given form fields.
func createMultipartRequest(t *testing.T, imageData []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if imageData != nil {
		part, err := mw.CreateFormFile("image", "input.png")
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/warp", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func createJSONRequest(t *testing.T, path string, v any) *http.Request {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// recordingConn captures WebSocket writes.
type recordingConn struct {
	mu       sync.Mutex
	messages []WebSocketWarpResponse
}

func (c *recordingConn) WriteMessage(_ int, data []byte) error {
	var resp WebSocketWarpResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, resp)
	return nil
}

func (c *recordingConn) last() WebSocketWarpResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[len(c.messages)-1]
}
