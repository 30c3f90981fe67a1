package server

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleWebSocketMessage_Completed(t *testing.T) {
	server := newTestServer()
	conn := &recordingConn{}

	data, err := json.Marshal(WebSocketWarpRequest{
		Type:   "warp",
		Image:  whitePNG(t, 2, 2),
		Src:    halfSrc,
		Dst:    halfDst,
		Width:  1,
		Height: 1,
	})
	require.NoError(t, err)

	server.handleWebSocketMessage(conn, data)

	require.Len(t, conn.messages, 3)
	assert.Equal(t, "processing", conn.messages[0].Status)
	assert.Equal(t, "processing", conn.messages[1].Status)

	final := conn.last()
	assert.Equal(t, "warp_response", final.Type)
	assert.Equal(t, "completed", final.Status)
	assert.Equal(t, 1, final.Width)
	assert.Equal(t, 1, final.Height)
	assert.InDelta(t, 0.5, final.Matrix[0], 1e-12)
	assert.Equal(t, conn.messages[0].RequestID, final.RequestID)

	img, format, err := image.Decode(bytes.NewReader(final.Image))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
}

func TestHandleWebSocketMessage_Errors(t *testing.T) {
	server := newTestServer()
	png := whitePNG(t, 2, 2)

	tests := []struct {
		name    string
		payload string
		errType string
	}{
		{"malformed json", "{", "invalid_request"},
		{"unsupported type", `{"type":"pdf"}`, "invalid_request"},
		{"missing image", `{"type":"warp"}`, "invalid_request"},
		{"undecodable image", `{"image":"aGVsbG8="}`, "invalid_request"},
		{"negative size", mustJSON(t, WebSocketWarpRequest{Image: png, Width: -1}), "invalid_request"},
		{"bad points", mustJSON(t, WebSocketWarpRequest{Image: png, Src: "1,2"}), "invalid_request"},
		{"collinear", mustJSON(t, WebSocketWarpRequest{Image: png, Src: collinearSrc}), "degenerate_input"},
		{"output too large", mustJSON(t, WebSocketWarpRequest{Image: png, Width: 100000, Height: 100000}), "output_too_large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &recordingConn{}
			server.handleWebSocketMessage(conn, []byte(tt.payload))
			require.NotEmpty(t, conn.messages)
			last := conn.last()
			assert.Equal(t, "error", last.Status)
			assert.Equal(t, tt.errType, last.ErrorType)
			assert.NotEmpty(t, last.Error)
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestWarpWebSocket_EndToEnd(t *testing.T) {
	server := newTestServer()
	mux := http.NewServeMux()
	server.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/warp"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	_ = resp.Body.Close()

	require.NoError(t, conn.WriteJSON(WebSocketWarpRequest{Image: whitePNG(t, 4, 4), Width: 2, Height: 2}))

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var final WebSocketWarpResponse
	for final.Status != "completed" && final.Status != "error" {
		require.NoError(t, conn.ReadJSON(&final))
	}
	require.Equal(t, "completed", final.Status, final.Error)

	img, _, err := image.Decode(bytes.NewReader(final.Image))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
}
