package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketWarpRequest is one warp job sent over /ws/warp. Image carries the
// encoded source image (base64 in JSON).
type WebSocketWarpRequest struct {
	Type   string `json:"type,omitempty"` // "warp" (default)
	Image  []byte `json:"image"`
	Src    string `json:"src,omitempty"`
	Dst    string `json:"dst,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketWarpResponse reports progress or the result of a warp job. On
// completion Image holds the PNG-encoded output.
type WebSocketWarpResponse struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"` // "processing", "completed", "error"
	Progress  float64   `json:"progress,omitempty"`
	Image     []byte    `json:"image,omitempty"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Matrix    []float64 `json:"matrix,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType string    `json:"error_type,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// warpWebSocketHandler handles WebSocket connections for streaming warps.
func (s *Server) warpWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	conn.SetReadLimit(s.maxUploadBytes() * 2) // base64 overhead
	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages until the client disconnects.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

// handleWebSocketMessage decodes and runs one warp job.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, data []byte) {
	var req WebSocketWarpRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.Type != "" && req.Type != "warp" {
		s.sendWebSocketError(conn, "", "invalid_request", "Unsupported request type: "+req.Type)
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)
	s.sendWebSocketResponse(conn, WebSocketWarpResponse{
		Type:      "warp_response",
		Status:    "processing",
		RequestID: requestID,
	})

	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request", "No image data provided")
		return
	}
	if req.Width < 0 || req.Height < 0 {
		s.sendWebSocketError(conn, requestID, "invalid_request",
			fmt.Sprintf("invalid output size %dx%d", req.Width, req.Height))
		return
	}

	img, _, err := image.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, requestID, "invalid_request", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}

	points, err := s.points(req.Src, req.Dst)
	if err != nil {
		s.sendWebSocketError(conn, requestID, errorType(err), err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketWarpResponse{
		Type:      "warp_response",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	res, err := s.runWarp("websocket", img, warpJob{points: points, width: req.Width, height: req.Height})
	if err != nil {
		s.sendWebSocketError(conn, requestID, errorType(err), err.Error())
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, res.image, imaging.PNG); err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", fmt.Sprintf("Failed to encode result: %v", err))
		return
	}

	b := res.image.Bounds()
	s.sendWebSocketResponse(conn, WebSocketWarpResponse{
		Type:      "warp_response",
		Status:    "completed",
		Progress:  1.0,
		Image:     buf.Bytes(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Matrix:    res.matrix[:],
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketWarpResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errType, message string) {
	s.sendWebSocketResponse(conn, WebSocketWarpResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errType,
		RequestID: requestID,
	})
}
