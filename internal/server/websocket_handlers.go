package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocket upgrader; browsers connect from the configured CORS origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// WebSocketConnWriter is the part of a connection used to send messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketTranslateRequest is one translation job sent by the client. File
// is base64 in JSON.
type WebSocketTranslateRequest struct {
	Filename string           `json:"filename"`
	File     []byte           `json:"file"`
	Pages    string           `json:"pages,omitempty"`
	Password string           `json:"password,omitempty"`
	Segments []layout.Segment `json:"segments,omitempty"`
}

// WebSocketResult carries the translated document.
type WebSocketResult struct {
	Filename string          `json:"filename"`
	PDF      []byte          `json:"pdf"`
	Report   pipeline.Report `json:"report"`
}

// WebSocketTranslateResponse is a progress, completion or error message.
type WebSocketTranslateResponse struct {
	Status    string           `json:"status"` // "processing", "completed", "error"
	Stage     pipeline.Stage   `json:"stage,omitempty"`
	Progress  float64          `json:"progress"`
	Result    *WebSocketResult `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.corsOrigin == "*" || origin == s.corsOrigin
}

// translateWebSocketHandler streams translation progress over a WebSocket.
func (s *Server) translateWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	up := upgrader
	up.CheckOrigin = s.checkOrigin
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	conn.SetReadLimit(s.maxUploadMB<<21 + 1<<20) // base64 inflates the file
	s.handleWebSocketConnection(r.Context(), conn, getClientIP(r))
}

// handleWebSocketConnection reads requests until the client goes away.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, client string) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
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

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, client, data)
			_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		}
	}
}

// handleWebSocketMessage runs one translation request and reports its progress.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, client string, data []byte) {
	reqID := uuid.NewString()

	var req WebSocketTranslateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, reqID, fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if len(req.File) == 0 {
		s.sendWebSocketError(conn, reqID, errNoFile.Error())
		return
	}
	if int64(len(req.File)) > s.maxUploadMB<<20 {
		s.sendWebSocketError(conn, reqID, fmt.Sprintf("file too large (max %d MB)", s.maxUploadMB))
		return
	}
	if s.rateLimiter != nil {
		if err := s.rateLimiter.CheckRateLimit(client, int64(len(req.File))); err != nil {
			s.sendWebSocketError(conn, reqID, err.Error())
			return
		}
	}
	uploadSizeBytes.Observe(float64(len(req.File)))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.pipeline.ProcessPDF(ctx, pipeline.Input{
		Name:     req.Filename,
		Data:     req.File,
		Pages:    req.Pages,
		Password: req.Password,
		Segments: req.Segments,
		OnStage: func(stage pipeline.Stage, progress float64) {
			s.sendWebSocketResponse(conn, WebSocketTranslateResponse{
				Status:    "processing",
				Stage:     stage,
				Progress:  progress,
				RequestID: reqID,
			})
		},
	})
	if err != nil {
		translateRequestsTotal.WithLabelValues("websocket", "error").Inc()
		slog.Error("Translation failed", "request_id", reqID, "document", req.Filename, "error", err)
		s.sendWebSocketError(conn, reqID, err.Error())
		return
	}
	translateRequestsTotal.WithLabelValues("websocket", "success").Inc()
	observeResult(res)

	s.sendWebSocketResponse(conn, WebSocketTranslateResponse{
		Status:   "completed",
		Progress: 1,
		Result: &WebSocketResult{
			Filename: s.outputFilename,
			PDF:      res.PDF,
			Report:   res.Report,
		},
		RequestID: reqID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketTranslateResponse) {
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
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, reqID, message string) {
	s.sendWebSocketResponse(conn, WebSocketTranslateResponse{
		Status:    "error",
		Error:     message,
		RequestID: reqID,
	})
}
