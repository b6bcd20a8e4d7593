// Package server provides the HTTP control surface and the WebSocket overlay feed.
package server

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
	"github.com/GriffinCanCode/screenlate/internal/orchestrator/history"
	"github.com/GriffinCanCode/screenlate/internal/trace"
)

// Controller is the part of the orchestrator the server drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	IsStarted() bool
	ProcessOnce(ctx context.Context, region image.Rectangle) error
}

// History provides recent output and the live event stream.
type History interface {
	Events() <-chan history.Event
	Since(seconds int) []history.Entry
}

// CommandMessage is sent by clients: "start", "stop", "once" or "status".
type CommandMessage struct {
	Type    string         `json:"type"`
	Region  *RegionRequest `json:"region,omitempty"`
	TraceID string         `json:"trace_id,omitempty"`
}

// RegionRequest is a capture rectangle in screen coordinates.
type RegionRequest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the request to a rectangle.
func (r RegionRequest) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

type TextMessage struct {
	Type        string    `json:"type"`
	Text        string    `json:"text"`
	Translation bool      `json:"translation"`
	Timestamp   time.Time `json:"timestamp"`
}

type ClearMessage struct {
	Type string `json:"type"`
}

type StatusMessage struct {
	Type    string `json:"type"`
	Started bool   `json:"started"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	ctrl    Controller
	history History
	mu      sync.RWMutex
	conns   map[*websocket.Conn]*rateLimiter
}

// New creates a server and starts broadcasting history events.
func New(ctrl Controller, hist History) *Server {
	s := &Server{
		ctrl:    ctrl,
		history: hist,
		conns:   make(map[*websocket.Conn]*rateLimiter),
	}
	go s.broadcastEvents()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/start", s.handleStart)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("POST /api/once", s.handleOnce)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	rl := &rateLimiter{}
	s.mu.Lock()
	s.conns[conn] = rl
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Started: s.ctrl.IsStarted()})

	for {
		var cmd CommandMessage
		if err := wsjson.Read(baseCtx, conn, &cmd); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		ctx := baseCtx
		if cmd.TraceID != "" {
			ctx = trace.WithContext(ctx, trace.NewChild(trace.Context{TraceID: cmd.TraceID}))
		} else {
			ctx, _ = trace.EnsureContext(ctx)
		}
		s.handleCommand(ctx, conn, cmd)
	}
}

func (s *Server) handleCommand(ctx context.Context, conn *websocket.Conn, cmd CommandMessage) {
	ctx, span := trace.StartSpan(ctx, "ws_command")
	defer span.End()
	span.SetAttr("command", cmd.Type)

	var err error
	switch cmd.Type {
	case "start":
		err = s.ctrl.Start(context.WithoutCancel(ctx))
	case "stop":
		s.ctrl.Stop()
	case "once":
		if cmd.Region == nil {
			err = apperrors.New(apperrors.InvalidArgument, "once: region is required")
			break
		}
		region := cmd.Region.Rect()
		go func() {
			if err := s.ctrl.ProcessOnce(context.WithoutCancel(ctx), region); err != nil {
				trace.Logger(ctx).Debug("once-shot failed", "error", err)
			}
		}()
	case "status":
	default:
		err = apperrors.Newf(apperrors.InvalidArgument, "unknown command %q", cmd.Type)
	}

	if err != nil {
		span.SetAttr("error", err.Error())
		_ = wsjson.Write(ctx, conn, ErrorMessage{Type: "error", Code: apperrors.CodeOf(err).String(), Message: err.Error()})
		return
	}
	_ = wsjson.Write(ctx, conn, StatusMessage{Type: "status", Started: s.ctrl.IsStarted()})
}

func (s *Server) broadcastEvents() {
	for evt := range s.history.Events() {
		var msg any
		switch evt.Kind {
		case history.EventText:
			msg = TextMessage{Type: "text", Text: evt.Text, Translation: evt.Translation, Timestamp: evt.Timestamp}
		case history.EventClear:
			msg = ClearMessage{Type: "clear"}
		default:
			continue
		}
		s.broadcast(msg)
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			ctx, cancel := context.WithTimeout(context.Background(), BroadcastWriteTimeout)
			defer cancel()
			_ = wsjson.Write(ctx, c, msg)
		}(conn)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"started": s.ctrl.IsStarted()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Start(context.WithoutCancel(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleOnce(w http.ResponseWriter, r *http.Request) {
	var req RegionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.InvalidArgument, "decode region"))
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeError(w, apperrors.New(apperrors.InvalidArgument, "region must have a positive size"))
		return
	}
	if err := s.ctrl.ProcessOnce(r.Context(), req.Rect()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	seconds := DefaultHistorySeconds
	if v := r.URL.Query().Get("seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, apperrors.Newf(apperrors.InvalidArgument, "invalid seconds %q", v))
			return
		}
		seconds = n
	}
	entries := s.history.Since(seconds)
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	writeJSON(w, httpStatus(code), ErrorMessage{Type: "error", Code: code.String(), Message: err.Error()})
}

func httpStatus(c apperrors.Code) int {
	switch c {
	case apperrors.InvalidArgument, apperrors.ConfigInvalid:
		return http.StatusBadRequest
	case apperrors.CapturerInit, apperrors.Unavailable:
		return http.StatusServiceUnavailable
	case apperrors.Timeout:
		return http.StatusGatewayTimeout
	case apperrors.CaptureFailed, apperrors.DetectionFailed, apperrors.TranslationFailed:
		return http.StatusBadGateway
	case apperrors.TranslationRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
