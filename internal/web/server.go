package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/peterkuimelis/gomori/internal/game"
	"github.com/peterkuimelis/gomori/internal/protocol"
)

// Server lets bots join matches over websockets. Each connection to /ws
// waits in line until the judge takes it with AcceptAgent.
type Server struct {
	rules   game.Rules
	logger  *zap.Logger
	mux     *http.ServeMux
	lobby   chan *protocol.Adapter
	waiting atomic.Int32
}

// NewServer creates a new web server announcing rules to its clients.
func NewServer(rules game.Rules, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		rules:  rules,
		logger: logger,
		mux:    http.NewServeMux(),
		lobby:  make(chan *protocol.Adapter),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/rules", s.handleRules)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"waiting": s.waiting.Load(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, protocol.EncodeRules(s.rules))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // bots connect from anywhere
	})
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	nick := r.URL.Query().Get("nick")
	if nick == "" {
		nick = r.RemoteAddr
	}
	conn := NewWSConn(ws)
	adapter := protocol.NewAdapter(conn, nick, s.logger)

	s.waiting.Add(1)
	s.logger.Info("bot waiting", zap.String("nick", nick), zap.String("remote", r.RemoteAddr))
	select {
	case s.lobby <- adapter:
		s.waiting.Add(-1)
	case <-conn.Gone():
		s.waiting.Add(-1)
		s.logger.Info("bot left the lobby", zap.String("nick", nick))
		_ = conn.Close()
		return
	case <-r.Context().Done():
		s.waiting.Add(-1)
		_ = ws.CloseNow()
		return
	}
	// The adapter owns the connection from here; keep the handler alive
	// until the match closes it.
	<-conn.Done()
}

// AcceptAgent returns the next bot in line, or ctx's error when none turns
// up in time.
func (s *Server) AcceptAgent(ctx context.Context, name string) (*protocol.Adapter, error) {
	select {
	case a := <-s.lobby:
		s.logger.Info("bot joined", zap.String("agent", name), zap.String("nick", a.Name()))
		return a, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("accept websocket bot: %w", ctx.Err())
	}
}

// ListenAndServe serves HTTP on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	s.logger.Info("websocket endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
