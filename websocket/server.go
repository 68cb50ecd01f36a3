package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
	"tipster-chat/auth"
	"tipster-chat/contract"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const defaultShutdownTimeout = 5 * time.Second

type Options struct {
	Host            string
	Port            int
	AllowedOrigins  []string
	RatePerSecond   float64
	RateBurst       int
	// MaxFrameSize is the largest inbound frame in bytes, bigger frames close the connection
	MaxFrameSize    int64
	ShutdownTimeout time.Duration
}

// Server exposes the chat over websocket, along with health and room listing endpoints.
type Server struct {
	log        *slog.Logger
	opts       Options
	hub        *Hub
	registry   contract.IRegistry
	dispatcher contract.IDispatcher
	sessions   *auth.SessionResolver
	upgrader   websocket.Upgrader
}

func NewServer(
	log *slog.Logger,
	opts Options,
	hub *Hub,
	registry contract.IRegistry,
	dispatcher contract.IDispatcher,
	sessions *auth.SessionResolver) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = defaultMaxFrameSize
	}
	policy := newOriginPolicy(opts.AllowedOrigins, log)
	return &Server{
		log:        log,
		opts:       opts,
		hub:        hub,
		registry:   registry,
		dispatcher: dispatcher,
		sessions:   sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /healthz", s.serveHealth)
	mux.HandleFunc("GET /rooms", s.serveRooms)
	return mux
}

// Run serves until the context is canceled, then shuts the listener and every connection down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Chat server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		// Hijacked connections are not closed by Shutdown
		s.hub.Shutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("HTTP server shutdown error", "error", err)
		}
		s.log.Info("Chat server stopped")
		return nil
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	identity := s.sessions.Username(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("Websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	var limiter *rate.Limiter
	if s.opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.RatePerSecond), max(s.opts.RateBurst, 1))
	}
	client := NewClient(conn, s.hub, s.dispatcher, identity, r.RemoteAddr, limiter, s.opts.MaxFrameSize, s.log)
	s.hub.Register(client)
	s.log.Info("Client connected", "conn", client.id, "addr", r.RemoteAddr, "identity", identity)

	// The request context ends with this handler, pumps outlive it
	ctx := context.WithoutCancel(r.Context())
	go client.writePump()
	go client.readPump(ctx)
}

func (s *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

type roomView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     int    `json:"members"`
}

func (s *Server) serveRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.registry.Rooms()
	views := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, roomView{
			ID:          string(room.ID),
			Name:        room.Name,
			Description: room.Description,
			Members:     len(s.registry.Members(room.ID)),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(views); err != nil {
		s.log.Warn("Failed to write rooms", "error", err)
	}
}
