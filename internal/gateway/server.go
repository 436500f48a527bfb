// Package gateway implements the protocol server (spec.md §4.7): a
// framed bidirectional websocket transport multiplexing request/response
// calls with server-pushed events, in front of the agent orchestrator
// and channel adapters.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gearclaw/gearclaw/internal/agent"
	"github.com/gearclaw/gearclaw/internal/bus"
	"github.com/gearclaw/gearclaw/internal/channels"
	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/session"
	"github.com/gearclaw/gearclaw/pkg/protocol"
)

// Server is the gateway's websocket + health endpoint. Grounded on the
// teacher's internal/gateway/server.go connection-registry and
// checkOrigin idiom, trimmed of every managed-mode (multi-tenant CRUD
// API) handler the spec doesn't name — this server speaks exactly the
// five methods of spec.md §4.7.
type Server struct {
	cfg          *config.Config
	eventBus     *bus.MessageBus
	orchestrator *agent.Orchestrator
	sessions     *session.Store
	channels     *channels.Manager

	router      *MethodRouter
	tokens      *TokenTable
	rateLimiter *RateLimiter
	presence    *PresenceTable
	startedAt   time.Time

	upgrader websocket.Upgrader
	clients  map[string]*Client
	mu       sync.RWMutex

	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer wires a Server from its collaborators.
func NewServer(cfg *config.Config, eventBus *bus.MessageBus, orchestrator *agent.Orchestrator, sessions *session.Store, chanMgr *channels.Manager) *Server {
	s := &Server{
		cfg:          cfg,
		eventBus:     eventBus,
		orchestrator: orchestrator,
		sessions:     sessions,
		channels:     chanMgr,
		tokens:       NewTokenTable(cfg.Gateway.Token),
		rateLimiter:  NewRateLimiter(cfg.Gateway.RateLimitRPM, 0),
		presence:     NewPresenceTable(),
		startedAt:    time.Now(),
		clients:      make(map[string]*Client),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = NewMethodRouter(s)
	return s
}

// checkOrigin validates the WebSocket origin against the configured
// allowlist. No configured origins, or an empty Origin header (non-
// browser clients: CLI, SDK, channel adapters), allows the connection.
func (s *Server) checkOrigin(r *http.Request) bool {
	allowed := s.cfg.Gateway.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range allowed {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("gateway: origin rejected", "origin", origin)
	return false
}

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return mux
}

// Start begins listening for WebSocket and HTTP connections until ctx
// is done.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()
	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("gateway starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.BroadcastEvent(protocol.NewEvent(protocol.EventShutdown, map[string]string{"reason": "server stopping"}))
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("gateway: websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, s)
	s.registerClient(client)
	defer func() {
		s.unregisterClient(client)
		client.Close()
	}()

	client.Run(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocol.ProtocolVersion)
}

// Router returns the method router, for tests that want to dispatch
// frames directly without a live websocket.
func (s *Server) Router() *MethodRouter { return s.router }

// BroadcastEvent pushes frame to every connected client.
func (s *Server) BroadcastEvent(frame protocol.Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.SendEvent(frame)
	}
}

func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c

	s.eventBus.Subscribe(c.id, func(event bus.Event) {
		if strings.HasPrefix(event.Name, "cache.") {
			return
		}
		c.SendEvent(protocol.NewEvent(event.Name, event.Payload))
	})

	slog.Info("gateway: client connected", "id", c.id)
}

func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c.id)
	s.eventBus.Unsubscribe(c.id)
	slog.Info("gateway: client disconnected", "id", c.id)
}
