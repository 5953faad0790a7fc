package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gatehouse-dev/gatehouse/pkg/bridge"
)

// Server is the network reactor: it owns the WebSocket connections and
// the network side of the event bridge. The application goroutine talks
// to it exclusively through Bridge().
type Server struct {
	cfg      *Config
	log      *slog.Logger
	bridge   *bridge.Events
	registry *Registry
	upgrader websocket.Upgrader

	downloads *downloads
	metrics   *MetricsCollector

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a server with a freshly connected event bridge.
func New(cfg *Config) (*Server, error) {
	cfg = cfg.withDefaults()

	b, err := bridge.New[bridge.NetEvent, bridge.AppEvent]()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		log:      cfg.Logger.With("component", "server"),
		bridge:   b,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		downloads: newDownloads(),
		metrics:   NewMetricsCollector(),
		done:      make(chan struct{}),
	}
	if s.upgrader.CheckOrigin == nil {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return s, nil
}

// Bridge returns the event bridge. The application goroutine loops on
// WaitApp/PopNet and replies with PushApp.
func (s *Server) Bridge() *bridge.Events {
	return s.bridge
}

// Registry exposes the connection registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics exposes the server's counters.
func (s *Server) Metrics() *MetricsCollector {
	return s.metrics
}

// Run drives the reactor drain loop until ctx is cancelled or the
// bridge closes. Each wakeup drains the application queue completely;
// events naming connections that no longer exist are counted and
// dropped, never dereferenced.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.done:
		}
	}()

	for {
		if err := s.bridge.WaitNet(); err != nil {
			select {
			case <-s.done:
				return nil
			default:
				return err
			}
		}
		s.drainAppEvents()
	}
}

// drainAppEvents pops application events until the queue is empty.
func (s *Server) drainAppEvents() {
	for {
		e, ok := s.bridge.PopApp()
		if !ok {
			return
		}

		c, ok := s.registry.Get(e.ConnID)
		if !ok {
			s.metrics.RecordStaleDrop()
			s.log.Debug("dropping event for stale connection", "conn", e.ConnID)
			continue
		}

		p := Packet{Data: e.Payload, CloseStatus: e.CloseStatus}
		if err := c.Enqueue(p); err != nil {
			// A full queue means the client cannot keep up; the
			// connection is torn down rather than buffering without
			// bound.
			s.metrics.RecordQueueOverflow()
			s.log.Warn("outbound queue overflow",
				"conn", c.id, "session", c.sessionID, "error", err)
			s.teardown(c)
		}
	}
}

// HandleWebSocket upgrades an HTTP request, registers the connection
// under a fresh session id and starts its read and write loops.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.done:
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	default:
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sessionID := "session_" + uuid.NewString()
	c := s.registry.Add(ws, sessionID, s.cfg.QueueCapacity)
	s.metrics.RecordConnect()
	s.log.Info("connection established", "conn", c.id, "session", sessionID, "remote", r.RemoteAddr)

	s.bridge.PushNet(bridge.NetEvent{
		Type:      bridge.NetClientConnected,
		ConnID:    c.id,
		SessionID: sessionID,
	})

	go s.writeLoop(c)
	s.readLoop(c)
}

// Shutdown closes every connection, tells the application side the
// process is winding down and tears down the bridge wakeups.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.bridge.PushNet(bridge.NetEvent{Type: bridge.NetInterrupted})
		for _, c := range s.registry.All() {
			s.registry.Remove(c.id)
		}
		s.bridge.Close()
	})
}
