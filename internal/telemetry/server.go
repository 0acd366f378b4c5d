// Package telemetry exposes the runtime's one-way observation surface: an
// HTTP API for status snapshots, a WebSocket feed streaming bus events to
// dashboards, and an ingest endpoint where external detection and analysis
// collaborators hand events to the coordination core.
//
// The core never depends on an observer being connected.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/agent"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// StatsProvider supplies one component's metrics for /api/stats.
type StatsProvider func() map[string]any

// Server is the telemetry HTTP/WebSocket server.
type Server struct {
	port    int
	apiKey  string
	bus     *bus.Bus
	runtime *agent.Runtime

	providers map[string]StatsProvider
	incidents func() any

	wsMu    sync.Mutex
	wsConns map[*wsConn]bool

	startTime time.Time
	mux       *http.ServeMux
	srv       *http.Server
}

// Config configures the telemetry server.
type Config struct {
	Port   int
	APIKey string
}

// NewServer creates the telemetry server.
func NewServer(cfg Config, b *bus.Bus, rt *agent.Runtime) *Server {
	s := &Server{
		port:      cfg.Port,
		apiKey:    cfg.APIKey,
		bus:       b,
		runtime:   rt,
		providers: make(map[string]StatsProvider),
		wsConns:   make(map[*wsConn]bool),
		startTime: time.Now(),
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ws", s.handleWS)
	s.mux.HandleFunc("/api/stats", s.withAuth(s.handleStats))
	s.mux.HandleFunc("/api/incidents", s.withAuth(s.handleIncidents))
	s.mux.HandleFunc("/api/ingest", s.withAuth(s.handleIngest))

	return s
}

// AddStats registers a component's metrics under a name.
func (s *Server) AddStats(name string, fn StatsProvider) {
	s.providers[name] = fn
}

// SetIncidents registers the incident queue snapshot source.
func (s *Server) SetIncidents(fn func() any) {
	s.incidents = fn
}

// Start serves until ctx is cancelled. Blocks.
func (s *Server) Start(ctx context.Context) error {
	s.bus.SubscribeAll(s.broadcastEvent)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", s.port),
		Handler: s.mux,
	}

	log.Printf("[Telemetry] ✅ HTTP API → http://0.0.0.0:%d", s.port)
	log.Printf("[Telemetry] ✅ Event feed → ws://0.0.0.0:%d/ws", s.port)

	go func() {
		<-ctx.Done()
		s.closeAllWS()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// --- Auth middleware ---

func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.apiKey {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
		}
		handler(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": int(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]any{
		"uptime": int(time.Since(s.startTime).Seconds()),
		"bus":    s.bus.Stats(),
	}
	if s.runtime != nil {
		stats["agents"] = s.runtime.Records()
	}
	for name, fn := range s.providers {
		stats[name] = fn()
	}
	writeJSON(w, stats)
}

func (s *Server) handleIncidents(w http.ResponseWriter, _ *http.Request) {
	if s.incidents == nil {
		writeJSON(w, map[string]any{"incidents": []any{}})
		return
	}
	writeJSON(w, map[string]any{"incidents": s.incidents()})
}

// ingestEnvelope is the JSON body for /api/ingest.
type ingestEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleIngest accepts events from external detection/analysis
// collaborators and routes them onto the bus.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	var env ingestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	switch env.Type {
	case "disaster_event":
		var ev model.DisasterEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			writeJSONError(w, "invalid disaster_event payload", http.StatusBadRequest)
			return
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		s.bus.Publish(bus.EventDisasterDetected, "ingest", ev)
		s.bus.Broadcast("ingest", bus.MsgNewThreat, ev)
	case "threat_assessment":
		var a model.ThreatAssessment
		if err := json.Unmarshal(env.Payload, &a); err != nil {
			writeJSONError(w, "invalid threat_assessment payload", http.StatusBadRequest)
			return
		}
		s.bus.Send(bus.NewMessage("ingest", "scheduler", bus.MsgThreatAssessment, a))
	case "impact_assessment":
		var i model.ImpactAssessment
		if err := json.Unmarshal(env.Payload, &i); err != nil {
			writeJSONError(w, "invalid impact_assessment payload", http.StatusBadRequest)
			return
		}
		s.bus.Send(bus.NewMessage("ingest", "scheduler", bus.MsgImpactAssessment, i))
	default:
		writeJSONError(w, fmt.Sprintf("unknown event type %q", env.Type), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"accepted": true})
}

// --- WebSocket feed ---

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket does NOT support concurrent writes.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) writeJSONSafe(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteJSON(v)
}

// handleWS upgrades a dashboard connection. The feed is one-way: frames
// flow out, inbound frames are drained and discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Telemetry] WS upgrade failed: %v", err)
		return
	}
	conn := &wsConn{Conn: raw}

	s.wsMu.Lock()
	s.wsConns[conn] = true
	total := len(s.wsConns)
	s.wsMu.Unlock()
	log.Printf("[Telemetry] Observer connected (%d total)", total)

	defer func() {
		s.wsMu.Lock()
		delete(s.wsConns, conn)
		s.wsMu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcastEvent pushes one bus event to every connected observer.
func (s *Server) broadcastEvent(ev bus.Event) {
	s.wsMu.Lock()
	conns := make([]*wsConn, 0, len(s.wsConns))
	for c := range s.wsConns {
		conns = append(conns, c)
	}
	s.wsMu.Unlock()

	for _, c := range conns {
		if err := c.writeJSONSafe(ev); err != nil {
			s.wsMu.Lock()
			delete(s.wsConns, c)
			s.wsMu.Unlock()
			c.Close()
		}
	}
}

func (s *Server) closeAllWS() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for c := range s.wsConns {
		c.Close()
	}
	s.wsConns = make(map[*wsConn]bool)
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
