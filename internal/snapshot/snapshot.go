// Package snapshot mirrors the runtime's latest incident, agent and batch
// state into Redis for external dashboards.
//
// Graceful fallback: if Redis is unavailable, every operation silently
// becomes a no-op. The coordination core never blocks on, or fails
// because of, this mirror.
package snapshot

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
)

// Key prefixes, kept in sync with the dashboard's reader.
const (
	KeyIncidents = "guardian:incidents"
	KeyAgents    = "guardian:agents"
	KeyBatch     = "guardian:batch:"
	KeyReport    = "guardian:report"
)

// snapshotTTL bounds staleness: the dashboard treats missing keys as
// "runtime offline".
const snapshotTTL = 10 * time.Minute

// Config holds Redis connection settings.
type Config struct {
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

var (
	client    *redis.Client
	connected bool
	mu        sync.RWMutex
)

// Init connects to Redis. Returns true if connected; false is not an
// error, the mirror just stays dark.
func Init(cfg Config) bool {
	if cfg.URL == "" {
		log.Println("[Snapshot] Redis URL not configured, mirror disabled")
		return false
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[Snapshot] ❌ Invalid Redis URL: %v", err)
		return false
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	c := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("[Snapshot] ❌ Redis connection failed: %v", err)
		return false
	}

	mu.Lock()
	client = c
	connected = true
	mu.Unlock()
	log.Println("[Snapshot] ✅ Redis mirror connected")
	return true
}

// Close closes the Redis connection.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if client != nil {
		client.Close()
		client = nil
		connected = false
	}
}

func get() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	if connected {
		return client
	}
	return nil
}

// set marshals v and writes it with the snapshot TTL. No-op without Redis.
func set(key string, v any) {
	c := get()
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Set(ctx, key, raw, snapshotTTL).Err(); err != nil {
		log.Printf("[Snapshot] Write failed (%s): %v", key, err)
	}
}

// SaveIncidents mirrors the current priority queue.
func SaveIncidents(v any) { set(KeyIncidents, v) }

// SaveAgents mirrors the agent status table.
func SaveAgents(v any) { set(KeyAgents, v) }

// SaveBatch mirrors one completed batch.
func SaveBatch(id string, v any) { set(KeyBatch+id, v) }

// SaveReport mirrors the latest situation report.
func SaveReport(v any) { set(KeyReport, v) }

// Attach subscribes the mirror to the event feed so snapshots stay fresh
// without coupling any agent to Redis.
func Attach(b *bus.Bus, incidents func() any, agents func() any) {
	b.Subscribe(bus.EventAnalysisComplete, func(bus.Event) { SaveIncidents(incidents()) })
	b.Subscribe(bus.EventStatusChanged, func(bus.Event) { SaveAgents(agents()) })
	b.Subscribe(bus.EventBatchCompleted, func(ev bus.Event) {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return
		}
		var probe struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(raw, &probe) == nil && probe.ID != "" {
			SaveBatch(probe.ID, ev.Payload)
		}
	})
	b.Subscribe(bus.EventReportReady, func(ev bus.Event) { SaveReport(ev.Payload) })
}
