package bus

import (
	"sync"
	"time"
)

// EventType enumerates observable status and domain events. Observers are
// outside the message-routing path; a slow or absent observer never blocks
// an agent.
type EventType string

const (
	EventStatusChanged    EventType = "status_changed"
	EventDisasterDetected EventType = "disaster_detected"
	EventAnalysisComplete EventType = "analysis_complete"
	EventActionTaken      EventType = "action_taken"
	EventBatchCompleted   EventType = "batch_completed"
	EventReportReady      EventType = "report_ready"
)

// Event is one observer-feed entry.
type Event struct {
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// feed is the one-way subscription fan-out. Events flow through a buffered
// channel and a single dispatch goroutine; when the buffer is full the
// event is dropped rather than stalling the publisher.
type feed struct {
	mu       sync.RWMutex
	byType   map[EventType][]func(Event)
	catchAll []func(Event)
	events   chan Event
	quit     chan struct{}
	once     sync.Once
}

func newFeed() *feed {
	f := &feed{
		byType: make(map[EventType][]func(Event)),
		events: make(chan Event, 100),
		quit:   make(chan struct{}),
	}
	go f.dispatch()
	return f
}

func (f *feed) dispatch() {
	for {
		select {
		case <-f.quit:
			return
		case ev := <-f.events:
			f.mu.RLock()
			subs := append([]func(Event){}, f.byType[ev.Type]...)
			subs = append(subs, f.catchAll...)
			f.mu.RUnlock()
			for _, cb := range subs {
				cb(ev)
			}
		}
	}
}

func (f *feed) stop() {
	f.once.Do(func() { close(f.quit) })
}

// Subscribe registers a callback for one event type.
func (b *Bus) Subscribe(t EventType, cb func(Event)) {
	b.feed.mu.Lock()
	defer b.feed.mu.Unlock()
	b.feed.byType[t] = append(b.feed.byType[t], cb)
}

// SubscribeAll registers a callback for every event type.
func (b *Bus) SubscribeAll(cb func(Event)) {
	b.feed.mu.Lock()
	defer b.feed.mu.Unlock()
	b.feed.catchAll = append(b.feed.catchAll, cb)
}

// Publish emits an event onto the observer feed. Best effort: if the feed
// buffer is full the event is dropped.
func (b *Bus) Publish(t EventType, source string, payload any) {
	ev := Event{Type: t, Source: source, Payload: payload, Timestamp: time.Now()}
	select {
	case b.feed.events <- ev:
	default:
	}
}
