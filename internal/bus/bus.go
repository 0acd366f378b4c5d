package bus

import (
	"log"
	"sync"
)

// inboxCapacity bounds each agent's pending-message queue. Delivery into a
// full inbox drops the message with a logged count rather than blocking
// the sender.
const inboxCapacity = 256

// Bus owns the agent registry and every in-flight message. Each registered
// agent gets its own buffered FIFO inbox; a Go channel preserves per-target
// send order natively. Delivery to an unknown target is never fatal.
type Bus struct {
	mu      sync.RWMutex
	inboxes map[string]chan Message
	stopped bool

	sent          int
	droppedNoDest int
	droppedFull   int

	feed *feed
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		inboxes: make(map[string]chan Message),
		feed:    newFeed(),
	}
}

// Register creates the named agent's inbox and returns its receive side.
// Registering the same name twice returns the existing inbox.
func (b *Bus) Register(name string) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.inboxes[name]; ok {
		return ch
	}
	ch := make(chan Message, inboxCapacity)
	b.inboxes[name] = ch
	log.Printf("[Bus] Registered agent: %s", name)
	return ch
}

// Registered reports whether an agent name has an inbox.
func (b *Bus) Registered(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.inboxes[name]
	return ok
}

// Agents returns all registered agent names.
func (b *Bus) Agents() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.inboxes))
	for name := range b.inboxes {
		names = append(names, name)
	}
	return names
}

// Send enqueues a message for asynchronous delivery. Messages to the
// Broadcast target fan out to every agent except the sender. A message to
// an unregistered target is logged and dropped, never an error.
func (b *Bus) Send(msg Message) {
	if msg.To == Broadcast {
		b.Broadcast(msg.From, msg.Type, msg.Payload)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		b.droppedNoDest++
		return
	}
	ch, ok := b.inboxes[msg.To]
	if !ok {
		b.droppedNoDest++
		log.Printf("[Bus] ⚠️ No such agent %q, dropping %s from %s", msg.To, msg.Type, msg.From)
		return
	}
	select {
	case ch <- msg:
		b.sent++
	default:
		b.droppedFull++
		log.Printf("[Bus] ⚠️ Inbox full for %s, dropping %s from %s", msg.To, msg.Type, msg.From)
	}
}

// Broadcast sends the same payload to every registered agent except from.
func (b *Bus) Broadcast(from string, t MessageType, payload any) {
	b.mu.RLock()
	targets := make([]string, 0, len(b.inboxes))
	for name := range b.inboxes {
		if name != from {
			targets = append(targets, name)
		}
	}
	b.mu.RUnlock()

	for _, name := range targets {
		b.Send(Message{From: from, To: name, Type: t, Payload: payload})
	}
}

// Pending returns the number of undelivered messages queued for an agent.
func (b *Bus) Pending(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.inboxes[name])
}

// Stop halts routing and returns the number of in-flight messages that
// were discarded, so shutdown never loses messages unaccounted.
func (b *Bus) Stop() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return 0
	}
	b.stopped = true
	discarded := 0
	for _, ch := range b.inboxes {
		discarded += len(ch)
	}
	b.feed.stop()
	if discarded > 0 {
		log.Printf("[Bus] Stopped with %d undelivered messages discarded", discarded)
	} else {
		log.Printf("[Bus] Stopped, all messages delivered")
	}
	return discarded
}

// Stats returns routing counters for the telemetry surface.
func (b *Bus) Stats() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pending := 0
	for _, ch := range b.inboxes {
		pending += len(ch)
	}
	return map[string]any{
		"agents":        len(b.inboxes),
		"sent":          b.sent,
		"pending":       pending,
		"droppedNoDest": b.droppedNoDest,
		"droppedFull":   b.droppedFull,
	}
}
