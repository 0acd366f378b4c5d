package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// PushAdapter delivers notifications through a WebSocket push bridge.
// The bridge acknowledges deliveries, so this channel supports the
// Sent→Delivered→Read receipt transitions.
type PushAdapter struct {
	BridgeURL string
	Token     string

	// OnReceipt is invoked when the bridge reports a delivery or read
	// confirmation for a previously sent notification.
	OnReceipt func(model.DeliveryReceipt)

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	cancelFn  context.CancelFunc

	// sendFn is an injectable frame writer (for testing).
	sendFn func(payload []byte) error
}

// NewPushAdapter creates a push bridge adapter.
func NewPushAdapter(bridgeURL, token string) *PushAdapter {
	if bridgeURL == "" {
		bridgeURL = "ws://localhost:3001"
	}
	return &PushAdapter{BridgeURL: bridgeURL, Token: token}
}

func (p *PushAdapter) Name() string { return "push" }

// Start dials the bridge and begins reading receipt frames. A bridge that
// is down is not fatal: sends will fail until it comes back and the
// dispatcher's retry policy covers the gap.
func (p *PushAdapter) Start(ctx context.Context) error {
	ctx, p.cancelFn = context.WithCancel(ctx)

	header := make(map[string][]string)
	if p.Token != "" {
		header["Authorization"] = []string{"Bearer " + p.Token}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.BridgeURL, header)
	if err != nil {
		log.Printf("[Channels] ⚠️ Push bridge unreachable at %s: %v", p.BridgeURL, err)
		return nil
	}

	p.mu.Lock()
	p.conn = conn
	p.connected = true
	p.mu.Unlock()
	log.Printf("[Channels] ✅ Push bridge connected: %s", p.BridgeURL)

	go p.readLoop(ctx, conn)
	return nil
}

func (p *PushAdapter) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[Channels] Push bridge read error: %v", err)
			}
			return
		}
		p.handleBridgeFrame(raw)
	}
}

// handleBridgeFrame parses one frame from the bridge. Exported behavior is
// limited to receipt frames; everything else is ignored.
func (p *PushAdapter) handleBridgeFrame(raw []byte) {
	var frame struct {
		Type           string `json:"type"`
		NotificationID string `json:"notification_id"`
		Read           bool   `json:"read"`
	}
	if json.Unmarshal(raw, &frame) != nil {
		return
	}
	if frame.Type != "receipt" || frame.NotificationID == "" {
		return
	}
	if p.OnReceipt != nil {
		p.OnReceipt(model.DeliveryReceipt{NotificationID: frame.NotificationID, Read: frame.Read})
	}
}

// Stop closes the bridge connection.
func (p *PushAdapter) Stop() error {
	if p.cancelFn != nil {
		p.cancelFn()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return nil
}

// Send writes one push frame to the bridge.
func (p *PushAdapter) Send(ctx context.Context, n *model.Notification) Result {
	payload, _ := json.Marshal(map[string]any{
		"type":            "push",
		"notification_id": n.ID,
		"to":              n.Address,
		"title":           n.Title,
		"body":            n.Body,
		"priority":        n.Priority,
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendFn != nil {
		if err := p.sendFn(payload); err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, SupportsReceipt: true}
	}
	if !p.connected || p.conn == nil {
		return Result{Error: "push bridge not connected"}
	}
	if deadline, ok := ctx.Deadline(); ok {
		p.conn.SetWriteDeadline(deadline)
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return Result{Error: fmt.Sprintf("bridge write: %v", err)}
	}
	return Result{Success: true, SupportsReceipt: true}
}
