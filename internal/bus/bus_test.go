package bus

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	b := New()
	assert.NotNil(t, b)
	assert.Empty(t, b.Agents())
}

func TestBus_SendDeliversInOrder(t *testing.T) {
	b := New()
	inbox := b.Register("scheduler")

	for i := 0; i < 5; i++ {
		b.Send(NewMessage("ingest", "scheduler", MsgThreatAssessment, i))
	}
	assert.Equal(t, 5, b.Pending("scheduler"))

	// Per-target FIFO: messages come out in send order.
	for i := 0; i < 5; i++ {
		msg := <-inbox
		assert.Equal(t, i, msg.Payload)
	}
}

func TestBus_UnknownTargetIsDroppedNotFatal(t *testing.T) {
	b := New()
	b.Register("scheduler")

	b.Send(NewMessage("scheduler", "nobody", MsgSendAlert, nil))

	stats := b.Stats()
	assert.Equal(t, 1, stats["droppedNoDest"])
	assert.Equal(t, 0, stats["sent"])

	// The bus still routes normally afterwards.
	b.Send(NewMessage("ingest", "scheduler", MsgThreatAssessment, nil))
	assert.Equal(t, 1, b.Pending("scheduler"))
}

func TestBus_FullInboxDropsWithoutBlocking(t *testing.T) {
	b := New()
	b.Register("slow")

	for i := 0; i < inboxCapacity+3; i++ {
		b.Send(NewMessage("fast", "slow", MsgSendAlert, i))
	}
	assert.Equal(t, inboxCapacity, b.Pending("slow"))
	assert.Equal(t, 3, b.Stats()["droppedFull"])
}

func TestBus_BroadcastExcludesSender(t *testing.T) {
	b := New()
	b.Register("a")
	b.Register("b")
	b.Register("c")

	b.Send(NewMessage("a", Broadcast, MsgNewThreat, "event"))

	assert.Equal(t, 0, b.Pending("a"))
	assert.Equal(t, 1, b.Pending("b"))
	assert.Equal(t, 1, b.Pending("c"))
}

func TestBus_RegisterTwiceReturnsSameInbox(t *testing.T) {
	b := New()
	first := b.Register("scheduler")
	second := b.Register("scheduler")

	b.Send(NewMessage("x", "scheduler", MsgNewThreat, nil))
	assert.Equal(t, 1, len(first))
	assert.Equal(t, 1, len(second))
}

func TestBus_StopReportsDiscardedMessages(t *testing.T) {
	b := New()
	b.Register("scheduler")
	b.Register("notifier")

	for i := 0; i < 4; i++ {
		b.Send(NewMessage("x", "scheduler", MsgNewThreat, nil))
	}
	b.Send(NewMessage("x", "notifier", MsgSendAlert, nil))

	// No message vanishes unaccounted: 5 queued, 5 reported discarded.
	assert.Equal(t, 5, b.Stop())

	// Second stop is a no-op; sends after stop are dropped.
	assert.Equal(t, 0, b.Stop())
	b.Send(NewMessage("x", "scheduler", MsgNewThreat, nil))
	assert.Equal(t, 4, b.Pending("scheduler"))
}

func TestPayloadAs_ValueAndPointer(t *testing.T) {
	type payload struct{ N int }

	v, ok := PayloadAs[payload](payload{N: 7})
	assert.True(t, ok)
	assert.Equal(t, 7, v.N)

	p, ok := PayloadAs[payload](&payload{N: 9})
	assert.True(t, ok)
	assert.Equal(t, 9, p.N)

	_, ok = PayloadAs[payload]("wrong type")
	assert.False(t, ok)

	_, ok = PayloadAs[payload](nil)
	assert.False(t, ok)
}

func TestFeed_SubscribeByType(t *testing.T) {
	b := New()
	got := make(chan Event, 10)
	b.Subscribe(EventBatchCompleted, func(ev Event) { got <- ev })

	b.Publish(EventBatchCompleted, "notifier", "batch-1")
	b.Publish(EventStatusChanged, "runtime", nil) // different type, not delivered

	ev := <-got
	assert.Equal(t, EventBatchCompleted, ev.Type)
	assert.Equal(t, "notifier", ev.Source)
	assert.Equal(t, "batch-1", ev.Payload)
	assert.Empty(t, got)
}

func TestFeed_SubscribeAllSeesEverything(t *testing.T) {
	b := New()
	got := make(chan Event, 10)
	b.SubscribeAll(func(ev Event) { got <- ev })

	types := []EventType{EventStatusChanged, EventActionTaken, EventReportReady}
	for _, et := range types {
		b.Publish(et, "test", nil)
	}
	for _, want := range types {
		ev := <-got
		assert.Equal(t, want, ev.Type)
	}
}

func TestFeed_SlowObserverNeverBlocksPublisher(t *testing.T) {
	b := New()
	block := make(chan struct{})
	b.SubscribeAll(func(Event) { <-block })

	// Far more events than the feed buffer holds. Publish must return
	// immediately every time; overflow is dropped.
	for i := 0; i < 500; i++ {
		b.Publish(EventActionTaken, "test", fmt.Sprint(i))
	}
	close(block)
}
