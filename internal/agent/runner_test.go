package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
)

// stubAgent is a scriptable Agent for runner tests.
type stubAgent struct {
	name      string
	initErr   error
	handleErr error
	processFn func() error

	handled   []bus.Message
	processed int
	cleaned   bool
}

func (s *stubAgent) Name() string                     { return s.name }
func (s *stubAgent) Initialize(context.Context) error { return s.initErr }
func (s *stubAgent) Cleanup() error                   { s.cleaned = true; return nil }

func (s *stubAgent) Process(context.Context) error {
	s.processed++
	if s.processFn != nil {
		return s.processFn()
	}
	return nil
}
func (s *stubAgent) HandleMessage(_ context.Context, msg bus.Message) error {
	s.handled = append(s.handled, msg)
	return s.handleErr
}

func TestRunner_InitializeTransitions(t *testing.T) {
	b := bus.New()
	a := &stubAgent{name: "worker"}
	r := newRunner(a, b, time.Second)
	assert.Equal(t, StatusOffline, r.Status())

	assert.NoError(t, r.initialize(context.Background()))
	assert.Equal(t, StatusOnline, r.Status())
}

func TestRunner_InitializeFailureIsError(t *testing.T) {
	b := bus.New()
	a := &stubAgent{name: "worker", initErr: errors.New("no database")}
	r := newRunner(a, b, time.Second)

	err := r.initialize(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StatusError, r.Status())
}

func TestRunner_TickDrainsInboxThenProcesses(t *testing.T) {
	b := bus.New()
	a := &stubAgent{name: "worker"}
	r := newRunner(a, b, time.Second)
	r.initialize(context.Background())

	b.Send(bus.NewMessage("x", "worker", bus.MsgNewThreat, 1))
	b.Send(bus.NewMessage("x", "worker", bus.MsgNewThreat, 2))

	r.Tick(context.Background())

	assert.Len(t, a.handled, 2)
	assert.Equal(t, 1, a.processed)
	assert.Equal(t, 0, b.Pending("worker"))
	assert.Equal(t, StatusOnline, r.Status())
}

func TestRunner_HandlerErrorDropsToWarningThenRecovers(t *testing.T) {
	b := bus.New()
	a := &stubAgent{name: "worker", handleErr: errors.New("bad payload")}
	r := newRunner(a, b, time.Second)
	r.initialize(context.Background())

	b.Send(bus.NewMessage("x", "worker", bus.MsgNewThreat, nil))
	r.Tick(context.Background())
	assert.Equal(t, StatusWarning, r.Status())

	// A clean tick clears the transient fault.
	a.handleErr = nil
	r.Tick(context.Background())
	assert.Equal(t, StatusOnline, r.Status())
}

func TestRunner_PanicIsContainedToWarning(t *testing.T) {
	b := bus.New()
	a := &stubAgent{name: "worker", processFn: func() error { panic("boom") }}
	r := newRunner(a, b, time.Second)
	r.initialize(context.Background())

	// Must not propagate out of Tick.
	r.Tick(context.Background())
	assert.Equal(t, StatusWarning, r.Status())
}

func TestRunner_StatusChangePublishesEvent(t *testing.T) {
	b := bus.New()
	got := make(chan bus.Event, 10)
	b.Subscribe(bus.EventStatusChanged, func(ev bus.Event) { got <- ev })

	a := &stubAgent{name: "worker"}
	r := newRunner(a, b, time.Second)
	r.initialize(context.Background())

	// starting, then online
	for _, want := range []Status{StatusStarting, StatusOnline} {
		select {
		case ev := <-got:
			rec, ok := ev.Payload.(Record)
			assert.True(t, ok)
			assert.Equal(t, "worker", rec.Name)
			assert.Equal(t, want, rec.Status)
		case <-time.After(time.Second):
			t.Fatalf("no status event for %s", want)
		}
	}
}

func TestRuntime_StartAllIsolatesInitFailures(t *testing.T) {
	b := bus.New()
	rt := NewRuntime(b)
	good := &stubAgent{name: "good"}
	bad := &stubAgent{name: "bad", initErr: errors.New("nope")}
	rt.Register(good, 10*time.Millisecond)
	rt.Register(bad, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	rt.StartAll(ctx)
	defer cancel()

	assert.Equal(t, StatusOnline, rt.Runner("good").Status())
	assert.Equal(t, StatusError, rt.Runner("bad").Status())

	// The healthy sibling keeps ticking.
	time.Sleep(50 * time.Millisecond)
	rt.StopAll()
	assert.Greater(t, good.processed, 0)
	assert.Zero(t, bad.processed)
}

func TestRuntime_StopAllReportsDiscardedAndGoesOffline(t *testing.T) {
	b := bus.New()
	rt := NewRuntime(b)
	a := &stubAgent{name: "worker"}
	rt.Register(a, time.Hour) // never ticks on its own

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt.StartAll(ctx)

	b.Send(bus.NewMessage("x", "worker", bus.MsgNewThreat, nil))
	b.Send(bus.NewMessage("x", "worker", bus.MsgNewThreat, nil))

	discarded := rt.StopAll()
	assert.Equal(t, 2, discarded)
	assert.True(t, a.cleaned)
	assert.Equal(t, StatusOffline, rt.Runner("worker").Status())
}

func TestRuntime_Records(t *testing.T) {
	b := bus.New()
	rt := NewRuntime(b)
	rt.Register(&stubAgent{name: "one"}, time.Second)
	rt.Register(&stubAgent{name: "two"}, 2*time.Second)

	recs := rt.Records()
	assert.Len(t, recs, 2)
	assert.Equal(t, time.Second, recs["one"].TickInterval)
	assert.Equal(t, StatusOffline, recs["two"].Status)
}
