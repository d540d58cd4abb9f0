package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	name string
	fail bool

	mu       sync.Mutex
	received []events.Event
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, e)
	if f.fail {
		return errors.New("send failed")
	}
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *fakeRecorder) RecordNotification(notifier, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[notifier+"/"+status]++
}

func (r *fakeRecorder) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

var ts = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	n := &fakeNotifier{name: "ops"}
	require.NoError(t, r.Register(n))
	assert.Error(t, r.Register(n), "duplicate registration should fail")

	got, err := r.Get("ops")
	require.NoError(t, err)
	assert.Same(t, n, got)

	_, err = r.Get("missing")
	assert.Error(t, err)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_GetAllSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeNotifier{name: "zeta"}))
	require.NoError(t, r.Register(&fakeNotifier{name: "alpha"}))

	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name())
	assert.Equal(t, "zeta", all[1].Name())
}

func TestRegistry_NotifyAllFiltersByKind(t *testing.T) {
	r := NewRegistry()
	trades := &fakeNotifier{name: "trades"}
	everything := &fakeNotifier{name: "everything"}
	broken := &fakeNotifier{name: "broken", fail: true}
	require.NoError(t, r.Register(trades, events.KindNewTrade))
	require.NoError(t, r.Register(everything))
	require.NoError(t, r.Register(broken, events.KindNewTrade, events.KindBotStatus))

	errs := r.NotifyAll(context.Background(), events.Status(events.BotStatus{Running: true}, ts))
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, "broken")
	assert.Equal(t, 0, trades.count())
	assert.Equal(t, 1, everything.count())

	errs = r.NotifyAll(context.Background(), events.NewTrade(core.TradeRecord{Symbol: "AAPL"}))
	assert.Len(t, errs, 1)
	assert.Equal(t, 1, trades.count())
	assert.Equal(t, 2, everything.count())
	assert.Equal(t, 2, broken.count())
}

func TestForward(t *testing.T) {
	hub := events.NewHub(8)
	r := NewRegistry()
	ok := &fakeNotifier{name: "ok"}
	bad := &fakeNotifier{name: "bad", fail: true}
	require.NoError(t, r.Register(ok))
	require.NoError(t, r.Register(bad, events.KindNewTrade))
	rec := &fakeRecorder{}

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	// published before the forwarder starts; the subscription buffers them
	hub.Publish(events.NewTrade(core.TradeRecord{Symbol: "MSFT", Time: ts}))
	hub.Publish(events.Status(events.BotStatus{}, ts))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Forward(ctx, ch, r, rec, nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return rec.get("ok/ok") == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, ok.count())
	assert.Equal(t, 1, bad.count())
	assert.Equal(t, 1, rec.get("bad/error"))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop")
	}
	unsubscribe()
	assert.Equal(t, 0, hub.Subscribers())
}

func TestForward_StopsWhenHubCloses(t *testing.T) {
	hub := events.NewHub(1)
	ch, _ := hub.Subscribe()
	done := make(chan struct{})
	go func() {
		Forward(context.Background(), ch, NewRegistry(), nil, nil)
		close(done)
	}()

	hub.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop")
	}
}
