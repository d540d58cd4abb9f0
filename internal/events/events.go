// Package events fans scheduler output out to subscribers.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/newthinker/quorum/internal/consensus"
	"github.com/newthinker/quorum/internal/core"
)

// Kind names an event stream.
type Kind string

const (
	KindAnalysisUpdate Kind = "analysisUpdate"
	KindNewTrade       Kind = "newTrade"
	KindBotStatus      Kind = "botStatus"
)

// Kinds lists every known kind.
var Kinds = []Kind{KindAnalysisUpdate, KindNewTrade, KindBotStatus}

// ParseKind returns the kind named s, or false.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Event is one message on the hub. Data holds a consensus.Report for
// analysisUpdate, a core.TradeRecord for newTrade and a BotStatus for
// botStatus.
type Event struct {
	Kind   Kind      `json:"type"`
	Symbol string    `json:"symbol,omitempty"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data"`
}

// BotStatus summarises the evaluation loop.
type BotStatus struct {
	Running   bool      `json:"running"`
	Symbols   []string  `json:"symbols"`
	Cycles    int64     `json:"cycles"`
	LastCycle time.Time `json:"lastCycle,omitempty"`
	LastError string    `json:"lastError,omitempty"`
}

// AnalysisUpdate wraps a report as an event.
func AnalysisUpdate(r consensus.Report) Event {
	return Event{Kind: KindAnalysisUpdate, Symbol: r.Symbol, Time: r.Timestamp, Data: r}
}

// NewTrade wraps a trade record as an event.
func NewTrade(rec core.TradeRecord) Event {
	return Event{Kind: KindNewTrade, Symbol: rec.Symbol, Time: rec.Time, Data: rec}
}

// Status wraps a bot status as an event.
func Status(s BotStatus, at time.Time) Event {
	return Event{Kind: KindBotStatus, Time: at, Data: s}
}

// Publisher accepts events.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

// Hub delivers each published event to every subscriber. Publish never
// blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextID  uint64
	buffer  int
	closed  bool
	dropped atomic.Int64
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[uint64]chan Event), buffer: buffer}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers e to all current subscribers.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped on full buffers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
