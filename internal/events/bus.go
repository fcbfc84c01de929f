package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Message is an event as delivered to SSE subscribers.
type Message struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Timestamp    string          `json:"timestamp"`
	Source       string          `json:"source"`
	QualityLevel string          `json:"qualityLevel,omitempty"`
	Data         json.RawMessage `json:"data"`
}

// Filter selects messages. Empty fields match everything.
type Filter struct {
	Types         []string
	QualityLevels []string
	Sources       []string
}

// Bus provides pub-sub distribution for SSE subscribers and keeps a ring
// buffer of recent messages for replay on reconnect.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
	seq         atomic.Uint64

	ring     []Message
	ringSize int
	ringHead int
	ringMu   sync.RWMutex
}

type subscriber struct {
	ch     chan Message
	filter Filter
}

// NewBus creates a bus with the given replay buffer size.
func NewBus(ringSize int) *Bus {
	if ringSize < 1 {
		ringSize = 1
	}
	return &Bus{
		subscribers: make(map[uint64]subscriber),
		ring:        make([]Message, ringSize),
		ringSize:    ringSize,
	}
}

func (b *Bus) Name() string { return "sse" }

// Subscribe registers a new subscriber and returns its channel and a cancel function.
func (b *Bus) Subscribe(filter Filter) (<-chan Message, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan Message, 64)
	b.subscribers[id] = subscriber{ch: ch, filter: filter}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// SubscriberCount returns the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// ReplaySince returns buffered messages published after lastEventID, oldest
// first. An unknown id replays nothing.
func (b *Bus) ReplaySince(lastEventID string, filter Filter) []Message {
	b.ringMu.RLock()
	defer b.ringMu.RUnlock()

	var msgs []Message
	found := lastEventID == ""

	for i := 0; i < b.ringSize; i++ {
		m := b.ring[(b.ringHead+i)%b.ringSize]
		if m.ID == "" {
			continue
		}
		if !found {
			if m.ID == lastEventID {
				found = true
			}
			continue
		}
		if filter.Matches(m) {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// Publish buffers the event and hands it to every matching subscriber.
// Slow subscribers miss messages rather than block the publisher.
func (b *Bus) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	now := time.Now()
	msg := Message{
		ID:           fmt.Sprintf("%d-%d", now.UnixMilli(), b.seq.Add(1)),
		Type:         e.Type,
		Timestamp:    now.UTC().Format(time.RFC3339),
		Source:       e.Source,
		QualityLevel: e.QualityLevel,
		Data:         data,
	}

	b.ringMu.Lock()
	b.ring[b.ringHead] = msg
	b.ringHead = (b.ringHead + 1) % b.ringSize
	b.ringMu.Unlock()

	b.mu.RLock()
	for _, sub := range b.subscribers {
		if sub.filter.Matches(msg) {
			select {
			case sub.ch <- msg:
			default:
			}
		}
	}
	b.mu.RUnlock()
	return nil
}

func (b *Bus) Close() error { return nil }

// Matches reports whether m passes the filter.
func (f Filter) Matches(m Message) bool {
	return matchAny(f.Types, m.Type) &&
		matchAny(f.QualityLevels, m.QualityLevel) &&
		matchAny(f.Sources, m.Source)
}

func matchAny(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), v) {
			return true
		}
	}
	return false
}
