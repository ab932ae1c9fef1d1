package api

import (
	"context"
	"sync"

	"geowatch/internal/metrics"
)

// GlobalChannel receives every record change regardless of prefecture.
// Elevated viewers subscribe here; restricted viewers subscribe to their
// own prefecture channel.
const GlobalChannel = "global"

// Event is a record-change notification fanned out to live map sessions.
type Event struct {
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	RecordID string `json:"recordId"`
	Commune  string `json:"commune,omitempty"`
}

// EventBroker fans record-change events out to subscribed map sessions.
// Channels are keyed by prefecture short label, plus GlobalChannel.
type EventBroker interface {
	Publish(ctx context.Context, channel string, evt Event)
	Subscribe(ctx context.Context, channel string) (<-chan Event, func())
}

// MemoryBroker is an in-process broker for single-instance deployments.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan Event]struct{})}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[channel] {
		select {
		case ch <- evt:
			metrics.BrokerEvents.WithLabelValues(channel, "delivered").Inc()
		default:
			// Slow subscriber; drop rather than block the publisher.
			metrics.BrokerEvents.WithLabelValues(channel, "dropped").Inc()
		}
	}
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan Event]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[channel]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, channel)
			}
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
