package api

import (
	"context"
	"testing"
)

func TestMemoryBrokerFanOut(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	a, cancelA := b.Subscribe(ctx, "Casablanca")
	defer cancelA()
	c, cancelC := b.Subscribe(ctx, "Casablanca")
	defer cancelC()
	other, cancelOther := b.Subscribe(ctx, "Mohammedia")
	defer cancelOther()

	evt := Event{Type: "record-change", Kind: "mission", RecordID: "m-1"}
	b.Publish(ctx, "Casablanca", evt)

	for _, ch := range []<-chan Event{a, c} {
		select {
		case got := <-ch:
			if got.RecordID != "m-1" {
				t.Fatalf("event = %+v", got)
			}
		default:
			t.Fatal("subscriber missed event")
		}
	}
	select {
	case got := <-other:
		t.Fatalf("cross-channel delivery: %+v", got)
	default:
	}
}

func TestMemoryBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	ch, cancel := b.Subscribe(ctx, "global")
	cancel()
	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}
	// Double cancel is a no-op.
	cancel()

	// Publishing to a channel with no subscribers must not panic.
	b.Publish(ctx, "global", Event{Type: "record-change"})
}

func TestMemoryBrokerDropsWhenSubscriberLags(t *testing.T) {
	b := NewMemoryBroker()
	ctx := context.Background()

	ch, cancel := b.Subscribe(ctx, "global")
	defer cancel()

	// Fill the buffer and keep publishing; the publisher must not block.
	for i := 0; i < 100; i++ {
		b.Publish(ctx, "global", Event{Type: "record-change", RecordID: "r"})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer = %d, want full (%d)", len(ch), cap(ch))
	}
}
