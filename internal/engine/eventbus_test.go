package engine

import (
	"context"
	"testing"
	"time"
)

func TestEventBusPublishDeliversToSubscribers(t *testing.T) {
	b := NewEventBus()
	var received []Event
	b.Subscribe(func(e Event) { received = append(received, e) })

	ev := Event{ID: "ev-1", Type: EventNodeStarted}
	b.Publish(ev)

	if len(received) != 1 || received[0].ID != "ev-1" {
		t.Fatalf("expected the subscriber to receive the published event, got %v", received)
	}
}

func TestEventBusChannelClosesOnCancel(t *testing.T) {
	b := NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Channel(ctx, 4)

	b.Publish(Event{ID: "ev-1"})

	select {
	case ev := <-ch:
		if ev.ID != "ev-1" {
			t.Fatalf("unexpected event: %v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event on channel")
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A late in-flight publish may have landed first; drain once more.
			select {
			case _, ok2 := <-ch:
				if ok2 {
					t.Fatalf("expected channel to close after cancellation")
				}
			case <-time.After(time.Second):
				t.Fatalf("timed out waiting for channel to close")
			}
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for channel to close")
	}
}
