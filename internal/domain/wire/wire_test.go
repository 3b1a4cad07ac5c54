package wire

import (
	"testing"
	"time"

	"github.com/jimi-run/jimi-core/internal/domain/entity"
	"go.uber.org/zap"
)

func TestWire_PublishFanOut(t *testing.T) {
	w := New(zap.NewNop(), 4)

	ch1, unsub1 := w.Subscribe()
	defer unsub1()
	ch2, unsub2 := w.Subscribe()
	defer unsub2()

	if got := w.SubscriberCount(); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}

	w.Publish(entity.AgentEvent{Type: entity.EventTextDelta, Content: "hello"})

	for _, ch := range []<-chan entity.AgentEvent{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Content != "hello" {
				t.Fatalf("expected content 'hello', got %q", ev.Content)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published event")
		}
	}
}

func TestWire_PublishDropsWhenSubscriberBufferFull(t *testing.T) {
	w := New(zap.NewNop(), 1)
	ch, unsub := w.Subscribe()
	defer unsub()

	w.Publish(entity.AgentEvent{Type: entity.EventTextDelta, Content: "first"})
	w.Publish(entity.AgentEvent{Type: entity.EventTextDelta, Content: "dropped"})

	ev := <-ch
	if ev.Content != "first" {
		t.Fatalf("expected first message to survive, got %q", ev.Content)
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected no second message, got %q", ev.Content)
	default:
	}
}

func TestWire_ResetClosesSubscribers(t *testing.T) {
	w := New(zap.NewNop(), 4)
	ch, _ := w.Subscribe()

	w.Reset()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after Reset")
	}
	if got := w.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers after Reset, got %d", got)
	}
}

func TestWire_UnsubscribeStopsDelivery(t *testing.T) {
	w := New(zap.NewNop(), 4)
	ch, unsub := w.Subscribe()
	unsub()

	w.Publish(entity.AgentEvent{Type: entity.EventTextDelta, Content: "after unsub"})

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}
