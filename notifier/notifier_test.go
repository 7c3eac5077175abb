package notifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub()

	a, cancelA := hub.Subscribe("user-1")
	defer cancelA()
	b, cancelB := hub.Subscribe("user-1")
	defer cancelB()
	other, cancelOther := hub.Subscribe("user-2")
	defer cancelOther()

	hub.Publish(context.Background(), Event{OwnerID: "user-1", Kind: KindCart})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, "user-1", ev.OwnerID)
			assert.Equal(t, KindCart, ev.Kind)
		default:
			t.Fatal("subscriber missed the event")
		}
	}

	select {
	case <-other:
		t.Fatal("event leaked to another owner")
	default:
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("user-1")
	cancel()

	// The channel is closed on cancel
	_, ok := <-ch
	require.False(t, ok)

	// Publishing afterwards must not panic or deliver
	hub.Publish(context.Background(), Event{OwnerID: "user-1", Kind: KindCart})
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.Subscribe("user-1")
	cancel()
	cancel()
}

func TestHubDropsWhenSubscriberLagging(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe("user-1")
	defer cancel()

	// Overflow the buffer; Publish must never block
	for i := 0; i < 100; i++ {
		hub.Publish(context.Background(), Event{OwnerID: "user-1", Kind: KindCart})
	}

	received := 0
	for drained := false; !drained; {
		select {
		case <-ch:
			received++
		default:
			drained = true
		}
	}
	assert.Greater(t, received, 0)
	assert.LessOrEqual(t, received, 8)
}
