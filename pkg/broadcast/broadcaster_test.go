package broadcast

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadplatform/road/pkg/broadcast/gochannel"
	"github.com/roadplatform/road/pkg/events"
	"github.com/roadplatform/road/pkg/models"
)

func newTestBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()

	logger := slog.Default()
	pub, sub := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	b := NewBroadcaster(logger, pub, sub)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, b.Start(ctx))
	t.Cleanup(func() { _ = b.Close() })

	return b
}

func collect(t *testing.T, sub *Subscription, n int) []events.ProgressEvent {
	t.Helper()

	received := make([]events.ProgressEvent, 0, n)

	for len(received) < n {
		select {
		case event, ok := <-sub.C:
			require.True(t, ok, "subscription closed early")

			received = append(received, event)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", len(received)+1, n)
		}
	}

	return received
}

func TestBroadcaster_DeliversInPublishOrder(t *testing.T) {
	b := newTestBroadcaster(t)
	sub := b.Subscribe("exec-1")

	ctx := context.Background()
	b.Publish(ctx, events.NewExecutionStart("exec-1", "wf-1"))
	b.Publish(ctx, events.NewNodeUpdate("exec-1", "wf-1", "a", models.NodeStatusRunning, ""))
	b.Publish(ctx, events.NewExecutionComplete("exec-1", "wf-1", models.ExecutionStatusCompleted, ""))

	received := collect(t, sub, 3)

	assert.Equal(t, events.ExecutionStart, received[0].Type)
	assert.Equal(t, events.NodeUpdate, received[1].Type)
	assert.Equal(t, events.ExecutionComplete, received[2].Type)
}

func TestBroadcaster_FiltersByExecutionID(t *testing.T) {
	b := newTestBroadcaster(t)
	sub := b.Subscribe("exec-1")

	ctx := context.Background()
	b.Publish(ctx, events.NewExecutionStart("exec-other", "wf-1"))
	b.Publish(ctx, events.NewExecutionComplete("exec-1", "wf-1", models.ExecutionStatusCompleted, ""))

	received := collect(t, sub, 1)
	assert.Equal(t, "exec-1", received[0].ExecutionID)
	assert.Equal(t, events.ExecutionComplete, received[0].Type)
}

func TestBroadcaster_PublishWithoutObserversIsDropped(t *testing.T) {
	b := newTestBroadcaster(t)

	// Must not panic, block or error.
	b.Publish(context.Background(), events.NewExecutionStart("exec-unobserved", "wf-1"))

	assert.Equal(t, 0, b.ObserverCount("exec-unobserved"))
}

func TestBroadcaster_UnsubscribeIsIdempotent(t *testing.T) {
	b := newTestBroadcaster(t)
	sub := b.Subscribe("exec-1")

	require.Equal(t, 1, b.ObserverCount("exec-1"))

	sub.Unsubscribe()
	sub.Unsubscribe()

	assert.Equal(t, 0, b.ObserverCount("exec-1"))

	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestBroadcaster_MultipleObserversEachReceive(t *testing.T) {
	b := newTestBroadcaster(t)
	sub1 := b.Subscribe("exec-1")
	sub2 := b.Subscribe("exec-1")

	b.Publish(context.Background(), events.NewExecutionStart("exec-1", "wf-1"))

	first := collect(t, sub1, 1)
	second := collect(t, sub2, 1)

	assert.Equal(t, events.ExecutionStart, first[0].Type)
	assert.Equal(t, events.ExecutionStart, second[0].Type)
}

func TestBroadcaster_SlowObserverIsEvicted(t *testing.T) {
	b := newTestBroadcaster(t)
	slow := b.Subscribe("exec-1")
	fast := b.Subscribe("exec-1")

	// The fast observer drains continuously.
	fastDone := make(chan events.ProgressEvent, 1)

	go func() {
		for event := range fast.C {
			if event.Type == events.ExecutionComplete {
				fastDone <- event

				return
			}
		}
	}()

	ctx := context.Background()

	// Overflow the slow observer's buffer without draining it.
	for range defaultObserverBuffer + 10 {
		b.Publish(ctx, events.NewNodeUpdate("exec-1", "wf-1", "a", models.NodeStatusRunning, ""))
	}

	// The slow observer's channel is eventually closed by eviction.
	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-slow.C:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 10*time.Millisecond)

	// The fast observer survives and still receives events.
	b.Publish(ctx, events.NewExecutionComplete("exec-1", "wf-1", models.ExecutionStatusCompleted, ""))

	select {
	case event := <-fastDone:
		assert.Equal(t, events.ExecutionComplete, event.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("fast observer never received the completion event")
	}
}
