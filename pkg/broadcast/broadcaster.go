// Package broadcast fans out progress events for an execution id to every
// currently subscribed observer. Delivery is best-effort: events published
// with no observers are dropped, and a slow observer is evicted rather than
// allowed to block the publisher or its peers.
package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/roadplatform/road/pkg/events"
)

const defaultObserverBuffer = 64

// Subscription is the handle returned by Subscribe. Events arrive on C in
// publish order (per-observer FIFO). C is closed when the subscription is
// cancelled, the observer is evicted, or the broadcaster shuts down.
type Subscription struct {
	C <-chan events.ProgressEvent

	executionID string
	ch          chan events.ProgressEvent
	closeOnce   sync.Once
	broadcaster *Broadcaster
}

// Unsubscribe removes the observer. It is idempotent and safe to call after
// the observer has already been dropped.
func (s *Subscription) Unsubscribe() {
	s.broadcaster.remove(s)
}

// Broadcaster is a per-execution publish/subscribe fan-out over a watermill
// transport (in-process gochannel by default, Kafka when configured).
type Broadcaster struct {
	logger     *slog.Logger
	publisher  message.Publisher
	subscriber message.Subscriber

	mu        sync.RWMutex
	observers map[string]map[*Subscription]struct{}
}

// NewBroadcaster creates a broadcaster over the given transport pair.
func NewBroadcaster(logger *slog.Logger, publisher message.Publisher, subscriber message.Subscriber) *Broadcaster {
	return &Broadcaster{
		logger:     logger.With("module", "broadcast"),
		publisher:  publisher,
		subscriber: subscriber,
		observers:  make(map[string]map[*Subscription]struct{}),
	}
}

// Start begins consuming the progress topic and fanning events out. It must
// be called once before Publish/Subscribe are useful; the fan-out loop stops
// when ctx is cancelled.
func (b *Broadcaster) Start(ctx context.Context) error {
	messages, err := b.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go b.fanOut(messages)

	return nil
}

// Publish delivers event to every observer subscribed to its execution id.
// It never returns an error to the caller: transport failures are logged and
// the run proceeds. A publish with no subscribers is silently dropped.
func (b *Broadcaster) Publish(ctx context.Context, event events.ProgressEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "Recovered from panic while publishing progress event", "panic", r)
		}
	}()

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.ErrorContext(ctx, "Failed to encode progress event", "error", err, "execution_id", event.ExecutionID)

		return
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(events.ExecutionIDMetadataKey, event.ExecutionID)

	if err := b.publisher.Publish(events.Topic, msg); err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish progress event", "error", err, "execution_id", event.ExecutionID)
	}
}

// Subscribe registers an observer for one execution id.
func (b *Broadcaster) Subscribe(executionID string) *Subscription {
	sub := &Subscription{
		executionID: executionID,
		ch:          make(chan events.ProgressEvent, defaultObserverBuffer),
		broadcaster: b,
	}
	sub.C = sub.ch

	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.observers[executionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.observers[executionID] = set
	}

	set[sub] = struct{}{}

	return sub
}

// ObserverCount reports how many observers are subscribed to an execution id.
func (b *Broadcaster) ObserverCount(executionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.observers[executionID])
}

// Close terminates the underlying transport and closes every observer channel.
func (b *Broadcaster) Close() error {
	b.mu.Lock()

	for _, set := range b.observers {
		for sub := range set {
			sub.closeOnce.Do(func() { close(sub.ch) })
		}
	}

	b.observers = make(map[string]map[*Subscription]struct{})
	b.mu.Unlock()

	if err := b.publisher.Close(); err != nil {
		return err
	}

	return b.subscriber.Close()
}

// fanOut is the single consumer of the progress topic. One goroutine doing
// all deliveries keeps per-observer ordering equal to publish order.
func (b *Broadcaster) fanOut(messages <-chan *message.Message) {
	for msg := range messages {
		executionID := msg.Metadata.Get(events.ExecutionIDMetadataKey)

		var event events.ProgressEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			b.logger.Error("Failed to decode progress event", "error", err, "execution_id", executionID)
			msg.Ack()

			continue
		}

		b.deliver(executionID, event)
		msg.Ack()
	}
}

func (b *Broadcaster) deliver(executionID string, event events.ProgressEvent) {
	b.mu.RLock()

	subs := make([]*Subscription, 0, len(b.observers[executionID]))
	for sub := range b.observers[executionID] {
		subs = append(subs, sub)
	}

	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- event:
		default:
			// Observer is not draining its buffer; evict it instead of
			// blocking delivery to the rest.
			b.logger.Warn("Dropping slow progress observer", "execution_id", executionID)
			b.remove(sub)
		}
	}
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()

	if set, ok := b.observers[sub.executionID]; ok {
		delete(set, sub)

		if len(set) == 0 {
			delete(b.observers, sub.executionID)
		}
	}

	b.mu.Unlock()

	sub.closeOnce.Do(func() { close(sub.ch) })
}
