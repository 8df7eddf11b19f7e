// Package bus implements the Event Bus (spec §4.6): topic-keyed
// publish/subscribe with an in-memory variant and an external-broker
// variant. Structurally grounded on the teacher's internal telemetry event
// bus (engine/internal/telemetry/events), adapted from a single fixed
// Event channel stream into topic-keyed handler dispatch, since the router
// needs distinct task_intent/work_item topics rather than one category
// field on a shared stream.
package bus

import (
	"context"
	"sync"

	"github.com/cogbandwidth/router/internal/routingerr"
	"github.com/cogbandwidth/router/internal/telemetry/logging"
	"github.com/cogbandwidth/router/internal/telemetry/metrics"
)

// Handler processes one message delivered on a topic. A returned error is
// logged and isolated; it never stops delivery to other handlers.
type Handler func(ctx context.Context, topic string, message any) error

// Subscription identifies a registered Handler for Unsubscribe.
type Subscription struct {
	topic string
	id    uint64
}

// Bus is the capability every variant implements (spec §4.6 operations).
type Bus interface {
	Publish(ctx context.Context, topic string, message any) error
	Subscribe(topic string, handler Handler) Subscription
	Unsubscribe(sub Subscription)
	PollOnce(ctx context.Context) (int, error)
}

// InMemoryBus fans out synchronously, in subscription order, per topic
// (spec §4.6 "In-memory" variant). PollOnce is a no-op returning (0, nil):
// delivery already happens inline from Publish.
type InMemoryBus struct {
	mu      sync.Mutex
	nextID  uint64
	byTopic map[string][]registeredHandler

	log        logging.Logger
	published  metrics.Counter
	handlerErr metrics.Counter
}

type registeredHandler struct {
	id      uint64
	handler Handler
}

// NewInMemoryBus builds an empty InMemoryBus. A nil provider/logger falls
// back to no-ops.
func NewInMemoryBus(provider metrics.Provider, log logging.Logger) *InMemoryBus {
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}
	if log == nil {
		log = logging.New(nil)
	}
	return &InMemoryBus{
		byTopic: make(map[string][]registeredHandler),
		log:     log,
		published: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "bus", Name: "published_total",
			Help: "Messages published by topic.", Labels: []string{"topic"},
		}}),
		handlerErr: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "bus", Name: "handler_errors_total",
			Help: "Handler failures by topic.", Labels: []string{"topic"},
		}}),
	}
}

// Publish fans message out synchronously to every handler subscribed to
// topic, in the order they subscribed. A handler that errors or panics is
// isolated: logged, counted, and skipped, never blocking its peers (spec
// §4.6 "one failing handler is isolated and logged").
func (b *InMemoryBus) Publish(ctx context.Context, topic string, message any) error {
	b.mu.Lock()
	handlers := append([]registeredHandler(nil), b.byTopic[topic]...)
	b.mu.Unlock()

	b.published.Inc(1, topic)
	for _, rh := range handlers {
		b.invoke(ctx, topic, rh.handler, message)
	}
	return nil
}

func (b *InMemoryBus) invoke(ctx context.Context, topic string, h Handler, message any) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerErr.Inc(1, topic)
			b.log.ErrorCtx(ctx, "bus handler panicked", "topic", topic)
		}
	}()
	if err := h(ctx, topic, message); err != nil {
		b.handlerErr.Inc(1, topic)
		b.log.ErrorCtx(ctx, "bus handler failed", "topic", topic, "error", err)
	}
}

// Subscribe registers handler under topic, returning a Subscription usable
// with Unsubscribe.
func (b *InMemoryBus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byTopic[topic] = append(b.byTopic[topic], registeredHandler{id: id, handler: handler})
	return Subscription{topic: topic, id: id}
}

// Unsubscribe removes the handler identified by sub.
func (b *InMemoryBus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.byTopic[sub.topic]
	for i, rh := range handlers {
		if rh.id == sub.id {
			b.byTopic[sub.topic] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// PollOnce is a no-op for the in-memory variant: delivery is synchronous
// within Publish, so there is nothing queued to pump.
func (b *InMemoryBus) PollOnce(context.Context) (int, error) { return 0, nil }

var _ Bus = (*InMemoryBus)(nil)

// ErrUnknownTopic is returned by Unsubscribe callers that want to assert a
// subscription existed; InMemoryBus itself treats an unknown subscription
// as a harmless no-op per spec §4.6 (unsubscribe of an already-removed
// subscription is not an error case the spec distinguishes).
var ErrUnknownTopic = routingerr.New(routingerr.KindInvalidArgument, "unknown topic")
