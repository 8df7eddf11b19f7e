package bus

import (
	"context"
	"encoding/json"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cogbandwidth/router/internal/routingerr"
	"github.com/cogbandwidth/router/internal/telemetry/logging"
	"github.com/cogbandwidth/router/internal/telemetry/metrics"
)

// brokerEnvelope is the wire format published to Redis: topic is carried
// alongside the payload since a single Redis channel per topic would
// prevent PollOnce from draining multiple topics in one pass.
type brokerEnvelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBrokerBus is the external-broker variant (spec §4.6): publish
// writes to a shared Redis Pub/Sub channel, and a background goroutine
// only relays incoming messages onto an internal Go channel — it never
// dispatches to subscribers itself. PollOnce, called by the single owner,
// drains that channel and runs local handlers, preserving the
// single-owner invariant from the Design Notes (§9 "If a background pump
// is used, it MUST enqueue onto a channel consumed by the owner").
type RedisBrokerBus struct {
	client  *goredis.Client
	channel string
	pubsub  *goredis.PubSub
	relay   chan *goredis.Message

	mu      sync.Mutex
	nextID  uint64
	byTopic map[string][]registeredHandler

	log          logging.Logger
	published    metrics.Counter
	handlerErr   metrics.Counter
	transportErr metrics.Counter
}

// NewRedisBrokerBus subscribes to channel on client and starts the relay
// goroutine. Callers must call PollOnce periodically (or between
// HandleTask calls, per the Design Notes' cooperative-pump guidance) to
// actually dispatch received messages.
func NewRedisBrokerBus(ctx context.Context, client *goredis.Client, channel string, provider metrics.Provider, log logging.Logger) *RedisBrokerBus {
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}
	if log == nil {
		log = logging.New(nil)
	}
	pubsub := client.Subscribe(ctx, channel)
	b := &RedisBrokerBus{
		client:  client,
		channel: channel,
		pubsub:  pubsub,
		relay:   make(chan *goredis.Message, 256),
		byTopic: make(map[string][]registeredHandler),
		log:     log,
		published: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "bus_broker", Name: "published_total",
			Help: "Messages published to the broker.", Labels: []string{"topic"},
		}}),
		handlerErr: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "bus_broker", Name: "handler_errors_total",
			Help: "Handler failures while draining the broker.", Labels: []string{"topic"},
		}}),
		transportErr: provider.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "bus_broker", Name: "transport_errors_total",
			Help: "Broker I/O failures.",
		}}),
	}
	go b.relayLoop(pubsub.Channel())
	return b
}

func (b *RedisBrokerBus) relayLoop(ch <-chan *goredis.Message) {
	for msg := range ch {
		b.relay <- msg
	}
	close(b.relay)
}

// Publish serializes message and writes it to the shared broker channel.
func (b *RedisBrokerBus) Publish(ctx context.Context, topic string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return routingerr.Wrap(routingerr.KindInvalidArgument, "marshal bus message", err)
	}
	envelope, err := json.Marshal(brokerEnvelope{Topic: topic, Payload: payload})
	if err != nil {
		return routingerr.Wrap(routingerr.KindInvalidArgument, "marshal bus envelope", err)
	}
	if err := b.client.Publish(ctx, b.channel, envelope).Err(); err != nil {
		b.transportErr.Inc(1)
		return routingerr.Wrap(routingerr.KindTransportFailure, "publish to broker", err)
	}
	b.published.Inc(1, topic)
	return nil
}

// Subscribe registers a local handler for topic; delivery still requires
// PollOnce to be driven by the caller.
func (b *RedisBrokerBus) Subscribe(topic string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.byTopic[topic] = append(b.byTopic[topic], registeredHandler{id: id, handler: handler})
	return Subscription{topic: topic, id: id}
}

// Unsubscribe removes the handler identified by sub.
func (b *RedisBrokerBus) Unsubscribe(sub Subscription) {
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

// PollOnce drains up to 64 pending broker messages and dispatches each to
// its topic's local handlers, in subscription order, isolating failures
// exactly like InMemoryBus (spec §4.6 "drains up to N messages and
// dispatches them through local subscribers").
func (b *RedisBrokerBus) PollOnce(ctx context.Context) (int, error) {
	const maxDrain = 64
	drained := 0
	for drained < maxDrain {
		select {
		case msg, ok := <-b.relay:
			if !ok {
				return drained, routingerr.New(routingerr.KindTransportFailure, "broker relay closed")
			}
			b.dispatch(ctx, msg)
			drained++
		default:
			return drained, nil
		}
	}
	return drained, nil
}

func (b *RedisBrokerBus) dispatch(ctx context.Context, msg *goredis.Message) {
	var envelope brokerEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
		b.transportErr.Inc(1)
		b.log.WarnCtx(ctx, "discarding malformed broker envelope", "error", err)
		return
	}

	b.mu.Lock()
	handlers := append([]registeredHandler(nil), b.byTopic[envelope.Topic]...)
	b.mu.Unlock()

	for _, rh := range handlers {
		b.invoke(ctx, envelope.Topic, rh.handler, envelope.Payload)
	}
}

func (b *RedisBrokerBus) invoke(ctx context.Context, topic string, h Handler, payload json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerErr.Inc(1, topic)
			b.log.ErrorCtx(ctx, "broker handler panicked", "topic", topic)
		}
	}()
	if err := h(ctx, topic, payload); err != nil {
		b.handlerErr.Inc(1, topic)
		b.log.ErrorCtx(ctx, "broker handler failed", "topic", topic, "error", err)
	}
}

// Close stops the Redis subscription and the relay goroutine.
func (b *RedisBrokerBus) Close() error {
	return b.pubsub.Close()
}

var _ Bus = (*RedisBrokerBus)(nil)
