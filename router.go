// Package router is the facade for the Cognitive Bandwidth Router: it
// composes the Telemetry Collector, Context Providers, Attention Model and
// Routing Policy into a single Service, the way the teacher engine composes
// pipeline/ratelimit/resources behind Engine (engine/engine.go).
package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cogbandwidth/router/internal/attention"
	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/routingerr"
	"github.com/cogbandwidth/router/internal/telemetry"
	"github.com/cogbandwidth/router/internal/telemetry/logging"
	"github.com/cogbandwidth/router/internal/telemetry/metrics"
	"github.com/cogbandwidth/router/internal/telemetry/tracing"
)

// Service orchestrates the collector, providers, model and policy, and
// dispatches WorkItems to registered sinks (spec §4.5). Concurrent calls to
// HandleTask are serialized only where state is shared (the sink registry
// and the policy pointer); the collector guards its own sequence.
type Service struct {
	collector *telemetry.Collector
	providers attention.Provider
	model     attention.Model

	policy atomic.Pointer[routing.Policy]

	sinkMu sync.Mutex
	sinks  map[routing.Strategy][]Sink

	metrics metrics.Provider
	tracer  tracing.Tracer
	log     logging.Logger

	decisions  metrics.Counter
	sinkErrors metrics.Counter
	loadGauge  metrics.Gauge
}

// New builds a Service from cfg. The initial policy is validated from
// cfg.RoutingWeights/RoutingThresholds; an invalid configuration returns
// ConfigError and no Service.
func New(cfg Config) (*Service, error) {
	policy, err := routing.New(cfg.RoutingWeights, cfg.RoutingThresholds)
	if err != nil {
		return nil, err
	}

	window := cfg.TelemetryWindow
	if window <= 0 {
		window = 10 * time.Minute
	}

	mp := cfg.metricsProvider()
	svc := &Service{
		collector: telemetry.NewCollector(window),
		providers: cfg.contextProvider(),
		model:     attention.NewModel(cfg.AttentionWeights, cfg.SoftCaps),
		sinks:     make(map[routing.Strategy][]Sink),
		metrics:   mp,
		tracer:    cfg.tracer(),
		log:       logging.New(cfg.logger()),
		decisions: mp.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "router", Name: "decisions_total",
			Help: "Routing decisions by strategy.", Labels: []string{"strategy"},
		}}),
		sinkErrors: mp.NewCounter(metrics.CounterOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "router", Name: "sink_errors_total",
			Help: "Sink invocation failures by sink name.", Labels: []string{"sink"},
		}}),
		loadGauge: mp.NewGauge(metrics.GaugeOpts{CommonOpts: metrics.CommonOpts{
			Namespace: "cogrouter", Subsystem: "router", Name: "attention_load",
			Help: "Most recently computed attention load.",
		}}),
	}
	svc.policy.Store(policy)
	return svc, nil
}

// RecordTelemetry feeds one interaction sample into the collector (spec
// §4.1 record). It is safe to call concurrently with HandleTask.
func (s *Service) RecordTelemetry(sample telemetry.Sample) error {
	return s.collector.Record(sample)
}

// TelemetrySummary returns the collector's current rolling-window summary
// (spec §6 GET /telemetry), without mutating decision state.
func (s *Service) TelemetrySummary(now time.Time) telemetry.Summary {
	return s.collector.Summary(now)
}

// Policy returns the currently active policy.
func (s *Service) Policy() *routing.Policy {
	return s.policy.Load()
}

// UpdatePolicy atomically replaces the active policy (spec §4.5
// update_policy). Rejects the swap, returning ConfigError, if w/t fail
// validation; the previous policy remains live.
func (s *Service) UpdatePolicy(w routing.Weights, t routing.Thresholds) error {
	next, err := routing.New(w, t)
	if err != nil {
		return err
	}
	s.policy.Store(next)
	return nil
}

// RegisterSink adds sink under strategy (or routing.StrategyWildcard for
// every strategy). Registration is idempotent on Sink.Name(): registering
// the same name under the same strategy twice is a no-op (spec §4.5).
func (s *Service) RegisterSink(strategy routing.Strategy, sink Sink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()

	for _, existing := range s.sinks[strategy] {
		if existing.Name() == sink.Name() {
			return
		}
	}
	s.sinks[strategy] = append(s.sinks[strategy], sink)
}

// HandleTask gathers a fresh telemetry summary and composed context, scores
// task, dispatches the resulting WorkItem to registered sinks, and returns
// it (spec §4.5 handle_task). It is a total function over well-formed
// input: the only error path is InvalidArgument from the policy itself.
func (s *Service) HandleTask(ctx context.Context, task routing.TaskIntent) (routing.WorkItem, error) {
	if task.TaskID == "" {
		task.TaskID = fmt.Sprintf("task-%s", uuid.NewString())
	}

	ctx, span := s.tracer.StartSpan(ctx, "router.HandleTask")
	defer span.End()
	span.SetAttribute("task_id", task.TaskID)

	now := clockNow()
	summary := s.collector.Summary(now)
	attnCtx := s.snapshotContext(ctx, now)
	load := s.model.Load(summary, attnCtx)
	s.loadGauge.Set(load)

	policy := s.Policy()
	item, err := policy.Evaluate(task, routing.ScoringContext{AttentionContext: attnCtx, Load: load}, now)
	if err != nil {
		span.SetAttribute("error", err.Error())
		return routing.WorkItem{}, err
	}

	s.decisions.Inc(1, string(item.Strategy))
	span.SetAttribute("strategy", string(item.Strategy))
	span.SetAttribute("priority", item.Priority)

	s.dispatch(ctx, item)
	return item, nil
}

// snapshotContext absorbs a panicking provider into a zero context: a
// misbehaving Context Provider must never prevent HandleTask from
// returning a decision (spec §7 ProviderFailure).
func (s *Service) snapshotContext(ctx context.Context, now time.Time) (out attention.Context) {
	if s.providers == nil {
		return attention.Context{}
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.WarnCtx(ctx, "context provider panicked, using zero context")
			out = attention.Context{}
		}
	}()
	return s.providers.Snapshot(now)
}

// dispatch fires item at every sink registered for its strategy plus every
// wildcard sink, in registration order. A failing sink is isolated: its
// error is logged and counted, and the remaining sinks still run (spec
// §4.5, §7 SinkFailure).
func (s *Service) dispatch(ctx context.Context, item routing.WorkItem) {
	s.sinkMu.Lock()
	targets := make([]Sink, 0, len(s.sinks[item.Strategy])+len(s.sinks[routing.StrategyWildcard]))
	targets = append(targets, s.sinks[item.Strategy]...)
	targets = append(targets, s.sinks[routing.StrategyWildcard]...)
	s.sinkMu.Unlock()

	for _, sink := range targets {
		s.invokeSink(ctx, sink, item)
	}
}

func (s *Service) invokeSink(ctx context.Context, sink Sink, item routing.WorkItem) {
	defer func() {
		if r := recover(); r != nil {
			s.sinkErrors.Inc(1, sink.Name())
			s.log.ErrorCtx(ctx, "sink panicked", "sink", sink.Name(), "task_id", item.Task.TaskID)
		}
	}()
	if err := sink.Handle(ctx, item); err != nil {
		s.sinkErrors.Inc(1, sink.Name())
		s.log.ErrorCtx(ctx, "sink failed", "sink", sink.Name(), "task_id", item.Task.TaskID,
			"error", err, "kind", routingerr.KindOf(err).String())
	}
}
