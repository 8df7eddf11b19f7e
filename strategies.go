package router

import (
	"context"
	"time"

	"github.com/cogbandwidth/router/internal/attention"
	"github.com/cogbandwidth/router/internal/routing"
)

// strategies.go consolidates the primary extension-point interfaces for
// easier discovery, the same organizing convention the teacher engine uses
// (engine/strategies.go) for Fetcher/Processor/OutputSink.

// Sink consumes WorkItems dispatched for a given strategy (spec §4.5, §6).
// Name is the identity register_sink uses to make registration idempotent;
// two sinks with the same Name are treated as the same registration.
type Sink interface {
	Name() string
	Handle(ctx context.Context, item routing.WorkItem) error
}

// SinkFunc adapts a plain function plus a name into a Sink, the way
// http.HandlerFunc adapts a function into an http.Handler.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, item routing.WorkItem) error
}

func (f SinkFunc) Name() string { return f.SinkName }
func (f SinkFunc) Handle(ctx context.Context, item routing.WorkItem) error {
	return f.Fn(ctx, item)
}

// ContextProvider is the attention.Provider capability, re-exported at the
// facade so callers configuring a Service do not need to import the
// internal attention package directly.
type ContextProvider = attention.Provider

// AttentionContext is the facade alias for attention.Context.
type AttentionContext = attention.Context

// clockNow is overridable in tests that need deterministic timestamps.
var clockNow = time.Now
