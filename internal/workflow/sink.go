package workflow

import (
	"context"

	"github.com/cogbandwidth/router/internal/routing"
)

// EngineSink adapts an Engine to the router.Sink capability (Name/Handle)
// structurally, without importing the root router package, so the
// Workflow Engine can be registered the same way any other sink is (spec
// §4.5 register_sink, §4.7 "usable as a Queue-aware Context Provider").
type EngineSink struct {
	Engine *Engine
}

// Name identifies this sink for idempotent registration.
func (s EngineSink) Name() string { return "workflow" }

// Handle accepts item into the engine's queues. Accept never fails, so
// this always returns nil; errors from downstream orchestrators belong to
// TemporalOrchestratorAdapter, not this in-memory sink.
func (s EngineSink) Handle(_ context.Context, item routing.WorkItem) error {
	s.Engine.Accept(item)
	return nil
}
