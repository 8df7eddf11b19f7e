package workflow

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/routingerr"
)

// TemporalOrchestratorAdapter is the external-orchestrator stub referenced
// in spec §4.7: it exposes the same accept/depth/next/complete operations
// as Engine but forwards them to a running Temporal workflow rather than
// holding state locally. One workflow execution represents the whole
// human-review queue; accept/complete become signals, depth/next become
// queries, mirroring the signal/query split the Temporal SDK expects
// (see goadesign-goa-ai's runtime/agent/engine/temporal adapter).
type TemporalOrchestratorAdapter struct {
	Client       client.Client
	TaskQueue    string
	WorkflowID   string
	WorkflowType string
}

const (
	signalAccept   = "cogrouter.accept"
	signalComplete = "cogrouter.complete"
	queryDepth     = "cogrouter.depth"
	queryNext      = "cogrouter.next"
)

// EnsureStarted starts the backing workflow execution if it is not already
// running, idempotent via Temporal's WorkflowIDReusePolicy.
func (a *TemporalOrchestratorAdapter) EnsureStarted(ctx context.Context) error {
	opts := client.StartWorkflowOptions{
		ID:                       a.WorkflowID,
		TaskQueue:                a.TaskQueue,
		WorkflowIDReusePolicy:    0,
		WorkflowExecutionTimeout: 0,
	}
	_, err := a.Client.ExecuteWorkflow(ctx, opts, a.WorkflowType)
	if err != nil {
		return routingerr.Wrap(routingerr.KindTransportFailure, "start orchestrator workflow", err)
	}
	return nil
}

// Accept forwards item to the orchestrator via a signal (spec §4.7 accept,
// adapter variant: "forwards to the external system").
func (a *TemporalOrchestratorAdapter) Accept(ctx context.Context, item routing.WorkItem) error {
	err := a.Client.SignalWorkflow(ctx, a.WorkflowID, "", signalAccept, item)
	if err != nil {
		return routingerr.Wrap(routingerr.KindTransportFailure, "signal accept", err)
	}
	return nil
}

// Complete signals the orchestrator that taskID has been handled.
func (a *TemporalOrchestratorAdapter) Complete(ctx context.Context, taskID string) error {
	err := a.Client.SignalWorkflow(ctx, a.WorkflowID, "", signalComplete, taskID)
	if err != nil {
		return routingerr.Wrap(routingerr.KindTransportFailure, "signal complete", err)
	}
	return nil
}

// Depth queries the orchestrator for the total queue depth it is holding.
func (a *TemporalOrchestratorAdapter) Depth(ctx context.Context) (int, error) {
	resp, err := a.Client.QueryWorkflow(ctx, a.WorkflowID, "", queryDepth)
	if err != nil {
		return 0, routingerr.Wrap(routingerr.KindTransportFailure, "query depth", err)
	}
	var depth int
	if err := resp.Get(&depth); err != nil {
		return 0, routingerr.Wrap(routingerr.KindTransportFailure, "decode depth query result", err)
	}
	return depth, nil
}

// Next queries the orchestrator for the next WorkItem under strategy.
func (a *TemporalOrchestratorAdapter) Next(ctx context.Context, strategy routing.Strategy) (routing.WorkItem, bool, error) {
	resp, err := a.Client.QueryWorkflow(ctx, a.WorkflowID, "", queryNext, string(strategy))
	if err != nil {
		return routing.WorkItem{}, false, routingerr.Wrap(routingerr.KindTransportFailure, "query next", err)
	}
	var item *routing.WorkItem
	if err := resp.Get(&item); err != nil {
		return routing.WorkItem{}, false, routingerr.Wrap(routingerr.KindTransportFailure, "decode next query result", err)
	}
	if item == nil {
		return routing.WorkItem{}, false, nil
	}
	return *item, true, nil
}

// Name identifies this adapter as a Sink (structurally satisfying
// router.Sink) so it can be registered in place of the in-memory
// EngineSink.
func (a *TemporalOrchestratorAdapter) Name() string {
	return fmt.Sprintf("temporal:%s", a.WorkflowID)
}

// Handle adapts Accept to the router.Sink capability.
func (a *TemporalOrchestratorAdapter) Handle(ctx context.Context, item routing.WorkItem) error {
	return a.Accept(ctx, item)
}
