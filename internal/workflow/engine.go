// Package workflow implements the Workflow Engine (spec §4.7): an
// in-memory, per-strategy queue of accepted WorkItems that also serves as
// a Queue-aware Context Provider, closing the feedback loop described in
// spec §4.2/§4.7. Locking follows the teacher ratelimit package's
// mutex-guarded shard style (engine/internal/ratelimit.AdaptiveRateLimiter)
// scaled down to the two human-facing queues this engine actually needs.
package workflow

import (
	"sync"

	"github.com/cogbandwidth/router/internal/routing"
)

// Engine holds accepted WorkItems in per-strategy queues. Only immediate
// and batch strategies are queued for human action; auto and park items
// are recorded (for idempotency bookkeeping) but never enqueued, so they
// never count toward Depth.
type Engine struct {
	mu     sync.Mutex
	queues map[routing.Strategy][]routing.WorkItem
	seen   map[string]routing.Strategy
}

// NewEngine returns an empty Engine.
func NewEngine() *Engine {
	return &Engine{
		queues: make(map[routing.Strategy][]routing.WorkItem),
		seen:   make(map[string]routing.Strategy),
	}
}

// Accept records item, idempotent on item.Task.TaskID (spec §4.7 accept).
// auto and park items are recorded in seen but not appended to a queue, so
// Depth only reflects strategies awaiting human action.
func (e *Engine) Accept(item routing.WorkItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.seen[item.Task.TaskID]; ok {
		return
	}
	e.seen[item.Task.TaskID] = item.Strategy

	if item.Strategy != routing.StrategyImmediate && item.Strategy != routing.StrategyBatch {
		return
	}
	e.queues[item.Strategy] = append(e.queues[item.Strategy], item)
}

// Depth returns the total queued depth across immediate+batch (spec §4.7
// depth() with no strategy argument). This also satisfies
// attention.QueueDepthReader, which is how the feedback loop in spec
// §4.2/§4.7 is wired: a QueueAwareProvider holds an Engine as its Queue.
func (e *Engine) Depth() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0
	for _, q := range e.queues {
		total += len(q)
	}
	return total
}

// DepthByStrategy returns the queue depth for a single strategy (spec
// §4.7 depth(strategy)).
func (e *Engine) DepthByStrategy(strategy routing.Strategy) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queues[strategy])
}

// Next peeks the next WorkItem for strategy without removing it (spec
// §4.7 next). For immediate, the highest-priority item wins, ties broken
// by arrival order (earliest wins, since ties leave the lower index first
// encountered); for batch, strict FIFO.
func (e *Engine) Next(strategy routing.Strategy) (routing.WorkItem, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := e.queues[strategy]
	if len(q) == 0 {
		return routing.WorkItem{}, false
	}
	if strategy != routing.StrategyImmediate {
		return q[0], true
	}

	best := 0
	for i := 1; i < len(q); i++ {
		if q[i].Priority > q[best].Priority {
			best = i
		}
	}
	return q[best], true
}

// Complete removes the item identified by taskID from whichever queue
// currently holds it (spec §4.7 complete). A no-op if the task is unknown
// or was never queued (auto/park items).
func (e *Engine) Complete(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	strategy, ok := e.seen[taskID]
	if !ok {
		return
	}
	delete(e.seen, taskID)

	q := e.queues[strategy]
	for i, item := range q {
		if item.Task.TaskID == taskID {
			e.queues[strategy] = append(q[:i], q[i+1:]...)
			return
		}
	}
}
