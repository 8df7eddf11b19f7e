// Package attention implements the Attention Model (spec §4.3) and its
// Context Providers (spec §4.2): a pure scoring function of telemetry and
// availability signals, polymorphic over a single-method capability
// interface the way the teacher consolidates its extension points in
// strategies.go (Fetcher/Processor/OutputSink).
package attention

import "time"

// Context is the set of availability signals beyond raw telemetry (spec §3
// AttentionContext).
type Context struct {
	QueueDepth        int     `json:"queue_depth" yaml:"queue_depth"`
	CalendarLoad      float64 `json:"calendar_load" yaml:"calendar_load"`
	ContextSwitchRate float64 `json:"context_switch_rate" yaml:"context_switch_rate"`
}

// Provider is the single capability every context source implements:
// snapshot the operator's availability as of now. Providers that fail
// internally must return a zero Context rather than propagate an error —
// the Router never blocks on a misbehaving provider (spec §6, §7
// ProviderFailure).
type Provider interface {
	Snapshot(now time.Time) Context
}

// StaticProvider always returns a fixed context. Useful for tests and for
// operators who want to pin availability (e.g. "assume I'm always free").
type StaticProvider struct {
	Context Context
}

func (p StaticProvider) Snapshot(time.Time) Context { return p.Context }

// CallableProvider delegates to a supplied function, absorbing a panic or
// nil func the same way other providers absorb failure.
type CallableProvider struct {
	Fn func(now time.Time) Context
}

func (p CallableProvider) Snapshot(now time.Time) (ctx Context) {
	if p.Fn == nil {
		return Context{}
	}
	defer func() {
		if recover() != nil {
			ctx = Context{}
		}
	}()
	return p.Fn(now)
}

// QueueDepthReader is the narrow capability a Queue-aware provider needs
// from the Workflow Engine: the current total queue depth. Defined here
// rather than importing the workflow package, so attention has no
// dependency on workflow (workflow depends on attention instead, and
// satisfies this interface implicitly).
type QueueDepthReader interface {
	Depth() int
}

// QueueAwareProvider reads current depth from a Workflow Engine handle and
// reports it as QueueDepth, leaving the other axes at zero. This is the
// provider responsible for the queue/load feedback loop in spec §4.7.
type QueueAwareProvider struct {
	Queue QueueDepthReader
}

func (p QueueAwareProvider) Snapshot(time.Time) (ctx Context) {
	if p.Queue == nil {
		return Context{}
	}
	defer func() {
		if recover() != nil {
			ctx = Context{}
		}
	}()
	return Context{QueueDepth: p.Queue.Depth()}
}

// CalendarAdapter is the narrow external-calendar capability a
// Calendar-aware provider needs: minutes of meetings blocked within the
// next hour from now. Implementations live outside this module's scope
// (spec §1/§6 — third-party calendar APIs are pluggable collaborators).
type CalendarAdapter interface {
	BusyMinutesNextHour(now time.Time) (float64, error)
}

// CalendarAwareProvider queries an external calendar adapter for minutes
// blocked within the next hour. Adapter errors and panics are absorbed into
// a zero context (ProviderFailure). They are not logged: this type has no
// logger dependency by design, matching the teacher's preference for pure
// leaf components, and its callers receive only the zero context.
type CalendarAwareProvider struct {
	Adapter CalendarAdapter
}

func (p CalendarAwareProvider) Snapshot(now time.Time) (ctx Context) {
	if p.Adapter == nil {
		return Context{}
	}
	defer func() {
		if recover() != nil {
			ctx = Context{}
		}
	}()
	minutes, err := p.Adapter.BusyMinutesNextHour(now)
	if err != nil {
		return Context{}
	}
	ratio := minutes / 60.0
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return Context{CalendarLoad: ratio}
}

// CompositeProvider combines N providers per spec §4.2: queue_depth and
// calendar_load take the max across children, context_switch_rate sums.
// These combination rules are contractual and covered by tests.
type CompositeProvider struct {
	Providers []Provider
}

func (p CompositeProvider) Snapshot(now time.Time) Context {
	var combined Context
	for _, child := range p.Providers {
		if child == nil {
			continue
		}
		c := child.Snapshot(now)
		if c.QueueDepth > combined.QueueDepth {
			combined.QueueDepth = c.QueueDepth
		}
		if c.CalendarLoad > combined.CalendarLoad {
			combined.CalendarLoad = c.CalendarLoad
		}
		combined.ContextSwitchRate += c.ContextSwitchRate
	}
	return combined
}
