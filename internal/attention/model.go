package attention

import "github.com/cogbandwidth/router/internal/telemetry"

// SoftCaps holds the saturating caps each raw signal is normalized against
// before weighting (spec §4.3). Zero or negative fields fall back to
// DefaultSoftCaps() values when NewModel builds a Model, the same way the
// teacher's TelemetryPolicy.Normalize() backfills zeros.
type SoftCaps struct {
	KeystrokesPerMinute      float64
	PagerEventsPerMinute     float64
	QueueDepth               float64
	CalendarLoad             float64
	ContextSwitchesPerMinute float64
}

// DefaultSoftCaps returns the caps adopted from observed sample outputs
// (spec §9 Open Questions: exact defaults are source-ambiguous, these are
// the adopted values).
func DefaultSoftCaps() SoftCaps {
	return SoftCaps{
		KeystrokesPerMinute:      120,
		PagerEventsPerMinute:     4,
		QueueDepth:               10,
		CalendarLoad:             1.0,
		ContextSwitchesPerMinute: 6,
	}
}

func (c SoftCaps) normalize() SoftCaps {
	d := DefaultSoftCaps()
	if c.KeystrokesPerMinute <= 0 {
		c.KeystrokesPerMinute = d.KeystrokesPerMinute
	}
	if c.PagerEventsPerMinute <= 0 {
		c.PagerEventsPerMinute = d.PagerEventsPerMinute
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = d.QueueDepth
	}
	if c.CalendarLoad <= 0 {
		c.CalendarLoad = d.CalendarLoad
	}
	if c.ContextSwitchesPerMinute <= 0 {
		c.ContextSwitchesPerMinute = d.ContextSwitchesPerMinute
	}
	return c
}

// Weights holds the per-axis contribution to the combined load score.
// NewModel rescales them to sum to 1 (all-zero weights fall back to
// DefaultWeights()), the same way routing.New normalizes policy weights on
// construction.
type Weights struct {
	Keystrokes    float64
	PagerEvents   float64
	QueueDepth    float64
	CalendarLoad  float64
	ContextSwitch float64
}

// DefaultWeights splits contribution equally across the five axes (spec §4.3).
func DefaultWeights() Weights {
	return Weights{Keystrokes: 0.2, PagerEvents: 0.2, QueueDepth: 0.2, CalendarLoad: 0.2, ContextSwitch: 0.2}
}

func (w Weights) normalize() Weights {
	sum := w.Keystrokes + w.PagerEvents + w.QueueDepth + w.CalendarLoad + w.ContextSwitch
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Keystrokes:    w.Keystrokes / sum,
		PagerEvents:   w.PagerEvents / sum,
		QueueDepth:    w.QueueDepth / sum,
		CalendarLoad:  w.CalendarLoad / sum,
		ContextSwitch: w.ContextSwitch / sum,
	}
}

// Model is the pure function mapping (TelemetrySummary, Context) to a load
// scalar in [0,1]. It never blocks and never performs I/O (spec §5).
type Model struct {
	weights  Weights
	softCaps SoftCaps
}

// NewModel builds a Model with normalized weights and backfilled soft caps.
func NewModel(weights Weights, caps SoftCaps) Model {
	return Model{weights: weights.normalize(), softCaps: caps.normalize()}
}

// Load computes the combined attention load. Each raw signal is first
// saturated into [0,1] via saturate(v, cap), then combined by the weighted
// sum and clamped. Monotone non-decreasing in every raw signal by
// construction (weights and saturation are both non-decreasing in v).
func (m Model) Load(summary telemetry.Summary, ctx Context) float64 {
	partial := struct{ keystrokes, pager, queue, calendar, switches float64 }{
		keystrokes: saturate(summary.KeystrokeRate, m.softCaps.KeystrokesPerMinute),
		pager:      saturate(summary.PagerRate, m.softCaps.PagerEventsPerMinute),
		queue:      saturate(float64(ctx.QueueDepth), m.softCaps.QueueDepth),
		calendar:   saturate(ctx.CalendarLoad, m.softCaps.CalendarLoad),
		switches:   saturate(ctx.ContextSwitchRate, m.softCaps.ContextSwitchesPerMinute),
	}

	load := m.weights.Keystrokes*partial.keystrokes +
		m.weights.PagerEvents*partial.pager +
		m.weights.QueueDepth*partial.queue +
		m.weights.CalendarLoad*partial.calendar +
		m.weights.ContextSwitch*partial.switches

	return clamp01(load)
}

// saturate maps a raw value v against soft cap c into [0,1]: min(1, v/c).
func saturate(v, cap float64) float64 {
	if cap <= 0 {
		cap = 1
	}
	if v <= 0 {
		return 0
	}
	r := v / cap
	if r > 1 {
		return 1
	}
	return r
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
