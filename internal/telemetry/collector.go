// Package telemetry implements the rolling-window interaction aggregator
// described in spec §4.1. It follows the teacher's sharded/mutex-guarded
// state style (engine/internal/ratelimit.AdaptiveRateLimiter) but needs
// only a single lock since the window is small and record/summary are
// the only mutators.
package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/cogbandwidth/router/internal/routingerr"
)

// Sample is one observation of operator interaction (spec §3 TelemetrySample).
type Sample struct {
	Timestamp            time.Time
	Keystrokes           int
	PagerEvents          int
	QueueDepthObserved   int
	CalendarBlockMinutes float64
}

// Summary is the derived aggregate emitted by the collector (spec §3
// TelemetrySummary).
type Summary struct {
	KeystrokeRate     float64 `json:"keystroke_rate" yaml:"keystroke_rate"`
	PagerRate         float64 `json:"pager_rate" yaml:"pager_rate"`
	QueueDepth        float64 `json:"queue_depth" yaml:"queue_depth"`
	CalendarLoadRatio float64 `json:"calendar_load_ratio" yaml:"calendar_load_ratio"`
	SampleCount       int     `json:"sample_count" yaml:"sample_count"`
}

// Collector maintains a time-bounded ordered sequence of samples and
// derives a Summary on demand. The window is sized as a duration rather
// than a fixed-capacity ring buffer because sample arrival rate is not
// bounded by a fixed tick — a sorted slice with lazy eviction is the
// cheapest correct implementation per the Design Notes (§9).
type Collector struct {
	mu      sync.Mutex
	window  time.Duration
	samples []Sample
	latest  time.Time
}

// NewCollector creates a Collector retaining samples within window.
func NewCollector(window time.Duration) *Collector {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &Collector{window: window}
}

// Record appends a sample, accepting out-of-order arrivals (inserted in
// timestamp order) and evicting anything older than the latest recorded
// timestamp minus the window, so an old out-of-order sample never evicts
// newer ones. Negative counts are rejected with InvalidArgument.
func (c *Collector) Record(sample Sample) error {
	if sample.Keystrokes < 0 || sample.PagerEvents < 0 || sample.QueueDepthObserved < 0 {
		return routingerr.New(routingerr.KindInvalidArgument, "telemetry sample counts must be non-negative")
	}
	if sample.CalendarBlockMinutes < 0 {
		return routingerr.New(routingerr.KindInvalidArgument, "calendar_block_minutes must be non-negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := sort.Search(len(c.samples), func(i int) bool {
		return c.samples[i].Timestamp.After(sample.Timestamp)
	})
	c.samples = append(c.samples, Sample{})
	copy(c.samples[idx+1:], c.samples[idx:])
	c.samples[idx] = sample

	if sample.Timestamp.After(c.latest) {
		c.latest = sample.Timestamp
	}
	c.evictLocked(c.latest)
	return nil
}

// Summary evicts anything stale relative to now, then computes the
// normalized rates over the remaining window.
func (c *Collector) Summary(now time.Time) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictLocked(now)
	if len(c.samples) == 0 {
		return Summary{}
	}

	windowMinutes := c.window.Minutes()
	if windowMinutes <= 0 {
		windowMinutes = 1
	}

	var keystrokes, pagerEvents int
	var depthSum, calendarRatioSum float64
	for _, s := range c.samples {
		keystrokes += s.Keystrokes
		pagerEvents += s.PagerEvents
		depthSum += float64(s.QueueDepthObserved)
		ratio := s.CalendarBlockMinutes / 60.0
		if ratio > 1 {
			ratio = 1
		}
		if ratio < 0 {
			ratio = 0
		}
		calendarRatioSum += ratio
	}
	n := float64(len(c.samples))

	return Summary{
		KeystrokeRate:     float64(keystrokes) / windowMinutes,
		PagerRate:         float64(pagerEvents) / windowMinutes,
		QueueDepth:        depthSum / n,
		CalendarLoadRatio: calendarRatioSum / n,
		SampleCount:       len(c.samples),
	}
}

// evictLocked removes samples older than now-window. Caller must hold mu.
func (c *Collector) evictLocked(now time.Time) {
	cutoff := now.Add(-c.window)
	i := 0
	for i < len(c.samples) && c.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.samples = append(c.samples[:0], c.samples[i:]...)
	}
}
