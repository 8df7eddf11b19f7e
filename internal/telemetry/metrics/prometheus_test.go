package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusProviderCounterIncrementsAndLabels(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{Registry: prom.NewRegistry()})
	c := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Namespace: "cogrouter", Name: "decisions_total", Labels: []string{"strategy"}}})

	c.Inc(1, "batch")
	c.Inc(2, "batch")

	require.NoError(t, p.Health(t.Context()))
}

func TestPrometheusProviderReusesRegisteredVecForSameName(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{Registry: prom.NewRegistry()})
	opts := CounterOpts{CommonOpts: CommonOpts{Namespace: "cogrouter", Name: "same_name", Labels: []string{"label"}}}

	first := p.NewCounter(opts)
	second := p.NewCounter(opts)

	first.Inc(1, "x")
	second.Inc(1, "x")
}

func TestPrometheusProviderInvalidNameFallsBackToNoop(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{Registry: prom.NewRegistry()})
	c := p.NewCounter(CounterOpts{CommonOpts: CommonOpts{Name: "not a valid metric name!"}})

	assert.NotPanics(t, func() { c.Inc(1) })
}

func TestPrometheusProviderGaugeSetAndAdd(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{Registry: prom.NewRegistry()})
	g := p.NewGauge(GaugeOpts{CommonOpts: CommonOpts{Namespace: "cogrouter", Name: "load"}})

	g.Set(0.5)
	g.Add(0.1)
}

func TestPrometheusProviderHistogramObserve(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{Registry: prom.NewRegistry()})
	h := p.NewHistogram(HistogramOpts{CommonOpts: CommonOpts{Namespace: "cogrouter", Name: "latency"}})

	assert.NotPanics(t, func() { h.Observe(0.02) })
}

func TestPrometheusProviderMetricsHandlerIsServeable(t *testing.T) {
	p := NewPrometheusProvider(PrometheusProviderOptions{Registry: prom.NewRegistry()})
	assert.NotNil(t, p.MetricsHandler())
}

func TestNoopProviderDiscardsEverything(t *testing.T) {
	p := NewNoopProvider()
	c := p.NewCounter(CounterOpts{})
	g := p.NewGauge(GaugeOpts{})
	h := p.NewHistogram(HistogramOpts{})

	assert.NotPanics(t, func() {
		c.Inc(1)
		g.Set(1)
		g.Add(1)
		h.Observe(1)
	})
	require.NoError(t, p.Health(t.Context()))
}
