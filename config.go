package router

import (
	"log/slog"
	"time"

	"github.com/cogbandwidth/router/internal/attention"
	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/telemetry/metrics"
	"github.com/cogbandwidth/router/internal/telemetry/tracing"
)

// Config is the public configuration surface for the Service facade. It
// narrows and normalizes the underlying component configs, mirroring the
// teacher engine's Config (engine/config.go): a flat struct of tunables
// plus a Defaults() constructor, rather than a builder chain.
type Config struct {
	// TelemetryWindow bounds how long interaction samples are retained.
	TelemetryWindow time.Duration

	// SoftCaps and AttentionWeights parameterize the Attention Model.
	SoftCaps         attention.SoftCaps
	AttentionWeights attention.Weights

	// RoutingWeights and RoutingThresholds parameterize the initial
	// RoutingPolicy; later replaced wholesale via UpdatePolicy.
	RoutingWeights    routing.Weights
	RoutingThresholds routing.Thresholds

	// ContextProviders are composed into a single attention.CompositeProvider.
	ContextProviders []attention.Provider

	// MetricsProvider records the decision and sink-error counters and the
	// attention-load gauge. A nil value
	// falls back to metrics.NewNoopProvider().
	MetricsProvider metrics.Provider

	// TracingEnabled wraps HandleTask in a span via the internal tracer.
	TracingEnabled bool

	// OTelServiceName, when non-empty, upgrades the internal tracer to a
	// real OpenTelemetry TracerProvider tagged with this service name
	// (and OTelEnvironment), instead of the lightweight in-process tracer.
	// TracingEnabled must also be true.
	OTelServiceName string
	OTelEnvironment string

	// Logger receives structured logs for provider/sink failures. A nil
	// value falls back to slog.Default().
	Logger *slog.Logger
}

// Defaults returns a Config with the weights/thresholds pinned to the
// documented default policy and an empty provider set.
func Defaults() Config {
	return Config{
		TelemetryWindow:   10 * time.Minute,
		SoftCaps:          attention.DefaultSoftCaps(),
		AttentionWeights:  attention.DefaultWeights(),
		RoutingWeights:    routing.DefaultWeights(),
		RoutingThresholds: routing.DefaultThresholds(),
		MetricsProvider:   metrics.NewNoopProvider(),
		TracingEnabled:    false,
	}
}

func (c Config) tracer() tracing.Tracer {
	if !c.TracingEnabled {
		return tracing.NewTracer(false)
	}
	if c.OTelServiceName != "" {
		environment := c.OTelEnvironment
		if environment == "" {
			environment = "development"
		}
		return tracing.NewOTelTracer(c.OTelServiceName, environment)
	}
	return tracing.NewTracer(true)
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) metricsProvider() metrics.Provider {
	if c.MetricsProvider != nil {
		return c.MetricsProvider
	}
	return metrics.NewNoopProvider()
}

func (c Config) contextProvider() attention.Provider {
	if len(c.ContextProviders) == 0 {
		return attention.StaticProvider{}
	}
	return attention.CompositeProvider{Providers: c.ContextProviders}
}
