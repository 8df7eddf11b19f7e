package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cogbandwidth/router/internal/attention"
)

func TestDefaultsIsConstructible(t *testing.T) {
	cfg := Defaults()
	svc, err := New(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestContextProviderFallsBackToStaticWhenEmpty(t *testing.T) {
	cfg := Defaults()
	_, ok := cfg.contextProvider().(attention.StaticProvider)
	assert.True(t, ok)
}

func TestContextProviderComposesMultipleProviders(t *testing.T) {
	cfg := Defaults()
	cfg.ContextProviders = []attention.Provider{
		attention.StaticProvider{Context: attention.Context{QueueDepth: 1}},
		attention.StaticProvider{Context: attention.Context{QueueDepth: 2}},
	}
	_, ok := cfg.contextProvider().(attention.CompositeProvider)
	assert.True(t, ok)
}

func TestLoggerFallsBackWhenNil(t *testing.T) {
	cfg := Defaults()
	assert.NotNil(t, cfg.logger())
}

func TestMetricsProviderFallsBackWhenNil(t *testing.T) {
	cfg := Config{}
	assert.NotNil(t, cfg.metricsProvider())
}
