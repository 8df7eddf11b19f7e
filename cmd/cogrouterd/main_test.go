package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	router "github.com/cogbandwidth/router"
	"github.com/cogbandwidth/router/internal/policyconfig"
	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/telemetry"
	"github.com/cogbandwidth/router/internal/workflow"
)

func telemetrySampleFor(t *testing.T) telemetry.Sample {
	t.Helper()
	return telemetry.Sample{
		Timestamp:            time.Now(),
		Keystrokes:           10,
		PagerEvents:          1,
		QueueDepthObserved:   2,
		CalendarBlockMinutes: 5,
	}
}

func newTestAPI(t *testing.T) (*api, *router.Service, *workflow.Engine) {
	t.Helper()
	engine := workflow.NewEngine()
	cfg := router.Defaults()
	svc, err := router.New(cfg)
	require.NoError(t, err)
	svc.RegisterSink(routing.StrategyBatch, workflow.EngineSink{Engine: engine})
	svc.RegisterSink(routing.StrategyImmediate, workflow.EngineSink{Engine: engine})
	return &api{mux: nil, svc: svc, engine: engine, log: nil}, svc, engine
}

func TestHandlePolicyGetReturnsCurrentDocument(t *testing.T) {
	a, svc, _ := newTestAPI(t)

	req := httptest.NewRequest("GET", "/policy", nil)
	rec := httptest.NewRecorder()
	a.handlePolicy(rec, req)

	require.Equal(t, 200, rec.Code)
	var doc policyconfig.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, svc.Policy().Thresholds(), doc.Thresholds)
}

func TestHandlePolicyPutAppliesValidUpdate(t *testing.T) {
	a, svc, _ := newTestAPI(t)

	doc := policyconfig.Document{Weights: routing.DefaultWeights(), Thresholds: routing.DefaultThresholds()}
	doc.Thresholds.ImmediateThreshold = 0.9

	body, err := json.Marshal(doc)
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/policy", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.handlePolicy(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, 0.9, svc.Policy().Thresholds().ImmediateThreshold)
}

func TestHandlePolicyPutRejectsInvalidThresholds(t *testing.T) {
	a, _, _ := newTestAPI(t)

	doc := policyconfig.Document{Weights: routing.DefaultWeights(), Thresholds: routing.DefaultThresholds()}
	doc.Thresholds.BatchThreshold = 2.0 // out of [0,1]

	body, err := json.Marshal(doc)
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/policy", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.handlePolicy(rec, req)

	assert.Equal(t, 400, rec.Code)
	var eb errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eb))
	assert.NotEmpty(t, eb.Kind)
}

func TestHandlePolicyRejectsMalformedBody(t *testing.T) {
	a, _, _ := newTestAPI(t)

	req := httptest.NewRequest("PUT", "/policy", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	a.handlePolicy(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestHandlePolicyRejectsUnsupportedMethod(t *testing.T) {
	a, _, _ := newTestAPI(t)

	req := httptest.NewRequest("DELETE", "/policy", nil)
	rec := httptest.NewRecorder()
	a.handlePolicy(rec, req)

	assert.Equal(t, 405, rec.Code)
}

func TestHandleTelemetryReturnsSummary(t *testing.T) {
	a, svc, _ := newTestAPI(t)
	svc.RecordTelemetry(telemetrySampleFor(t))

	req := httptest.NewRequest("GET", "/telemetry", nil)
	rec := httptest.NewRecorder()
	a.handleTelemetry(rec, req)

	require.Equal(t, 200, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "sample_count")
}

func TestHandleQueueReportsOverallAndPerStrategyDepth(t *testing.T) {
	a, _, engine := newTestAPI(t)
	engine.Accept(routing.WorkItem{
		Task:     routing.TaskIntent{TaskID: "q1"},
		Strategy: routing.StrategyBatch,
		Priority: 0.5,
	})

	req := httptest.NewRequest("GET", "/queue", nil)
	rec := httptest.NewRecorder()
	a.handleQueue(rec, req)

	require.Equal(t, 200, rec.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body["depth"])

	req2 := httptest.NewRequest("GET", "/queue?strategy=batch", nil)
	rec2 := httptest.NewRecorder()
	a.handleQueue(rec2, req2)
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &body))
	assert.Equal(t, 1, body["depth"])
}

func TestHandleTaskRoutesAndReturnsWorkItem(t *testing.T) {
	a, _, _ := newTestAPI(t)

	task := routing.TaskIntent{
		TaskID:          "http-task",
		Severity:        3,
		ModelConfidence: 0.65,
		SLORiskMinutes:  25,
	}
	body, err := json.Marshal(task)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/task", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.handleTask(rec, req)

	require.Equal(t, 200, rec.Code)
	var item routing.WorkItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, "http-task", item.Task.TaskID)
}

func TestHandleTaskRejectsMalformedBody(t *testing.T) {
	a, _, _ := newTestAPI(t)

	req := httptest.NewRequest("POST", "/task", bytes.NewReader([]byte("{bad")))
	rec := httptest.NewRecorder()
	a.handleTask(rec, req)

	assert.Equal(t, 400, rec.Code)
}

func TestNewAPIRoutesAllEndpoints(t *testing.T) {
	engine := workflow.NewEngine()
	svc, err := router.New(router.Defaults())
	require.NoError(t, err)
	handler := newAPI(svc, engine, nil)
	require.NotNil(t, handler)

	req := httptest.NewRequest("GET", "/telemetry", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}
