// Command cogrouterd hosts a Service behind the policy endpoint described
// in spec §6: GET/PUT /policy, GET /telemetry, GET /queue, POST /task.
// Structured like the teacher's cli/cmd/ariadne front end (flag-based
// config, net/http, no framework) but serving the router's own surface
// instead of crawl seeds.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	router "github.com/cogbandwidth/router"
	"github.com/cogbandwidth/router/internal/attention"
	"github.com/cogbandwidth/router/internal/policyconfig"
	"github.com/cogbandwidth/router/internal/routing"
	"github.com/cogbandwidth/router/internal/routingerr"
	"github.com/cogbandwidth/router/internal/telemetry/metrics"
	"github.com/cogbandwidth/router/internal/workflow"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		addr            string
		policyPath      string
		metricsAddr     string
		enableMetrics   bool
		enableTracing   bool
		otelServiceName string
		otelEnvironment string
		telemetryWindow time.Duration
	)
	flag.StringVar(&addr, "addr", ":8080", "listen address for the policy endpoint")
	flag.StringVar(&policyPath, "policy-file", "", "optional YAML policy file to load and hot-reload")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics (empty disables)")
	flag.BoolVar(&enableMetrics, "enable-metrics", false, "enable the Prometheus metrics provider")
	flag.BoolVar(&enableTracing, "enable-tracing", false, "enable the internal span tracer")
	flag.StringVar(&otelServiceName, "otel-service-name", "", "upgrade tracing to a real OpenTelemetry TracerProvider tagged with this service name")
	flag.StringVar(&otelEnvironment, "otel-environment", "development", "deployment environment tag for the OpenTelemetry resource")
	flag.DurationVar(&telemetryWindow, "telemetry-window", 10*time.Minute, "telemetry rolling window")
	flag.Parse()

	logger := slog.Default()

	cfg := router.Defaults()
	cfg.TelemetryWindow = telemetryWindow
	cfg.TracingEnabled = enableTracing
	cfg.OTelServiceName = otelServiceName
	cfg.OTelEnvironment = otelEnvironment
	cfg.Logger = logger

	var metricsProvider metrics.Provider = metrics.NewNoopProvider()
	if enableMetrics {
		prom := metrics.NewPrometheusProvider(metrics.PrometheusProviderOptions{})
		metricsProvider = prom
		if metricsAddr != "" {
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", prom.MetricsHandler())
				logger.Info("serving metrics", "addr", metricsAddr)
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Error("metrics server stopped", "error", err)
				}
			}()
		}
	}
	cfg.MetricsProvider = metricsProvider

	if policyPath != "" {
		policy, err := policyconfig.Load(policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load policy file: %v\n", err)
			return 2
		}
		cfg.RoutingWeights = policy.Weights()
		cfg.RoutingThresholds = policy.Thresholds()
	}

	engine := workflow.NewEngine()
	cfg.ContextProviders = []attention.Provider{attention.QueueAwareProvider{Queue: engine}}

	svc, err := router.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "construct router: %v\n", err)
		return 2
	}
	svc.RegisterSink(routing.StrategyImmediate, workflow.EngineSink{Engine: engine})
	svc.RegisterSink(routing.StrategyBatch, workflow.EngineSink{Engine: engine})

	if policyPath != "" {
		watcher, err := policyconfig.NewWatcher(policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "watch policy file: %v\n", err)
			return 2
		}
		if err := watcher.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "start policy watcher: %v\n", err)
			return 2
		}
		defer watcher.Stop()
		go func() {
			for {
				select {
				case change, ok := <-watcher.Changes():
					if !ok {
						return
					}
					if err := svc.UpdatePolicy(change.Policy.Weights(), change.Policy.Thresholds()); err != nil {
						logger.Error("reject hot-reloaded policy", "error", err)
					} else {
						logger.Info("applied hot-reloaded policy", "checksum", change.Checksum)
					}
				case err, ok := <-watcher.Errors():
					if !ok {
						return
					}
					logger.Warn("policy watcher error", "error", err)
				}
			}
		}()
	}

	server := &http.Server{Addr: addr, Handler: newAPI(svc, engine, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return 0
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "serve: %v\n", err)
			return 1
		}
	}
	return 0
}

// api hosts the policy endpoint handlers.
type api struct {
	mux    *http.ServeMux
	svc    *router.Service
	engine *workflow.Engine
	log    *slog.Logger
}

func newAPI(svc *router.Service, engine *workflow.Engine, log *slog.Logger) http.Handler {
	a := &api{mux: http.NewServeMux(), svc: svc, engine: engine, log: log}
	a.mux.HandleFunc("/policy", a.handlePolicy)
	a.mux.HandleFunc("/telemetry", a.handleTelemetry)
	a.mux.HandleFunc("/queue", a.handleQueue)
	a.mux.HandleFunc("/task", a.handleTask)
	return a.mux
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) { a.mux.ServeHTTP(w, r) }

func (a *api) handlePolicy(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		policy := a.svc.Policy()
		writeJSON(w, http.StatusOK, policyconfig.Document{Weights: policy.Weights(), Thresholds: policy.Thresholds()})
	case http.MethodPut:
		var doc policyconfig.Document
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			writeError(w, http.StatusBadRequest, routingerr.Wrap(routingerr.KindInvalidArgument, "decode policy body", err))
			return
		}
		if err := a.svc.UpdatePolicy(doc.Weights, doc.Thresholds); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *api) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, a.svc.TelemetrySummary(time.Now()))
}

func (a *api) handleQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	strategy := routing.Strategy(r.URL.Query().Get("strategy"))
	if strategy == "" {
		writeJSON(w, http.StatusOK, map[string]int{"depth": a.engine.Depth()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"depth": a.engine.DepthByStrategy(strategy)})
}

func (a *api) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var task routing.TaskIntent
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeError(w, http.StatusBadRequest, routingerr.Wrap(routingerr.KindInvalidArgument, "decode task body", err))
		return
	}
	item, err := a.svc.HandleTask(r.Context(), task)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Kind: routingerr.KindOf(err).String(), Message: err.Error()})
}
