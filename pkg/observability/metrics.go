package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/alphasolve/alphasolve/pkg/config"
)

func InitMetrics(ctx context.Context, cfg config.MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("alphasolve")

	nodeDuration, err := meter.Float64Histogram(
		"alphasolve_node_run_duration_seconds",
		metric.WithDescription("Node run duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create node duration histogram: %w", err)
	}

	nodeRuns, err := meter.Int64Counter(
		"alphasolve_node_runs_total",
		metric.WithDescription("Total node runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create node runs counter: %w", err)
	}

	nodeErrors, err := meter.Int64Counter(
		"alphasolve_node_errors_total",
		metric.WithDescription("Total node errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create node errors counter: %w", err)
	}

	toolDuration, err := meter.Float64Histogram(
		"alphasolve_tool_execution_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool duration histogram: %w", err)
	}

	toolCalls, err := meter.Int64Counter(
		"alphasolve_tool_calls_total",
		metric.WithDescription("Total tool calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	toolErrors, err := meter.Int64Counter(
		"alphasolve_tool_errors_total",
		metric.WithDescription("Total tool errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool errors counter: %w", err)
	}

	llmDuration, err := meter.Float64Histogram(
		"alphasolve_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	llmInputTokens, err := meter.Int64Counter(
		"alphasolve_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to the LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	llmOutputTokens, err := meter.Int64Counter(
		"alphasolve_llm_tokens_output_total",
		metric.WithDescription("Total output tokens from the LLM"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	llmErrors, err := meter.Int64Counter(
		"alphasolve_llm_errors_total",
		metric.WithDescription("Total LLM errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	lemmas, err := meter.Int64Counter(
		"alphasolve_lemmas_total",
		metric.WithDescription("Lemma lifecycle events by type"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lemmas counter: %w", err)
	}

	workerRuns, err := meter.Int64Counter(
		"alphasolve_worker_runs_total",
		metric.WithDescription("Completed worker runs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker runs counter: %w", err)
	}

	return NewPrometheusMetrics(
		nodeDuration,
		nodeRuns,
		nodeErrors,
		toolDuration,
		toolCalls,
		toolErrors,
		llmDuration,
		llmInputTokens,
		llmOutputTokens,
		llmErrors,
		lemmas,
		workerRuns,
	), nil
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer serves /metrics on the configured port. The returned
// server is already listening; shut it down with http.Server.Shutdown.
func StartMetricsServer(cfg config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()

	return srv
}
