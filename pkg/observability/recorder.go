package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

// Lemma lifecycle events recorded by RecordLemma.
const (
	LemmaEventCreated  = "created"
	LemmaEventVerified = "verified"
	LemmaEventRejected = "rejected"
)

// Worker run outcomes recorded by RecordWorkerRun.
const (
	WorkerOutcomeSolved   = "solved"
	WorkerOutcomeUnsolved = "unsolved"
	WorkerOutcomeError    = "error"
)

type Metrics interface {
	RecordNodeRun(ctx context.Context, node string, duration time.Duration, err error)
	RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error)
	RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error)
	RecordLemma(ctx context.Context, event string)
	RecordWorkerRun(ctx context.Context, outcome string)
}

type PrometheusMetrics struct {
	nodeDuration    metric.Float64Histogram
	nodeRunsTotal   metric.Int64Counter
	nodeErrorsTotal metric.Int64Counter

	toolDuration    metric.Float64Histogram
	toolCallsTotal  metric.Int64Counter
	toolErrorsTotal metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrorsTotal  metric.Int64Counter

	lemmasTotal     metric.Int64Counter
	workerRunsTotal metric.Int64Counter
}

func NewPrometheusMetrics(
	nodeDuration metric.Float64Histogram,
	nodeRunsTotal metric.Int64Counter,
	nodeErrorsTotal metric.Int64Counter,
	toolDuration metric.Float64Histogram,
	toolCallsTotal metric.Int64Counter,
	toolErrorsTotal metric.Int64Counter,
	llmDuration metric.Float64Histogram,
	llmInputTokens metric.Int64Counter,
	llmOutputTokens metric.Int64Counter,
	llmErrorsTotal metric.Int64Counter,
	lemmasTotal metric.Int64Counter,
	workerRunsTotal metric.Int64Counter,
) *PrometheusMetrics {
	return &PrometheusMetrics{
		nodeDuration:    nodeDuration,
		nodeRunsTotal:   nodeRunsTotal,
		nodeErrorsTotal: nodeErrorsTotal,
		toolDuration:    toolDuration,
		toolCallsTotal:  toolCallsTotal,
		toolErrorsTotal: toolErrorsTotal,
		llmDuration:     llmDuration,
		llmInputTokens:  llmInputTokens,
		llmOutputTokens: llmOutputTokens,
		llmErrorsTotal:  llmErrorsTotal,
		lemmasTotal:     lemmasTotal,
		workerRunsTotal: workerRunsTotal,
	}
}

func (m *PrometheusMetrics) RecordNodeRun(ctx context.Context, node string, duration time.Duration, err error) {
	if m == nil || m.nodeDuration == nil || m.nodeRunsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("node", node),
	}

	m.nodeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.nodeRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.nodeErrorsTotal != nil {
		m.nodeErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil || m.toolDuration == nil || m.toolCallsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("tool", tool),
	}

	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.toolCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if err != nil && m.toolErrorsTotal != nil {
		m.toolErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil || m.llmDuration == nil || m.llmInputTokens == nil || m.llmOutputTokens == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("model", model),
	}

	m.llmDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.llmInputTokens.Add(ctx, int64(inputTokens), metric.WithAttributes(attrs...))
	m.llmOutputTokens.Add(ctx, int64(outputTokens), metric.WithAttributes(attrs...))

	if err != nil && m.llmErrorsTotal != nil {
		m.llmErrorsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *PrometheusMetrics) RecordLemma(ctx context.Context, event string) {
	if m == nil || m.lemmasTotal == nil {
		return
	}

	m.lemmasTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
	))
}

func (m *PrometheusMetrics) RecordWorkerRun(ctx context.Context, outcome string) {
	if m == nil || m.workerRunsTotal == nil {
		return
	}

	m.workerRunsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
