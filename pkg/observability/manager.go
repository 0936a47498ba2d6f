package observability

import (
	"context"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/alphasolve/alphasolve/pkg/config"
)

type Manager struct {
	tracerProvider trace.TracerProvider
	metrics        Metrics
	metricsServer  *http.Server
	config         config.ObservabilityConfig
	mu             sync.RWMutex
}

func NewManager(cfg config.ObservabilityConfig) *Manager {
	return &Manager{
		config: cfg,
	}
}

func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := InitGlobalTracer(ctx, m.config.Tracing)
	if err != nil {
		return err
	}
	m.tracerProvider = tp

	metrics, err := InitMetrics(ctx, m.config.Metrics)
	if err != nil {
		return err
	}
	m.metrics = metrics

	SetGlobalMetrics(m.metrics)

	if m.config.Metrics.Enabled {
		m.metricsServer = StartMetricsServer(m.config.Metrics)
	}

	return nil
}

func (m *Manager) GetTracer(name string) trace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracerProvider.Tracer(name)
}

func (m *Manager) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}

func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(ctx); err != nil {
			return err
		}
		m.metricsServer = nil
	}

	if spt, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		return spt.Shutdown(ctx)
	}
	return nil
}
