package observability

import (
	"context"
	"time"
)

// NoopMetrics is a metrics implementation that does nothing. It is the
// recorder of choice when observability is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordNodeRun(_ context.Context, _ string, _ time.Duration, _ error) {}

func (NoopMetrics) RecordToolExecution(_ context.Context, _ string, _ time.Duration, _ error) {}

func (NoopMetrics) RecordLLMCall(_ context.Context, _ string, _ time.Duration, _, _ int, _ error) {}

func (NoopMetrics) RecordLemma(_ context.Context, _ string) {}

func (NoopMetrics) RecordWorkerRun(_ context.Context, _ string) {}

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = NoopMetrics{}
)
