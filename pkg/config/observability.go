package config

import "fmt"

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" jsonschema:"title=Metrics,description=Prometheus metrics endpoint"`

	// Tracing configures the OTLP trace exporter.
	Tracing TracingConfig `yaml:"tracing,omitempty" json:"tracing,omitempty" jsonschema:"title=Tracing,description=OTLP trace export"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP endpoint.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Enable metrics,default=false"`

	// Port for the /metrics HTTP endpoint.
	Port int `yaml:"port,omitempty" json:"port,omitempty" jsonschema:"title=Port,description=Metrics HTTP port,minimum=1,maximum=65535,default=9090"`
}

// TracingConfig configures the OTLP gRPC trace exporter.
type TracingConfig struct {
	// Enabled turns on span export.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Enable tracing,default=false"`

	// Endpoint is the OTLP gRPC collector endpoint.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" jsonschema:"title=Endpoint,description=OTLP gRPC collector endpoint,default=localhost:4317"`

	// ServiceName identifies this process in traces.
	ServiceName string `yaml:"service_name,omitempty" json:"service_name,omitempty" jsonschema:"title=Service Name,description=Service name in traces,default=alphasolve"`

	// SamplingRate is the trace sampling ratio in [0, 1].
	SamplingRate float64 `yaml:"sampling_rate,omitempty" json:"sampling_rate,omitempty" jsonschema:"title=Sampling Rate,description=Trace sampling ratio,minimum=0,maximum=1,default=1"`
}

// SetDefaults applies default values.
func (c *ObservabilityConfig) SetDefaults() {
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4317"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "alphasolve"
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 1.0
	}
}

// Validate checks the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing.sampling_rate must be between 0 and 1")
	}
	return nil
}
