package telemetry

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/validator"
)

// ConfigKey is the configuration section read by the bridge.
const ConfigKey = "opentelemetry"

// EnvPrefix prefixes the environment variables of EnvBindings.
const EnvPrefix = "JGROUPS_OPENTELEMETRY"

const (
	ExporterOTLP     = "otlp"
	ExporterOTLPHTTP = "otlphttp"
	ExporterStdout   = "stdout"
	ExporterNoop     = "noop"
)

// Config configures the OPENTELEMETRY bridge.
type Config struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`

	// ScopeName is the instrumentation scope of the meter.
	ScopeName                  string `mapstructure:"scope_name" json:"scope_name"`
	ExposeConfigurationMetrics bool   `mapstructure:"expose_configuration_metrics" json:"expose_configuration_metrics"`
	// CountersAsGauges reports cumulative counts as gauges for backends
	// that cannot handle cumulative sums.
	CountersAsGauges bool `mapstructure:"counters_as_gauges" json:"counters_as_gauges"`

	ServiceName    string         `mapstructure:"service_name" json:"service_name"`
	ServiceVersion string         `mapstructure:"service_version" json:"service_version"`
	ResourceAttrs  map[string]any `mapstructure:"resource_attributes" json:"resource_attributes"` // nested maps are flattened with dots

	// Exporter is used only when the bridge builds its own provider, see Component.
	Exporter       ExporterConfig       `mapstructure:"exporter" json:"exporter"`
	ExportInterval time.Duration        `mapstructure:"export_interval" json:"export_interval"`
	ExportTimeout  time.Duration        `mapstructure:"export_timeout" json:"export_timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker" json:"circuit_breaker"`

	EnableMessageSizeHistogram bool `mapstructure:"enable_message_size_histogram" json:"enable_message_size_histogram"`
	// UseTotalSize records the serialized size, headers included, instead of the payload length.
	UseTotalSize bool `mapstructure:"use_total_size" json:"use_total_size"`
}

type ExporterConfig struct {
	Type     string            `mapstructure:"type" json:"type"`         // otlp, otlphttp or stdout
	Endpoint string            `mapstructure:"endpoint" json:"endpoint"` // host:port or URL
	Insecure bool              `mapstructure:"insecure" json:"insecure"`
	Timeout  time.Duration     `mapstructure:"timeout" json:"timeout"`
	Headers  map[string]string `mapstructure:"headers" json:"headers"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:                    true,
		ScopeName:                  instrumentation.DefaultScopeName,
		ExposeConfigurationMetrics: true,
		ServiceName:                "jgroups",
		ResourceAttrs:              make(map[string]any),
		Exporter: ExporterConfig{
			Type:     ExporterOTLP,
			Insecure: true,
			Timeout:  10 * time.Second,
		},
		ExportInterval: 60 * time.Second,
		ExportTimeout:  30 * time.Second,
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:              false,
			FailureThreshold:     5,
			SuccessThreshold:     2,
			Timeout:              60 * time.Second,
			HalfOpenMaxRequests:  3,
			FallbackExporterType: ExporterNoop,
		},
	}
}

// OwnsProvider reports whether the configuration asks the bridge to build
// its own meter provider: an endpoint is set, or the exporter needs none.
func (c *Config) OwnsProvider() bool {
	return c.Exporter.Endpoint != "" || c.Exporter.Type == ExporterStdout
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	exporting := c.OwnsProvider()
	err := validation.ValidateStruct(c,
		validation.Field(&c.ScopeName, validation.Required),
		validation.Field(&c.ServiceName, validation.When(exporting, validation.Required)),
		validation.Field(&c.Exporter),
		validation.Field(&c.ExportInterval, validation.When(exporting, validation.Required, validation.Min(time.Millisecond))),
		validation.Field(&c.ExportTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.CircuitBreaker),
	)
	return validator.Convert(err, ErrInvalidConfig)
}

func (e ExporterConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required,
			validation.In(ExporterOTLP, ExporterOTLPHTTP, ExporterStdout).
				Error(fmt.Sprintf("unsupported exporter type %q (supported: otlp, otlphttp, stdout)", e.Type))),
		validation.Field(&e.Timeout, validation.Min(time.Duration(0))),
	)
}

// EnvBindings maps the configuration keys to the environment variables
// overriding them, without EnvPrefix:
//
//	loader, err := config.NewLoaderBuilder().
//		WithConfigPath(dir).
//		WithEnvPrefix(telemetry.EnvPrefix).
//		WithEnvBindings(telemetry.EnvBindings()).
//		Build()
func EnvBindings() map[string]string {
	keys := map[string]string{
		"enabled":                       "ENABLED",
		"scope_name":                    "SCOPE_NAME",
		"expose_configuration_metrics":  "EXPOSE_CONFIGURATION_METRICS",
		"counters_as_gauges":            "COUNTERS_AS_GAUGES",
		"service_name":                  "SERVICE_NAME",
		"service_version":               "SERVICE_VERSION",
		"exporter.type":                 "EXPORTER_TYPE",
		"exporter.endpoint":             "ENDPOINT",
		"exporter.insecure":             "EXPORTER_INSECURE",
		"export_interval":               "EXPORT_INTERVAL",
		"export_timeout":                "EXPORT_TIMEOUT",
		"enable_message_size_histogram": "ENABLE_MESSAGE_SIZE_HISTOGRAM",
		"use_total_size":                "USE_TOTAL_SIZE",
	}
	bindings := make(map[string]string, len(keys))
	for key, env := range keys {
		bindings[ConfigKey+"."+key] = env
	}
	return bindings
}
