package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "org.jgroups", cfg.ScopeName)
	assert.True(t, cfg.ExposeConfigurationMetrics)
	assert.False(t, cfg.CountersAsGauges)
	assert.False(t, cfg.EnableMessageSizeHistogram)
	assert.Equal(t, ExporterOTLP, cfg.Exporter.Type)
	assert.Equal(t, 60*time.Second, cfg.ExportInterval)
	assert.False(t, cfg.OwnsProvider())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"empty scope", func(c *Config) { c.ScopeName = "" }, "scope_name"},
		{"unknown exporter", func(c *Config) { c.Exporter.Type = "zipkin" }, "zipkin"},
		{"negative exporter timeout", func(c *Config) { c.Exporter.Timeout = -time.Second }, "exporter.timeout"},
		{"no service name when exporting", func(c *Config) {
			c.Exporter.Endpoint = "localhost:4317"
			c.ServiceName = ""
		}, "service_name"},
		{"zero interval when exporting", func(c *Config) {
			c.Exporter.Type = ExporterStdout
			c.ExportInterval = 0
		}, "export_interval"},
		{"breaker threshold", func(c *Config) {
			c.CircuitBreaker.Enabled = true
			c.CircuitBreaker.FailureThreshold = 0
		}, "failure_threshold"},
		{"breaker fallback", func(c *Config) {
			c.CircuitBreaker.Enabled = true
			c.CircuitBreaker.FallbackExporterType = ExporterOTLP
		}, "fallback exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("disabled skips validation", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Enabled = false
		cfg.Exporter.Type = "zipkin"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("interval is not checked without an exporter", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ExportInterval = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_OwnsProvider(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.OwnsProvider())

	cfg.Exporter.Endpoint = "http://collector:4318"
	assert.True(t, cfg.OwnsProvider())

	cfg = DefaultConfig()
	cfg.Exporter.Type = ExporterStdout
	assert.True(t, cfg.OwnsProvider())
}

func TestEnvBindings(t *testing.T) {
	bindings := EnvBindings()
	assert.Equal(t, "SCOPE_NAME", bindings["opentelemetry.scope_name"])
	assert.Equal(t, "ENDPOINT", bindings["opentelemetry.exporter.endpoint"])
	assert.Equal(t, "EXPOSE_CONFIGURATION_METRICS", bindings["opentelemetry.expose_configuration_metrics"])
	for key := range bindings {
		assert.Contains(t, key, ConfigKey+".")
	}
}

func TestCreateResource(t *testing.T) {
	t.Setenv("TEST_REGION", "eu-west-1")

	cfg := DefaultConfig()
	cfg.ServiceVersion = "5.4.0"
	cfg.ResourceAttrs = map[string]any{
		"deployment":   map[string]any{"environment": "test"},
		"cloud.region": "${TEST_REGION}",
		"replicas":     3,
	}
	c := NewComponent(WithConfig(cfg))

	res, err := c.createResource(context.Background())
	require.NoError(t, err)

	set := res.Set()
	for key, want := range map[string]string{
		"service.name":           "jgroups",
		"service.version":        "5.4.0",
		"deployment.environment": "test",
		"cloud.region":           "eu-west-1",
		"replicas":               "3",
	} {
		v, ok := set.Value(attribute.Key(key))
		if assert.Truef(t, ok, "missing %s", key) {
			assert.Equal(t, want, v.Emit(), key)
		}
	}
}

func TestResourceAttributes_Order(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResourceAttrs = map[string]any{
		"zone": "b",
		"app":  map[string]any{"tier": "cache", "id": 7},
	}

	var keys []string
	for _, kv := range resourceAttributes(cfg) {
		keys = append(keys, string(kv.Key))
	}
	assert.Equal(t, []string{"service.name", "app.id", "app.tier", "zone"}, keys)
}

func TestHasScheme(t *testing.T) {
	assert.True(t, hasScheme("http://localhost:4318"))
	assert.True(t, hasScheme("https://collector.example.com"))
	assert.False(t, hasScheme("localhost:4317"))
	assert.False(t, hasScheme(""))
}
