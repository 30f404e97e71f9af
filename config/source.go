package config

// Default source priorities. Higher wins.
const (
	PriorityBaseFile = 10
	PriorityEnvFile  = 20
	PriorityEnv      = 50
)

// ConfigSource is one layer of configuration.
type ConfigSource interface {
	// Name identifies the source in errors and logs.
	Name() string
	Priority() int
	// Load returns the flattened keys of the source, e.g. "opentelemetry.scope_name".
	Load() (map[string]any, error)
}
