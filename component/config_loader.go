package component

// ConfigLoader is the read side of the configuration, as seen by components.
type ConfigLoader interface {
	Get(key string) any

	// Unmarshal decodes the section under key into v:
	//
	//	var cfg telemetry.Config
	//	if err := loader.Unmarshal("opentelemetry", &cfg); err != nil {
	//		return err
	//	}
	Unmarshal(key string, v any) error

	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	IsSet(key string) bool
}
