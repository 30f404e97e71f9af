package component

const (
	ComponentConfig        = "config"
	ComponentLogger        = "logger"
	ComponentOpenTelemetry = "opentelemetry"
)
