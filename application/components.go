package application

import (
	"context"

	"github.com/rhusar/jgroups-opentelemetry/component"
	"github.com/rhusar/jgroups-opentelemetry/config"
	"github.com/rhusar/jgroups-opentelemetry/logger"
)

// ConfigComponent exposes the application's loader as the "config" component.
type ConfigComponent struct {
	loader *config.Loader
}

var (
	_ component.Component    = (*ConfigComponent)(nil)
	_ component.ConfigLoader = (*ConfigComponent)(nil)
)

func NewConfigComponent(loader *config.Loader) *ConfigComponent {
	return &ConfigComponent{loader: loader}
}

func (c *ConfigComponent) Name() string                                       { return component.ComponentConfig }
func (c *ConfigComponent) DependsOn() []string                                { return nil }
func (c *ConfigComponent) Init(context.Context, component.ConfigLoader) error { return nil }
func (c *ConfigComponent) Start(context.Context) error                        { return nil }
func (c *ConfigComponent) Stop(context.Context) error                         { return nil }

func (c *ConfigComponent) Loader() *config.Loader { return c.loader }

func (c *ConfigComponent) Get(key string) any                { return c.loader.Get(key) }
func (c *ConfigComponent) Unmarshal(key string, v any) error { return c.loader.Unmarshal(key, v) }
func (c *ConfigComponent) GetString(key string) string       { return c.loader.GetString(key) }
func (c *ConfigComponent) GetInt(key string) int             { return c.loader.GetInt(key) }
func (c *ConfigComponent) GetBool(key string) bool           { return c.loader.GetBool(key) }
func (c *ConfigComponent) IsSet(key string) bool             { return c.loader.IsSet(key) }

// LoggerComponent owns the application's logger manager and closes it last.
type LoggerComponent struct {
	manager *logger.Manager
}

var _ component.Component = (*LoggerComponent)(nil)

func NewLoggerComponent(manager *logger.Manager) *LoggerComponent {
	return &LoggerComponent{manager: manager}
}

func (l *LoggerComponent) Name() string {
	return component.ComponentLogger
}

func (l *LoggerComponent) DependsOn() []string {
	return []string{component.ComponentConfig}
}

func (l *LoggerComponent) Init(context.Context, component.ConfigLoader) error { return nil }
func (l *LoggerComponent) Start(context.Context) error                        { return nil }

func (l *LoggerComponent) Stop(ctx context.Context) error {
	l.manager.GetLogger("application").DebugCtx(ctx, "closing loggers")
	l.manager.CloseAll()
	return nil
}

func (l *LoggerComponent) Manager() *logger.Manager {
	return l.manager
}

// loadLoggerConfig reads the "logger" section over the defaults.
func loadLoggerConfig(loader component.ConfigLoader) (logger.ManagerConfig, error) {
	cfg := logger.DefaultManagerConfig()
	if loader.IsSet("logger") {
		if err := loader.Unmarshal("logger", &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}
