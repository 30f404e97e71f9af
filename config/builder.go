package config

import (
	"os"
	"path/filepath"
)

// LoaderBuilder assembles the standard source layout:
//
//	<path>/config.yaml    priority 10
//	<path>/<env>.yaml     priority 20
//	environment           priority 50
type LoaderBuilder struct {
	configPath  string
	envPrefix   string
	envBindings map[string]string
}

func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{}
}

func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithEnvBindings restricts the environment source to the given key to
// variable mapping, see EnvSource.
func (b *LoaderBuilder) WithEnvBindings(bindings map[string]string) *LoaderBuilder {
	b.envBindings = bindings
	return b
}

// Build creates the loader and loads it once.
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if b.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, "config.yaml"), PriorityBaseFile))
		if env := GetEnv(); env != "" {
			loader.AddSource(NewFileSource(filepath.Join(b.configPath, env+".yaml"), PriorityEnvFile))
		}
	}

	if b.envPrefix != "" || len(b.envBindings) > 0 {
		env := NewEnvSource(b.envPrefix, PriorityEnv)
		env.AddBindings(b.envBindings)
		loader.AddSource(env)
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv returns the deployment environment: APP_ENV, then ENV, then "dev".
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
