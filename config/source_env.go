package config

import (
	"os"
	"strings"
)

// EnvSource reads environment variables.
//
// With bindings only the bound variables are read, each under its
// configuration key:
//
//	s := NewEnvSource("JGROUPS_OPENTELEMETRY", PriorityEnv)
//	s.AddBinding("opentelemetry.scope_name", "SCOPE_NAME") // JGROUPS_OPENTELEMETRY_SCOPE_NAME
//
// Without bindings every variable carrying the prefix is read and its
// remainder mapped to a key, APP_GRPC_PORT to grpc.port.
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string
}

func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{
		prefix:   prefix,
		priority: priority,
		bindings: make(map[string]string),
	}
}

// AddBinding maps key to envKey. The prefix is prepended to envKey unless already present.
func (s *EnvSource) AddBinding(key, envKey string) {
	s.bindings[key] = envKey
}

// AddBindings adds every key to envKey pair of bindings.
func (s *EnvSource) AddBindings(bindings map[string]string) {
	for key, envKey := range bindings {
		s.AddBinding(key, envKey)
	}
}

func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

func (s *EnvSource) Priority() int {
	return s.priority
}

func (s *EnvSource) Load() (map[string]any, error) {
	result := make(map[string]any)

	if len(s.bindings) > 0 {
		for key, envKey := range s.bindings {
			if value, ok := os.LookupEnv(s.fullKey(envKey)); ok && value != "" {
				result[key] = value
			}
		}
		return result, nil
	}

	if s.prefix == "" {
		return result, nil
	}
	prefix := s.prefix + "_"
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		result[strings.ReplaceAll(key, "_", ".")] = value
	}
	return result, nil
}

func (s *EnvSource) fullKey(envKey string) string {
	if s.prefix == "" || strings.HasPrefix(envKey, s.prefix+"_") {
		return envKey
	}
	return s.prefix + "_" + envKey
}
