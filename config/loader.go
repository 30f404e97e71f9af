// Package config loads layered configuration from YAML files and the
// environment into viper. A *Loader satisfies component.ConfigLoader.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/rhusar/jgroups-opentelemetry/component"
)

var _ component.ConfigLoader = (*Loader)(nil)

// Loader merges its sources by priority, highest last.
type Loader struct {
	sources      []ConfigSource
	mergedConfig map[string]any
	v            *viper.Viper
	loadedFiles  []string
}

func NewLoader() *Loader {
	return &Loader{
		mergedConfig: make(map[string]any),
		v:            viper.New(),
	}
}

func (l *Loader) AddSource(source ConfigSource) {
	l.sources = append(l.sources, source)
}

// Load reads every source and rebuilds the merged view. Keys from a
// source with higher priority override the same keys from lower ones.
func (l *Loader) Load() error {
	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	merged := make(map[string]any)
	var files []string
	for _, source := range l.sources {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("load source %s: %w", source.Name(), err)
		}
		if fs, ok := source.(*FileSource); ok && len(data) > 0 {
			files = append(files, fs.path)
		}
		for key, value := range data {
			merged[strings.ToLower(key)] = value
		}
	}

	l.mergedConfig = merged
	l.loadedFiles = files
	l.syncToViper()
	return nil
}

func (l *Loader) syncToViper() {
	l.v = viper.New()
	for key, value := range unflattenMap(l.mergedConfig) {
		l.v.Set(key, value)
	}
}

// unflattenMap turns {"a.b.c": 1} into {"a": {"b": {"c": 1}}}.
// A scalar on the path is replaced by a map.
func unflattenMap(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range flat {
		keys := splitKey(key)
		if len(keys) == 0 {
			continue
		}
		current := result
		for _, k := range keys[:len(keys)-1] {
			nested, ok := current[k].(map[string]any)
			if !ok {
				nested = make(map[string]any)
				current[k] = nested
			}
			current = nested
		}
		current[keys[len(keys)-1]] = value
	}
	return result
}

func splitKey(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool { return r == '.' })
}

// Unmarshal decodes the section under key into v. Durations accept Go
// duration strings such as "30s".
func (l *Loader) Unmarshal(key string, v any) error {
	if key == "" {
		return l.v.Unmarshal(v)
	}
	return l.v.UnmarshalKey(key, v)
}

func (l *Loader) Get(key string) any          { return l.v.Get(key) }
func (l *Loader) GetString(key string) string { return l.v.GetString(key) }
func (l *Loader) GetInt(key string) int       { return l.v.GetInt(key) }
func (l *Loader) GetBool(key string) bool     { return l.v.GetBool(key) }
func (l *Loader) IsSet(key string) bool       { return l.v.IsSet(key) }
func (l *Loader) AllSettings() map[string]any { return l.v.AllSettings() }

// LoadedFiles lists the files that contributed at least one key.
func (l *Loader) LoadedFiles() []string {
	return l.loadedFiles
}

func (l *Loader) Reload() error {
	return l.Load()
}
