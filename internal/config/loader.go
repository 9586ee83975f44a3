// AngelaMos | 2026
// loader.go

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// layers describes one binary's configuration: built-in defaults, then an
// optional YAML file, then the environment variables listed in envKeys.
// Variables not in envKeys are ignored.
type layers struct {
	defaults map[string]any
	envKeys  map[string]string
}

func (l layers) load(path string, out any) error {
	k := koanf.New(".")

	for key, value := range l.defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	envProvider := env.Provider("", ".", func(name string) string {
		return l.envKeys[name]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", out); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
