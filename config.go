package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds host settings loaded from a YAML file.
type Config struct {
	Engine   string          `yaml:"engine" description:"Scripting engine (lua, js)" default:"lua"`
	Preload  []string        `yaml:"preload" description:"Modules imported into the global namespace at startup" default:"[]"`
	Redirect bool            `yaml:"redirect" description:"Capture script output in the console" default:"true"`
	Toggles  map[string]bool `yaml:"toggles" description:"Feature toggles visible to scripts as the toggle table"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Engine:   TypeEngineLua,
		Preload:  []string{},
		Redirect: true,
		Toggles: map[string]bool{
			ToggleShowAxis:        true,
			ToggleConsoleRedirect: true,
		},
	}
}

// LoadConfig reads the YAML file at path over DefaultConfig. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Engine == "" {
		cfg.Engine = TypeEngineLua
	}
	if cfg.Toggles == nil {
		cfg.Toggles = map[string]bool{}
	}
	return cfg, nil
}
