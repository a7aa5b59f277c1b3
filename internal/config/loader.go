package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/auditgate/internal/audit"
)

// Load reads and parses a configuration from the given YAML file path.
// Fields absent from the file keep their built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault loads DefaultFileName from dir when present. A missing file is
// not an error: the built-in defaults are returned with an empty path.
func LoadDefault(dir string) (*Config, string, error) {
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		cfg := Default()
		applyDefaults(cfg)
		return cfg, "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// applyDefaults fills fields left empty by the YAML document.
func applyDefaults(cfg *Config) {
	if cfg.PackageManager == "" {
		cfg.PackageManager = "auto"
	}
	if cfg.Format == "" {
		cfg.Format = string(audit.FormatText)
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}
	if len(cfg.SuccessSentinels) == 0 {
		cfg.SuccessSentinels = []string{audit.DefaultSuccessSentinel}
	}
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
