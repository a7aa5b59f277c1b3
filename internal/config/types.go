package config

import (
	"time"

	"github.com/lucasnoah/auditgate/internal/audit"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = ".auditgate.yaml"

// Config is the gate configuration parsed from YAML. Command-line flags
// override individual fields after loading.
type Config struct {
	Thresholds       audit.Thresholds `yaml:"thresholds"`
	Report           bool             `yaml:"report"`
	PackageManager   string           `yaml:"package_manager"`
	AuditArgs        string           `yaml:"audit_args,omitempty"`
	Format           string           `yaml:"format"`
	Output           string           `yaml:"output"`
	Timeout          string           `yaml:"timeout,omitempty"`
	SuccessSentinels []string         `yaml:"success_sentinels"`
	History          History          `yaml:"history"`
	Metrics          Metrics          `yaml:"metrics"`
}

// History controls recording of audit runs.
type History struct {
	Enabled bool `yaml:"enabled"`
	// Database is a SQLite file path or a postgres:// DSN. Empty means
	// ~/.auditgate/history.db.
	Database string `yaml:"database,omitempty"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the built-in configuration: fail on critical only.
func Default() *Config {
	return &Config{
		Thresholds:     audit.Thresholds{Critical: true},
		PackageManager: "auto",
		Format:         string(audit.FormatText),
		Output:         "text",
	}
}

// TimeoutDuration parses Timeout. An empty or invalid value yields zero,
// meaning no limit; Validate reports invalid values.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}
