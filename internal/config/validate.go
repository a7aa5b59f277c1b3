package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	recognizedManagers = map[string]bool{"auto": true, "npm": true, "yarn": true, "pnpm": true}
	recognizedFormats  = map[string]bool{"text": true, "json": true}
	recognizedOutputs  = map[string]bool{"text": true, "json": true}
)

// Validate checks a Config for invalid values.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if !recognizedManagers[cfg.PackageManager] {
		errs = append(errs, ValidationError{
			Field:   "package_manager",
			Message: fmt.Sprintf("unrecognized package manager %q", cfg.PackageManager),
		})
	}
	if !recognizedFormats[cfg.Format] {
		errs = append(errs, ValidationError{
			Field:   "format",
			Message: fmt.Sprintf("unrecognized format %q (want text or json)", cfg.Format),
		})
	}
	if !recognizedOutputs[cfg.Output] {
		errs = append(errs, ValidationError{
			Field:   "output",
			Message: fmt.Sprintf("unrecognized output %q (want text or json)", cfg.Output),
		})
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{Field: "timeout", Message: fmt.Sprintf("invalid duration %q", cfg.Timeout)})
		case d < 0:
			errs = append(errs, ValidationError{Field: "timeout", Message: "must not be negative"})
		}
	}

	return errs
}
