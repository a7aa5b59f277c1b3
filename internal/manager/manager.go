// Package manager resolves which package manager's audit command to run.
package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Names of supported package managers.
const (
	NPM  = "npm"
	Yarn = "yarn"
	PNPM = "pnpm"
	Auto = "auto"
)

// Manager is a resolved package manager selection.
type Manager struct {
	Name string
	// Lockfile is the file that triggered detection; empty when the
	// manager was chosen explicitly or by fallback.
	Lockfile string
}

// lockfiles are checked in order; the first one present wins.
var lockfiles = []struct {
	file string
	name string
}{
	{"yarn.lock", Yarn},
	{"pnpm-lock.yaml", PNPM},
}

// Detect picks a package manager from the lockfiles present in dir,
// falling back to npm.
func Detect(dir string) Manager {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(dir, lf.file)); err == nil {
			return Manager{Name: lf.name, Lockfile: lf.file}
		}
	}
	return Manager{Name: NPM}
}

// Resolve returns the manager named by choice, or detects one when choice is
// empty or "auto".
func Resolve(dir, choice string) (Manager, error) {
	switch choice {
	case "", Auto:
		return Detect(dir), nil
	case NPM, Yarn, PNPM:
		return Manager{Name: choice}, nil
	default:
		return Manager{}, fmt.Errorf("unknown package manager %q (want auto, npm, yarn or pnpm)", choice)
	}
}

// AuditCommand builds the shell command for an audit run.
func (m Manager) AuditCommand(jsonOutput bool, extraArgs string) string {
	parts := []string{m.Name, "audit"}
	if jsonOutput {
		parts = append(parts, "--json")
	}
	if extra := strings.TrimSpace(extraArgs); extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, " ")
}
