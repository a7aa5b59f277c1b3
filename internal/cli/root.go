package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/auditgate/internal/audit"
	"github.com/lucasnoah/auditgate/internal/config"
	"github.com/lucasnoah/auditgate/internal/manager"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

// app carries the collaborators a command tree runs against.
type app struct {
	runner audit.CommandRunner
	now    func() time.Time
}

func defaultApp() *app {
	return &app{
		runner: &audit.ExecRunner{},
		now:    time.Now,
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auditgate",
		Short: "auditgate — fail CI builds on npm, yarn or pnpm audit findings",
		Long: `auditgate runs the package manager's audit command in the project directory,
reads the "Severity:" summary line of its report and exits non-zero when
vulnerabilities at or above the configured threshold are present.

The package manager is picked from the lockfile: yarn.lock selects yarn,
pnpm-lock.yaml selects pnpm, anything else uses npm.

Thresholds are cumulative: --moderate fails on moderate, high or critical
findings. The highest enabled threshold that is crossed names the failure.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd)
		},
		RunE: a.runAudit,
	}

	// -h belongs to --high, so help is long-form only.
	cmd.PersistentFlags().Bool("help", false, "help for auditgate")
	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	cmd.PersistentFlags().String("dir", ".", "Project directory to audit")
	cmd.PersistentFlags().String("config", "", "Path to config file (default: <dir>/"+config.DefaultFileName+")")
	cmd.PersistentFlags().String("database", "", "History database: SQLite path or postgres:// DSN (default: ~/.auditgate/history.db)")

	cmd.Flags().BoolP("low", "l", false, "Exit even for low vulnerabilities")
	cmd.Flags().BoolP("moderate", "m", false, "Exit only when moderate or above vulnerabilities")
	cmd.Flags().BoolP("high", "h", false, "Exit only when high or above vulnerabilities")
	cmd.Flags().BoolP("critical", "c", true, "Exit only for critical vulnerabilities")
	cmd.Flags().BoolP("report", "r", false, "Show the audit report")
	cmd.Flags().String("package-manager", "", "Package manager: auto, npm, yarn or pnpm")
	cmd.Flags().String("audit-args", "", "Extra arguments appended to the audit command")
	cmd.Flags().String("format", "", "Audit output to parse: text or json")
	cmd.Flags().String("output", "", "Gate result rendering: text or json")
	cmd.Flags().String("timeout", "", "Audit command timeout, e.g. 2m (default: none)")
	cmd.Flags().Bool("record", false, "Record the run in the history database")
	cmd.Flags().String("metrics-textfile", "", "Write Prometheus metrics to this file")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDBCmd())
	return cmd
}

// Execute runs the auditgate command tree against the real environment.
func Execute() error {
	return newRootCmd(defaultApp()).Execute()
}

func setupLogging(cmd *cobra.Command) error {
	levelStr, _ := cmd.Flags().GetString("log-level")
	formatStr, _ := cmd.Flags().GetString("log-format")

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid --log-level %q (want debug, info, warn or error)", levelStr)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch formatStr {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// projectDir returns the absolute --dir value.
func projectDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project directory %q: %w", dir, err)
	}
	return abs, nil
}

// loadConfig reads --config, or the default file in dir when present.
func loadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.Load(path)
	}
	cfg, found, err := config.LoadDefault(dir)
	if err != nil {
		return nil, err
	}
	if found != "" {
		slog.Debug("loaded config", "path", found)
	}
	return cfg, nil
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	boolFlags := map[string]*bool{
		"low":      &cfg.Thresholds.Low,
		"moderate": &cfg.Thresholds.Moderate,
		"high":     &cfg.Thresholds.High,
		"critical": &cfg.Thresholds.Critical,
		"report":   &cfg.Report,
		"record":   &cfg.History.Enabled,
	}
	for name, dst := range boolFlags {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetBool(name)
		}
	}

	stringFlags := map[string]*string{
		"package-manager":  &cfg.PackageManager,
		"audit-args":       &cfg.AuditArgs,
		"format":           &cfg.Format,
		"output":           &cfg.Output,
		"timeout":          &cfg.Timeout,
		"database":         &cfg.History.Database,
		"metrics-textfile": &cfg.Metrics.Textfile,
	}
	for name, dst := range stringFlags {
		if f.Lookup(name) != nil && f.Changed(name) {
			*dst, _ = f.GetString(name)
		}
	}
}

// resolveConfig loads the config for dir, applies flags and validates.
func resolveConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	cfg, err := loadConfig(cmd, dir)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)

	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return cfg, nil
}

func (a *app) runAudit(cmd *cobra.Command, _ []string) error {
	dir, err := projectDir(cmd)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, dir)
	if err != nil {
		return err
	}

	mgr, err := manager.Resolve(dir, cfg.PackageManager)
	if err != nil {
		return err
	}
	slog.Info("resolved package manager", "manager", mgr.Name, "lockfile", mgr.Lockfile, "dir", dir)

	format := audit.Format(cfg.Format)
	opts := audit.Options{
		Manager:          mgr.Name,
		Command:          mgr.AuditCommand(format == audit.FormatJSON, cfg.AuditArgs),
		Format:           format,
		Thresholds:       cfg.Thresholds,
		SuccessSentinels: cfg.SuccessSentinels,
		Timeout:          cfg.TimeoutDuration(),
	}

	res := audit.NewRunner(a.runner).Run(cmd.Context(), dir, opts)
	if res.Status == audit.StatusExecError {
		slog.Warn("audit command did not run; not failing the build", "command", opts.Command, "err", res.ExecError)
	}

	now := a.now()
	if cfg.History.Enabled {
		recordRun(cfg.History.Database, dir, res, now)
	}
	if cfg.Metrics.Textfile != "" {
		exportMetrics(cfg.Metrics.Textfile, res, now)
	}

	if err := renderResult(cmd.OutOrStdout(), res, cfg.Report, cfg.Output); err != nil {
		return err
	}
	if res.ExitCode != audit.ExitOK {
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}
