package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/auditgate/internal/audit"
	"github.com/lucasnoah/auditgate/internal/db"
)

// openDB opens and migrates the history database. An empty dsn uses the
// default SQLite file.
func openDB(dsn string) (*db.DB, error) {
	if dsn == "" {
		path, err := db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		dsn = path
	}
	d, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// recordRun stores res in the history database. Failures are logged and
// never affect the gate outcome.
func recordRun(dsn, dir string, res *audit.Result, now time.Time) {
	d, err := openDB(dsn)
	if err != nil {
		slog.Warn("opening history database", "err", err)
		return
	}
	defer d.Close()

	runID, err := d.LogAuditRun(db.AuditRun{
		Dir:        dir,
		Manager:    res.Manager,
		Command:    res.Command,
		Status:     string(res.Status),
		Verdict:    string(res.Verdict),
		Low:        res.Counts.Low,
		Moderate:   res.Counts.Moderate,
		High:       res.Counts.High,
		Critical:   res.Counts.Critical,
		ExitCode:   res.ExitCode,
		DurationMs: res.DurationMs,
		Summary:    res.Summary,
		RecordedAt: now,
	})
	if err != nil {
		slog.Warn("recording audit run", "err", err)
		return
	}
	slog.Info("recorded audit run", "run_id", runID, "dialect", d.Dialect())
}

// historyDatabase returns the history DSN for --dir: --database when set,
// otherwise history.database from the config file.
func historyDatabase(cmd *cobra.Command) (string, error) {
	f := cmd.Flags()
	if f.Changed("database") {
		dsn, _ := f.GetString("database")
		return dsn, nil
	}
	dir, err := projectDir(cmd)
	if err != nil {
		return "", err
	}
	cfg, err := loadConfig(cmd, dir)
	if err != nil {
		return "", err
	}
	return cfg.History.Database, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded audit runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			all, _ := cmd.Flags().GetBool("all")
			format, _ := cmd.Flags().GetString("format")
			dsn, err := historyDatabase(cmd)
			if err != nil {
				return err
			}

			dir := ""
			if !all {
				if dir, err = projectDir(cmd); err != nil {
					return err
				}
			}

			d, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer d.Close()

			runs, err := d.GetAuditHistory(dir, limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == "json" {
				data, err := json.MarshalIndent(runs, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal history: %w", err)
				}
				fmt.Fprintln(w, string(data))
				return nil
			}

			if len(runs) == 0 {
				fmt.Fprintln(w, "No audit runs recorded.")
				return nil
			}

			fmt.Fprintf(w, "%-20s %-5s %-10s %-9s %-22s %s\n", "TIME", "PM", "STATUS", "VERDICT", "L/M/H/C", "DIR")
			fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))
			for _, r := range runs {
				counts := fmt.Sprintf("%d/%d/%d/%d", r.Low, r.Moderate, r.High, r.Critical)
				fmt.Fprintf(w, "%-20s %-5s %-10s %-9s %-22s %s\n",
					r.RecordedAt.Local().Format("2006-01-02 15:04:05"), r.Manager, r.Status, r.Verdict, counts, r.Dir)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	cmd.Flags().Bool("all", false, "Show runs for every directory, not just --dir")
	cmd.Flags().String("format", "text", "Output format: text or json")
	return cmd
}
