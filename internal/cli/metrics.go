package cli

import (
	"log/slog"
	"time"

	"github.com/lucasnoah/auditgate/internal/audit"
	"github.com/lucasnoah/auditgate/internal/metrics"
)

// exportMetrics writes res to a Prometheus textfile. Failures are logged
// and never affect the gate outcome.
func exportMetrics(path string, res *audit.Result, now time.Time) {
	c := metrics.NewCollector()
	c.Observe(res, now)
	if err := c.WriteTextfile(path); err != nil {
		slog.Warn("exporting metrics", "path", path, "err", err)
		return
	}
	slog.Debug("wrote metrics textfile", "path", path)
}
