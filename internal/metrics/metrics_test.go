package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lucasnoah/auditgate/internal/audit"
)

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()
	res := &audit.Result{
		Manager:    "npm",
		Verdict:    audit.VerdictHigh,
		Counts:     audit.Counts{Low: 4, High: 2},
		DurationMs: 1500,
	}
	now := time.Unix(1700000000, 0)

	c.Observe(res, now)

	if got := testutil.ToFloat64(c.vulnerabilities.WithLabelValues("low")); got != 4 {
		t.Errorf("low = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.vulnerabilities.WithLabelValues("high")); got != 2 {
		t.Errorf("high = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.vulnerabilities.WithLabelValues("critical")); got != 0 {
		t.Errorf("critical = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.gateFailed.WithLabelValues("npm", "HIGH")); got != 1 {
		t.Errorf("gate_failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.duration); got != 1.5 {
		t.Errorf("duration = %v, want 1.5", got)
	}
	if got := testutil.ToFloat64(c.lastRun); got != 1700000000 {
		t.Errorf("last_run = %v, want 1700000000", got)
	}
}

func TestCollector_ObserveResetsVerdictLabel(t *testing.T) {
	c := NewCollector()
	c.Observe(&audit.Result{Manager: "npm", Verdict: audit.VerdictCritical, Counts: audit.Counts{Critical: 1}}, time.Now())
	c.Observe(&audit.Result{Manager: "npm", Verdict: audit.VerdictNone}, time.Now())

	if n := testutil.CollectAndCount(c.gateFailed); n != 1 {
		t.Errorf("expected a single gate_failed series, got %d", n)
	}
	if got := testutil.ToFloat64(c.gateFailed.WithLabelValues("npm", "NONE")); got != 0 {
		t.Errorf("gate_failed = %v, want 0", got)
	}
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	c.Observe(&audit.Result{Manager: "yarn", Verdict: audit.VerdictNone, Counts: audit.Counts{Moderate: 3}}, time.Now())

	path := filepath.Join(t.TempDir(), "auditgate.prom")
	if err := c.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`auditgate_vulnerabilities{severity="moderate"} 3`,
		`auditgate_gate_failed{manager="yarn",verdict="NONE"} 0`,
		"auditgate_audit_duration_seconds",
		"auditgate_last_run_timestamp_seconds",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("textfile missing %q:\n%s", want, out)
		}
	}
}

func TestCollector_WriteTextfileBadPath(t *testing.T) {
	c := NewCollector()
	if err := c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")); err == nil {
		t.Error("expected error for unwritable path")
	}
}
