package db

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrate(t *testing.T) {
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tables := []string{"schema_version", "audit_runs"}
	for _, table := range tables {
		var name string
		err := d.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}

	var version int
	if err := d.conn.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query schema_version: %v", err)
	}
	if version != 1 {
		t.Errorf("expected schema version 1, got %d", version)
	}

	// Migrate again should be idempotent
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestReset(t *testing.T) {
	d := testDB(t)

	if _, err := d.LogAuditRun(AuditRun{Dir: "/app", Manager: "npm", Command: "npm audit", Status: "passed", Verdict: "NONE"}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	runs, err := d.GetAuditHistory("", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected empty history after reset, got %d runs", len(runs))
	}
}

func TestLogAuditRun_GetAuditHistory(t *testing.T) {
	d := testDB(t)
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	id, err := d.LogAuditRun(AuditRun{
		Dir:        "/src/web",
		Manager:    "yarn",
		Command:    "yarn audit",
		Status:     "failed",
		Verdict:    "HIGH",
		Low:        1,
		Moderate:   2,
		High:       3,
		ExitCode:   1,
		DurationMs: 420,
		Summary:    "Severity: 1 Low | 2 Moderate | 3 High",
		RecordedAt: at,
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated run ID")
	}

	runs, err := d.GetAuditHistory("/src/web", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	r := runs[0]
	if r.RunID != id {
		t.Errorf("RunID = %q, want %q", r.RunID, id)
	}
	if r.Verdict != "HIGH" || r.Status != "failed" || r.ExitCode != 1 {
		t.Errorf("unexpected outcome: %+v", r)
	}
	if r.Low != 1 || r.Moderate != 2 || r.High != 3 || r.Critical != 0 {
		t.Errorf("unexpected counts: %+v", r)
	}
	if r.DurationMs != 420 {
		t.Errorf("DurationMs = %d, want 420", r.DurationMs)
	}
	if !r.RecordedAt.Equal(at) {
		t.Errorf("RecordedAt = %s, want %s", r.RecordedAt, at)
	}
}

func TestGetAuditHistory_OrderAndFilter(t *testing.T) {
	d := testDB(t)

	for i, dir := range []string{"/a", "/b", "/a", "/a"} {
		_, err := d.LogAuditRun(AuditRun{Dir: dir, Manager: "npm", Command: "npm audit", Status: "passed", Verdict: "NONE", DurationMs: i})
		if err != nil {
			t.Fatalf("log %d: %v", i, err)
		}
	}

	all, err := d.GetAuditHistory("", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(all))
	}
	if all[0].DurationMs != 3 {
		t.Errorf("expected newest first, got DurationMs=%d", all[0].DurationMs)
	}

	onlyA, err := d.GetAuditHistory("/a", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(onlyA))
	}
	for _, r := range onlyA {
		if r.Dir != "/a" {
			t.Errorf("unexpected dir %q", r.Dir)
		}
	}
}

func TestGetLatestAuditRun(t *testing.T) {
	d := testDB(t)

	r, err := d.GetLatestAuditRun("/none")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil for empty history, got %+v", r)
	}

	d.LogAuditRun(AuditRun{Dir: "/x", Manager: "npm", Command: "npm audit", Status: "passed", Verdict: "NONE"})
	d.LogAuditRun(AuditRun{Dir: "/x", Manager: "npm", Command: "npm audit", Status: "failed", Verdict: "CRITICAL", Critical: 2, ExitCode: 1})

	r, err = d.GetLatestAuditRun("/x")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if r == nil || r.Verdict != "CRITICAL" || r.Critical != 2 {
		t.Errorf("unexpected latest run: %+v", r)
	}
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		dsn  string
		want Dialect
	}{
		{":memory:", DialectSQLite},
		{"/home/ci/.auditgate/history.db", DialectSQLite},
		{"postgres://ci@localhost/audits", DialectPostgres},
		{"postgresql://ci@localhost:5432/audits?sslmode=disable", DialectPostgres},
	}
	for _, tt := range tests {
		if got := DialectFor(tt.dsn); got != tt.want {
			t.Errorf("DialectFor(%q) = %s, want %s", tt.dsn, got, tt.want)
		}
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	got := pg.rebind("SELECT * FROM audit_runs WHERE dir = ? LIMIT ?")
	if got != "SELECT * FROM audit_runs WHERE dir = $1 LIMIT $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &DB{dialect: DialectSQLite}
	if q := "SELECT ?"; lite.rebind(q) != q {
		t.Error("sqlite queries should be unchanged")
	}
}
