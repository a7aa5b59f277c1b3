package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
)

// vulnerabilityCounts is the per-severity object shared by npm, pnpm and yarn
// JSON audit output.
type vulnerabilityCounts struct {
	Info     int `json:"info"`
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

func (v vulnerabilityCounts) counts() Counts {
	return Counts{Low: v.Low, Moderate: v.Moderate, High: v.High, Critical: v.Critical}
}

// npmAuditOutput is the part of `npm audit --json` (and pnpm) we need.
type npmAuditOutput struct {
	Metadata *struct {
		Vulnerabilities vulnerabilityCounts `json:"vulnerabilities"`
	} `json:"metadata"`
}

// yarnAuditRecord is one NDJSON line from `yarn audit --json`.
type yarnAuditRecord struct {
	Type string `json:"type"`
	Data struct {
		Vulnerabilities vulnerabilityCounts `json:"vulnerabilities"`
	} `json:"data"`
}

// ParseJSON reads severity counts from structured audit output. It accepts a
// single npm/pnpm JSON document or yarn's newline-delimited records, where
// the counts live in the "auditSummary" record.
func ParseJSON(stdout string) (Counts, error) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return Counts{}, fmt.Errorf("empty audit output")
	}

	var doc npmAuditOutput
	if err := json.Unmarshal([]byte(trimmed), &doc); err == nil && doc.Metadata != nil {
		return doc.Metadata.Vulnerabilities.counts(), nil
	}

	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec yarnAuditRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return Counts{}, fmt.Errorf("decode audit record: %w", err)
		}
		if rec.Type == "auditSummary" {
			return rec.Data.Vulnerabilities.counts(), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Counts{}, fmt.Errorf("read audit records: %w", err)
	}
	return Counts{}, fmt.Errorf("no auditSummary record in audit output")
}

// jsonSummary renders counts as a one-line summary for display.
func jsonSummary(c Counts) string {
	return fmt.Sprintf("%d vulnerabilities (%d critical, %d high, %d moderate, %d low)",
		c.Total(), c.Critical, c.High, c.Moderate, c.Low)
}
