package audit

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Verdict is the single severity label chosen to represent one audit run.
type Verdict string

const (
	VerdictNone     Verdict = "NONE"
	VerdictLow      Verdict = "LOW"
	VerdictModerate Verdict = "MODERATE"
	VerdictHigh     Verdict = "HIGH"
	VerdictCritical Verdict = "CRITICAL"
)

// Failed reports whether the verdict should fail the build.
func (v Verdict) Failed() bool {
	return v != VerdictNone && v != ""
}

// Counts holds the number of vulnerabilities found per severity level.
type Counts struct {
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// Total returns the sum of all four levels.
func (c Counts) Total() int {
	return c.Low + c.Moderate + c.High + c.Critical
}

// Thresholds selects which severity levels fail the build. Each flag means
// "fail if vulnerabilities at this level or above are present".
type Thresholds struct {
	Low      bool `json:"low" yaml:"low"`
	Moderate bool `json:"moderate" yaml:"moderate"`
	High     bool `json:"high" yaml:"high"`
	Critical bool `json:"critical" yaml:"critical"`
}

// summaryMarker must appear in a line before it is treated as a severity summary.
const summaryMarker = "Severity:"

// severityRe matches "<n> <label>" pairs in fixed low → critical order with
// arbitrary non-digit filler between them. Every pair is optional.
var severityRe = regexp.MustCompile(`^(\D+|)((\d+)\D+(?i:low)|)(\D+|)((\d+)\D+(?i:moderate)|)(\D+|)((\d+)\D+(?i:high)|)(\D+|)((\d+)\D+(?i:critical)|)`)

// Submatch indexes of the count captures in severityRe.
const (
	lowGroup      = 3
	moderateGroup = 6
	highGroup     = 9
	criticalGroup = 12
)

// ParseCounts extracts severity counts from a summary line such as
// "Severity: 1 Low | 2 Moderate | 0 High | 3 Critical". The second return is
// false when the line is not a severity summary. Levels missing from the line
// count as zero.
func ParseCounts(line string) (Counts, bool) {
	if !strings.Contains(line, summaryMarker) {
		return Counts{}, false
	}

	m := severityRe.FindStringSubmatch(line)
	if m == nil {
		return Counts{}, true
	}

	return Counts{
		Low:      countOrZero(m[lowGroup]),
		Moderate: countOrZero(m[moderateGroup]),
		High:     countOrZero(m[highGroup]),
		Critical: countOrZero(m[criticalGroup]),
	}, true
}

// parseCount converts a captured count. ok is false for an unmatched group.
// Counts too large for an int saturate at math.MaxInt.
func parseCount(s string) (n int, ok bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt, true
	}
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func countOrZero(s string) int {
	n, ok := parseCount(s)
	if !ok {
		return 0
	}
	return n
}

// Decide picks the verdict for the given counts. Thresholds are checked in
// priority order critical > high > moderate > low; each level triggers on its
// own count plus every count above it, and the first match wins.
func Decide(c Counts, t Thresholds) Verdict {
	atOrAboveHigh := c.Critical > 0 || c.High > 0
	atOrAboveModerate := atOrAboveHigh || c.Moderate > 0
	atOrAboveLow := atOrAboveModerate || c.Low > 0

	switch {
	case t.Critical && c.Critical > 0:
		return VerdictCritical
	case t.High && atOrAboveHigh:
		return VerdictHigh
	case t.Moderate && atOrAboveModerate:
		return VerdictModerate
	case t.Low && atOrAboveLow:
		return VerdictLow
	}
	return VerdictNone
}

// Evaluate parses a summary line and returns the verdict for it. Lines that
// are not severity summaries always yield VerdictNone.
func Evaluate(line string, t Thresholds) Verdict {
	c, ok := ParseCounts(line)
	if !ok {
		return VerdictNone
	}
	return Decide(c, t)
}
