package engine

import (
	"fmt"
	"strings"

	"macroscan/internal/config"
	"macroscan/internal/report"
)

// AllowList accepts the risk of known documents, by content digest or by
// path pattern. Allowed documents keep their verdict but report ALLOWED and
// never affect the exit code.
type AllowList struct {
	Hashes   map[string]bool
	Patterns []string
}

// NewAllowList builds the allowlist from --allow-hash and --allow-path.
func NewAllowList(cfg *config.Config) *AllowList {
	a := &AllowList{Hashes: make(map[string]bool)}
	if cfg == nil {
		return a
	}
	for _, h := range cfg.Rules.AllowHashes {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			a.Hashes[h] = true
		}
	}
	for _, p := range cfg.Rules.AllowPaths {
		p = strings.TrimSpace(p)
		if p != "" {
			a.Patterns = append(a.Patterns, p)
		}
	}
	return a
}

// Empty reports whether nothing is allowed.
func (a *AllowList) Empty() bool {
	return a == nil || (len(a.Hashes) == 0 && len(a.Patterns) == 0)
}

// IsAllowed checks the report's digest first, then its path.
// It returns true and a reason string if allowed, otherwise false and empty string.
func (a *AllowList) IsAllowed(r report.Report) (bool, string) {
	if a.Empty() {
		return false, ""
	}

	if r.SHA256 != "" && a.Hashes[strings.ToLower(r.SHA256)] {
		return true, "allow-hash"
	}

	for _, pattern := range a.Patterns {
		if matchPattern(pattern, r.Path) {
			return true, fmt.Sprintf("allow-path %s", pattern)
		}
	}

	return false, ""
}

// CheckReport applies the allowlist to a RISK report.
func (a *AllowList) CheckReport(r report.Report) report.Report {
	if r.Status != report.StatusRisk {
		return r
	}
	if allowed, reason := a.IsAllowed(r); allowed {
		return r.Allow(reason)
	}
	return r
}
