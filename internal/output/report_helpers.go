package output

import (
	"fmt"
	"sort"
	"strings"

	"macroscan/internal/report"
	"macroscan/internal/verdict"
)

type runStats struct {
	Total       int
	WithMacros  int
	HighOrAbove int
	ByStatus    map[report.Status]int
	ByTier      map[verdict.Tier]int
}

func computeRunStats(reports []report.Report) runStats {
	st := runStats{
		ByStatus: make(map[report.Status]int),
		ByTier:   make(map[verdict.Tier]int),
	}
	for _, r := range reports {
		st.Total++
		st.ByStatus[r.Status]++
		if r.Verdict == nil {
			continue
		}
		st.WithMacros++
		st.ByTier[r.Verdict.Tier]++
		if r.Status == report.StatusRisk && r.Verdict.Tier.AtLeast(verdict.TierHigh) {
			st.HighOrAbove++
		}
	}
	return st
}

type ruleHit struct {
	RuleID    string
	Title     string
	Documents int
	Points    int
}

// computeRuleHits counts, per rule, the documents it fired on and the points
// it added across the run. Sorted by documents, then points, then ID.
func computeRuleHits(reports []report.Report) []ruleHit {
	byID := make(map[string]*ruleHit)
	for _, r := range reports {
		seen := make(map[string]bool)
		for _, c := range r.Contributions {
			h, ok := byID[c.RuleID]
			if !ok {
				h = &ruleHit{RuleID: c.RuleID, Title: c.Title}
				byID[c.RuleID] = h
			}
			h.Points += c.Points
			if !seen[c.RuleID] {
				seen[c.RuleID] = true
				h.Documents++
			}
		}
	}

	out := make([]ruleHit, 0, len(byID))
	for _, h := range byID {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Documents != out[j].Documents {
			return out[i].Documents > out[j].Documents
		}
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].RuleID < out[j].RuleID
	})
	return out
}

// keyIndicators returns up to max distinct rule titles in contribution
// order, highest points first.
func keyIndicators(r report.Report, max int) []string {
	contribs := append(r.Contributions[:0:0], r.Contributions...)
	sort.SliceStable(contribs, func(i, j int) bool {
		return contribs[i].Points > contribs[j].Points
	})

	var out []string
	seen := make(map[string]bool)
	for _, c := range contribs {
		if len(out) >= max {
			break
		}
		if seen[c.RuleID] {
			continue
		}
		seen[c.RuleID] = true
		out = append(out, c.Title)
	}
	return out
}

func filterStatus(reports []report.Report, status report.Status) []report.Report {
	var out []report.Report
	for _, r := range reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func sortedByScore(reports []report.Report) []report.Report {
	out := append([]report.Report(nil), reports...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score() != out[j].Score() {
			return out[i].Score() > out[j].Score()
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func topRiskiest(reports []report.Report, n int) []report.Report {
	out := sortedByScore(filterStatus(reports, report.StatusRisk))
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func pathsOf(reports []report.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Path)
	}
	sort.Strings(out)
	return out
}

// normalizeErrorReason collapses whitespace, strips path prefixes, and maps known patterns.
func normalizeErrorReason(errText string) string {
	s := strings.Join(strings.Fields(errText), " ")
	if s == "" {
		return "unknown error"
	}

	// Map known patterns
	switch {
	case strings.Contains(s, "exceeds maximum size"):
		return "file exceeds maximum size"
	case strings.Contains(s, "permission denied"):
		return "permission denied"
	case strings.Contains(s, "no such file or directory"):
		return "file not found"
	case strings.Contains(s, "context deadline exceeded"):
		return "scan timed out"
	}

	// Errors wrapped with "op path: cause" keep only the cause.
	if idx := strings.LastIndex(s, ": "); idx != -1 {
		prefix := s[:idx]
		if strings.ContainsAny(prefix, "/\\.") {
			s = s[idx+2:]
		}
	}

	// Fallback truncation
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

func formatPathList(paths []string, max int) string {
	if len(paths) == 0 {
		return ""
	}
	noun := "documents"
	if len(paths) == 1 {
		noun = "document"
	}
	if len(paths) <= max {
		return fmt.Sprintf("%d %s (%s)", len(paths), noun, strings.Join(paths, ", "))
	}
	return fmt.Sprintf("%d %s (%s, +%d more)", len(paths), noun, strings.Join(paths[:max], ", "), len(paths)-max)
}
