package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"macroscan/internal/report"
	"macroscan/internal/verdict"
)

// ReportSink renders a Markdown summary of the run when closed.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	reports      []report.Report
	ruleIDs      []string
	runID        string
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path: path,
		file: f,
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case report.Report:
		s.reports = append(s.reports, t)
	case Event:
		switch t.Type {
		case "run.started":
			s.runID = t.RunID
			s.ruleIDs = append([]string(nil), t.RuleIDs...)
		case "run.finished":
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeErr := func(err error) error {
		_ = s.file.Close()
		return err
	}

	if _, err := s.file.WriteString(s.render()); err != nil {
		return writeErr(err)
	}
	return s.file.Close()
}

func (s *ReportSink) render() string {
	st := computeRunStats(s.reports)

	var b strings.Builder
	b.WriteString("# Macro Scan Report\n\n")
	if s.runID != "" {
		fmt.Fprintf(&b, "Run `%s`\n\n", s.runID)
	}

	// --- Executive Risk Brief ---
	b.WriteString("### Executive Risk Brief\n\n")
	b.WriteString("**What the scan found**\n")
	fmt.Fprintf(&b, "- %d documents scanned, %d carry VBA macros.\n", st.Total, st.WithMacros)
	if st.HighOrAbove > 0 {
		fmt.Fprintf(&b, "- **%d documents are rated high or very high risk.**\n", st.HighOrAbove)
	}
	if st.ByStatus[report.StatusAllowed] > 0 {
		fmt.Fprintf(&b, "- %d risky documents are allowed by policy.\n", st.ByStatus[report.StatusAllowed])
	}
	if blind := st.ByStatus[report.StatusError] + st.ByStatus[report.StatusSkipped]; blind > 0 {
		fmt.Fprintf(&b, "- **%d documents could not be analyzed.**\n", blind)
	}
	if st.HighOrAbove == 0 && st.ByStatus[report.StatusRisk] == 0 {
		b.WriteString("- No risky macros found.\n")
	}

	b.WriteString("\n**What to do first**\n")
	switch {
	case st.HighOrAbove > 0:
		b.WriteString("- Quarantine high-risk documents and do not enable their macros.\n")
	case st.ByStatus[report.StatusRisk] > 0:
		b.WriteString("- Review the flagged macros before enabling content in these documents.\n")
	default:
		b.WriteString("- No immediate actions required.\n")
	}
	if st.ByStatus[report.StatusError] > 0 {
		b.WriteString("- Resolve read errors so every document is covered.\n")
	}
	b.WriteString("\n")

	// --- Tier Distribution ---
	b.WriteString("## Tier Distribution\n\n")
	b.WriteString("| Tier | Documents |\n")
	b.WriteString("| --- | ---: |\n")
	for _, name := range verdict.TierNames() {
		tier := verdict.Tier(name)
		fmt.Fprintf(&b, "| %s | %d |\n", tier.Label(), st.ByTier[tier])
	}
	b.WriteString("\n")

	// --- Highest Risk Documents ---
	b.WriteString("## Highest Risk Documents\n\n")
	riskiest := topRiskiest(s.reports, 10)
	if len(riskiest) == 0 {
		b.WriteString("No risky documents found.\n\n")
	} else {
		b.WriteString("| Document | Score | Tier | Key Indicators |\n")
		b.WriteString("| --- | ---: | --- | --- |\n")
		for _, r := range riskiest {
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", r.Path, r.Score(), r.Tier().Label(), strings.Join(keyIndicators(r, 3), ", "))
		}
		b.WriteString("\n")
	}

	// --- Indicators ---
	b.WriteString("## Indicators Across Documents\n\n")
	hits := computeRuleHits(s.reports)
	if len(hits) == 0 {
		b.WriteString("No indicators matched.\n\n")
	} else {
		b.WriteString("| Rule | Documents | Points |\n")
		b.WriteString("| --- | ---: | ---: |\n")
		for _, h := range hits {
			fmt.Fprintf(&b, "| **%s**<br>_%s_ | %d | %d |\n", h.RuleID, h.Title, h.Documents, h.Points)
		}
		b.WriteString("\n")
	}

	// --- Findings ---
	b.WriteString("## Findings\n\n")
	if len(riskiest) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, r := range sortedByScore(filterStatus(s.reports, report.StatusRisk)) {
			fmt.Fprintf(&b, "### %s\n", r.Path)
			fmt.Fprintf(&b, "%s\n\n", r.Verdict.Summary())
			if r.Message != "" {
				fmt.Fprintf(&b, "_%s_\n\n", r.Message)
			}
			if r.SHA256 != "" {
				fmt.Fprintf(&b, "- sha256: `%s`\n", r.SHA256)
			}
			for _, c := range r.Contributions {
				fmt.Fprintf(&b, "- **%s** (+%d): %s\n", c.RuleID, c.Points, c.Reason)
			}
			b.WriteString("\n")
		}
	}

	// --- Allowed ---
	allowed := filterStatus(s.reports, report.StatusAllowed)
	if len(allowed) > 0 {
		b.WriteString("## Allowed by Policy\n\n")
		for _, r := range sortedByScore(allowed) {
			fmt.Fprintf(&b, "- %s (%d): %s\n", r.Path, r.Score(), r.Message)
		}
		b.WriteString("\n")
	}

	// --- Clean ---
	b.WriteString("## Clean Documents\n\n")
	clean := pathsOf(append(filterStatus(s.reports, report.StatusSafe), filterStatus(s.reports, report.StatusNoMacros)...))
	if len(clean) == 0 {
		b.WriteString("- None\n\n")
	} else {
		fmt.Fprintf(&b, "- %s\n\n", formatPathList(clean, 10))
	}

	// --- Skipped ---
	b.WriteString("## Skipped\n\n")
	writeGrouped(&b, filterStatus(s.reports, report.StatusSkipped))

	// --- Errors ---
	b.WriteString("## Errors\n\n")
	writeGrouped(&b, filterStatus(s.reports, report.StatusError))

	// --- Rules Evaluated ---
	b.WriteString("## Rules evaluated\n")
	ruleIDs := append([]string(nil), s.ruleIDs...)
	sort.Strings(ruleIDs)
	if len(ruleIDs) == 0 {
		b.WriteString("- None\n\n")
	} else {
		for _, id := range ruleIDs {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}

	if s.haveExitCode {
		fmt.Fprintf(&b, "Exit code: %d\n", s.exitCode)
	}
	return b.String()
}

// writeGrouped lists reports grouped by normalized message.
func writeGrouped(b *strings.Builder, reports []report.Report) {
	if len(reports) == 0 {
		b.WriteString("- None\n\n")
		return
	}
	byReason := make(map[string][]string)
	for _, r := range reports {
		reason := normalizeErrorReason(r.Message)
		byReason[reason] = append(byReason[reason], r.Path)
	}
	reasons := make([]string, 0, len(byReason))
	for reason := range byReason {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		paths := byReason[reason]
		sort.Strings(paths)
		fmt.Fprintf(b, "- **%s**: %s\n", reason, formatPathList(paths, 5))
	}
	b.WriteString("\n")
}
