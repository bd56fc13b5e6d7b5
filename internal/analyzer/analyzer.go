// Package analyzer runs the macro risk pipeline over one document:
// container detection, VBA extraction, string recovery, rule scoring and
// classification.
package analyzer

import (
	"macroscan/internal/container"
	"macroscan/internal/document"
	"macroscan/internal/logger"
	"macroscan/internal/report"
	"macroscan/internal/rules"
	"macroscan/internal/textscan"
	"macroscan/internal/verdict"
)

type Analyzer struct {
	rules    []rules.Rule
	evidence report.Evidence
}

func New(set []rules.Rule, evidence report.Evidence) *Analyzer {
	if evidence == "" {
		evidence = report.EvidenceStandard
	}
	return &Analyzer{rules: set, evidence: evidence}
}

// Analyze produces the report for doc. It never fails: documents without
// recoverable VBA come back as NO_MACROS.
func (a *Analyzer) Analyze(doc *document.Document) report.Report {
	rep := report.Report{
		Path:      doc.Path,
		Extension: doc.Extension,
		SHA256:    doc.SHA256,
		Size:      doc.Size,
	}

	ex := container.Extract(doc)
	rep.Container = ex.Kind
	rep.Outcome = ex.Outcome
	rep.VBAPath = ex.Path

	if !ex.Found() {
		rep.Status = report.StatusNoMacros
		rep.Message = ex.Message()
		return rep
	}

	logger.Debug("VBA content size: %d", len(ex.Data))
	rep.VBASize = len(ex.Data)

	text := textscan.ExtractReadable(ex.Data)
	score := rules.Score(text, a.rules)
	v := verdict.Classify(score.Total)
	logger.Debug("%s: %s", doc.Name, v.Summary())

	rep.Verdict = &v
	rep.Message = v.Message
	rep.Contributions = score.Contributions
	rep.Text = text
	rep.Status = report.StatusSafe
	if score.Total > 0 {
		rep.Status = report.StatusRisk
	}

	return rep.Trim(a.evidence)
}

// Analyze runs a one-off analysis with the given rule set.
func Analyze(doc *document.Document, set []rules.Rule) report.Report {
	return New(set, report.EvidenceStandard).Analyze(doc)
}
