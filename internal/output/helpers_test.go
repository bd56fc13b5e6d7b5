package output

import (
	"macroscan/internal/container"
	"macroscan/internal/report"
	"macroscan/internal/rules"
	"macroscan/internal/verdict"
)

func riskReport(path string, contribs ...rules.Contribution) report.Report {
	total := 0
	for _, c := range contribs {
		total += c.Points
	}
	v := verdict.Classify(total)
	status := report.StatusRisk
	if total == 0 {
		status = report.StatusSafe
	}
	return report.Report{
		RunID:         "run-1",
		Path:          path,
		Container:     container.ZipPackage,
		Outcome:       container.OutcomeFound,
		Status:        status,
		Contributions: contribs,
		Verdict:       &v,
		Message:       v.Message,
	}
}

func contribution(id string, points int, reason string) rules.Contribution {
	return rules.Contribution{RuleID: id, Title: id + " title", Points: points, Reason: reason}
}

func noMacrosReport(path string) report.Report {
	return report.Report{
		Path:    path,
		Status:  report.StatusNoMacros,
		Outcome: container.OutcomeMacroFree,
		Message: "Regular .docx files do not contain macros.",
	}
}
