package output

import "macroscan/internal/report"

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - file.started
// - file.result
// - run.finished
//
// JSON mode remains an aggregate of report.Report values.
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
	Path  string `json:"path,omitempty"`
	*report.Report
	Files    int      `json:"files,omitempty"`
	Rules    int      `json:"rules,omitempty"`
	RuleIDs  []string `json:"rule_ids,omitempty"`
	ExitCode int      `json:"exit_code,omitempty"`
}

func eventFromReport(r report.Report) Event {
	return Event{Type: "file.result", RunID: r.RunID, Path: r.Path, Report: &r}
}
