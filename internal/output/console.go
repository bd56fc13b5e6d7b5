package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"macroscan/internal/report"
	"macroscan/internal/textscan"
	"macroscan/internal/verdict"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	reports         []report.Report // For JSON array output
	allowedStatuses map[string]bool
}

func NewConsoleSink(w io.Writer, format string, filterStatuses []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
	}

	if len(filterStatuses) > 0 {
		s.allowedStatuses = make(map[string]bool)
		for _, st := range filterStatuses {
			s.allowedStatuses[strings.ToUpper(strings.TrimSpace(st))] = true
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	if len(s.allowedStatuses) > 0 {
		if r, ok := v.(report.Report); ok {
			if !s.allowedStatuses[string(r.Status)] {
				return nil
			}
		}
	}

	switch s.format {
	case "json":
		r, ok := v.(report.Report)
		if !ok {
			// Ignore lifecycle events in JSON console mode.
			return nil
		}
		s.reports = append(s.reports, r)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case report.Report:
			if err := encoder.Encode(eventFromReport(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		r, ok := v.(report.Report)
		if !ok {
			// Ignore events in text mode.
			return nil
		}
		if _, err := io.WriteString(s.writer, formatText(r)); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.reports); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}

func statusColor(r report.Report) *color.Color {
	switch r.Status {
	case report.StatusSafe:
		return color.New(color.FgGreen)
	case report.StatusRisk:
		switch r.Tier() {
		case verdict.TierHigh, verdict.TierVeryHigh:
			return color.New(color.FgRed, color.Bold)
		default:
			return color.New(color.FgYellow)
		}
	case report.StatusAllowed:
		return color.New(color.FgCyan)
	case report.StatusError:
		return color.New(color.FgRed)
	case report.StatusSkipped:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Faint)
	}
}

// formatText renders one report as console lines:
//
//	[RISK] path - moderate: Total risk score: 35 out of 100 (35.00%)
//	  Moderate risk detected. ...
//	  +20 shell-execution: Executing system commands using Shell
func formatText(r report.Report) string {
	var b strings.Builder
	tag := statusColor(r).Sprintf("[%s]", r.Status)

	if r.Verdict != nil {
		fmt.Fprintf(&b, "%s %s - %s: %s\n", tag, r.Path, r.Verdict.Tier.Label(), r.Verdict.Summary())
		if r.Message != "" {
			fmt.Fprintf(&b, "  %s\n", r.Message)
		}
	} else {
		fmt.Fprintf(&b, "%s %s", tag, r.Path)
		if r.Message != "" {
			fmt.Fprintf(&b, " - %s", r.Message)
		}
		b.WriteString("\n")
	}

	for _, c := range r.Contributions {
		fmt.Fprintf(&b, "  +%d %s: %s\n", c.Points, c.RuleID, c.Reason)
	}

	if r.Text != "" {
		b.WriteString("  Recovered text:\n")
		for _, line := range textscan.Runs(r.Text) {
			fmt.Fprintf(&b, "    | %s\n", line)
		}
	}
	return b.String()
}
