// Package report defines the per-document record produced by a scan and
// consumed by the output sinks.
package report

import (
	"fmt"
	"strings"

	"macroscan/internal/container"
	"macroscan/internal/rules"
	"macroscan/internal/verdict"
)

type Status string

const (
	StatusNoMacros Status = "NO_MACROS"
	StatusSafe     Status = "SAFE"
	StatusRisk     Status = "RISK"
	StatusAllowed  Status = "ALLOWED"
	StatusError    Status = "ERROR"
	StatusSkipped  Status = "SKIPPED"
)

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusRisk, StatusSafe, StatusNoMacros, StatusAllowed, StatusSkipped, StatusError}
}

// Evidence controls how much supporting detail a report carries.
type Evidence string

const (
	// EvidenceMinimal keeps the verdict only.
	EvidenceMinimal Evidence = "minimal"
	// EvidenceStandard adds rule contributions.
	EvidenceStandard Evidence = "standard"
	// EvidenceFull adds the recovered text.
	EvidenceFull Evidence = "full"
)

func ParseEvidence(s string) (Evidence, error) {
	switch e := Evidence(strings.ToLower(strings.TrimSpace(s))); e {
	case "":
		return EvidenceStandard, nil
	case EvidenceMinimal, EvidenceStandard, EvidenceFull:
		return e, nil
	default:
		return "", fmt.Errorf("invalid evidence level %q (must be minimal, standard, or full)", s)
	}
}

// Report is the outcome of scanning one document.
type Report struct {
	RunID         string               `json:"run_id,omitempty"`
	Path          string               `json:"path"`
	Extension     string               `json:"extension,omitempty"`
	SHA256        string               `json:"sha256,omitempty"`
	Size          int64                `json:"size,omitempty"`
	Container     container.Kind       `json:"container,omitempty"`
	Outcome       container.Outcome    `json:"outcome,omitempty"`
	VBAPath       string               `json:"vba_path,omitempty"`
	VBASize       int                  `json:"vba_size,omitempty"`
	Status        Status               `json:"status"`
	Contributions []rules.Contribution `json:"contributions,omitempty"`
	Verdict       *verdict.Verdict     `json:"verdict,omitempty"`
	Message       string               `json:"message,omitempty"`
	Text          string               `json:"recovered_text,omitempty"`
}

// Tier returns the verdict tier, or "" when the document was not scored.
func (r Report) Tier() verdict.Tier {
	if r.Verdict == nil {
		return ""
	}
	return r.Verdict.Tier
}

// Score returns the total risk score, zero when unscored.
func (r Report) Score() int {
	if r.Verdict == nil {
		return 0
	}
	return r.Verdict.TotalScore
}

// AtLeast reports whether the document was scored at or above min and has
// not been allowed.
func (r Report) AtLeast(min verdict.Tier) bool {
	if r.Status != StatusRisk && r.Status != StatusSafe {
		return false
	}
	return r.Verdict != nil && r.Verdict.Tier.AtLeast(min)
}

// Trim drops detail above the given evidence level.
func (r Report) Trim(level Evidence) Report {
	switch level {
	case EvidenceMinimal:
		r.Contributions = nil
		r.Text = ""
	case EvidenceStandard, "":
		r.Text = ""
	}
	return r
}

func ErrorReport(path string, message string) Report {
	return Report{Path: path, Status: StatusError, Message: message}
}

func SkippedReport(path string, message string) Report {
	return Report{Path: path, Status: StatusSkipped, Message: message}
}

// Allow marks a report as allowed by policy, keeping its verdict.
func (r Report) Allow(reason string) Report {
	if r.Status != StatusRisk {
		return r
	}
	r.Status = StatusAllowed
	msg := fmt.Sprintf("Allowed by policy: %s", reason)
	if r.Message != "" {
		msg = fmt.Sprintf("%s (%s)", r.Message, msg)
	}
	r.Message = msg
	return r
}
