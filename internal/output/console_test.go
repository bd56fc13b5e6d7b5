package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macroscan/internal/report"
)

func init() {
	color.NoColor = true
}

func TestConsoleSink_Filtering(t *testing.T) {
	risky := riskReport("a.docm", contribution("shell-execution", 20, "Executing system commands using Shell"))
	safe := riskReport("b.xlsm")
	failed := report.ErrorReport("c.doc", "open c.doc: permission denied")
	skipped := report.SkippedReport("d.xls", "file exceeds maximum size")

	tests := []struct {
		name           string
		format         string
		filterStatuses []string
		input          report.Report
		shouldWrite    bool
	}{
		{
			name:        "text - no filter - safe",
			format:      "text",
			input:       safe,
			shouldWrite: true,
		},
		{
			name:           "text - filter RISK - input SAFE",
			format:         "text",
			filterStatuses: []string{"RISK"},
			input:          safe,
			shouldWrite:    false,
		},
		{
			name:           "text - filter RISK - input RISK",
			format:         "text",
			filterStatuses: []string{"RISK"},
			input:          risky,
			shouldWrite:    true,
		},
		{
			name:           "text - filter lower-case error - input ERROR",
			format:         "text",
			filterStatuses: []string{" error "},
			input:          failed,
			shouldWrite:    true,
		},
		{
			name:           "text - filter RISK,ERROR - input SKIPPED",
			format:         "text",
			filterStatuses: []string{"RISK", "ERROR"},
			input:          skipped,
			shouldWrite:    false,
		},
		{
			name:           "ndjson - filter SAFE - input SAFE",
			format:         "ndjson",
			filterStatuses: []string{"SAFE"},
			input:          safe,
			shouldWrite:    true,
		},
		{
			name:           "ndjson - filter SAFE - input RISK",
			format:         "ndjson",
			filterStatuses: []string{"SAFE"},
			input:          risky,
			shouldWrite:    false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewConsoleSink(&buf, tt.format, tt.filterStatuses)
			require.NoError(t, sink.Write(tt.input))
			require.NoError(t, sink.Close())

			assert.Equal(t, tt.shouldWrite, buf.Len() > 0, "output: %q", buf.String())
		})
	}
}

func TestConsoleSink_JSONFilteringAggregates(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "json", []string{"RISK"})

	_ = sink.Write(Event{Type: "run.started", RunID: "run-1"})
	_ = sink.Write(riskReport("a.docm", contribution("shell-execution", 20, "Executing system commands using Shell")))
	_ = sink.Write(riskReport("b.xlsm"))
	_ = sink.Write(noMacrosReport("c.docx"))

	require.Len(t, sink.reports, 1, "one aggregated report")
	require.NoError(t, sink.Close())

	var got []report.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got), buf.String())
	require.Len(t, got, 1)
	assert.Equal(t, "a.docm", got[0].Path)
	require.NotNil(t, got[0].Verdict)
	assert.Equal(t, 20, got[0].Verdict.TotalScore)
}

func TestConsoleSink_NDJSONWrapsReports(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "ndjson", nil)

	_ = sink.Write(Event{Type: "run.started", RunID: "run-1", Files: 1})
	_ = sink.Write(riskReport("a.docm", contribution("shell-execution", 20, "Executing system commands using Shell")))
	_ = sink.Write(Event{Type: "run.finished", RunID: "run-1", ExitCode: 1})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3, buf.String())
	assert.Contains(t, lines[1], `"type":"file.result"`)
	assert.Contains(t, lines[1], `"status":"RISK"`)
	assert.Contains(t, lines[1], `"path":"a.docm"`)
	assert.Contains(t, lines[2], `"exit_code":1`)
}

func TestConsoleSink_TextLayout(t *testing.T) {
	r := riskReport("docs/invoice.docm",
		contribution("download-execute", 25, "Downloading/executing files using URLDownloadToFile"),
		contribution("shell-execution", 20, "Executing system commands using Shell"),
	)
	r.Text = "Sub AutoOpen\nShell cmd"

	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)
	require.NoError(t, sink.Write(r))
	out := buf.String()

	for _, want := range []string{
		"[RISK] docs/invoice.docm - moderate: Total risk score: 45 out of 100 (45.00%)",
		"  Moderate risk detected.",
		"  +25 download-execute: Downloading/executing files using URLDownloadToFile",
		"  +20 shell-execution: Executing system commands using Shell",
		"  Recovered text:",
		"    | Sub AutoOpen",
		"    | Shell cmd",
	} {
		assert.Contains(t, out, want)
	}
}

func TestConsoleSink_TextUnscored(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)
	_ = sink.Write(noMacrosReport("letter.docx"))

	assert.Equal(t, "[NO_MACROS] letter.docx - Regular .docx files do not contain macros.\n", buf.String())
}

func TestConsoleSink_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "xml", nil)
	assert.Error(t, sink.Write(riskReport("a.docm")), "unsupported format")
}
