package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macroscan/internal/config"
	"macroscan/internal/loader"
)

func TestEngine_Run_NoConsole(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "risky.docm", riskyMacro...)

	cfg := config.New()
	cfg.Targeting.Paths = []string{dir}
	cfg.Output.NoConsole = true
	cfg.Runtime.Concurrency = 1

	eng := NewEngine(loader.New(cfg.Runtime.MaxFileSize))
	// We don't care about the result, just the output
	out := captureOutput(t, func() {
		_ = eng.Run(context.Background(), cfg)
	})

	assert.Empty(t, strings.TrimSpace(out), "no console output when NoConsole is true")
}

func TestEngine_Run_Console_Default(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "risky.docm", riskyMacro...)
	writeDocument(t, dir, "plain.docx")

	cfg := config.New()
	cfg.Targeting.Paths = []string{dir}
	cfg.Runtime.Concurrency = 1

	eng := NewEngine(loader.New(cfg.Runtime.MaxFileSize))
	var code int
	out := captureOutput(t, func() {
		code = eng.Run(context.Background(), cfg)
	})

	require.Equal(t, 1, code)
	for _, want := range []string{
		"Discovering files...",
		"Found 2 files.",
		"Resolving rules...",
		"Selected 6 rules.",
		"Planning scan...",
		"[RISK]",
		"[NO_MACROS]",
		"Executing system commands using Shell",
		"Scanned 2 files: 1 risky, 0 safe, 1 without macros, 0 allowed, 0 skipped, 0 errors.",
	} {
		assert.Contains(t, out, want)
	}
}

func TestEngine_Run_ConsoleFilterStatus(t *testing.T) {
	dir := t.TempDir()
	writeDocument(t, dir, "risky.docm", riskyMacro...)
	writeDocument(t, dir, "plain.docx")

	cfg := config.New()
	cfg.Targeting.Paths = []string{dir}
	cfg.Output.ConsoleFilterStatus = []string{"RISK"}

	eng := NewEngine(loader.New(cfg.Runtime.MaxFileSize))
	out := captureOutput(t, func() {
		_ = eng.Run(context.Background(), cfg)
	})

	assert.Contains(t, out, "[RISK]")
	assert.NotContains(t, out, "[NO_MACROS]", "NO_MACROS is filtered out")
}
