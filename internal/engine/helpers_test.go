package engine

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"macroscan/internal/output"
	"macroscan/internal/report"
	_ "macroscan/internal/rules/checks"
)

// vbaProject builds a stand-in vbaProject.bin: readable lines separated by
// binary noise.
func vbaProject(lines ...string) []byte {
	var b bytes.Buffer
	b.Write([]byte{0xCC, 0x61, 0x00, 0x01})
	for _, l := range lines {
		b.WriteString(l)
		b.Write([]byte{0x00, 0x02, 0xFF})
	}
	return b.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// packageBytes builds an OOXML package. Macro-enabled extensions get a VBA
// project holding lines.
func packageBytes(t *testing.T, name string, lines ...string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	entries := map[string][]byte{"[Content_Types].xml": []byte("<Types/>")}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docm":
		entries["word/vbaProject.bin"] = vbaProject(lines...)
	case ".xlsm", ".xlsb":
		entries["xl/vbaProject.bin"] = vbaProject(lines...)
	case ".pptm":
		entries["ppt/vbaProject.bin"] = vbaProject(lines...)
	}
	for entry, data := range entries {
		f, err := w.Create(entry)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeDocument(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	return writeFile(t, dir, name, packageBytes(t, name, lines...))
}

// Scores 60 (high): download-execute + shell-execution + filesystem-manipulation.
var riskyMacro = []string{
	"Sub AutoOpen()",
	"URLDownloadToFile 0, src, dst, 0, 0",
	"Shell dst, vbHide",
	"Kill dst",
	"End Sub",
}

var benignMacro = []string{
	"Sub Greeting()",
	"MsgBox greetingText",
	"End Sub",
}

// recordingSink keeps everything written to it.
type recordingSink struct {
	mu     sync.Mutex
	writes []any
	closed bool
}

func (s *recordingSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, v)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) Reports() []report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []report.Report
	for _, v := range s.writes {
		if r, ok := v.(report.Report); ok {
			out = append(out, r)
		}
	}
	return out
}

func (s *recordingSink) Events(typ string) []output.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []output.Event
	for _, v := range s.writes {
		if e, ok := v.(output.Event); ok && e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func reportByBase(reports []report.Report, base string) (report.Report, bool) {
	for _, r := range reports {
		if filepath.Base(r.Path) == base {
			return r, true
		}
	}
	return report.Report{}, false
}

// captureOutput runs fn with os.Stdout and os.Stderr redirected and returns
// what was written.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	os.Stderr = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	defer func() {
		os.Stdout = oldStdout
		os.Stderr = oldStderr
	}()
	fn()

	_ = w.Close()
	out := <-done
	_ = r.Close()
	return out
}
