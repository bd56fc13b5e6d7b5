package engine

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"macroscan/internal/loader"
	"macroscan/internal/report"
)

type loadErrorDisposition int

const (
	loadErrDispositionError loadErrorDisposition = iota
	loadErrDispositionSkip
)

type loadErrorPresentation struct {
	disposition loadErrorDisposition
	message     string
}

// presentLoadError turns a loader failure into a per-file message. Oversize
// files are skipped rather than failed. The report already carries the path,
// so the message drops it unless verbose.
func presentLoadError(path string, err error, verbose bool) loadErrorPresentation {
	if err == nil {
		return loadErrorPresentation{disposition: loadErrDispositionError, message: "unknown error"}
	}

	full := err.Error()
	if verbose {
		disp := loadErrDispositionError
		if errors.Is(err, loader.ErrFileTooLarge) {
			disp = loadErrDispositionSkip
		}
		return loadErrorPresentation{disposition: disp, message: full}
	}

	switch {
	case errors.Is(err, loader.ErrFileTooLarge):
		return loadErrorPresentation{disposition: loadErrDispositionSkip, message: loader.ErrFileTooLarge.Error()}
	case errors.Is(err, fs.ErrNotExist):
		return loadErrorPresentation{disposition: loadErrDispositionError, message: "file not found"}
	case errors.Is(err, fs.ErrPermission):
		return loadErrorPresentation{disposition: loadErrDispositionError, message: "permission denied"}
	case errors.Is(err, context.DeadlineExceeded):
		return loadErrorPresentation{disposition: loadErrDispositionError, message: "scan timed out"}
	}

	if scrubbed := scrubPathFromErrorString(full, path); scrubbed != "" {
		return loadErrorPresentation{disposition: loadErrDispositionError, message: scrubbed}
	}
	return loadErrorPresentation{disposition: loadErrDispositionError, message: "failed to read file"}
}

func scrubPathFromErrorString(s, path string) string {
	// Typical loader error formats:
	//   read /tmp/a.docm: input/output error
	//   /tmp/a.docm is not a regular file
	// We want to drop the operation and path.
	s = strings.TrimSpace(s)
	if path == "" {
		return s
	}
	if i := strings.Index(s, path+": "); i >= 0 {
		return strings.TrimSpace(s[i+len(path)+2:])
	}
	if i := strings.Index(s, path+" "); i >= 0 {
		return strings.TrimSpace(s[i+len(path)+1:])
	}
	return s
}

// reportForLoadError builds the ERROR or SKIPPED report for a file that
// could not be read.
func reportForLoadError(f FileRef, err error, verbose bool) report.Report {
	pres := presentLoadError(f.Path, err, verbose)
	if pres.disposition == loadErrDispositionSkip {
		return report.SkippedReport(f.Path, pres.message)
	}
	return report.ErrorReport(f.Path, pres.message)
}
