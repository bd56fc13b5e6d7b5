package engine

import "macroscan/internal/report"

// FileExecutionResult represents the outcome of loading and analyzing a
// single planned file.
//
// It is emitted by the scheduler, in plan order, and consumed by the engine
// during streaming scan execution.
type FileExecutionResult struct {
	Index int
	File  FileRef

	// Report is set when the file was loaded and analyzed.
	Report report.Report

	// LoadErr is set when the file could not be read; Report is then empty.
	LoadErr error
}
