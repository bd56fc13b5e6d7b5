package container

import (
	"fmt"

	"macroscan/internal/document"
	"macroscan/internal/logger"
)

// MaxPayloadSize bounds the size of a VBA project read from a container.
const MaxPayloadSize int64 = 64 << 20

// Outcome explains the result of a VBA extraction attempt.
type Outcome string

const (
	OutcomeFound        Outcome = "found"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeMacroFree    Outcome = "macro_free"
	OutcomeNoLocation   Outcome = "no_location"
	OutcomeNoVBAStorage Outcome = "no_vba_storage"
	OutcomeMissingEntry Outcome = "missing_entry"
	OutcomeCorrupt      Outcome = "corrupt"
)

// Extraction is the result of locating the VBA project inside a document.
// Data is nil unless Outcome is OutcomeFound.
type Extraction struct {
	Kind    Kind
	Path    string
	Data    []byte
	Outcome Outcome
	Detail  string
}

// Found reports whether VBA project bytes were extracted.
func (e Extraction) Found() bool {
	return e.Outcome == OutcomeFound && len(e.Data) > 0
}

// Message is a human-readable description of the outcome.
func (e Extraction) Message() string {
	switch e.Outcome {
	case OutcomeFound:
		return fmt.Sprintf("VBA project found at %s (%d bytes)", e.Path, len(e.Data))
	case OutcomeUnrecognized:
		return "No macro-bearing container detected"
	case OutcomeMacroFree:
		return e.Detail
	case OutcomeNoLocation:
		return fmt.Sprintf("No VBA location is defined for this file type in a %s container", e.Kind)
	case OutcomeNoVBAStorage:
		return "No VBA storage in compound file"
	case OutcomeMissingEntry:
		if e.Kind == ZipPackage {
			return "No VBA data found in the OOXML file."
		}
		return fmt.Sprintf("VBA storage present but %s is missing", e.Path)
	case OutcomeCorrupt:
		if e.Detail != "" {
			return e.Detail
		}
		return "Container could not be parsed"
	default:
		return string(e.Outcome)
	}
}

// Extract detects the container kind of doc and locates its VBA project.
func Extract(doc *document.Document) Extraction {
	return Locate(doc, Detect(doc.Data))
}

// Locate reads the VBA project for a document whose container kind is known.
// Malformed input never produces an error: every failure degrades to an
// Extraction without data.
func Locate(doc *document.Document, kind Kind) Extraction {
	if IsMacroFree(doc.Extension) {
		msg := fmt.Sprintf("Regular %s files do not contain macros.", doc.Extension)
		logger.Info("%s: %s", doc.Name, msg)
		return Extraction{Kind: kind, Outcome: OutcomeMacroFree, Detail: msg}
	}
	if kind == Unrecognized {
		return Extraction{Kind: kind, Outcome: OutcomeUnrecognized}
	}

	path, ok := Location(kind, doc.Extension)
	if !ok {
		return Extraction{Kind: kind, Outcome: OutcomeNoLocation}
	}

	var ex Extraction
	switch kind {
	case OleCompound:
		ex = readCompound(doc.Data, path)
	case ZipPackage:
		ex = readPackage(doc.Data, path)
	}
	ex.Kind = kind
	ex.Path = path
	return ex
}
