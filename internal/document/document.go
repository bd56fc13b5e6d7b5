package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedExtension is returned for files outside the accepted Office set.
// It is a caller-level rejection: such files never reach the analyzer.
var ErrUnsupportedExtension = errors.New("unsupported file type")

// Accepted file extensions, lower-case with the leading dot.
const (
	ExtXLS  = ".xls"
	ExtXLSM = ".xlsm"
	ExtXLSB = ".xlsb"
	ExtXLSX = ".xlsx"
	ExtDOC  = ".doc"
	ExtDOCX = ".docx"
	ExtDOCM = ".docm"
	ExtPPTX = ".pptx"
	ExtPPTM = ".pptm"
)

var accepted = []string{ExtXLS, ExtXLSM, ExtXLSB, ExtXLSX, ExtDOCX, ExtDOC, ExtPPTX, ExtPPTM, ExtDOCM}

// AcceptedExtensions returns the accepted extensions in display order.
func AcceptedExtensions() []string {
	out := make([]string, len(accepted))
	copy(out, accepted)
	return out
}

// Extension returns the lower-cased extension of name, including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsAccepted reports whether name carries an accepted Office extension.
func IsAccepted(name string) bool {
	ext := Extension(name)
	for _, a := range accepted {
		if ext == a {
			return true
		}
	}
	return false
}

// ValidateExtension rejects names whose extension is not accepted.
func ValidateExtension(name string) error {
	if IsAccepted(name) {
		return nil
	}
	ext := Extension(name)
	if ext == "" {
		return fmt.Errorf("%w: %q has no extension (accepted: %s)", ErrUnsupportedExtension, filepath.Base(name), strings.Join(accepted, ", "))
	}
	return fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedExtension, ext, strings.Join(accepted, ", "))
}

// Document is an Office file read into memory. It is not modified after New.
type Document struct {
	Path      string
	Name      string
	Extension string
	Size      int64
	SHA256    string
	Data      []byte
}

// New builds a Document from a path and its content. The path is used only
// for naming and for the declared extension.
func New(path string, data []byte) *Document {
	sum := sha256.Sum256(data)
	name := filepath.Base(path)
	return &Document{
		Path:      path,
		Name:      name,
		Extension: Extension(name),
		Size:      int64(len(data)),
		SHA256:    hex.EncodeToString(sum[:]),
		Data:      data,
	}
}
