package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"macroscan/internal/config"
	"macroscan/internal/document"
	"macroscan/internal/logger"
)

// FileRef is one document selected for scanning.
type FileRef struct {
	// Path is the path as given or as found while walking a directory.
	Path string

	// Explicit is true when the file was named on the command line rather
	// than discovered inside a directory.
	Explicit bool
}

// ResolveFiles expands the configured targets into the document set.
//
// Named files must carry an accepted Office extension; anything else is a
// caller-level rejection. Files found while walking directories are kept only
// when their extension is accepted. Duplicates (by absolute path) are dropped.
func ResolveFiles(cfg *config.Config) ([]FileRef, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var refs []FileRef
	for _, raw := range cfg.Targeting.Paths {
		target := strings.TrimSpace(raw)
		if target == "" {
			continue
		}

		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", target, err)
		}

		if !info.IsDir() {
			if err := document.ValidateExtension(target); err != nil {
				return nil, err
			}
			refs = append(refs, FileRef{Path: target, Explicit: true})
			continue
		}

		found, err := walkDir(target, !cfg.Targeting.NoRecursive)
		if err != nil {
			return nil, err
		}
		refs = append(refs, found...)
	}

	return dedupeFiles(refs), nil
}

// walkDir lists accepted documents under root in lexical order. Without
// recursion only the immediate children are considered.
func walkDir(root string, recursive bool) ([]FileRef, error) {
	var refs []FileRef
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			logger.Warn("skipping %s: %v", p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != root && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !document.IsAccepted(p) {
			return nil
		}
		// Office lock files ("~$report.docx") are not documents.
		if strings.HasPrefix(d.Name(), "~$") {
			return nil
		}
		refs = append(refs, FileRef{Path: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return refs, nil
}

func dedupeFiles(in []FileRef) []FileRef {
	if len(in) <= 1 {
		return in
	}

	seen := make(map[string]int, len(in))
	out := make([]FileRef, 0, len(in))
	for _, r := range in {
		key := filepath.Clean(r.Path)
		if abs, err := filepath.Abs(r.Path); err == nil {
			key = abs
		}
		if i, ok := seen[key]; ok {
			// A file both named and found in a directory counts as named.
			out[i].Explicit = out[i].Explicit || r.Explicit
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}
	return out
}

// sortedPaths returns the file paths in lexical order.
func sortedPaths(files []FileRef) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Path)
	}
	sort.Strings(names)
	return names
}
