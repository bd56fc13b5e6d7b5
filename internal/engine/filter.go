package engine

import (
	"path"
	"path/filepath"
	"strings"

	"macroscan/internal/config"
)

// FilterFiles applies --include/--exclude and --max-files.
//
// Files named explicitly on the command line bypass include/exclude: the user
// asked for them by name. --max-files applies to the whole set.
func FilterFiles(files []FileRef, cfg *config.Config) []FileRef {
	if cfg == nil {
		panic("engine.FilterFiles: cfg must not be nil")
	}

	includePatterns := cfg.Targeting.Include
	excludePatterns := cfg.Targeting.Exclude

	var filtered []FileRef
	for _, f := range files {
		if !f.Explicit {
			// If Include is set, must match at least one
			if len(includePatterns) > 0 && !matchesAnyPattern(includePatterns, f.Path) {
				continue
			}

			// If Exclude is set, must not match any
			if len(excludePatterns) > 0 && matchesAnyPattern(excludePatterns, f.Path) {
				continue
			}
		}

		filtered = append(filtered, f)
	}

	// Max files
	if cfg.Targeting.MaxFiles > 0 && len(filtered) > cfg.Targeting.MaxFiles {
		filtered = filtered[:cfg.Targeting.MaxFiles]
	}

	return filtered
}

func matchesAnyPattern(patterns []string, filePath string) bool {
	for _, p := range patterns {
		if matchPattern(p, filePath) {
			return true
		}
	}
	return false
}

// matchPattern matches pattern against the base name, or against the
// slash-separated path when the pattern itself contains a '/'. Matching is
// case-insensitive.
func matchPattern(pattern, filePath string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	slashed := strings.ToLower(filepath.ToSlash(filePath))
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, slashed)
		return matched
	}
	matched, _ := path.Match(pattern, path.Base(slashed))
	return matched
}
