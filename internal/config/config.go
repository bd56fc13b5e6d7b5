package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"macroscan/internal/report"
	"macroscan/internal/rules"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect scan
	// behavior, keep these in sync:
	// - CLI flags in internal/cli/scan.go
	// - TOML keys in internal/config/file.go
	Targeting Targeting
	Rules     Rules
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Paths are the files and directories to scan (positional arguments).
	Paths []string

	// Include filters discovered files by base name using Go path.Match style (see --include).
	Include []string

	// Exclude filters discovered files by base name using Go path.Match style (see --exclude).
	Exclude []string

	// NoRecursive limits directory targets to their immediate children (see --no-recursive).
	NoRecursive bool

	// MaxFiles limits how many files to scan (see --max-files). 0 means unlimited.
	MaxFiles int

	// DryRun resolves the file set and prints it without scanning (see --dry-run).
	DryRun bool
}

type Rules struct {
	// Selector selects which rules to run.
	// Empty means all rules; otherwise a comma-separated list of rule IDs (see --rules).
	Selector string

	// Set provides per-rule option overrides from the CLI.
	// Entries are of the form ruleID.option=value (repeatable; comma-separated accepted; see --set).
	Set []string

	// Evidence controls how much supporting detail reports include (see --evidence).
	// Allowed values: minimal, standard, full.
	Evidence string

	// FailOn is the lowest tier that makes the run exit with code 1 (see --fail-on).
	// Allowed values: low, moderate, high, very_high.
	FailOn string

	// AllowHashes lists SHA-256 digests of documents whose risk is accepted (see --allow-hash).
	AllowHashes []string

	// AllowPaths lists path.Match patterns of documents whose risk is accepted (see --allow-path).
	// A pattern containing '/' matches the slash-separated path; otherwise the base name.
	AllowPaths []string

	// Custom holds user-defined rules loaded from the config file ([[rules.custom]]).
	Custom []rules.Rule
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by report status (see --console-filter-status).
	// Allowed values: NO_MACROS, SAFE, RISK, ALLOWED, ERROR, SKIPPED.
	ConsoleFilterStatus []string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink and progress lines (see --no-console).
	NoConsole bool

	// DB appends every report to a SQLite scan history at this path (see --db).
	DB string
}

type Runtime struct {
	// Concurrency controls how many files are analyzed in parallel (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout is the global scan timeout for the run (see --timeout).
	// Must be > 0.
	Timeout time.Duration

	// FailFast stops the scan on the first file that cannot be read (see --fail-fast).
	FailFast bool

	// MaxFileSize is the largest file read, in bytes (see --max-file-size).
	MaxFileSize int64

	// Debounce is how long watch mode waits for writes to settle (see --debounce).
	Debounce time.Duration

	// ConfigFile is the TOML file the configuration was loaded from (see --config).
	ConfigFile string

	// Verbose enables diagnostic logging on stderr.
	Verbose bool
}

var (
	consoleFormats = []string{"text", "json", "ndjson"}
	emitFormats    = []string{"json", "ndjson"}
	evidenceLevels = []string{"minimal", "standard", "full"}
	failOnTiers    = []string{"low", "moderate", "high", "very_high"}
)

func New() *Config {
	return &Config{
		Rules: Rules{
			Evidence: "standard",
			FailOn:   "high",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 4,
			Timeout:     10 * time.Minute,
			MaxFileSize: 100 << 20,
			Debounce:    500 * time.Millisecond,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Targeting.Include = splitCommaList(c.Targeting.Include)
	c.Targeting.Exclude = splitCommaList(c.Targeting.Exclude)
	c.Rules.Set = splitCommaList(c.Rules.Set)
	c.Rules.AllowHashes = splitCommaList(c.Rules.AllowHashes)
	c.Rules.AllowPaths = splitCommaList(c.Rules.AllowPaths)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)

	// Targeting validation
	if len(c.Targeting.Paths) == 0 {
		return errors.New("at least one file or directory must be provided")
	}
	for _, p := range append(append([]string{}, c.Targeting.Include...), c.Targeting.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid --include/--exclude pattern %q: %w", p, err)
		}
	}
	if c.Targeting.MaxFiles < 0 {
		return errors.New("--max-files must be >= 0")
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if !oneOf(c.Output.ConsoleFormat, consoleFormats) {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v == "" {
			return errors.New("--emit must be one of: json, ndjson")
		}
		if !oneOf(v, emitFormats) {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", v)
		}
		c.Output.Emit[i] = v
	}

	for i, st := range c.Output.ConsoleFilterStatus {
		v := strings.ToUpper(strings.TrimSpace(st))
		if !oneOf(v, reportStatuses()) {
			return fmt.Errorf("unsupported --console-filter-status: %s (must be one of: %s)", st, strings.Join(reportStatuses(), ", "))
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	// Rules validation
	c.Rules.Evidence = normalizeEnumValue(c.Rules.Evidence)
	if c.Rules.Evidence == "" {
		return errors.New("--evidence must be one of: minimal, standard, full")
	}
	if !oneOf(c.Rules.Evidence, evidenceLevels) {
		return fmt.Errorf("unsupported --evidence: %s (must be one of: minimal, standard, full)", c.Rules.Evidence)
	}

	c.Rules.FailOn = strings.NewReplacer("-", "_", " ", "_").Replace(normalizeEnumValue(c.Rules.FailOn))
	if c.Rules.FailOn == "" {
		c.Rules.FailOn = "high"
	}
	if !oneOf(c.Rules.FailOn, failOnTiers) {
		return fmt.Errorf("unsupported --fail-on: %s (must be one of: low, moderate, high, very_high)", c.Rules.FailOn)
	}

	for i, h := range c.Rules.AllowHashes {
		h = strings.ToLower(h)
		if b, err := hex.DecodeString(h); err != nil || len(b) != 32 {
			return fmt.Errorf("invalid --allow-hash %q: expected a hex SHA-256 digest", c.Rules.AllowHashes[i])
		}
		c.Rules.AllowHashes[i] = h
	}
	for _, p := range c.Rules.AllowPaths {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid --allow-path pattern %q: %w", p, err)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.MaxFileSize <= 0 {
		return errors.New("--max-file-size must be > 0")
	}
	if c.Runtime.Debounce < 0 {
		return errors.New("--debounce must be >= 0")
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if !oneOf(c.Output.OutFormat, emitFormats) {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	// Ruleset option syntax validation (rule.option=value)
	if len(c.Rules.Set) > 0 {
		if _, err := ParseRuleOptionAssignments(c.Rules.Set); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(c.Rules.Custom))
	for i := range c.Rules.Custom {
		r := &c.Rules.Custom[i]
		if err := r.Compile(); err != nil {
			return fmt.Errorf("invalid custom rule: %w", err)
		}
		if seen[r.ID] {
			return fmt.Errorf("custom rule %s defined more than once", r.ID)
		}
		seen[r.ID] = true
	}

	return nil
}

func reportStatuses() []string {
	var out []string
	for _, s := range report.Statuses() {
		out = append(out, string(s))
	}
	return out
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// ParseRuleOptionAssignments parses values of the form "ruleID.option=value".
//
// Notes:
// - Entries may be provided via repeated flags and/or comma-delimited lists.
// - This validates syntax only (no validation of rule IDs or option names).
// - Empty values are allowed ("rule.option=").
func ParseRuleOptionAssignments(values []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, raw := range splitCommaList(values) {
		left, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		value = strings.TrimSpace(value)
		ruleID, opt, ok := strings.Cut(strings.TrimSpace(left), ".")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected rule.option=value", raw)
		}
		ruleID = strings.TrimSpace(ruleID)
		opt = strings.TrimSpace(opt)
		if ruleID == "" || opt == "" {
			return nil, fmt.Errorf("invalid --set entry %q: expected non-empty rule and option", raw)
		}
		if _, ok := out[ruleID]; !ok {
			out[ruleID] = make(map[string]string)
		}
		out[ruleID][opt] = value
	}
	return out, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
