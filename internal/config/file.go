package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"macroscan/internal/flags"
	"macroscan/internal/rules"
)

// fileConfig mirrors the TOML layout. Pointer fields distinguish "unset" from
// zero values so that only keys present in the file are applied.
type fileConfig struct {
	Targeting struct {
		Include     []string `toml:"include"`
		Exclude     []string `toml:"exclude"`
		NoRecursive *bool    `toml:"no_recursive"`
		MaxFiles    *int     `toml:"max_files"`
	} `toml:"targeting"`

	Rules struct {
		Select      *string        `toml:"select"`
		Set         []string       `toml:"set"`
		Points      map[string]int `toml:"points"`
		Evidence    *string        `toml:"evidence"`
		FailOn      *string        `toml:"fail_on"`
		AllowHashes []string       `toml:"allow_hashes"`
		AllowPaths  []string       `toml:"allow_paths"`
		Custom      []rules.Rule   `toml:"custom"`
	} `toml:"rules"`

	Output struct {
		ConsoleFormat       *string  `toml:"console_format"`
		ConsoleFilterStatus []string `toml:"console_filter_status"`
		Report              *string  `toml:"report"`
		Out                 *string  `toml:"out"`
		OutFormat           *string  `toml:"out_format"`
		Emit                []string `toml:"emit"`
		NoConsole           *bool    `toml:"no_console"`
		DB                  *string  `toml:"db"`
	} `toml:"output"`

	Runtime struct {
		Concurrency *int    `toml:"concurrency"`
		Timeout     *string `toml:"timeout"`
		FailFast    *bool   `toml:"fail_fast"`
		MaxFileSize *int64  `toml:"max_file_size"`
		Debounce    *string `toml:"debounce"`
	} `toml:"runtime"`
}

// LoadFile merges the TOML file at path into cfg. Values for flags reported
// by changed are left alone, so explicit command-line flags win. A nil
// changed treats every flag as unset.
func LoadFile(path string, cfg *Config, changed func(flag string) bool) error {
	if cfg == nil {
		return errors.New("LoadFile: nil config")
	}
	if changed == nil {
		changed = func(string) bool { return false }
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("config file %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if err := fc.apply(cfg, changed); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	cfg.Runtime.ConfigFile = path
	return nil
}

func (fc *fileConfig) apply(cfg *Config, changed func(string) bool) error {
	setStrings := func(flag string, dst *[]string, v []string) {
		if len(v) > 0 && !changed(flag) {
			*dst = append([]string(nil), v...)
		}
	}
	setString := func(flag string, dst *string, v *string) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}
	setBool := func(flag string, dst *bool, v *bool) {
		if v != nil && !changed(flag) {
			*dst = *v
		}
	}
	setDuration := func(flag string, dst *time.Duration, v *string) error {
		if v == nil || changed(flag) {
			return nil
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", flag, *v, err)
		}
		*dst = d
		return nil
	}

	t := fc.Targeting
	setStrings(flags.FlagInclude, &cfg.Targeting.Include, t.Include)
	setStrings(flags.FlagExclude, &cfg.Targeting.Exclude, t.Exclude)
	setBool(flags.FlagNoRecursive, &cfg.Targeting.NoRecursive, t.NoRecursive)
	if t.MaxFiles != nil && !changed(flags.FlagMaxFiles) {
		cfg.Targeting.MaxFiles = *t.MaxFiles
	}

	r := fc.Rules
	setString(flags.FlagRules, &cfg.Rules.Selector, r.Select)
	setString(flags.FlagEvidence, &cfg.Rules.Evidence, r.Evidence)
	setString(flags.FlagFailOn, &cfg.Rules.FailOn, r.FailOn)
	setStrings(flags.FlagAllowHash, &cfg.Rules.AllowHashes, r.AllowHashes)
	setStrings(flags.FlagAllowPath, &cfg.Rules.AllowPaths, r.AllowPaths)

	// File assignments go first so that --set entries override them per key.
	var set []string
	set = append(set, r.Set...)
	ids := make([]string, 0, len(r.Points))
	for id := range r.Points {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		set = append(set, fmt.Sprintf("%s.points=%d", id, r.Points[id]))
	}
	cfg.Rules.Set = append(set, cfg.Rules.Set...)
	cfg.Rules.Custom = append(cfg.Rules.Custom, r.Custom...)

	o := fc.Output
	setString(flags.FlagConsoleFormat, &cfg.Output.ConsoleFormat, o.ConsoleFormat)
	setStrings(flags.FlagConsoleFilterStatus, &cfg.Output.ConsoleFilterStatus, o.ConsoleFilterStatus)
	setString(flags.FlagReport, &cfg.Output.Report, o.Report)
	setString(flags.FlagOut, &cfg.Output.Out, o.Out)
	setString(flags.FlagOutFormat, &cfg.Output.OutFormat, o.OutFormat)
	setStrings(flags.FlagEmit, &cfg.Output.Emit, o.Emit)
	setBool(flags.FlagNoConsole, &cfg.Output.NoConsole, o.NoConsole)
	setString(flags.FlagDB, &cfg.Output.DB, o.DB)

	rt := fc.Runtime
	if rt.Concurrency != nil && !changed(flags.FlagConcurrency) {
		cfg.Runtime.Concurrency = *rt.Concurrency
	}
	if err := setDuration(flags.FlagTimeout, &cfg.Runtime.Timeout, rt.Timeout); err != nil {
		return err
	}
	setBool(flags.FlagFailFast, &cfg.Runtime.FailFast, rt.FailFast)
	if rt.MaxFileSize != nil && !changed(flags.FlagMaxFileSize) {
		cfg.Runtime.MaxFileSize = *rt.MaxFileSize
	}
	return setDuration(flags.FlagDebounce, &cfg.Runtime.Debounce, rt.Debounce)
}
