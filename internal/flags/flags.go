package flags

// Package flags defines canonical CLI flag names shared across the CLI,
// config file loading and the engine.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "...")
//	arg := "--" + flags.FlagInclude
const (
	// Targeting
	FlagInclude     = "include"
	FlagExclude     = "exclude"
	FlagNoRecursive = "no-recursive"
	FlagMaxFiles    = "max-files"
	FlagDryRun      = "dry-run"

	// Rules
	FlagRules     = "rules"
	FlagSet       = "set"
	FlagEvidence  = "evidence"
	FlagFailOn    = "fail-on"
	FlagAllowHash = "allow-hash"
	FlagAllowPath = "allow-path"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"
	FlagDB                  = "db"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagFailFast    = "fail-fast"
	FlagMaxFileSize = "max-file-size"
	FlagConfig      = "config"
	FlagDebounce    = "debounce"
	FlagVerbose     = "verbose"

	// Rules listing
	FlagQuiet = "quiet"
)
