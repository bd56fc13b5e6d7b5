package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"macroscan/internal/config"
	"macroscan/internal/engine"
	"macroscan/internal/flags"
	"macroscan/internal/loader"
)

var cfg = config.New()

const scanHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Configuration file:
  --config reads defaults from a TOML file. Flags given on the command line
  win over values from the file.

  Example:
    [rules]
    fail_on = "moderate"
    allow_hashes = ["<sha256>"]

    [rules.points]
    shell-execution = 30

    [[rules.custom]]
    id = "auto-run"
    title = "Auto-run entry point"
    points = 5
    patterns = [{ expr = "AutoOpen" }, { expr = "Workbook_Open" }]

    [output]
    db = "scans.db"

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var configPath string

var scanCmd = &cobra.Command{
	Use:   "scan [PATH...]",
	Short: "Scan Office documents for risky VBA macros",
	Long: `Scan Office documents and report how risky their VBA macros are.

Each PATH is a document or a directory. Directories are walked recursively
(see --no-recursive) and only files with a supported extension are scanned:
.doc .docm .docx .xls .xlsb .xlsm .xlsx .pptm .pptx. A document named
explicitly with any other extension is rejected.

macroscan is read-only: it recovers readable text from the VBA project and
matches it against the selected rules. Macros are never executed.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown summary
	- --db: append every verdict to a SQLite scan history (see "macroscan history")
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, file.started, file.result, run.finished).
	Document reports are represented as an Event with type "file.result".

Exit codes:
	0 = clean run, nothing at or above --fail-on
	1 = at least one document at or above --fail-on
	2 = partial failure (some documents could not be read)
	3 = fatal error (scan did not run)

Examples:
  # Scan a directory, failing only on high or very high risk
  macroscan scan ./inbox

  # Fail on anything moderate or worse and keep the recovered macro text
  macroscan scan ./inbox --fail-on moderate --evidence full

  # Accept a known document and record history
  macroscan scan ./inbox --allow-hash <sha256> --db scans.db

	# AI Agent: stream machine-readable events to stdout
	macroscan scan ./inbox --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}

		if err := prepareConfig(cmd, args, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		eng := engine.NewEngine(loader.New(cfg.Runtime.MaxFileSize))
		os.Exit(eng.Run(context.Background(), cfg))
	},
}

// prepareConfig takes the targets from args, merges --config and validates.
func prepareConfig(cmd *cobra.Command, args []string, cfg *config.Config) error {
	cfg.Targeting.Paths = append([]string(nil), args...)

	if configPath != "" {
		changed := func(flag string) bool { return false }
		if cmd != nil {
			changed = cmd.Flags().Changed
		}
		if err := config.LoadFile(configPath, cfg, changed); err != nil {
			return err
		}
	}

	return cfg.Validate()
}

// addCommonFlags registers the flags shared by scan and watch.
func addCommonFlags(cmd *cobra.Command) {
	// Targeting
	cmd.Flags().StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches the path, else matches the file name")
	cmd.Flags().StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	cmd.Flags().BoolVar(&cfg.Targeting.NoRecursive, flags.FlagNoRecursive, false, "Only look at the immediate children of directory targets")

	// Rules
	cmd.Flags().StringVar(&cfg.Rules.Selector, flags.FlagRules, "", "Comma-separated rule IDs to run (empty = all rules)")
	cmd.Flags().StringSliceVar(&cfg.Rules.Set, flags.FlagSet, nil, "Per-rule options as ruleID.option=value, e.g. shell-execution.points=30 (repeatable; comma-separated accepted)")
	cmd.Flags().StringVar(&cfg.Rules.Evidence, flags.FlagEvidence, "standard", "Evidence verbosity: minimal|standard|full (default: standard)")
	cmd.Flags().StringVar(&cfg.Rules.FailOn, flags.FlagFailOn, "high", "Lowest risk tier that fails the run: low|moderate|high|very_high (default: high)")
	cmd.Flags().StringSliceVar(&cfg.Rules.AllowHashes, flags.FlagAllowHash, nil, "SHA-256 of a document whose risk is accepted (repeatable; comma-separated accepted)")
	cmd.Flags().StringSliceVar(&cfg.Rules.AllowPaths, flags.FlagAllowPath, nil, "Pattern of documents whose risk is accepted (repeatable; comma-separated accepted). Same matching rules as --include")

	// Output
	cmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	cmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (NO_MACROS, SAFE, RISK, ALLOWED, ERROR, SKIPPED). Comma-separated.")
	cmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	cmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	cmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	cmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	cmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")
	cmd.Flags().StringVar(&cfg.Output.DB, flags.FlagDB, "", "Append every verdict to a SQLite scan history at this path")

	// Runtime
	cmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 10m)")
	cmd.Flags().Int64Var(&cfg.Runtime.MaxFileSize, flags.FlagMaxFileSize, cfg.Runtime.MaxFileSize, "Largest document read, in bytes; bigger files are SKIPPED (default: 100 MiB)")
	cmd.Flags().StringVar(&configPath, flags.FlagConfig, "", "Read defaults from this TOML file")
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.SetHelpTemplate(scanHelpTemplate)

	// MAINTAINER NOTE: If you add/change/remove any scan-affecting flags here,
	// keep the TOML keys in internal/config/file.go in sync.
	addCommonFlags(scanCmd)

	// Targeting
	scanCmd.Flags().IntVar(&cfg.Targeting.MaxFiles, flags.FlagMaxFiles, 0, "Maximum number of documents to scan (0 = unlimited)")
	scanCmd.Flags().BoolVar(&cfg.Targeting.DryRun, flags.FlagDryRun, false, "Resolve documents and print them without scanning")

	// Runtime
	scanCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent workers (default: 4)")
	scanCmd.Flags().BoolVar(&cfg.Runtime.FailFast, flags.FlagFailFast, false, "Stop on the first document that cannot be read (default: false)")
}
