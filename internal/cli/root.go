package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"macroscan/internal/flags"
	"macroscan/internal/logger"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "macroscan",
	Short: "Scan Office documents for risky VBA macros",
	Long: `macroscan inspects Office documents for embedded VBA macro projects and
scores what the macro code does.

macroscan is read-only: it never runs, removes or rewrites macros.

Examples:
	# Show available commands and global flags
	macroscan --help

	# Scan a directory of documents
	macroscan scan ./inbox

	# Rescan documents as they arrive
	macroscan watch ./inbox

	# List rules
	macroscan rules list

	# Print build info
	macroscan version

Output:
	By default, commands write human-readable output to stdout.
	Some commands support structured output via emitter flags (see each command's --help).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(cfg.Runtime.Verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (rule hits, extraction details and full error text)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the root command. Usage errors exit with 3, the same code as
// any other run that could not start.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(3)
	}
}
