package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"macroscan/internal/engine"
	"macroscan/internal/flags"
	"macroscan/internal/loader"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR...",
	Short: "Rescan Office documents as they are created or changed",
	Long: `Watch directories and scan every supported document that is created or
rewritten inside them, until interrupted.

Writes are debounced per file (see --debounce) so a save that touches a file
several times produces one report. Documents already present when the watch
starts are not scanned; use "macroscan scan" for those. New subdirectories are
watched as they appear unless --no-recursive is set.

Exit codes (on Ctrl+C):
	0 = nothing at or above --fail-on was seen
	1 = at least one document at or above --fail-on was seen
	2 = some documents could not be read
	3 = fatal error (watch did not start)

Examples:
  macroscan watch ./inbox
  macroscan watch ./inbox --no-console --emit ndjson --db scans.db
`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := prepareConfig(cmd, args, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng := engine.NewEngine(loader.New(cfg.Runtime.MaxFileSize))
		code := eng.Watch(ctx, cfg)
		stop()
		os.Exit(code)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addCommonFlags(watchCmd)
	watchCmd.Flags().DurationVar(&cfg.Runtime.Debounce, flags.FlagDebounce, cfg.Runtime.Debounce, "Quiet period after the last write before a document is scanned (default: 500ms)")
}
