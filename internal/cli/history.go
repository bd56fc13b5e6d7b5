package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"macroscan/internal/output"
)

var (
	historyDB     string
	historyPath   string
	historyLimit  int
	historyFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show verdicts recorded with --db",
	Long: `Show document verdicts stored in a scan history database, newest first.

A history database is written by "macroscan scan --db FILE" and
"macroscan watch --db FILE".

Examples:
  macroscan history --db scans.db
  macroscan history --db scans.db --path ./inbox/invoice.docm --limit 5
  macroscan history --db scans.db --format json
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyDB == "" {
			return fmt.Errorf("--db is required")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		entries, err := output.ReadHistory(ctx, historyDB, historyPath, historyLimit)
		if err != nil {
			return err
		}
		switch historyFormat {
		case "text", "":
			return printHistory(cmd.OutOrStdout(), entries)
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(historyJSON(entries))
		default:
			return fmt.Errorf("unsupported --format: %s (must be one of: text, json)", historyFormat)
		}
	},
}

type historyRecord struct {
	RunID     string    `json:"run_id"`
	Path      string    `json:"path"`
	SHA256    string    `json:"sha256,omitempty"`
	Status    string    `json:"status"`
	Score     int       `json:"score"`
	Tier      string    `json:"tier,omitempty"`
	Message   string    `json:"message,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

func historyJSON(entries []output.HistoryEntry) []historyRecord {
	out := make([]historyRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyRecord{
			RunID:     e.RunID,
			Path:      e.Path,
			SHA256:    e.SHA256,
			Status:    string(e.Status),
			Score:     e.Score,
			Tier:      e.Tier,
			Message:   e.Message,
			ScannedAt: e.ScannedAt,
		})
	}
	return out
}

func printHistory(w io.Writer, entries []output.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No recorded verdicts.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCANNED\tSTATUS\tSCORE\tTIER\tPATH")
	for _, e := range entries {
		tier := e.Tier
		if tier == "" {
			tier = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ScannedAt.Local().Format(time.DateTime), e.Status, e.Score, tier, e.Path)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyDB, "db", "", "History database written by --db")
	historyCmd.Flags().StringVar(&historyPath, "path", "", "Only show verdicts for this document path")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of verdicts to show (0 = all)")
	historyCmd.Flags().StringVar(&historyFormat, "format", "text", "Output format: text|json")
}
