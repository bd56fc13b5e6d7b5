package checks

import "macroscan/internal/rules"

func init() {
	rules.Register(rules.Rule{
		ID:          "download-execute",
		Title:       "Download/execute",
		Description: "Flags code that downloads a remote file to disk, typically to run it afterwards.",
		Points:      25,
		Patterns: []rules.Pattern{
			{Expr: "URLDownloadToFile", Reason: "Downloading/executing files using %s"},
		},
	})
}
