package checks

import (
	"fmt"

	"macroscan/internal/rules"
)

// environmentNames are the variables whose Environ lookups are scored.
// Each distinct lookup found adds points.
var environmentNames = []string{
	"TEMP",
	"TMP",
	"ComSpec",
	"SystemRoot",
	"UserProfile",
	"OneDrive",
	"OneDriveConsumer",
	"OS",
	"PROCESSOR_ARCHITECTURE",
	"NUMBER_OF_PROCESSORS",
	"DriverData",
	"windir",
	"USERNAME",
	"ComputerName",
	"Path",
	"PATHEXT",
	"PSModulePath",
	"PyCharm",
	"PyCharm Community Edition",
	"VBOX_MSI_INSTALL_PATH",
}

func environmentPatterns() []rules.Pattern {
	out := make([]rules.Pattern, 0, len(environmentNames))
	for _, name := range environmentNames {
		out = append(out, rules.Pattern{
			Expr:   fmt.Sprintf("Environ(%q)", name),
			Reason: "Accessing environment variable %s",
		})
	}
	return out
}

func init() {
	rules.Register(rules.Rule{
		ID:          "environment-access",
		Title:       "Environment-variable access",
		Description: "Flags Environ lookups of variables used to profile the host; scored per variable.",
		Points:      15,
		PerMatch:    true,
		Patterns:    environmentPatterns(),
	})
}
