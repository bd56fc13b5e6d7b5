package checks

import "macroscan/internal/rules"

func init() {
	rules.Register(rules.Rule{
		ID:          "shell-execution",
		Title:       "Shell execution",
		Description: "Flags code that launches system commands.",
		Points:      20,
		Patterns: []rules.Pattern{
			{Expr: "Shell", Reason: "Executing system commands using %s"},
		},
	})
}
