package checks

import "macroscan/internal/rules"

func init() {
	rules.Register(rules.Rule{
		ID:          "information-gathering",
		Title:       "Information gathering",
		Description: "Flags code that reads the user name or well-known folder locations.",
		Points:      10,
		Patterns: []rules.Pattern{
			{Expr: "GetSpecialFolder", Reason: "Gathering information using %s"},
			{Expr: "Username", Reason: "Gathering information using %s"},
		},
	})
}
