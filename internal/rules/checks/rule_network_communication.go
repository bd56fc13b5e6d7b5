package checks

import "macroscan/internal/rules"

func init() {
	rules.Register(rules.Rule{
		ID:          "network-communication",
		Title:       "Network communication",
		Description: "Flags code that talks to the network or drives other applications with keystrokes.",
		Points:      15,
		Patterns: []rules.Pattern{
			{Expr: "Windsock", Reason: "Network communication using %s"},
			{Expr: "HTTP", Reason: "Network communication using %s"},
			{Expr: "SendKeys", Reason: "Network communication using %s"},
		},
	})
}
