package checks

import "macroscan/internal/rules"

const filesystemReason = "Manipulating file system using %s"

func init() {
	rules.Register(rules.Rule{
		ID:          "filesystem-manipulation",
		Title:       "Filesystem manipulation",
		Description: "Flags code that creates, deletes or otherwise touches files outside the document.",
		Points:      15,
		Patterns: []rules.Pattern{
			{Expr: `CreateObject("Scripting.FileSystemObject")`, Reason: filesystemReason},
			{Expr: "Kill", Reason: filesystemReason},
			{Expr: "DeleteFile", Reason: filesystemReason},
		},
	})
}
