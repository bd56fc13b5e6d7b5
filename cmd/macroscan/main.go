package main

import (
	"macroscan/internal/cli"
	_ "macroscan/internal/rules/checks"
)

// These variables are populated by the build via -ldflags, e.g.
//
//	go build -ldflags "-X main.version=v1.2.0" ./cmd/macroscan
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
