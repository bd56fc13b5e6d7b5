package checks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macroscan/internal/rules"
	"macroscan/internal/verdict"
)

func builtins(t *testing.T) []rules.Rule {
	t.Helper()
	set, err := rules.Resolve("")
	require.NoError(t, err)
	return set
}

func TestBuiltinsRegistered(t *testing.T) {
	want := map[string]int{
		"download-execute":        25,
		"shell-execution":         20,
		"filesystem-manipulation": 15,
		"information-gathering":   10,
		"network-communication":   15,
		"environment-access":      15,
	}

	set := builtins(t)
	require.Len(t, set, len(want))
	for _, r := range set {
		points, ok := want[r.ID]
		require.True(t, ok, "unexpected rule %s", r.ID)
		assert.Equal(t, points, r.Points, r.ID)
		assert.Equal(t, r.ID == "environment-access", r.PerMatch, r.ID)
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.Description)
	}
}

func TestScoring(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		total int
		tier  verdict.Tier
	}{
		{
			name:  "shell and kill",
			text:  "Sub Go()\nShell \"cmd /c del x\"\nKill \"c:\\x\"",
			total: 35,
			tier:  verdict.TierModerate,
		},
		{
			name:  "two environment lookups",
			text:  `p = Environ("TEMP") & Environ("OS")`,
			total: 30,
			tier:  verdict.TierModerate,
		},
		{
			name:  "nothing",
			text:  "",
			total: 0,
			tier:  verdict.TierSafe,
		},
		{
			name: "every category",
			text: strings.Join([]string{
				"URLDownloadToFile",
				"Shell",
				"Kill",
				"GetSpecialFolder",
				"SendKeys",
				`Environ("TEMP")`,
				`Environ("ComSpec")`,
				`Environ("windir")`,
			}, "\n"),
			total: 130,
			tier:  verdict.TierVeryHigh,
		},
		{
			name:  "case insensitive",
			text:  "urldownloadtofile",
			total: 25,
			tier:  verdict.TierLow,
		},
		{
			name:  "fire once despite repeats",
			text:  "Kill a\nKill b\nDeleteFile c",
			total: 15,
			tier:  verdict.TierLow,
		},
		{
			name:  "catch-all environ lookups do not score",
			text:  `Environ("APPDATA")`,
			total: 0,
			tier:  verdict.TierSafe,
		},
	}

	set := builtins(t)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := rules.Score(tt.text, set)
			assert.Equal(t, tt.total, s.Total)
			assert.Equal(t, tt.tier, verdict.Classify(s.Total).Tier)
		})
	}
}

func TestScoring_OrderIndependent(t *testing.T) {
	set := builtins(t)
	reversed := make([]rules.Rule, len(set))
	for i, r := range set {
		reversed[len(set)-1-i] = r
	}

	text := "Shell x\nHTTP\nEnviron(\"Path\")\nUsername"
	assert.Equal(t, rules.Score(text, set), rules.Score(text, reversed))
}

func TestEnvironmentReasons(t *testing.T) {
	set, err := rules.Resolve("environment-access")
	require.NoError(t, err)

	s := rules.Score(`Environ("PATHEXT")`, set)
	require.Len(t, s.Contributions, 1)
	assert.Equal(t, `Accessing environment variable Environ("PATHEXT")`, s.Contributions[0].Reason)
}
