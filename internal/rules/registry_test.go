package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetRegistry(t *testing.T) {
	t.Helper()
	mu.Lock()
	saved := registry
	registry = make(map[string]Rule)
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		registry = saved
		mu.Unlock()
	})
}

func dummyRule(id string) Rule {
	return Rule{
		ID:       id,
		Title:    "Dummy Rule",
		Points:   5,
		Patterns: []Pattern{{Expr: "dummy"}},
	}
}

func ids(set []Rule) []string {
	out := make([]string, len(set))
	for i, r := range set {
		out[i] = r.ID
	}
	return out
}

func TestRegistry(t *testing.T) {
	resetRegistry(t)

	Register(dummyRule("rule2"))
	Register(dummyRule("rule1"))

	// Test List
	assert.Equal(t, []string{"rule1", "rule2"}, ids(List()))

	// Test Resolve
	selected, err := Resolve("rule1")
	require.NoError(t, err)
	assert.Equal(t, []string{"rule1"}, ids(selected))

	// Test Resolve All
	selected, err = Resolve("")
	require.NoError(t, err)
	assert.Len(t, selected, 2)

	// Test Resolve de-duplicates
	selected, err = Resolve("rule2, rule2 ,rule1")
	require.NoError(t, err)
	assert.Len(t, selected, 2)

	// Test Resolve Unknown
	_, err = Resolve("unknown")
	assert.Error(t, err)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	resetRegistry(t)
	Register(dummyRule("dup"))

	assert.Panics(t, func() { Register(dummyRule("dup")) })
}

func TestResolveWith_InvalidCustom(t *testing.T) {
	resetRegistry(t)
	Register(dummyRule("builtin"))

	tests := []struct {
		name string
		rule Rule
	}{
		{"bad id", Rule{ID: "Bad ID", Points: 1, Patterns: []Pattern{{Expr: "x"}}}},
		{"negative points", Rule{ID: "neg", Points: -1, Patterns: []Pattern{{Expr: "x"}}}},
		{"no patterns", Rule{ID: "empty", Points: 1}},
		{"bad regexp", Rule{ID: "re", Points: 1, Patterns: []Pattern{{Expr: "(", Regexp: true}}}},
		{"shadows registered rule", dummyRule("builtin")},
	}
	for _, tt := range tests {
		_, err := ResolveWith("", []Rule{tt.rule})
		assert.Error(t, err, tt.name)
	}
}

func TestApplyOptions_DoesNotMutateRegistry(t *testing.T) {
	resetRegistry(t)
	Register(dummyRule("alpha"))
	Register(dummyRule("beta"))

	set, err := Resolve("alpha")
	require.NoError(t, err)

	require.NoError(t, ApplyOptions(set, map[string]map[string]string{"alpha": {"points": "40"}}))
	assert.Equal(t, 40, set[0].Points)

	orig, _ := Get("alpha")
	assert.Equal(t, 5, orig.Points, "registry mutated")

	assert.Error(t, ApplyOptions(set, map[string]map[string]string{"beta": {"points": "1"}}), "unselected rule")
	assert.Error(t, ApplyOptions(set, map[string]map[string]string{"ghost": {"points": "1"}}), "unknown rule")
	assert.Error(t, ApplyOptions(set, map[string]map[string]string{"alpha": {"weight": "1"}}), "unknown option")
	assert.Error(t, ApplyOptions(set, map[string]map[string]string{"alpha": {"points": "-3"}}), "negative points")
}

func TestResolveWith_ExtraRules(t *testing.T) {
	resetRegistry(t)
	Register(dummyRule("builtin"))

	extra := []Rule{{
		ID:       "custom-autoopen",
		Title:    "Auto open",
		Points:   5,
		Patterns: []Pattern{{Expr: "AutoOpen"}},
	}}

	all, err := ResolveWith("", extra)
	require.NoError(t, err)
	assert.Equal(t, []string{"builtin", "custom-autoopen"}, ids(all))

	selected, err := ResolveWith("custom-autoopen", extra)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, 5, Score("Sub AutoOpen()", selected).Total)

	_, ok := Get("custom-autoopen")
	assert.False(t, ok, "extra rules must not be registered globally")

	_, err = ResolveWith("", []Rule{dummyRule("builtin")})
	assert.Error(t, err, "rule ID clashing with a registered rule")
}
