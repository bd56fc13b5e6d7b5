package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Pattern is one indicator searched for by a rule. Expr is matched
// case-insensitively, literally unless Regexp is set. Reason is a template
// whose %s receives Expr.
type Pattern struct {
	Expr   string `json:"expr" toml:"expr"`
	Regexp bool   `json:"regexp,omitempty" toml:"regexp"`
	Reason string `json:"reason,omitempty" toml:"reason"`

	re    *regexp.Regexp
	lower string
}

// Rule is a declarative risk indicator. A rule contributes Points once when
// any of its patterns matches, or once per matching pattern when PerMatch is
// set.
type Rule struct {
	ID          string    `json:"id" toml:"id"`
	Title       string    `json:"title" toml:"title"`
	Description string    `json:"description,omitempty" toml:"description"`
	Points      int       `json:"points" toml:"points"`
	PerMatch    bool      `json:"per_match,omitempty" toml:"per_match"`
	Patterns    []Pattern `json:"patterns" toml:"patterns"`
}

type Option struct {
	Name        string
	Description string
	Default     string
}

var ruleIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Compile validates the rule and prepares its patterns for matching.
func (r *Rule) Compile() error {
	if !ruleIDPattern.MatchString(r.ID) {
		return fmt.Errorf("invalid rule ID %q (lowercase letters, digits and dashes)", r.ID)
	}
	if r.Points < 0 {
		return fmt.Errorf("rule %s: points must be >= 0, got %d", r.ID, r.Points)
	}
	if len(r.Patterns) == 0 {
		return fmt.Errorf("rule %s: at least one pattern is required", r.ID)
	}

	patterns := make([]Pattern, len(r.Patterns))
	for i, p := range r.Patterns {
		if strings.TrimSpace(p.Expr) == "" {
			return fmt.Errorf("rule %s: pattern %d is empty", r.ID, i)
		}
		if p.Regexp {
			re, err := regexp.Compile("(?i)" + p.Expr)
			if err != nil {
				return fmt.Errorf("rule %s: pattern %q: %w", r.ID, p.Expr, err)
			}
			p.re = re
		} else {
			p.lower = strings.ToLower(p.Expr)
		}
		patterns[i] = p
	}
	r.Patterns = patterns
	return nil
}

// matches reports whether p occurs in text; lower is text lower-cased.
func (p Pattern) matches(text, lower string) bool {
	if p.re != nil {
		return p.re.MatchString(text)
	}
	if p.Regexp {
		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return false
		}
		return re.MatchString(text)
	}
	if p.lower == "" {
		return strings.Contains(lower, strings.ToLower(p.Expr))
	}
	return strings.Contains(lower, p.lower)
}

func (p Pattern) reason(title string) string {
	if p.Reason == "" {
		return fmt.Sprintf("%s using %s", title, p.Expr)
	}
	if strings.Contains(p.Reason, "%s") {
		return fmt.Sprintf(p.Reason, p.Expr)
	}
	return p.Reason
}

// Options lists the settings accepted through --set ID.option=value.
func (r Rule) Options() []Option {
	return []Option{
		{
			Name:        "points",
			Description: "Points added to the total risk score when the rule fires.",
			Default:     strconv.Itoa(r.Points),
		},
	}
}

// Configure applies option values to r.
func (r *Rule) Configure(opts map[string]string) error {
	for name, val := range opts {
		switch name {
		case "points":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return fmt.Errorf("invalid points %q: %w", val, err)
			}
			if n < 0 {
				return fmt.Errorf("points must be >= 0, got %d", n)
			}
			r.Points = n
		default:
			return fmt.Errorf("unknown option %q", name)
		}
	}
	return nil
}

// Expressions returns the pattern expressions in declared order.
func (r Rule) Expressions() []string {
	out := make([]string, 0, len(r.Patterns))
	for _, p := range r.Patterns {
		out = append(out, p.Expr)
	}
	return out
}
