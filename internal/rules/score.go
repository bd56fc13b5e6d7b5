package rules

import (
	"sort"
	"strings"

	"macroscan/internal/logger"
)

// Contribution records points added to a score by one rule firing.
type Contribution struct {
	RuleID  string `json:"rule_id"`
	Title   string `json:"title"`
	Points  int    `json:"points"`
	Pattern string `json:"pattern"`
	Reason  string `json:"reason"`
	// Matched lists every pattern of a fire-once rule that was found.
	Matched []string `json:"matched,omitempty"`
}

// Result is the aggregate of all contributions for one text.
type Result struct {
	Total         int            `json:"total"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// Fired reports whether the rule with the given ID contributed.
func (r Result) Fired(ruleID string) bool {
	for _, c := range r.Contributions {
		if c.RuleID == ruleID {
			return true
		}
	}
	return false
}

// Score evaluates every rule in set against text. Contributions are ordered
// by rule ID and then by pattern order, so the result does not depend on the
// order of set.
func Score(text string, set []Rule) Result {
	var out Result
	if text == "" || len(set) == 0 {
		return out
	}

	ordered := make([]Rule, len(set))
	copy(ordered, set)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	lower := strings.ToLower(text)
	for _, r := range ordered {
		for _, c := range evaluate(r, text, lower) {
			logger.Debug("Risk updated by %d points due to %s", c.Points, c.Reason)
			out.Total += c.Points
			out.Contributions = append(out.Contributions, c)
		}
	}
	return out
}

func evaluate(r Rule, text, lower string) []Contribution {
	var out []Contribution
	var first *Pattern
	var matched []string

	for i := range r.Patterns {
		p := r.Patterns[i]
		if !p.matches(text, lower) {
			continue
		}
		if r.PerMatch {
			out = append(out, Contribution{
				RuleID:  r.ID,
				Title:   r.Title,
				Points:  r.Points,
				Pattern: p.Expr,
				Reason:  p.reason(r.Title),
			})
			continue
		}
		if first == nil {
			first = &r.Patterns[i]
		}
		matched = append(matched, p.Expr)
	}

	if first != nil {
		out = append(out, Contribution{
			RuleID:  r.ID,
			Title:   r.Title,
			Points:  r.Points,
			Pattern: first.Expr,
			Reason:  first.reason(r.Title),
			Matched: matched,
		})
	}
	return out
}
