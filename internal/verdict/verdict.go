// Package verdict maps a total risk score to a qualitative tier.
package verdict

import (
	"fmt"
	"strings"
)

// MaxScore is the nominal maximum risk score. Totals above it are kept as is.
const MaxScore = 100

type Tier string

const (
	TierSafe     Tier = "safe"
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "very_high"
)

var tierOrder = []Tier{TierSafe, TierLow, TierModerate, TierHigh, TierVeryHigh}

var messages = map[Tier]string{
	TierSafe:     "The file appears to be safe, with no malicious indicators detected.",
	TierLow:      "Low risk detected. Be cautious of minor potential threats in the file.",
	TierModerate: "Moderate risk detected. This file contains elements that could be potentially harmful.",
	TierHigh:     "High risk detected. This file likely contains malicious components.",
	TierVeryHigh: "Very high risk detected. This file is almost certainly harmful and should not be trusted.",
}

// Verdict is the classification of one total score.
type Verdict struct {
	TotalScore int     `json:"total_score"`
	MaxScore   int     `json:"max_score"`
	Percentage float64 `json:"percentage"`
	Tier       Tier    `json:"tier"`
	Message    string  `json:"message"`
}

// Classify derives the verdict for total. The percentage is not capped at 100.
func Classify(total int) Verdict {
	pct := float64(total) * 100 / MaxScore
	tier := tierFor(pct)
	return Verdict{
		TotalScore: total,
		MaxScore:   MaxScore,
		Percentage: pct,
		Tier:       tier,
		Message:    messages[tier],
	}
}

func tierFor(pct float64) Tier {
	switch {
	case pct <= 0:
		return TierSafe
	case pct <= 25:
		return TierLow
	case pct <= 50:
		return TierModerate
	case pct <= 75:
		return TierHigh
	default:
		return TierVeryHigh
	}
}

// Summary renders the total risk line.
func (v Verdict) Summary() string {
	return fmt.Sprintf("Total risk score: %d out of %d (%.2f%%)", v.TotalScore, v.MaxScore, v.Percentage)
}

// Label is the tier name for display ("very high" rather than "very_high").
func (t Tier) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// Rank orders tiers from safe (0) to very high (4); unknown tiers rank -1.
func (t Tier) Rank() int {
	for i, tt := range tierOrder {
		if tt == t {
			return i
		}
	}
	return -1
}

// AtLeast reports whether t is as severe as min or more.
func (t Tier) AtLeast(min Tier) bool {
	return t.Rank() >= min.Rank() && min.Rank() >= 0
}

// ParseTier accepts tier names case-insensitively, with a space, dash or
// underscore in "very high".
func ParseTier(s string) (Tier, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, t := range tierOrder {
		if string(t) == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q (must be one of: %s)", s, strings.Join(TierNames(), ", "))
}

// TierNames lists the tier names from least to most severe.
func TierNames() []string {
	out := make([]string, 0, len(tierOrder))
	for _, t := range tierOrder {
		out = append(out, string(t))
	}
	return out
}
