package engine

import (
	"errors"
	"fmt"

	"macroscan/internal/rules"
)

// ScanPlan is the ordered set of files to analyze plus the rule set they are
// scored against.
type ScanPlan struct {
	Files []FileRef
	Rules []rules.Rule

	index map[string]int
}

func NewScanPlan(selectedRules []rules.Rule) *ScanPlan {
	return &ScanPlan{
		Rules: selectedRules,
		index: make(map[string]int),
	}
}

func (p *ScanPlan) AddFile(f FileRef) error {
	if p == nil {
		return errors.New("scan plan is nil")
	}
	if p.index == nil {
		return errors.New("scan plan is not initialized; use NewScanPlan")
	}
	if f.Path == "" {
		return errors.New("file path is empty")
	}
	if _, exists := p.index[f.Path]; exists {
		return fmt.Errorf("file %s is already planned", f.Path)
	}

	p.index[f.Path] = len(p.Files)
	p.Files = append(p.Files, f)
	return nil
}

// Len returns the number of planned files.
func (p *ScanPlan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Files)
}

// RuleIDs returns the IDs of the planned rules in plan order.
func (p *ScanPlan) RuleIDs() []string {
	ids := make([]string, 0, len(p.Rules))
	for _, r := range p.Rules {
		ids = append(ids, r.ID)
	}
	return ids
}
