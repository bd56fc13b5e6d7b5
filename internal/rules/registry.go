package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Rule)
	mu       sync.RWMutex
)

// Register adds r to the global rule set. It panics on an invalid or
// duplicate rule; registration happens from init functions.
func Register(r Rule) {
	if err := r.Compile(); err != nil {
		panic(err.Error())
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[r.ID]; exists {
		panic(fmt.Sprintf("rule %s already registered", r.ID))
	}
	registry[r.ID] = r
}

// List returns copies of all registered rules sorted by ID.
func List() []Rule {
	mu.RLock()
	defer mu.RUnlock()
	return listLocked()
}

func listLocked() []Rule {
	rules := make([]Rule, 0, len(registry))
	for _, r := range registry {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID < rules[j].ID
	})
	return rules
}

// Get returns a copy of the rule registered under id.
func Get(id string) (Rule, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := registry[id]
	return r, ok
}

// Resolve returns copies of the rules named by a comma-separated selector.
// An empty selector selects every rule.
func Resolve(selector string) ([]Rule, error) {
	return ResolveWith(selector, nil)
}

// ResolveWith resolves selector against the registry plus extra rules that
// are not registered globally (user-defined rules from a config file).
func ResolveWith(selector string, extra []Rule) ([]Rule, error) {
	mu.RLock()
	available := make(map[string]Rule, len(registry)+len(extra))
	for id, r := range registry {
		available[id] = r
	}
	mu.RUnlock()

	for _, r := range extra {
		r := r
		if err := r.Compile(); err != nil {
			return nil, err
		}
		if _, exists := available[r.ID]; exists {
			return nil, fmt.Errorf("rule %s already registered", r.ID)
		}
		available[r.ID] = r
	}

	if strings.TrimSpace(selector) == "" {
		all := make([]Rule, 0, len(available))
		for _, r := range available {
			all = append(all, r)
		}
		sort.Slice(all, func(i, j int) bool {
			return all[i].ID < all[j].ID
		})
		return all, nil
	}

	ids := strings.Split(selector, ",")
	var selected []Rule
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		r, ok := available[id]
		if !ok {
			return nil, fmt.Errorf("rule not found: %s", id)
		}
		seen[id] = true
		selected = append(selected, r)
	}
	return selected, nil
}

// ApplyOptions configures the rules in set from per-rule option assignments
// (rule ID -> option -> value). Only the copies in set change.
func ApplyOptions(set []Rule, assignments map[string]map[string]string) error {
	if len(assignments) == 0 {
		return nil
	}

	byID := make(map[string]int, len(set))
	for i, r := range set {
		byID[r.ID] = i
	}

	ids := make([]string, 0, len(assignments))
	for id := range assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, ruleID := range ids {
		i, ok := byID[ruleID]
		if !ok {
			if _, known := Get(ruleID); known {
				return fmt.Errorf("rule %q is not selected", ruleID)
			}
			return fmt.Errorf("unknown rule ID %q", ruleID)
		}
		if err := set[i].Configure(assignments[ruleID]); err != nil {
			return fmt.Errorf("configure rule %q: %w", ruleID, err)
		}
	}
	return nil
}
