package firewall

import (
	"fmt"
	"sync"
)

// RuleSet holds the live, editable rule list. It replaces the original
// process-wide singleton store: one RuleSet is created at composition time
// and passed by reference to the API layer and the simulation.
//
// Edits replace the whole list; individual rules are never mutated in place.
type RuleSet struct {
	mu          sync.RWMutex
	rules       []Rule
	subscribers []func([]Rule)
}

// NewRuleSet creates a RuleSet seeded with the given rules.
func NewRuleSet(rules []Rule) *RuleSet {
	rs := &RuleSet{}
	rs.rules = append(rs.rules, rules...)
	return rs
}

// Rules returns a snapshot copy of the current rule list.
func (rs *RuleSet) Rules() []Rule {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Replace swaps in a new rule list after validating every rule. On any
// invalid rule the existing list is kept untouched.
func (rs *RuleSet) Replace(rules []Rule) error {
	seen := make(map[string]bool, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return err
		}
		if seen[rules[i].ID] {
			return fmt.Errorf("firewall: duplicate rule id %q", rules[i].ID)
		}
		seen[rules[i].ID] = true
	}

	rs.mu.Lock()
	rs.rules = make([]Rule, len(rules))
	copy(rs.rules, rules)
	subs := rs.subscribers
	snapshot := make([]Rule, len(rules))
	copy(snapshot, rules)
	rs.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
	return nil
}

// Evaluate checks traffic against the current rule list.
func (rs *RuleSet) Evaluate(traffic Traffic) Decision {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return Evaluate(rs.rules, traffic)
}

// OnChange registers a callback invoked with a snapshot after every Replace.
func (rs *RuleSet) OnChange(fn func([]Rule)) {
	rs.mu.Lock()
	rs.subscribers = append(rs.subscribers, fn)
	rs.mu.Unlock()
}
