package trip

import "sync"

// RuleSet is a concurrency-safe holder for the active eligibility rules.
// The admin event consumer swaps the rules at runtime while request
// handlers read them.
type RuleSet struct {
	mu  sync.RWMutex
	cfg RulesConfig
}

// NewRuleSet creates a RuleSet seeded with the given rules.
func NewRuleSet(cfg RulesConfig) *RuleSet {
	return &RuleSet{cfg: cfg}
}

// Current returns a snapshot of the active rules.
func (r *RuleSet) Current() RulesConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Replace atomically installs a new rule set.
func (r *RuleSet) Replace(cfg RulesConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}
