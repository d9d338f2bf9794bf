package award

import (
	"fmt"
	"sort"
	"sync"

	"loyalty-ledger/internal/model"
)

// Registry is a thread-safe catalog of rules keyed by kind.
type Registry struct {
	rules map[model.EntryKind]Rule
	mu    sync.RWMutex
}

// NewRegistry creates a registry holding rules.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{rules: make(map[model.EntryKind]Rule)}
	for _, rule := range rules {
		if err := r.Register(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces the rule for its kind.
func (r *Registry) Register(rule Rule) error {
	if rule.Kind == "" {
		return fmt.Errorf("%w: rule kind cannot be empty", model.ErrInvalidArgument)
	}
	if rule.Points < 0 {
		return fmt.Errorf("%w: rule %s has negative fixed points", model.ErrInvalidArgument, rule.Kind)
	}
	if rule.AllowNegative && !rule.Deductible {
		return fmt.Errorf("%w: rule %s allows negative balances but cannot deduct", model.ErrInvalidArgument, rule.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.Kind] = rule
	return nil
}

// Get retrieves the rule for kind.
func (r *Registry) Get(kind model.EntryKind) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[kind]
	return rule, ok
}

// List returns all rules ordered by kind.
func (r *Registry) List() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Kind < rules[j].Kind })
	return rules
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Unregister removes the rule for kind, reporting whether it existed.
func (r *Registry) Unregister(kind model.EntryKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[kind]; ok {
		delete(r.rules, kind)
		return true
	}
	return false
}
