// Package rules evaluates ordered validation rules against a candidate
// service path. Rules are pure predicates; the engine isolates logging and
// panic containment so one broken rule can never abort evaluation of the
// rest.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/codelaboratoryltd/netfab/internal/topology"
)

var log = logging.Logger("rules")

var (
	// ErrRuleExists is returned on duplicate rule registration
	ErrRuleExists = errors.New("rule already registered")

	// ErrRuleNotFound is returned when a rule id is unknown
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidRule is returned when a rule is missing an id or check
	ErrInvalidRule = errors.New("invalid rule")
)

// Violation is the negative outcome of one rule check.
type Violation struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
}

// ServiceView is the slice of a service request a rule may inspect.
type ServiceView struct {
	ID         string
	Bandwidth  float64
	MaxLatency *float64
}

// CheckFunc inspects a service against a resolved path and returns one
// message per violation, or nil when satisfied.
type CheckFunc func(svc ServiceView, path *topology.PathView) []string

// Rule is a named, prioritised predicate. Lower priority runs first;
// evaluation never short-circuits.
type Rule struct {
	ID       string
	Name     string
	Priority int
	Enabled  bool
	Check    CheckFunc
}

// Engine holds an ordered, mutable rule set. The rule list is copied on
// every mutation so in-flight evaluations never observe a partial update.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine creates an engine preloaded with the given rules.
func NewEngine(rules ...Rule) (*Engine, error) {
	e := &Engine{}
	for _, r := range rules {
		if err := e.AddRule(r); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// AddRule registers a rule.
func (e *Engine) AddRule(r Rule) error {
	if r.ID == "" || r.Check == nil {
		return fmt.Errorf("rule needs an id and a check: %w", ErrInvalidRule)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.rules {
		if existing.ID == r.ID {
			return fmt.Errorf("rule %s: %w", r.ID, ErrRuleExists)
		}
	}
	next := make([]Rule, len(e.rules), len(e.rules)+1)
	copy(next, e.rules)
	next = append(next, r)
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].Priority != next[j].Priority {
			return next[i].Priority < next[j].Priority
		}
		return next[i].ID < next[j].ID
	})
	e.rules = next
	return nil
}

// RemoveRule deregisters a rule by id.
func (e *Engine) RemoveRule(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.ID == id {
			next := make([]Rule, 0, len(e.rules)-1)
			next = append(next, e.rules[:i]...)
			next = append(next, e.rules[i+1:]...)
			e.rules = next
			return nil
		}
	}
	return fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
}

// SetEnabled toggles a rule by id.
func (e *Engine) SetEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, r := range e.rules {
		if r.ID == id {
			next := make([]Rule, len(e.rules))
			copy(next, e.rules)
			next[i].Enabled = enabled
			e.rules = next
			return nil
		}
	}
	return fmt.Errorf("rule %s: %w", id, ErrRuleNotFound)
}

// Rules returns a copy of the current rule list in evaluation order.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every enabled rule in priority order and collects every
// violation. A panic inside a rule is converted into a violation tagged
// with the rule id and logged; remaining rules still run.
func (e *Engine) Evaluate(svc ServiceView, path *topology.PathView) []Violation {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	violations := make([]Violation, 0)
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		for _, msg := range runRule(r, svc, path) {
			violations = append(violations, Violation{RuleID: r.ID, Message: msg})
			log.Warnf("rule violation %s for service %s: %s", r.ID, svc.ID, msg)
		}
	}
	return violations
}

func runRule(r Rule, svc ServiceView, path *topology.PathView) (msgs []string) {
	defer func() {
		if rec := recover(); rec != nil {
			msgs = []string{fmt.Sprintf("rule evaluation failed: %v", rec)}
			log.Errorf("rule %s panicked evaluating service %s: %v", r.ID, svc.ID, rec)
		}
	}()
	return r.Check(svc, path)
}
