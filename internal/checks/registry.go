package checks

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownCheck is returned when a check name is not registered. It is
// distinct from a check that ran and found nothing.
var ErrUnknownCheck = errors.New("unknown check")

// ErrDuplicateCheck is returned when registering a name twice.
var ErrDuplicateCheck = errors.New("duplicate check")

// Registry maps check names to rules, keeping registration order.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Default returns a registry holding every built-in rule.
func Default() *Registry {
	r := NewRegistry()
	for _, rule := range []Rule{
		RoomClashes(),
		PersonClashes(),
		KitClashes(),
		ItemsUnsatisfiedKitReq(),
		RoomNotAvail(),
		PersonNotAvail(),
		KitNotAvailForItem(),
		KitNotAvailForRoom(),
		PersonNoAvail(),
		RoomNoAvail(),
		KitNoAvail(),
		ItemsNoPeople(),
		ItemsNoRoom(),
	} {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a rule under its descriptor name.
func (r *Registry) Register(rule Rule) error {
	name := rule.Descriptor().Name
	if name == "" {
		return fmt.Errorf("register check: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCheck, name)
	}
	r.rules[name] = rule
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the rule registered under name.
func (r *Registry) Lookup(name string) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCheck, name)
	}
	return rule, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// List returns every rule's descriptor in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.rules[name].Descriptor())
	}
	return out
}

// RunCheck runs one rule by name.
func (r *Registry) RunCheck(name string, env *Env) (Output, error) {
	rule, err := r.Lookup(name)
	if err != nil {
		return Output{}, err
	}
	violations, err := rule.Run(env)
	if err != nil {
		return Output{}, fmt.Errorf("check %s: %w", name, err)
	}
	return Output{Check: rule.Descriptor(), Count: len(violations), Violations: violations}, nil
}
