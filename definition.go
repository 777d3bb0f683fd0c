package fsmsnap

import (
	"errors"
	"fmt"
)

// ErrInvalidDefinition wraps every error reported by Validate.
var ErrInvalidDefinition = errors.New("invalid definition")

// Definition holds the machine structure before building a Machine
type Definition struct {
	states      map[StateID]*State
	order       []StateID
	transitions []Transition
	initial     StateID
}

// NewDefinition creates a new definition builder
func NewDefinition() *Definition {
	return &Definition{
		states: make(map[StateID]*State),
	}
}

// State adds a state. Redefining an ID replaces the earlier state but keeps
// its position.
func (d *Definition) State(id StateID, opts ...StateOption) *Definition {
	s := &State{ID: id}
	for _, opt := range opts {
		opt(s)
	}
	if _, ok := d.states[id]; !ok {
		d.order = append(d.order, id)
	}
	d.states[id] = s
	return d
}

// FinalState adds a terminal state with no outgoing transitions
func (d *Definition) FinalState(id StateID, opts ...StateOption) *Definition {
	d.State(id, opts...)
	d.states[id].Final = true
	return d
}

// Transition adds a transition rule
func (d *Definition) Transition(from StateID, event EventID, to StateID, opts ...TransitionOption) *Definition {
	t := Transition{From: from, Event: event, To: to}
	for _, opt := range opts {
		opt(&t)
	}
	d.transitions = append(d.transitions, t)
	return d
}

// AnyStateTransition adds a transition that can fire from any state
func (d *Definition) AnyStateTransition(event EventID, to StateID, opts ...TransitionOption) *Definition {
	return d.Transition(WildcardState, event, to, opts...)
}

// Initial sets the initial state
func (d *Definition) Initial(id StateID) *Definition {
	d.initial = id
	return d
}

// States returns the state IDs in the order they were declared
func (d *Definition) States() []StateID {
	out := make([]StateID, len(d.order))
	copy(out, d.order)
	return out
}

// Validate checks the definition for errors
func (d *Definition) Validate() error {
	if err := d.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return nil
}

func (d *Definition) validate() error {
	if d.initial == "" {
		return errors.New("no initial state defined")
	}
	if _, ok := d.states[d.initial]; !ok {
		return fmt.Errorf("initial state %q not defined", d.initial)
	}

	for _, id := range d.order {
		s := d.states[id]
		if s.Parent != "" {
			if _, ok := d.states[s.Parent]; !ok {
				return fmt.Errorf("state %q references undefined parent %q", id, s.Parent)
			}
		}
		if s.DefaultChild != "" {
			child, ok := d.states[s.DefaultChild]
			if !ok {
				return fmt.Errorf("state %q references undefined default child %q", id, s.DefaultChild)
			}
			if child.Parent != id {
				return fmt.Errorf("default child %q of %q is not its child", s.DefaultChild, id)
			}
		}
		if s.Final && (s.DefaultChild != "" || s.Timeout > 0) {
			return fmt.Errorf("final state %q cannot have a default child or timeout", id)
		}
		if err := d.checkParentCycle(id); err != nil {
			return err
		}
	}

	for _, t := range d.transitions {
		if t.From != WildcardState {
			from, ok := d.states[t.From]
			if !ok {
				return fmt.Errorf("transition on %q from undefined state %q", t.Event, t.From)
			}
			if from.Final {
				return fmt.Errorf("transition on %q from final state %q", t.Event, t.From)
			}
		}
		if _, ok := d.states[t.To]; !ok {
			return fmt.Errorf("transition on %q to undefined state %q", t.Event, t.To)
		}
	}
	return nil
}

func (d *Definition) checkParentCycle(id StateID) error {
	seen := make(map[StateID]bool)
	cur := id
	for cur != "" {
		if seen[cur] {
			return fmt.Errorf("cycle detected in parent hierarchy at state %q", cur)
		}
		seen[cur] = true
		s := d.states[cur]
		if s == nil {
			break
		}
		cur = s.Parent
	}
	return nil
}

// Build creates a Machine from the definition
func (d *Definition) Build(opts ...MachineOption) (*Machine, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		states:      make(map[StateID]*State, len(d.states)),
		paths:       make(map[StateID][]StateID, len(d.states)),
		transitions: make([]Transition, len(d.transitions)),
		initial:     d.initial,
		queue:       make(chan envelope, 100),
		timers:      make(map[string]*timerEntry),
		logger:      Logger,
	}
	copy(m.transitions, d.transitions)

	for id, s := range d.states {
		copied := *s
		m.states[id] = &copied
	}
	for id := range m.states {
		m.paths[id] = m.rootPath(id)
	}

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
