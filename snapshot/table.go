package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrTooManyStates is returned when a table would need more than MaxStates bits.
	ErrTooManyStates = errors.New("too many states for a 64-bit mask")
	// ErrDuplicateState is returned when a state is enumerated twice.
	ErrDuplicateState = errors.New("duplicate state")
	// ErrEmptyState is returned for an empty state identifier.
	ErrEmptyState = errors.New("empty state identifier")
)

// Table is the ordered enumeration of one machine's states. The offset of a
// state is its position in the table; Len is the sentinel state count.
type Table[S ~string] struct {
	name    string
	states  []S
	offsets map[S]int
}

// NewTable builds a table for the named machine. Offsets follow the order
// of states, starting at 0.
func NewTable[S ~string](name string, states ...S) (*Table[S], error) {
	if len(states) > MaxStates {
		return nil, fmt.Errorf("machine %q has %d states: %w", name, len(states), ErrTooManyStates)
	}

	t := &Table[S]{
		name:    name,
		states:  make([]S, len(states)),
		offsets: make(map[S]int, len(states)),
	}
	copy(t.states, states)

	for i, s := range states {
		if s == "" {
			return nil, fmt.Errorf("machine %q offset %d: %w", name, i, ErrEmptyState)
		}
		if prev, ok := t.offsets[s]; ok {
			return nil, fmt.Errorf("machine %q state %q at offsets %d and %d: %w", name, s, prev, i, ErrDuplicateState)
		}
		t.offsets[s] = i
	}
	return t, nil
}

// MustTable is like NewTable but panics on error. It is meant for
// package-level tables in generated code.
func MustTable[S ~string](name string, states ...S) *Table[S] {
	t, err := NewTable(name, states...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the machine identifier the table was generated for.
func (t *Table[S]) Name() string {
	return t.name
}

// Len returns the number of enumerated states.
func (t *Table[S]) Len() int {
	return len(t.states)
}

// States returns the enumerated states in offset order.
func (t *Table[S]) States() []S {
	out := make([]S, len(t.states))
	copy(out, t.states)
	return out
}

// Offset returns the bit offset of a state.
func (t *Table[S]) Offset(state S) (int, bool) {
	i, ok := t.offsets[state]
	return i, ok
}

// State returns the state at a bit offset.
func (t *Table[S]) State(offset int) (S, bool) {
	if offset < 0 || offset >= len(t.states) {
		var zero S
		return zero, false
	}
	return t.states[offset], true
}

// Read evaluates the membership predicate for every state and returns the
// resulting mask. Each check is independent, so a transition running
// concurrently may produce a mask no single instant matched; use ReadView
// when that matters.
func (t *Table[S]) Read(q Querier[S]) Mask {
	var current Mask
	for i, s := range t.states {
		current |= Bit(q.IsInState(s), i)
	}
	return current
}

// ReadView reads all states inside one view of the machine.
func (t *Table[S]) ReadView(v Viewer[S]) Mask {
	var current Mask
	v.View(func(q Querier[S]) {
		current = t.Read(q)
	})
	return current
}

// Valid reports whether m has no bits beyond the enumerated states.
func (t *Table[S]) Valid(m Mask) bool {
	if len(t.states) == MaxStates {
		return true
	}
	return m>>uint(len(t.states)) == 0
}

// Active returns the states set in m, in offset order.
func (t *Table[S]) Active(m Mask) []S {
	var active []S
	for i, s := range t.states {
		if m.Has(i) {
			active = append(active, s)
		}
	}
	return active
}

// Format renders m as active state names joined by "|", or "-" when no
// enumerated state is set.
func (t *Table[S]) Format(m Mask) string {
	active := t.Active(m)
	if len(active) == 0 {
		return "-"
	}
	names := make([]string, len(active))
	for i, s := range active {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}

// Attr returns a structured log attribute describing m.
func (t *Table[S]) Attr(key string, m Mask) slog.Attr {
	return slog.Group(key,
		slog.String("machine", t.name),
		slog.Uint64("mask", uint64(m)),
		slog.String("states", t.Format(m)),
	)
}
