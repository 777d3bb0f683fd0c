// Package looplabsnap lets snapshot tables read github.com/looplab/fsm machines.
//
// looplab machines are flat, so a mask read through this package has at
// most one bit set.
package looplabsnap

import (
	"github.com/looplab/fsm"

	"github.com/librescoot/fsmsnap/snapshot"
)

// Querier answers membership queries for a looplab FSM.
type Querier struct {
	FSM *fsm.FSM
}

// IsInState reports whether the FSM's current state is state.
func (q Querier) IsInState(state string) bool {
	return q.FSM.Is(state)
}

// NewTable builds a snapshot table for a looplab machine's states.
func NewTable(name string, states ...string) (*snapshot.Table[string], error) {
	return snapshot.NewTable(name, states...)
}

// Read returns the snapshot of f against table.
func Read(table *snapshot.Table[string], f *fsm.FSM) snapshot.Mask {
	return table.Read(Querier{FSM: f})
}
