// Package snapshot packs the active states of a hierarchical state machine
// into a fixed-width bitmask, one bit per enumerated state.
//
// The machine itself is opaque: a snapshot only needs a Querier answering
// whether the instance is currently in a given state (including ancestors).
package snapshot

import (
	"math/bits"
)

// MaxStates is the largest number of states a single Mask can describe.
const MaxStates = 64

// Mask has bit i set when the machine occupies the state at offset i.
type Mask uint64

// Querier is the membership predicate a state machine instance provides.
// IsInState reports whether the instance is in the state, either as the
// current leaf or as one of its ancestors.
type Querier[S ~string] interface {
	IsInState(state S) bool
}

// Viewer runs fn with a Querier whose answers all describe the same instant.
type Viewer[S ~string] interface {
	View(fn func(q Querier[S]))
}

// Bit returns the mask contribution of one membership check.
func Bit(in bool, offset int) Mask {
	if !in {
		return 0
	}
	return Mask(1) << uint(offset)
}

// Has reports whether the bit at offset is set.
func (m Mask) Has(offset int) bool {
	if offset < 0 || offset >= MaxStates {
		return false
	}
	return m&(Mask(1)<<uint(offset)) != 0
}

// Count returns the number of states set in the mask.
func (m Mask) Count() int {
	return bits.OnesCount64(uint64(m))
}
