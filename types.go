// Package fsmsnap is a hierarchical, event-driven state machine runtime.
//
// Machines are described with a Definition, built once and then driven by
// events dispatched on a single goroutine. A running Machine answers
// membership queries (IsInState) for itself and every ancestor of its
// current leaf, which is what package snapshot builds its bitmasks from.
package fsmsnap

import (
	"log/slog"

	"github.com/librescoot/fsmsnap/snapshot"
)

// StateID is a unique identifier for a state
type StateID string

// EventID is a unique identifier for an event type
type EventID string

// Querier is the read-only membership view handed out by Machine.View.
type Querier = snapshot.Querier[StateID]

// TimerScope defines when a timer is automatically cancelled
type TimerScope int

const (
	// TimerScopeGlobal - timer lives until explicitly stopped or the machine stops
	TimerScopeGlobal TimerScope = iota
	// TimerScopeState - timer auto-cancelled when exiting the state that started it
	TimerScopeState
)

// Logger is the default logger used when none is provided
var Logger = slog.Default()
