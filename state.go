package fsmsnap

import "time"

// State defines a state in the machine
type State struct {
	ID           StateID
	Parent       StateID // Empty for top-level states
	DefaultChild StateID // Entered automatically after this state
	Final        bool    // Terminal: no transitions out

	OnEnter func(ctx *Context) error
	OnExit  func(ctx *Context) error

	// Started on entry, cancelled on exit
	Timeout      time.Duration
	TimeoutEvent EventID

	// Named timers stopped on exit
	DeclaredTimers []string
}

// StateOption is a functional option for configuring a State
type StateOption func(*State)

// WithParent nests the state under parent
func WithParent(parent StateID) StateOption {
	return func(s *State) {
		s.Parent = parent
	}
}

// WithDefaultChild sets the child entered whenever this state is the target
func WithDefaultChild(child StateID) StateOption {
	return func(s *State) {
		s.DefaultChild = child
	}
}

// WithOnEnter sets the entry action
func WithOnEnter(fn func(*Context) error) StateOption {
	return func(s *State) {
		s.OnEnter = fn
	}
}

// WithOnExit sets the exit action
func WithOnExit(fn func(*Context) error) StateOption {
	return func(s *State) {
		s.OnExit = fn
	}
}

// WithTimeout sends event after duration unless the state is left first
func WithTimeout(duration time.Duration, event EventID) StateOption {
	return func(s *State) {
		s.Timeout = duration
		s.TimeoutEvent = event
	}
}

// WithTimer declares a named timer for auto-cleanup on state exit
func WithTimer(name string) StateOption {
	return func(s *State) {
		s.DeclaredTimers = append(s.DeclaredTimers, name)
	}
}

func (s *State) timeoutTimerName() string {
	return "_timeout_" + string(s.ID)
}
