package fsmsnap

import (
	"log/slog"
	"time"
)

// Context is passed to entry, exit, guard and action callbacks. Callbacks
// run on the dispatch goroutine with the machine locked, so Context reads
// state without taking the lock again.
type Context struct {
	FSM       *Machine
	Event     *Event  // nil during exit and the initial entry
	FromState StateID // Set for entry actions and transition actions
	ToState   StateID
	Data      any
	Logger    *slog.Logger
}

// CurrentState returns the state the machine is in at this point of the transition
func (c *Context) CurrentState() StateID {
	return c.FSM.currentState
}

// IsInState checks if the given state is current or an ancestor of current
func (c *Context) IsInState(id StateID) bool {
	return c.FSM.isInState(id)
}

// StartTimer starts a named timer scoped to the current state. If a timer
// with the same name exists, it is reset.
func (c *Context) StartTimer(name string, duration time.Duration, event Event) {
	c.FSM.startTimerInternal(name, duration, event, TimerScopeState, c.FSM.currentState)
}

// StartTimerGlobal starts a timer that survives state exits
func (c *Context) StartTimerGlobal(name string, duration time.Duration, event Event) {
	c.FSM.startTimerInternal(name, duration, event, TimerScopeGlobal, "")
}

// StopTimer stops a timer by name. No-op if the timer doesn't exist.
func (c *Context) StopTimer(name string) {
	c.FSM.StopTimer(name)
}

// TimerActive checks if a timer is currently running
func (c *Context) TimerActive(name string) bool {
	return c.FSM.TimerActive(name)
}

// Send queues an event for asynchronous processing
func (c *Context) Send(event Event) {
	c.FSM.Send(event)
}
