package fsmsnap

import (
	"time"
)

type timerEntry struct {
	timer *time.Timer
	scope TimerScope
	owner StateID
}

func (m *Machine) startTimerInternal(name string, duration time.Duration, event Event, scope TimerScope, owner StateID) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if existing, ok := m.timers[name]; ok {
		existing.timer.Stop()
	}

	entry := &timerEntry{scope: scope, owner: owner}
	entry.timer = time.AfterFunc(duration, func() {
		m.timerMu.Lock()
		// A stopped or restarted timer no longer owns the name.
		if m.timers[name] != entry {
			m.timerMu.Unlock()
			return
		}
		delete(m.timers, name)
		m.timerMu.Unlock()

		m.logger.Debug("timer fired", "name", name, "event", event.ID)
		m.Send(event)
	})
	m.timers[name] = entry

	m.logger.Debug("timer started", "name", name, "duration", duration, "event", event.ID)
}

// StartTimer starts a named global timer
func (m *Machine) StartTimer(name string, duration time.Duration, event Event) {
	m.startTimerInternal(name, duration, event, TimerScopeGlobal, "")
}

// StopTimer stops a timer by name
func (m *Machine) StopTimer(name string) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if entry, ok := m.timers[name]; ok {
		entry.timer.Stop()
		delete(m.timers, name)
		m.logger.Debug("timer stopped", "name", name)
	}
}

// StopAllTimers stops all running timers
func (m *Machine) StopAllTimers() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	for _, entry := range m.timers {
		entry.timer.Stop()
	}
	m.timers = make(map[string]*timerEntry)
}

// TimerActive checks if a timer is running
func (m *Machine) TimerActive(name string) bool {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	_, ok := m.timers[name]
	return ok
}

// cleanupTimersForState cancels the state-scoped timers owned by id
func (m *Machine) cleanupTimersForState(id StateID) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	for name, entry := range m.timers {
		if entry.scope == TimerScopeState && entry.owner == id {
			entry.timer.Stop()
			delete(m.timers, name)
			m.logger.Debug("timer cleaned up (state exit)", "name", name, "state", id)
		}
	}
}
