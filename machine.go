package fsmsnap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrNotStarted is returned by SendSync before Start.
	ErrNotStarted = errors.New("machine not started")
	// ErrStopped is returned by SendSync once the machine is stopped.
	ErrStopped = errors.New("machine stopped")
	// ErrQueueFull is returned by SendSync when the event queue has no room.
	ErrQueueFull = errors.New("event queue full")
)

// Machine is the runtime instance built from a Definition
type Machine struct {
	states      map[StateID]*State
	paths       map[StateID][]StateID // root..state, inclusive
	transitions []Transition
	initial     StateID

	mu           sync.RWMutex
	currentState StateID

	queue   chan envelope
	timers  map[string]*timerEntry
	timerMu sync.Mutex

	data     any
	logger   *slog.Logger
	onChange func(from, to StateID)

	ctx    context.Context
	cancel context.CancelFunc
}

// MachineOption is a functional option for configuring a Machine
type MachineOption func(*Machine)

// WithEventQueueSize sets the event queue buffer size
func WithEventQueueSize(size int) MachineOption {
	return func(m *Machine) {
		m.queue = make(chan envelope, size)
	}
}

// WithLogger sets the logger for the machine
func WithLogger(logger *slog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithData sets the application data accessible via Context
func WithData(data any) MachineOption {
	return func(m *Machine) {
		m.data = data
	}
}

// WithStateChangeCallback sets a callback invoked after each state change
func WithStateChangeCallback(fn func(from, to StateID)) MachineOption {
	return func(m *Machine) {
		m.onChange = fn
	}
}

// OnStateChange sets a callback invoked after each state change.
// It runs outside the machine lock, so it may query the machine. Must be called before Start.
func (m *Machine) OnStateChange(fn func(from, to StateID)) {
	m.onChange = fn
}

// Start enters the initial state and begins the event loop
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx, m.cancel = context.WithCancel(ctx)
	err := m.enterPath(m.initial, "", nil, "")
	initial := m.currentState
	m.mu.Unlock()

	if err != nil {
		m.cancel()
		return fmt.Errorf("failed to enter initial state: %w", err)
	}
	if m.onChange != nil {
		m.onChange("", initial)
	}

	go m.loop()
	return nil
}

// Stop cancels the event loop and all timers
func (m *Machine) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.StopAllTimers()
	return nil
}

// Send queues an event for asynchronous processing
func (m *Machine) Send(event Event) {
	select {
	case m.queue <- envelope{event: event}:
	default:
		m.logger.Warn("event queue full, dropping event", "event", event.ID)
	}
}

// SendSync queues an event and waits until it has been processed
func (m *Machine) SendSync(event Event) error {
	if m.ctx == nil {
		return ErrNotStarted
	}
	if m.ctx.Err() != nil {
		return ErrStopped
	}
	done := make(chan error, 1)
	select {
	case m.queue <- envelope{event: event, done: done}:
	case <-m.ctx.Done():
		return ErrStopped
	default:
		return fmt.Errorf("send %q: %w", event.ID, ErrQueueFull)
	}
	select {
	case err := <-done:
		return err
	case <-m.ctx.Done():
		return ErrStopped
	}
}

// CurrentState returns the current leaf state
func (m *Machine) CurrentState() StateID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

func (m *Machine) loop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		case env := <-m.queue:
			err := m.dispatch(env.event)
			if env.done != nil {
				env.done <- err
			}
		}
	}
}

func (m *Machine) dispatch(event Event) error {
	m.mu.Lock()
	from := m.currentState
	err := m.handle(event)
	to := m.currentState
	m.mu.Unlock()

	if m.onChange != nil && from != to {
		m.onChange(from, to)
	}
	return err
}

func (m *Machine) handle(event Event) error {
	m.logger.Debug("processing event", "event", event.ID, "state", m.currentState)

	if m.states[m.currentState].Final {
		m.logger.Debug("event ignored in final state", "event", event.ID, "state", m.currentState)
		return nil
	}

	ctx := m.makeContext(&event)
	for _, t := range m.candidates(event.ID) {
		if t.Guard != nil && !t.Guard(ctx) {
			m.logger.Debug("guard rejected transition", "event", event.ID, "from", t.From, "to", t.To)
			continue
		}
		return m.transition(t, &event)
	}

	m.logger.Debug("no transition taken", "event", event.ID, "state", m.currentState)
	return nil
}

// candidates lists transitions for ev in priority order: the current leaf,
// then each ancestor outwards, then wildcards.
func (m *Machine) candidates(ev EventID) []*Transition {
	var out []*Transition
	path := m.paths[m.currentState]
	for i := len(path) - 1; i >= 0; i-- {
		for j := range m.transitions {
			t := &m.transitions[j]
			if t.Event == ev && t.From == path[i] {
				out = append(out, t)
			}
		}
	}
	for j := range m.transitions {
		t := &m.transitions[j]
		if t.Event == ev && t.From == WildcardState {
			out = append(out, t)
		}
	}
	return out
}

func (m *Machine) transition(t *Transition, event *Event) error {
	from := m.currentState
	lca := m.commonAncestor(from, t.To)

	m.logger.Debug("executing transition", "from", from, "to", t.To, "event", event.ID, "lca", lca)

	// A transition to the current state or one of its ancestors is external:
	// the target is exited and re-entered.
	if lca == t.To {
		lca = m.states[t.To].Parent
	}

	if err := m.exitUpTo(lca); err != nil {
		return fmt.Errorf("exit failed: %w", err)
	}

	if t.Action != nil {
		ctx := m.makeContext(event)
		ctx.FromState = from
		ctx.ToState = t.To
		if err := t.Action(ctx); err != nil {
			return fmt.Errorf("transition action failed: %w", err)
		}
	}

	if err := m.enterPath(t.To, lca, event, from); err != nil {
		return fmt.Errorf("enter failed: %w", err)
	}
	return nil
}

// exitUpTo exits the current leaf and its ancestors below ancestor
func (m *Machine) exitUpTo(ancestor StateID) error {
	path := m.paths[m.currentState]
	for i := len(path) - 1; i >= 0 && path[i] != ancestor; i-- {
		if err := m.exitState(path[i]); err != nil {
			return err
		}
		m.currentState = m.states[path[i]].Parent
	}
	return nil
}

// enterPath enters every state strictly below ancestor down to target, then
// follows default children.
func (m *Machine) enterPath(target, ancestor StateID, event *Event, from StateID) error {
	path := m.paths[target]
	start := 0
	if ancestor != "" {
		for i, id := range path {
			if id == ancestor {
				start = i + 1
				break
			}
		}
	}

	prev := from
	for _, id := range path[start:] {
		if err := m.enterState(id, event, prev); err != nil {
			return err
		}
		prev = id
	}

	for s := m.states[target]; s.DefaultChild != ""; s = m.states[s.DefaultChild] {
		if err := m.enterState(s.DefaultChild, event, s.ID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) enterState(id StateID, event *Event, from StateID) error {
	s := m.states[id]
	if s == nil {
		return fmt.Errorf("state %q not found", id)
	}

	m.logger.Debug("entering state", "state", id)
	m.currentState = id

	if s.Timeout > 0 && s.TimeoutEvent != "" {
		m.startTimerInternal(s.timeoutTimerName(), s.Timeout, Event{ID: s.TimeoutEvent}, TimerScopeState, id)
	}

	if s.OnEnter != nil {
		ctx := m.makeContext(event)
		ctx.FromState = from
		ctx.ToState = id
		if err := s.OnEnter(ctx); err != nil {
			return fmt.Errorf("entry action failed for %q: %w", id, err)
		}
	}
	return nil
}

func (m *Machine) exitState(id StateID) error {
	s := m.states[id]
	if s == nil {
		return nil
	}

	m.logger.Debug("exiting state", "state", id)

	m.cleanupTimersForState(id)
	for _, name := range s.DeclaredTimers {
		m.StopTimer(name)
	}
	m.StopTimer(s.timeoutTimerName())

	if s.OnExit != nil {
		if err := s.OnExit(m.makeContext(nil)); err != nil {
			return fmt.Errorf("exit action failed for %q: %w", id, err)
		}
	}
	return nil
}

func (m *Machine) makeContext(event *Event) *Context {
	return &Context{
		FSM:    m,
		Event:  event,
		Data:   m.data,
		Logger: m.logger,
	}
}
