package fsmsnap

// IsInState reports whether id is the current leaf state or one of its ancestors
func (m *Machine) IsInState(id StateID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isInState(id)
}

func (m *Machine) isInState(id StateID) bool {
	for _, s := range m.paths[m.currentState] {
		if s == id {
			return true
		}
	}
	return false
}

// ActiveStates returns the current leaf followed by its ancestors up to the root
func (m *Machine) ActiveStates() []StateID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	path := m.paths[m.currentState]
	out := make([]StateID, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		out = append(out, path[i])
	}
	return out
}

// View calls fn while holding the read lock, so every answer fn gets from q
// describes the same configuration. q must not be retained after fn returns
// and fn must not call back into the machine's locking methods.
func (m *Machine) View(fn func(q Querier)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(lockedView{m})
}

// lockedView answers queries for a machine whose lock is already held
type lockedView struct {
	m *Machine
}

func (v lockedView) IsInState(id StateID) bool {
	return v.m.isInState(id)
}

// rootPath returns the states from the top-level ancestor down to id
func (m *Machine) rootPath(id StateID) []StateID {
	var path []StateID
	for cur := id; cur != ""; {
		s := m.states[cur]
		if s == nil {
			break
		}
		path = append([]StateID{cur}, path...)
		cur = s.Parent
	}
	return path
}

// commonAncestor returns the deepest state shared by the paths of a and b,
// or "" when they only meet at the root.
func (m *Machine) commonAncestor(a, b StateID) StateID {
	pa, pb := m.paths[a], m.paths[b]
	var lca StateID
	for i := 0; i < len(pa) && i < len(pb) && pa[i] == pb[i]; i++ {
		lca = pa[i]
	}
	return lca
}
