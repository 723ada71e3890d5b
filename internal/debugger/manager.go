package debugger

import "github.com/dshills/tracewright/internal/observable"

// Manager tracks the current debugger among those of a ListManager.
type Manager struct {
	lists   *ListManager
	current *observable.Container[Debugger]
	watch   *observable.FuncObserver[[]Debugger]
}

// NewManager creates a manager over lists with no current debugger.
func NewManager(lists *ListManager) *Manager {
	m := &Manager{
		lists:   lists,
		current: observable.New[Debugger](nil),
	}
	m.watch = observable.ObserverFunc(func(ev observable.Event[[]Debugger]) {
		cur := m.current.Get()
		if cur != nil && !m.lists.Contains(cur) {
			m.current.Set(nil)
		}
	})
	lists.Debuggers().Subscribe(m.watch)
	return m
}

// Lists returns the underlying list manager.
func (m *Manager) Lists() *ListManager {
	return m.lists
}

// Current returns the current debugger, or nil.
func (m *Manager) Current() Debugger {
	return m.current.Get()
}

// CurrentChanged returns the container notified when the current debugger
// changes.
func (m *Manager) CurrentChanged() *observable.Container[Debugger] {
	return m.current
}

// SetCurrent makes dbg current. dbg must be registered, or nil.
func (m *Manager) SetCurrent(dbg Debugger) error {
	if dbg != nil && !m.lists.Contains(dbg) {
		return ErrNotRegistered
	}
	m.current.Set(dbg)
	return nil
}

// Close detaches the manager from its list manager.
func (m *Manager) Close() {
	m.lists.Debuggers().Unsubscribe(m.watch)
}
