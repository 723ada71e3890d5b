package debugger

import "github.com/dshills/tracewright/internal/observable"

// ListManager owns the registered debuggers in insertion order.
// A debugger that terminates is removed automatically.
type ListManager struct {
	list     *observable.List[Debugger]
	watchers map[Debugger]*observable.FuncObserver[struct{}]
}

// NewListManager creates an empty list manager.
func NewListManager() *ListManager {
	return &ListManager{
		list:     observable.NewList[Debugger](),
		watchers: make(map[Debugger]*observable.FuncObserver[struct{}]),
	}
}

// Debuggers returns the observable debugger list.
func (lm *ListManager) Debuggers() *observable.List[Debugger] {
	return lm.list
}

// Len returns the number of registered debuggers.
func (lm *ListManager) Len() int {
	return lm.list.Len()
}

// Contains reports whether dbg is registered.
func (lm *ListManager) Contains(dbg Debugger) bool {
	return lm.list.Contains(dbg)
}

// Find returns the registered debugger with id.
func (lm *ListManager) Find(id string) (Debugger, bool) {
	for _, d := range lm.list.Items() {
		if d.ID() == id {
			return d, true
		}
	}
	return nil, false
}

// Add registers dbg. Adding a registered or terminated debugger is a no-op.
func (lm *ListManager) Add(dbg Debugger) {
	if dbg == nil || lm.list.Contains(dbg) || dbg.State() == StateTerminated {
		return
	}
	obs := observable.ObserverFunc(func(observable.Event[struct{}]) {
		if dbg.State() == StateTerminated {
			lm.Remove(dbg)
		}
	})
	lm.watchers[dbg] = obs
	dbg.StateChanged().Subscribe(obs)
	lm.list.Append(dbg)
}

// Remove unregisters dbg. Removing an unknown debugger is a no-op.
func (lm *ListManager) Remove(dbg Debugger) {
	if obs, ok := lm.watchers[dbg]; ok {
		dbg.StateChanged().Unsubscribe(obs)
		delete(lm.watchers, dbg)
	}
	lm.list.Remove(dbg)
}
