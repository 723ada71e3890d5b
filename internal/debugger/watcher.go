package debugger

import "github.com/dshills/tracewright/internal/observable"

// Watcher calls a function whenever the watched debugger changes state or
// the manager's current debugger changes.
//
// Without an explicit target the watcher follows the current debugger,
// moving its subscription as the current debugger changes. Shutdown must
// be called before the watcher is discarded.
type Watcher struct {
	mgr    *Manager
	fn     func(Debugger)
	fixed  bool
	target Debugger

	onCurrent *observable.FuncObserver[Debugger]
	onState   *observable.FuncObserver[struct{}]
	closed    bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WatchTarget fixes the watched debugger instead of following the current one.
func WatchTarget(dbg Debugger) WatcherOption {
	return func(w *Watcher) {
		w.fixed = true
		w.target = dbg
	}
}

// NewWatcher subscribes fn to mgr. fn receives the watched debugger, which
// may be nil.
func NewWatcher(mgr *Manager, fn func(Debugger), opts ...WatcherOption) *Watcher {
	w := &Watcher{mgr: mgr, fn: fn}
	for _, opt := range opts {
		opt(w)
	}
	if !w.fixed {
		w.target = mgr.Current()
	}

	w.onState = observable.ObserverFunc(func(observable.Event[struct{}]) {
		w.fn(w.target)
	})
	w.onCurrent = observable.ObserverFunc(func(ev observable.Event[Debugger]) {
		if !w.fixed {
			w.bind(ev.Value)
		}
		w.fn(w.target)
	})

	mgr.CurrentChanged().Subscribe(w.onCurrent)
	if w.target != nil {
		w.target.StateChanged().Subscribe(w.onState)
	}
	return w
}

// Target returns the watched debugger.
func (w *Watcher) Target() Debugger {
	return w.target
}

func (w *Watcher) bind(dbg Debugger) {
	if w.target == dbg {
		return
	}
	if w.target != nil {
		w.target.StateChanged().Unsubscribe(w.onState)
	}
	w.target = dbg
	if dbg != nil {
		dbg.StateChanged().Subscribe(w.onState)
	}
}

// Shutdown removes both subscriptions. It is idempotent.
func (w *Watcher) Shutdown() {
	if w.closed {
		return
	}
	w.closed = true
	w.mgr.CurrentChanged().Unsubscribe(w.onCurrent)
	if w.target != nil {
		w.target.StateChanged().Unsubscribe(w.onState)
	}
}
