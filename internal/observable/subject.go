package observable

// Event is delivered to observers on every notification.
type Event[T any] struct {
	// Value is the container value at the time of notification.
	Value T

	// Meta carries notification metadata, for example the operation and
	// element of an in-place collection mutation. May be nil.
	Meta map[string]any
}

// Op returns the "op" metadata entry, or "" if absent.
func (e Event[T]) Op() string {
	if e.Meta == nil {
		return ""
	}
	op, _ := e.Meta["op"].(string)
	return op
}

// Observer receives change notifications.
// Implementations must be comparable; subscriptions are keyed by identity.
type Observer[T any] interface {
	Changed(ev Event[T])
}

// FuncObserver adapts a function to the Observer interface.
type FuncObserver[T any] struct {
	fn func(Event[T])
}

// ObserverFunc wraps fn in a FuncObserver. Keep the returned pointer to
// unsubscribe later.
func ObserverFunc[T any](fn func(Event[T])) *FuncObserver[T] {
	return &FuncObserver[T]{fn: fn}
}

// Changed calls the wrapped function.
func (f *FuncObserver[T]) Changed(ev Event[T]) {
	if f.fn != nil {
		f.fn(ev)
	}
}

// Subject is an ordered observer list without duplicates.
type Subject[T any] struct {
	observers []Observer[T]
}

// Subscribe registers o. Subscribing an already registered observer is a no-op.
func (s *Subject[T]) Subscribe(o Observer[T]) {
	if o == nil || s.indexOf(o) >= 0 {
		return
	}
	s.observers = append(s.observers, o)
}

// Unsubscribe removes o. Removing an unknown observer is a no-op.
func (s *Subject[T]) Unsubscribe(o Observer[T]) {
	i := s.indexOf(o)
	if i < 0 {
		return
	}
	s.observers = append(s.observers[:i], s.observers[i+1:]...)
}

// Subscribed reports whether o is registered.
func (s *Subject[T]) Subscribed(o Observer[T]) bool {
	return s.indexOf(o) >= 0
}

// Len returns the number of registered observers.
func (s *Subject[T]) Len() int {
	return len(s.observers)
}

// Emit delivers value and meta to every observer.
// Observers added or removed during delivery take effect on the next Emit.
func (s *Subject[T]) Emit(value T, meta map[string]any) {
	if len(s.observers) == 0 {
		return
	}
	observers := make([]Observer[T], len(s.observers))
	copy(observers, s.observers)

	ev := Event[T]{Value: value, Meta: meta}
	for _, o := range observers {
		o.Changed(ev)
	}
}

func (s *Subject[T]) indexOf(o Observer[T]) int {
	for i, existing := range s.observers {
		if existing == o {
			return i
		}
	}
	return -1
}

// Signal is a Subject without a payload.
type Signal struct {
	Subject[struct{}]
}

// NewSignal creates an empty signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Emit notifies all observers.
func (s *Signal) Emit() {
	s.Subject.Emit(struct{}{}, nil)
}

// mergeMeta folds a variadic list of metadata maps into one.
func mergeMeta(meta []map[string]any) map[string]any {
	switch len(meta) {
	case 0:
		return nil
	case 1:
		return meta[0]
	}
	out := make(map[string]any)
	for _, m := range meta {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
