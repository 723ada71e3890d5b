package observable

// Container holds an optional value and notifies observers when it changes.
type Container[T any] struct {
	Subject[T]

	value T
	set   bool
	equal func(a, b T) bool
}

// New creates a container holding v, comparing values with ==.
func New[T comparable](v T) *Container[T] {
	return &Container[T]{
		value: v,
		set:   true,
		equal: func(a, b T) bool { return a == b },
	}
}

// Empty creates a container with no value, comparing values with ==.
func Empty[T comparable]() *Container[T] {
	return &Container[T]{
		equal: func(a, b T) bool { return a == b },
	}
}

// NewWith creates a container holding v that uses equal as its change
// predicate. A nil equal treats every Set as a change.
func NewWith[T any](v T, equal func(a, b T) bool) *Container[T] {
	if equal == nil {
		equal = func(a, b T) bool { return false }
	}
	return &Container[T]{value: v, set: true, equal: equal}
}

// Get returns the current value.
func (c *Container[T]) Get() T {
	return c.value
}

// IsNone reports whether the container holds no value.
func (c *Container[T]) IsNone() bool {
	return !c.set
}

// Set replaces the value and notifies observers if it differs from the
// previous one. Setting a value into an empty container always notifies.
// Returns true if observers were notified.
func (c *Container[T]) Set(v T) bool {
	if c.set && c.equal(c.value, v) {
		return false
	}
	c.value = v
	c.set = true
	c.Emit(v, nil)
	return true
}

// Clear removes the value and notifies observers if one was present.
func (c *Container[T]) Clear() {
	if !c.set {
		return
	}
	var zero T
	c.value = zero
	c.set = false
	c.Emit(zero, map[string]any{"op": "clear"})
}

// Notify fires all observers with the current value without changing it.
// Metadata maps are merged in order.
func (c *Container[T]) Notify(meta ...map[string]any) {
	c.Emit(c.value, mergeMeta(meta))
}
