package observable

// List is an ordered observable collection.
// Structural changes notify observers with the full item slice as value and
// metadata describing the mutation.
type List[T comparable] struct {
	Subject[[]T]

	items []T
}

// NewList creates a list with the given initial items.
func NewList[T comparable](items ...T) *List[T] {
	l := &List[T]{}
	l.items = append(l.items, items...)
	return l
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	return len(l.items)
}

// At returns the item at index i.
func (l *List[T]) At(i int) T {
	return l.items[i]
}

// Items returns a copy of the items.
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Index returns the position of item, or -1.
func (l *List[T]) Index(item T) int {
	for i, it := range l.items {
		if it == item {
			return i
		}
	}
	return -1
}

// Contains reports whether item is present.
func (l *List[T]) Contains(item T) bool {
	return l.Index(item) >= 0
}

// Append adds item at the tail and notifies.
func (l *List[T]) Append(item T) {
	l.items = append(l.items, item)
	l.Emit(l.Items(), map[string]any{"op": "add", "item": item, "index": len(l.items) - 1})
}

// Remove deletes the first occurrence of item and notifies.
// Returns false if item was not present.
func (l *List[T]) Remove(item T) bool {
	i := l.Index(item)
	if i < 0 {
		return false
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.Emit(l.Items(), map[string]any{"op": "remove", "item": item, "index": i})
	return true
}

// Clear removes all items and notifies if the list was not empty.
func (l *List[T]) Clear() {
	if len(l.items) == 0 {
		return
	}
	l.items = nil
	l.Emit(nil, map[string]any{"op": "clear"})
}

// Notify fires observers without a structural change, for example after an
// element was mutated in place.
func (l *List[T]) Notify(meta ...map[string]any) {
	l.Emit(l.Items(), mergeMeta(meta))
}
