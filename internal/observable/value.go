// Package observable holds the output values published by the view-state controllers.
//
// A Value replays its latest value to every new observer and then delivers each
// subsequent Set in order. Publishing the same value twice notifies twice.
package observable

import "sync"

// Value is a replay-last observable of T. The zero Value is ready to use and has
// no value yet.
type Value[T any] struct {
	mu        sync.Mutex
	current   T
	set       bool
	nextID    int
	observers map[int]func(T)
	// serializes delivery so observers see publishes in Set order
	deliver sync.Mutex
}

// Set stores v and notifies every observer registered at the time of the call.
// Observers must not call Set or Observe on the same Value from their callback.
func (v *Value[T]) Set(val T) {
	v.deliver.Lock()
	defer v.deliver.Unlock()

	v.mu.Lock()
	v.current = val
	v.set = true
	fns := make([]func(T), 0, len(v.observers))
	for _, fn := range v.observers {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(val)
	}
}

// Get returns the latest value and whether one was ever published.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.set
}

// Observe registers fn. When a value has already been published fn receives it
// immediately. The returned cancel func stops further deliveries and is safe to
// call more than once.
func (v *Value[T]) Observe(fn func(T)) (cancel func()) {
	v.deliver.Lock()
	defer v.deliver.Unlock()

	v.mu.Lock()
	if v.observers == nil {
		v.observers = make(map[int]func(T))
	}
	id := v.nextID
	v.nextID++
	v.observers[id] = fn
	current, set := v.current, v.set
	v.mu.Unlock()

	if set {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.observers, id)
			v.mu.Unlock()
		})
	}
}

// Observers returns the number of registered observers.
func (v *Value[T]) Observers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.observers)
}
