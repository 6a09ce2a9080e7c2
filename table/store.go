package table

import "reflect"

// Readable is a value that can be read and observed for changes
type Readable[T any] interface {
	// Get returns the current value
	Get() T
	// Subscribe calls fn with the current value right away and again after
	// every recompute that changes it. The returned func removes fn.
	Subscribe(fn func(T)) (unsubscribe func())
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// cell holds one piece of derived state
type cell[T any] struct {
	value       T
	subscribers []subscriber[T]
	nextID      int
	dirty       bool
}

func newCell[T any](initial T) *cell[T] {
	return &cell[T]{value: initial}
}

// Get returns the current value
func (c *cell[T]) Get() T {
	return c.value
}

// Subscribe registers fn and calls it with the current value
func (c *cell[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}

	id := c.nextID
	c.nextID++
	c.subscribers = append(c.subscribers, subscriber[T]{id: id, fn: fn})
	fn(c.value)

	return func() {
		for i, s := range c.subscribers {
			if s.id == id {
				c.subscribers = append(c.subscribers[:i:i], c.subscribers[i+1:]...)
				return
			}
		}
	}
}

// store replaces the value without notifying anyone, and remembers whether
// subscribers need to hear about it
func (c *cell[T]) store(v T) {
	if reflect.DeepEqual(c.value, v) {
		return
	}
	c.value = v
	c.dirty = true
}

// notify delivers the value to subscribers if it changed since the last notify
func (c *cell[T]) notify() {
	if !c.dirty {
		return
	}
	c.dirty = false

	// Subscribers may unsubscribe while being notified
	subs := make([]subscriber[T], len(c.subscribers))
	copy(subs, c.subscribers)
	for _, s := range subs {
		s.fn(c.value)
	}
}

type notifier interface {
	notify()
}
