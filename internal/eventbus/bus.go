// Package eventbus is an in-process publish/subscribe registry. Observers are kept in
// subscription order and every Publish delivers synchronously to each of them, in that
// order, on the publishing goroutine.
package eventbus

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Observer receives published events
type Observer[T any] func(T)

// Bus broadcasts events of type T to its observers
type Bus[T any] struct {
	mu        sync.RWMutex
	nextID    uint64
	observers *orderedmap.OrderedMap[uint64, Observer[T]]
}

// New creates an empty bus
func New[T any]() *Bus[T] {
	return &Bus[T]{
		observers: orderedmap.New[uint64, Observer[T]](),
	}
}

// Subscribe registers fn and returns the function that removes it. Calling the returned
// function more than once is harmless.
func (b *Bus[T]) Subscribe(fn Observer[T]) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.observers.Set(id, fn)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.observers.Delete(id)
	}
}

// Publish delivers ev to every observer registered at the time of the call. The registry
// lock is not held during delivery, so observers may subscribe or unsubscribe.
func (b *Bus[T]) Publish(ev T) {
	for _, fn := range b.snapshot() {
		fn(ev)
	}
}

// Len returns the number of registered observers
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.observers.Len()
}

func (b *Bus[T]) snapshot() []Observer[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Observer[T], 0, b.observers.Len())
	for pair := b.observers.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}
