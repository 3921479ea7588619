// Package stream holds the replay-latest snapshot cache shared by the resource stores.
package stream

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Cache holds the latest collection snapshot and broadcasts every replacement
// to its subscribers. Snapshots are replaced wholesale and never mutated in place.
type Cache[T any] struct {
	publishMu   sync.Mutex
	mu          sync.RWMutex
	snapshot    []T
	subscribers []*subscriber[T]
	nextID      int64
}

type subscriber[T any] struct {
	id       int64
	deliver  func([]T)
	released atomic.Bool
}

// Subscription is a standing registration against a Cache. It must be released
// once the consumer stops caring about updates.
type Subscription struct {
	once    sync.Once
	release func()
}

// Release unregisters the subscription. Calling it more than once is safe.
func (s *Subscription) Release() {
	if s == nil || s.release == nil {
		return
	}
	s.once.Do(s.release)
}

// NewCache returns a cache seeded with the empty snapshot.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{snapshot: []T{}}
}

// Subscribe registers deliver and immediately replays the current snapshot to it.
// Every later snapshot is delivered in publish order until the subscription is released.
// Callbacks run synchronously on the publishing goroutine and must not call Replace or Subscribe.
func (c *Cache[T]) Subscribe(deliver func([]T)) *Subscription {
	if deliver == nil {
		return &Subscription{}
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	c.nextID++
	entry := &subscriber[T]{id: c.nextID, deliver: deliver}
	c.subscribers = append(c.subscribers, entry)
	current := c.snapshot
	c.mu.Unlock()

	deliver(slices.Clone(current))

	return &Subscription{release: func() {
		entry.released.Store(true)
		c.unregister(entry.id)
	}}
}

// SubscribeContext behaves like Subscribe and additionally releases the
// subscription when ctx is done. Releasing by hand first detaches it from ctx.
func (c *Cache[T]) SubscribeContext(ctx context.Context, deliver func([]T)) *Subscription {
	inner := c.Subscribe(deliver)
	if inner.release == nil {
		return inner
	}

	released := make(chan struct{})
	subscription := &Subscription{release: func() {
		close(released)
		inner.Release()
	}}
	go func() {
		select {
		case <-ctx.Done():
			subscription.Release()
		case <-released:
		}
	}()
	return subscription
}

// Snapshot returns a copy of the current snapshot without subscribing.
func (c *Cache[T]) Snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.snapshot)
}

// Replace installs a copy of snapshot and notifies subscribers in subscription order.
func (c *Cache[T]) Replace(snapshot []T) {
	next := slices.Clone(snapshot)
	if next == nil {
		next = []T{}
	}

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	c.snapshot = next
	recipients := slices.Clone(c.subscribers)
	c.mu.Unlock()

	for _, recipient := range recipients {
		if recipient.released.Load() {
			continue
		}
		recipient.deliver(slices.Clone(next))
	}
}

func (c *Cache[T]) unregister(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = slices.DeleteFunc(c.subscribers, func(entry *subscriber[T]) bool {
		return entry.id == id
	})
}
