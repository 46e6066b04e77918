// Package idempotent collapses concurrent and repeated executions of the same keyed operation.
package idempotent

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a successful result is remembered after it completes.
const DefaultTTL = 60 * time.Second

type memoEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// Barrier runs fn at most once per key while a call is in flight, and replays a successful
// result to later callers for the memo TTL. Failed calls are shared with concurrent waiters
// only, so the next attempt after a failure runs fn again.
type Barrier[T any] struct {
	group singleflight.Group

	mu        sync.Mutex
	memo      map[string]memoEntry[T]
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// New returns a barrier remembering results for ttl. A non-positive ttl selects [DefaultTTL].
func New[T any](ttl time.Duration) *Barrier[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Barrier[T]{
		memo: make(map[string]memoEntry[T]),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Do executes fn for key unless an identical call is running or recently succeeded.
// shared reports whether the result came from another caller's execution.
func (b *Barrier[T]) Do(key string, fn func() (T, error)) (value T, shared bool, err error) {
	if v, ok := b.lookup(key); ok {
		return v, true, nil
	}

	executed := false
	res, err, shared := b.group.Do(key, func() (interface{}, error) {
		// A call that finished between lookup and Do already populated the memo.
		if v, ok := b.lookup(key); ok {
			return v, nil
		}
		executed = true
		v, err := fn()
		if err != nil {
			return v, err
		}
		b.remember(key, v)
		return v, nil
	})
	if res != nil {
		value = res.(T)
	}
	return value, shared || !executed, err
}

// Forget drops any memoised result for key.
func (b *Barrier[T]) Forget(key string) {
	b.mu.Lock()
	delete(b.memo, key)
	b.mu.Unlock()
	b.group.Forget(key)
}

// Len returns the number of memoised results, expired entries included until the next sweep.
func (b *Barrier[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.memo)
}

func (b *Barrier[T]) lookup(key string) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Sub(b.lastSweep) >= b.ttl {
		for k, e := range b.memo {
			if !now.Before(e.expiresAt) {
				delete(b.memo, k)
			}
		}
		b.lastSweep = now
	}

	e, ok := b.memo[key]
	if !ok || !now.Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

func (b *Barrier[T]) remember(key string, v T) {
	b.mu.Lock()
	b.memo[key] = memoEntry[T]{value: v, expiresAt: b.now().Add(b.ttl)}
	b.mu.Unlock()
}
