// Package cache provides time-bounded memoization for rate-limited exchange
// queries. A CachedResult remembers one value per argument key with a refresh
// period; a Vault can freeze a group of caches so that multi-step decisions
// see one stable snapshot of the exchange state.
package cache

import (
	"context"
	"sync"
	"time"
)

// Options configures one CachedResult. When Vault is non-nil the cache
// registers itself at construction and takes part in group freezing.
type Options struct {
	RefreshPeriod time.Duration
	Vault         *Vault
}

type entry[V any] struct {
	value V
	at    time.Time

	// frozenSnap marks the entry as the stable snapshot taken for the
	// current freeze scope. Cleared on unfreeze.
	frozenSnap bool

	// pending holds a Set that arrived while the entry was serving a frozen
	// snapshot. Applied on unfreeze under the same newer-wins rule.
	pending    V
	pendingAt  time.Time
	hasPending bool
}

// CachedResult memoizes a compute function per argument key. Values are
// recomputed once RefreshPeriod has elapsed since the last computation,
// except while frozen: the first Get per key after freezing recomputes
// unconditionally, then every Get returns that snapshot until unfrozen.
//
// All operations hold an internal mutex, so a streaming feed may call Set
// while the owning goroutine runs Get. Compute runs under the mutex: reads
// against one exchange client are serialized anyway by its rate limits.
type CachedResult[K comparable, V any] struct {
	mu      sync.Mutex
	compute func(context.Context, K) (V, error)
	refresh time.Duration
	entries map[K]*entry[V]
	frozen  bool

	now func() time.Time // override in tests
}

// New creates a CachedResult for the given compute function and registers it
// with the options' vault, if any.
func New[K comparable, V any](opts Options, compute func(context.Context, K) (V, error)) *CachedResult[K, V] {
	c := &CachedResult[K, V]{
		compute: compute,
		refresh: opts.RefreshPeriod,
		entries: make(map[K]*entry[V]),
		now:     time.Now,
	}
	if opts.Vault != nil {
		opts.Vault.Register(c)
	}
	return c
}

// Get returns the value for key, recomputing it when stale per the freeze and
// refresh rules. A compute error propagates untouched and leaves the entry in
// its prior state, so the next Get retries cleanly.
func (c *CachedResult[K, V]) Get(ctx context.Context, key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok {
		if c.frozen {
			if e.frozenSnap {
				return e.value, nil
			}
		} else if c.now().Sub(e.at) < c.refresh {
			return e.value, nil
		}
	}

	value, err := c.compute(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}

	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	e.value = value
	e.at = c.now()
	e.frozenSnap = c.frozen
	return e.value, nil
}

// Set injects a value computed elsewhere, keeping it only if at is newer than
// the stored entry's timestamp. This makes concurrent refresh paths (e.g., a
// streaming feed racing a slow REST poll) last-writer-wins-if-newer. An entry
// currently serving a frozen snapshot is never touched; the update is staged
// and merged on unfreeze, so every Get within one freeze scope sees the same
// value.
func (c *CachedResult[K, V]) Set(value V, at time.Time, key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.entries[key] = &entry[V]{value: value, at: at}
		return
	}
	if c.frozen && e.frozenSnap {
		if at.After(e.at) && (!e.hasPending || at.After(e.pendingAt)) {
			e.pending = value
			e.pendingAt = at
			e.hasPending = true
		}
		return
	}
	if at.After(e.at) {
		e.value = value
		e.at = at
	}
}

// Retrieve is a read-only lookup that never triggers computation. The third
// return value is false if the key was never computed or injected.
func (c *CachedResult[K, V]) Retrieve(key K) (V, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, time.Time{}, false
	}
	return e.value, e.at, true
}

func (c *CachedResult[K, V]) freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
	for _, e := range c.entries {
		e.frozenSnap = false
	}
}

func (c *CachedResult[K, V]) unfreeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = false
	var zero V
	for _, e := range c.entries {
		e.frozenSnap = false
		if e.hasPending {
			if e.pendingAt.After(e.at) {
				e.value = e.pending
				e.at = e.pendingAt
			}
			e.pending = zero
			e.hasPending = false
		}
	}
}
