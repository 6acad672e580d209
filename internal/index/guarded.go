package index

import "sync"

// Guarded wraps a Store behind a reader-writer lock. The raw store is
// reachable only inside the callbacks, so every access is
// lock-disciplined by construction: searches share the read lock,
// mutations take the write lock, and an ingest can hold the write
// lock across clear+add+save so no concurrent query observes a
// transiently empty or half-populated index.
type Guarded struct {
	mu    sync.RWMutex
	store *Store
}

func NewGuarded(store *Store) *Guarded {
	return &Guarded{store: store}
}

// WithReadLock runs fn with shared access. fn must not mutate the
// store.
func (g *Guarded) WithReadLock(fn func(*Store) error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.store)
}

// WithWriteLock runs fn with exclusive access.
func (g *Guarded) WithWriteLock(fn func(*Store) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(g.store)
}
