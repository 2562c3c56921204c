package app

import "sync"

// Registry maps opaque tokens to live objects. It is shared between RPC
// handlers and match loops, so it is safe for concurrent use.
type Registry[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewRegistry[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{items: make(map[K]V)}
}

// Add stores v under k. It reports false and keeps the old value if k is taken.
func (r *Registry[K, V]) Add(k K, v V) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[k]; ok {
		return false
	}
	r.items[k] = v
	return true
}

// Set stores v under k, replacing any previous value.
func (r *Registry[K, V]) Set(k K, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[k] = v
}

func (r *Registry[K, V]) Get(k K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[k]
	return v, ok
}

func (r *Registry[K, V]) Evict(k K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, k)
}

func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
