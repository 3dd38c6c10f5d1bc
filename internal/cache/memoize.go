package cache

import "sync"

// Memoizer caches the results of a pure function by argument.
// Entries are never evicted; call Clear to drop them.
type Memoizer[K comparable, V any] struct {
	mu   sync.Mutex
	fn   func(K) V
	memo map[K]V
}

// Memoize wraps fn. Use a struct type for K to key on several arguments.
func Memoize[K comparable, V any](fn func(K) V) *Memoizer[K, V] {
	return &Memoizer[K, V]{fn: fn, memo: make(map[K]V)}
}

// Call returns fn(key), computing it at most once per key unless two
// callers race on the first computation; the first stored result wins.
func (m *Memoizer[K, V]) Call(key K) V {
	m.mu.Lock()
	if v, ok := m.memo[key]; ok {
		m.mu.Unlock()
		return v
	}
	m.mu.Unlock()

	v := m.fn(key)

	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.memo[key]; ok {
		return stored
	}
	m.memo[key] = v
	return v
}

// Clear drops every memoized result.
func (m *Memoizer[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memo = make(map[K]V)
}

// Len returns the number of memoized results.
func (m *Memoizer[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.memo)
}
