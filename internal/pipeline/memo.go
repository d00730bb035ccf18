package pipeline

// memo holds one derived value and the input key it was computed from.
type memo[K comparable, V any] struct {
	key   K
	value V
	valid bool
}

// get returns the cached value when key matches, otherwise recomputes it.
// fresh reports whether compute ran.
func (m *memo[K, V]) get(key K, compute func() V) (value V, fresh bool) {
	if m.valid && m.key == key {
		return m.value, false
	}
	m.key, m.value, m.valid = key, compute(), true
	return m.value, true
}
