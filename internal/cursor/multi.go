package cursor

import "errors"

// Multi combines the authoritative config-backed store with the state-file
// cache. Saves go to both; loads prefer the cache when it holds progress,
// since the cache survives a crash that interrupted a config rewrite.
type Multi struct {
	primary Store
	cache   *StateFile
}

// NewMulti wires a primary store and a state-file cache together.
func NewMulti(primary Store, cache *StateFile) *Multi {
	return &Multi{primary: primary, cache: cache}
}

// Load returns the cached cursor when present, otherwise the primary one.
func (m *Multi) Load() (Cursor, error) {
	cached, err := m.cache.Load()
	if err == nil && !cached.IsZero() {
		return cached, nil
	}
	return m.primary.Load()
}

// Save persists to both stores. Errors from either are joined so a cache
// failure does not hide a config failure or vice versa.
func (m *Multi) Save(c Cursor) error {
	return errors.Join(m.primary.Save(c), m.cache.Save(c))
}

// Close removes the state-file cache. Call only on graceful shutdown.
func (m *Multi) Close() error {
	return m.cache.Close()
}
