package store

import "sync"

// KV is a string key-value backend scoped to this application.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// backupSource is implemented by backends that keep earlier values.
type backupSource interface {
	// Backups returns previous values for key, newest first.
	Backups(key string) ([]string, error)
}

// quarantiner is implemented by backends that can move a bad value aside.
type quarantiner interface {
	Quarantine(key string) (string, error)
}

// MemoryKV keeps values in a map. Safe for concurrent use.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
	writes int
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: map[string]string{}}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.writes++
	return nil
}

// Writes returns how many times Set was called.
func (m *MemoryKV) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
