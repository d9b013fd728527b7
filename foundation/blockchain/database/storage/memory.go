package storage

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory implementation of a Store.
type Memory struct {
	mu   sync.RWMutex
	mem  map[string][]byte
	size int64
}

// NewMemory constructs a new memory store.
func NewMemory() *Memory {
	return &Memory{
		mem: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.mem[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}

	return bytes.Clone(val), nil
}

// PutChangeSet implements the Store interface. Never returns an error.
func (m *Memory) PutChangeSet(changes map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range changes {
		if old, exists := m.mem[k]; exists {
			m.size -= int64(len(k) + len(old))
			delete(m.mem, k)
		}

		if v == nil {
			continue
		}

		m.mem[k] = bytes.Clone(v)
		m.size += int64(len(k) + len(v))
	}

	return nil
}

// Seek implements the Store interface.
func (m *Memory) Seek(prefix []byte, f func(k, v []byte) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sPrefix := string(prefix)

	keys := make([]string, 0, len(m.mem))
	for k := range m.mem {
		if strings.HasPrefix(k, sPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !f([]byte(k), m.mem[k]) {
			break
		}
	}

	return nil
}

// Size implements the Store interface.
func (m *Memory) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.size, nil
}

// Close implements the Store interface.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mem = make(map[string][]byte)
	m.size = 0

	return nil
}
