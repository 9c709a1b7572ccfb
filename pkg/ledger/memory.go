package ledger

import (
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Ledger used by tests and by single-process
// deployments that do not need durability
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory creates an empty in-memory ledger
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get returns the value stored at key, or (nil, nil) if absent
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores value at key, overwriting any prior entry
func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	return nil
}

// ScanPrefix iterates a sorted snapshot of all entries under prefix
func (m *Memory) ScanPrefix(prefix string) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, k := range keys {
		v := m.entries[k]
		values[i] = make([]byte, len(v))
		copy(values[i], v)
	}

	return &memoryIterator{keys: keys, values: values, pos: -1}
}

// Close releases the ledger; the memory backend has nothing to release
func (m *Memory) Close() error {
	return nil
}

type memoryIterator struct {
	keys   []string
	values [][]byte
	pos    int
}

func (it *memoryIterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

func (it *memoryIterator) Key() string {
	return it.keys[it.pos]
}

func (it *memoryIterator) Value() []byte {
	return it.values[it.pos]
}

func (it *memoryIterator) Err() error {
	return nil
}

func (it *memoryIterator) Close() error {
	return nil
}
