package deps

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory dependency store for testing and for runs
// that don't persist tracking data. Contents are lost when the process
// exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Entry]*Record
	closed  bool
}

// NewMemoryStore creates a new in-memory dependency store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[Entry]*Record),
	}
}

// AddDependency implements Store.
func (m *MemoryStore) AddDependency(bakefile, format, dependency string) error {
	if bakefile == dependency {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	rec := m.record(Entry{Bakefile: bakefile, Format: format})
	rec.Deps = append(rec.Deps, dependency)
	return nil
}

// AddOutput implements Store.
func (m *MemoryStore) AddOutput(bakefile, format, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	rec := m.record(Entry{Bakefile: bakefile, Format: format})
	rec.Outputs = append(rec.Outputs, output)
	return nil
}

// record returns the record for key, creating it if needed.
// Caller must hold the write lock.
func (m *MemoryStore) record(key Entry) *Record {
	rec, ok := m.records[key]
	if !ok {
		rec = &Record{}
		m.records[key] = rec
	}
	return rec
}

// Get implements Store.
func (m *MemoryStore) Get(bakefile, format string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Record{}, ErrStoreClosed
	}

	rec, ok := m.records[Entry{Bakefile: bakefile, Format: format}]
	if !ok {
		return Record{}, ErrNotFound
	}

	// Return copies to prevent modification.
	out := Record{
		Deps:    append([]string(nil), rec.Deps...),
		Outputs: append([]string(nil), rec.Outputs...),
	}
	return out, nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	entries := make([]Entry, 0, len(m.records))
	for key := range m.records {
		entries = append(entries, key)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Bakefile != entries[j].Bakefile {
			return entries[i].Bakefile < entries[j].Bakefile
		}
		return entries[i].Format < entries[j].Format
	})
	return entries, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}

// Len returns the number of records. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
