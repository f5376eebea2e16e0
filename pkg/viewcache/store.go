package viewcache

import (
	"strings"
	"sync"
)

// Key addresses one cached view, e.g. "crm:requests:list" or
// "crm:requests:detail:<id>". Keys are the only coordination handle between
// views; there is no locking across views beyond this store.
type Key string

func (k Key) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(k), prefix)
}

// Store is the injected multi-view cache contract. The optimistic mutation
// engine is its only writer during a mutation; aggregators and filters are
// read-only consumers of whatever it currently holds.
type Store interface {
	Get(key Key) (any, bool)
	Set(key Key, value any)
	// Snapshot captures the current value of each present key for rollback.
	Snapshot(keys []Key) map[Key]any
	// Restore writes the snapshot back verbatim, resurrecting keys that were
	// dropped and dropping keys that did not exist at snapshot time.
	Restore(snapshot map[Key]any, keys []Key)
	// MarkStale flags views for refetch without dropping their value.
	MarkStale(keys ...Key)
	IsStale(key Key) bool
	// CancelRefetch discards every in-flight refetch for the keys: a
	// BeginRefetch generation taken before the call will no longer commit.
	CancelRefetch(keys ...Key)
	// BeginRefetch returns the generation token a refetcher must present to
	// CompleteRefetch. A stale completion (generation moved on) is dropped.
	BeginRefetch(key Key) uint64
	CompleteRefetch(key Key, gen uint64, value any) bool
	Keys() []Key
}

type entry struct {
	value any
	stale bool
	gen   uint64
}

// MemoryStore is the process-local Store used in production and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]*entry)}
}

func (s *MemoryStore) Get(key Key) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (s *MemoryStore) Set(key Key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		s.entries[key] = &entry{value: value, gen: 1}
		return
	}
	e.value = value
	e.stale = false
	e.gen++
}

func (s *MemoryStore) Snapshot(keys []Key) map[Key]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[Key]any, len(keys))
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			snapshot[key] = e.value
		}
	}
	return snapshot
}

func (s *MemoryStore) Restore(snapshot map[Key]any, keys []Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		value, had := snapshot[key]
		e, present := s.entries[key]
		switch {
		case had && present:
			e.value = value
			e.gen++
		case had && !present:
			s.entries[key] = &entry{value: value, gen: 1}
		case !had && present:
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) MarkStale(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.stale = true
		}
	}
}

func (s *MemoryStore) IsStale(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return ok && e.stale
}

func (s *MemoryStore) CancelRefetch(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if e, ok := s.entries[key]; ok {
			e.gen++
		}
	}
}

func (s *MemoryStore) BeginRefetch(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{gen: 1}
		s.entries[key] = e
	}
	return e.gen
}

func (s *MemoryStore) CompleteRefetch(key Key, gen uint64, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		return false
	}
	e.value = value
	e.stale = false
	e.gen++
	return true
}

func (s *MemoryStore) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}
