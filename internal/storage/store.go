package storage

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/torua/internal/token"
)

// ErrKeyNotFound is returned when a key is not in the store.
var ErrKeyNotFound = errors.New("key not found")

// Store is a key-value store whose keys are placed on a token ring.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	List() []string
	Stats() StoreStats

	// ScanRange returns the keys whose token falls in r, in ring order.
	ScanRange(r token.Range) []string
}

// StoreStats summarizes the contents of a store.
type StoreStats struct {
	Keys  int `json:"keys"`
	Bytes int `json:"bytes"`
}

type entry struct {
	value []byte
	tok   token.Token
}

// MemoryStore is a map-backed Store. Each key's token is computed once, on
// Put, with the store's partitioner.
//
// Values are copied on the way in and out, so callers may reuse their
// buffers. All methods are safe for concurrent use.
type MemoryStore struct {
	partitioner token.Partitioner
	mu          sync.RWMutex
	data        map[string]entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store that places keys with p.
func NewMemoryStore(p token.Partitioner) *MemoryStore {
	return &MemoryStore{
		partitioner: p,
		data:        make(map[string]entry),
	}
}

// Token returns the ring position of key.
func (m *MemoryStore) Token(key string) token.Token {
	return m.partitioner.Hash([]byte(key))
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (m *MemoryStore) Put(key string, value []byte) error {
	e := entry{
		value: append([]byte(nil), value...),
		tok:   m.Token(key),
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// List returns all keys in no particular order.
func (m *MemoryStore) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys
}

func (m *MemoryStore) Stats() StoreStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := StoreStats{Keys: len(m.data)}
	for _, e := range m.data {
		stats.Bytes += len(e.value)
	}
	return stats
}

// ScanRange returns the keys contained in r sorted by token, ties broken by
// key. A wrapped range yields the part after its start first, then the part
// from the minimum token up to its end.
func (m *MemoryStore) ScanRange(r token.Range) []string {
	type hit struct {
		key string
		tok token.Token
	}

	m.mu.RLock()
	var hits []hit
	for key, e := range m.data {
		if r.Contains(e.tok) {
			hits = append(hits, hit{key: key, tok: e.tok})
		}
	}
	m.mu.RUnlock()

	// Contained tokens not after the start went through the minimum token
	// and sort after the others.
	whole := r.IsWholeRing()
	wrapped := func(t token.Token) bool {
		return !whole && t.Compare(r.Start()) <= 0
	}
	slices.SortFunc(hits, func(a, b hit) int {
		wa, wb := wrapped(a.tok), wrapped(b.tok)
		switch {
		case wa && !wb:
			return 1
		case !wa && wb:
			return -1
		}
		if c := a.tok.Compare(b.tok); c != 0 {
			return c
		}
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})

	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.key
	}
	return keys
}
