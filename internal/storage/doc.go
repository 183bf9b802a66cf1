// Package storage provides the key-value store that backs token range scans.
//
// # Overview
//
// Every key is placed on the ring by the store's partitioner when it is
// written. ScanRange then answers "which keys does this range hold", the
// same question a node answers for a
//
//	SELECT ... WHERE token(pk) > start AND token(pk) <= end
//
// query. Combined with token.Range.SplitEvenly and package scan, it lets a
// full table be read as many independent sub-range scans.
//
// # Ordering
//
// ScanRange returns keys in ring order starting just after the range's
// start. For a wrapped range ]s, e] this means keys in ]s, max] first and
// then keys in [min, e]:
//
//	          ]s ────────────▶ max │ min ────────▶ e]
//	order:       1  2  3  4        │    5  6  7
//
// Keys that share a token are ordered by key.
//
// # Concurrency
//
// MemoryStore guards its map with a sync.RWMutex. Reads run in parallel;
// ScanRange holds the read lock only while collecting matches, and sorts
// outside it.
//
// # Usage
//
//	store := storage.NewMemoryStore(token.Murmur3)
//	_ = store.Put("user:42", []byte(`{"name":"ada"}`))
//	for _, key := range store.ScanRange(r) {
//	    value, _ := store.Get(key)
//	    ...
//	}
package storage
