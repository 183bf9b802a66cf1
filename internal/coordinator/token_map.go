package coordinator

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/torua/internal/cluster"
	"github.com/dreamware/torua/internal/token"
)

var (
	// ErrNoHosts is returned by lookups on an empty ring.
	ErrNoHosts = errors.New("token map has no hosts")

	// ErrTokenConflict is returned when a host announces a token that
	// another host already owns.
	ErrTokenConflict = errors.New("token already owned by another host")
)

// ringEntry is one announced token and the host that owns it.
type ringEntry struct {
	tok    token.Token
	hostID string
}

// OwnedRange is a token range together with its primary owner, the host
// that announced the range's end token.
type OwnedRange struct {
	Range token.Range
	Owner string
}

// TokenMap is the client-side view of the ring: every host's tokens, kept
// sorted so that the owner of any token can be found by binary search
// instead of asking the cluster.
//
// Ownership model:
//
//	ring:    t0 (A)    t1 (B)    t2 (C)
//	ranges:  ]t2, t0] -> A   (wraps through the minimum token)
//	         ]t0, t1] -> B
//	         ]t1, t2] -> C
//
// A host owns the range that ends at each of its tokens. Replicas follow the
// primary clockwise, skipping hosts already chosen, until replicationFactor
// distinct hosts are collected.
//
// Concurrency Model:
//   - Lookups take the read lock and may run in parallel
//   - SetHost and RemoveHost rebuild the sorted ring under the write lock
//   - Returned slices are copies
type TokenMap struct {
	partitioner token.Partitioner

	// hosts maps host ID to its last announced descriptor.
	hosts map[string]cluster.HostInfo

	// ring holds every announced token in ring order.
	ring []ringEntry

	mu sync.RWMutex

	replicationFactor int
}

// NewTokenMap creates an empty token map for the given partitioner.
// A replicationFactor below 1 is treated as 1.
//
// Example:
//
//	m := NewTokenMap(token.Murmur3, 3)
//	err := m.SetHost(cluster.HostInfo{ID: id, Addr: addr, Tokens: []string{"0"}})
func NewTokenMap(p token.Partitioner, replicationFactor int) *TokenMap {
	return &TokenMap{
		partitioner:       p,
		hosts:             make(map[string]cluster.HostInfo),
		replicationFactor: max(replicationFactor, 1),
	}
}

// Partitioner returns the partitioner used to parse and hash tokens.
func (m *TokenMap) Partitioner() token.Partitioner {
	return m.partitioner
}

// ReplicationFactor returns the number of replicas per key.
func (m *TokenMap) ReplicationFactor() int {
	return m.replicationFactor
}

// SetHost adds a host or replaces its previous tokens.
//
// All tokens are parsed with the map's partitioner before anything changes,
// so a malformed or conflicting announcement leaves the map untouched.
//
// Returns:
//   - nil on success
//   - an error wrapping cluster.ErrInvalidHost, token.ErrInvalidToken or
//     ErrTokenConflict
func (m *TokenMap) SetHost(host cluster.HostInfo) error {
	if err := host.Validate(); err != nil {
		return err
	}

	parsed := make([]token.Token, 0, len(host.Tokens))
	for _, s := range host.Tokens {
		t, err := m.partitioner.Parse(s)
		if err != nil {
			return fmt.Errorf("host %s: %w", host.ID, err)
		}
		parsed = append(parsed, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ring := make([]ringEntry, 0, len(m.ring)+len(parsed))
	for _, e := range m.ring {
		if e.hostID != host.ID {
			ring = append(ring, e)
		}
	}
	for _, t := range parsed {
		ring = append(ring, ringEntry{tok: t, hostID: host.ID})
	}
	slices.SortFunc(ring, func(a, b ringEntry) int {
		return a.tok.Compare(b.tok)
	})

	// Equal tokens are adjacent once sorted.
	deduped := ring[:0]
	for i, e := range ring {
		if i > 0 && e.tok.Equal(ring[i-1].tok) {
			if e.hostID != ring[i-1].hostID {
				return fmt.Errorf("%w: %s claimed by %s and %s", ErrTokenConflict, e.tok, ring[i-1].hostID, e.hostID)
			}
			continue
		}
		deduped = append(deduped, e)
	}

	host.Tokens = append([]string(nil), host.Tokens...)
	m.hosts[host.ID] = host
	m.ring = deduped
	return nil
}

// RemoveHost drops a host and its tokens. It reports whether the host was
// present.
func (m *TokenMap) RemoveHost(hostID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hosts[hostID]; !ok {
		return false
	}
	delete(m.hosts, hostID)
	m.ring = slices.DeleteFunc(m.ring, func(e ringEntry) bool {
		return e.hostID == hostID
	})
	return true
}

// Host returns a copy of the descriptor of hostID.
func (m *TokenMap) Host(hostID string) (cluster.HostInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hosts[hostID]
	if !ok {
		return cluster.HostInfo{}, false
	}
	h.Tokens = append([]string(nil), h.Tokens...)
	return h, true
}

// Hosts returns every host sorted by ID.
func (m *TokenMap) Hosts() []cluster.HostInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]cluster.HostInfo, 0, len(m.hosts))
	for _, h := range m.hosts {
		h.Tokens = append([]string(nil), h.Tokens...)
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b cluster.HostInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Ring returns all announced tokens in ring order.
func (m *TokenMap) Ring() []token.Token {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]token.Token, len(m.ring))
	for i, e := range m.ring {
		out[i] = e.tok
	}
	return out
}

// primaryIndex returns the index of the first ring token >= t, wrapping to
// 0 past the last token. Callers hold the read lock and know the ring is
// non-empty.
func (m *TokenMap) primaryIndex(t token.Token) int {
	i, _ := slices.BinarySearchFunc(m.ring, t, func(e ringEntry, target token.Token) int {
		return e.tok.Compare(target)
	})
	if i == len(m.ring) {
		return 0
	}
	return i
}

// PrimaryForToken returns the host owning the range that contains t.
func (m *TokenMap) PrimaryForToken(t token.Token) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.ring) == 0 {
		return "", ErrNoHosts
	}
	return m.ring[m.primaryIndex(t)].hostID, nil
}

// ReplicasForToken returns up to replicationFactor distinct hosts for t,
// primary first, walking the ring clockwise.
func (m *TokenMap) ReplicasForToken(t token.Token) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.ring) == 0 {
		return nil, ErrNoHosts
	}

	want := min(m.replicationFactor, len(m.hosts))
	replicas := make([]string, 0, want)
	start := m.primaryIndex(t)
	for i := 0; i < len(m.ring) && len(replicas) < want; i++ {
		id := m.ring[(start+i)%len(m.ring)].hostID
		if slices.Contains(replicas, id) {
			continue
		}
		replicas = append(replicas, id)
	}
	return replicas, nil
}

// ReplicasForKey hashes a serialized partition key and returns its token and
// replicas.
func (m *TokenMap) ReplicasForKey(key []byte) (token.Token, []string, error) {
	t := m.partitioner.Hash(key)
	replicas, err := m.ReplicasForToken(t)
	return t, replicas, err
}

// Ranges returns one range per ring token, ]previous, token], owned by the
// token's host. The first range wraps around the minimum token. Together
// the ranges cover the ring exactly once; a ring with a single token owns
// the whole ring.
func (m *TokenMap) Ranges() []OwnedRange {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch len(m.ring) {
	case 0:
		return nil
	case 1:
		return []OwnedRange{{Range: token.WholeRing(m.partitioner), Owner: m.ring[0].hostID}}
	}

	out := make([]OwnedRange, len(m.ring))
	for i, e := range m.ring {
		prev := m.ring[(i-1+len(m.ring))%len(m.ring)]
		out[i] = OwnedRange{Range: token.NewRange(prev.tok, e.tok), Owner: e.hostID}
	}
	return out
}

// HostRanges returns the ranges for which hostID is the primary owner.
func (m *TokenMap) HostRanges(hostID string) []token.Range {
	var out []token.Range
	for _, r := range m.Ranges() {
		if r.Owner == hostID {
			out = append(out, r.Range)
		}
	}
	return out
}

// PreferHealthy reorders hosts so that those reported healthy come first,
// keeping the relative order within each group.
func PreferHealthy(hosts []string, healthy func(hostID string) bool) []string {
	out := make([]string, 0, len(hosts))
	var down []string
	for _, h := range hosts {
		if healthy(h) {
			out = append(out, h)
		} else {
			down = append(down, h)
		}
	}
	return append(out, down...)
}
