// Package coordinator maintains the client-side topology of a Torua cluster:
// which host owns which part of the token ring, and which of those hosts are
// currently reachable.
//
// # Overview
//
// Hosts announce themselves with their ring tokens. The coordinator keeps
// them in a TokenMap, sorted in ring order, so that any partition key can be
// routed to its replicas by hashing it locally:
//
//	key ──Hash──▶ token ──binary search──▶ primary ──walk clockwise──▶ replicas
//
// # Architecture
//
//	┌──────────────────────────────────────┐
//	│             COORDINATOR              │
//	├──────────────────────────────────────┤
//	│  ┌────────────────────────────────┐  │
//	│  │ TokenMap                       │  │
//	│  │  - host ID → HostInfo          │  │
//	│  │  - sorted ring of tokens       │  │
//	│  │  - primary / replica lookup    │  │
//	│  │  - owned ranges                │  │
//	│  └────────────────────────────────┘  │
//	│  ┌────────────────────────────────┐  │
//	│  │ HealthMonitor                  │  │
//	│  │  - periodic GET /health        │  │
//	│  │  - failure threshold           │  │
//	│  │  - down callback               │  │
//	│  └────────────────────────────────┘  │
//	└──────────────────────────────────────┘
//
// # Replica Placement
//
// Placement follows the simple strategy: the primary owns the range ending at
// the first token at or after the key's token, and the next
// replicationFactor-1 distinct hosts clockwise hold the copies. Health does
// not change placement. PreferHealthy only reorders a replica list so that
// live hosts are tried first.
//
// # Ranges
//
// Ranges returns ]previous token, token] for every token on the ring, owned
// by the token's host. The first range wraps through the minimum token; a
// ring with a single token owns the whole ring. The ranges always partition
// the ring: every token is contained in exactly one of them, and its owner
// is the host PrimaryForToken returns.
//
// # Thread Safety
//
// TokenMap and HealthMonitor are safe for concurrent use. Lookups take read
// locks; topology changes rebuild the ring under a write lock, and no lock is
// held while a health probe is in flight.
package coordinator
