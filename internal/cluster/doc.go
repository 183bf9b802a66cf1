// Package cluster defines the host descriptors and wire types shared by the
// Torua coordinator and its clients, plus small JSON-over-HTTP helpers.
//
// # Overview
//
// A Torua cluster is a ring of hosts. Each host announces the tokens it owns
// when it registers with the coordinator; the coordinator folds those tokens
// into a token map (see internal/coordinator) and answers routing questions
// so that clients can talk to the right replica directly.
//
//	              ┌──────────────────┐
//	              │   Coordinator    │
//	              │                  │
//	              │ - Token map      │
//	              │ - Health monitor │
//	              └────────┬─────────┘
//	                       │
//	      ┌────────────────┼────────────────┐
//	      │                │                │
//	┌─────▼──────┐   ┌─────▼──────┐   ┌─────▼──────┐
//	│  Host A    │   │  Host B    │   │  Host C    │
//	│ tokens:    │   │ tokens:    │   │ tokens:    │
//	│ [-6e18, 0] │   │[-3e18,3e18]│   │ [6e18]     │
//	└────────────┘   └────────────┘   └────────────┘
//
// # Host identity
//
// Hosts are identified by a UUID host ID, the same identifier the storage
// nodes persist locally. HostInfo.Validate rejects anything that does not
// parse as a UUID, hosts without an address and hosts without tokens.
//
// Tokens travel as strings in the partitioner's native form: signed decimal
// for Murmur3, unsigned decimal for Random, hex for ByteOrdered.
//
// # Communication Protocol
//
// All messages are JSON over HTTP:
//
//	coordinator
//	POST /register          RegisterRequest
//	GET  /hosts             HostsResponse
//	GET  /token?key=        TokenResponse
//	GET  /replicas?key=     ReplicasResponse
//	GET  /ranges[?host=]    RangesResponse
//	GET  /split?start&end&n SplitResponse
//	GET  /scan              ScanResponse
//	*    /data/{key}        raw value, forwarded to the replicas
//
//	storage node
//	GET  /info              InfoResponse
//	GET  /scan?start&end    ScanResponse
//	*    /store/{key}       raw value
//
// PostJSON and GetJSON wrap a shared client with a 5 second timeout and treat
// any status >= 300 as an error.
package cluster
