// Package token implements the consistent-hash ring that Torua clients use to
// route requests to the replicas owning a partition key.
//
// # Overview
//
// Every partition key is mapped by a Partitioner to a Token, a point on a
// circular, totally ordered ring. Nodes own the ranges of the ring that end
// at the tokens they announce, so the owner of a key is found by hashing the
// key locally, without asking the cluster.
//
//	              min
//	         ┌────●────┐
//	    t4 ● │         │ ● t1      ]t4, t1] wraps through min
//	         │  ring   │
//	    t3 ● │         │ ● t2      ]t1, t2] is owned by t2's host
//	         └─────────┘
//
// # Partitioners
//
// Three partitioners are provided, matching the ones a cluster can be
// configured with:
//
//	Murmur3Partitioner      signed 64-bit tokens, MurmurHash3 x64/128 (h1)
//	RandomPartitioner       [0, 2^127] tokens, |MD5| as signed 128-bit
//	ByteOrderedPartitioner  the key bytes, unsigned lexicographic order
//
// The Murmur3 hash is computed with the limb arithmetic of package fixedint
// and matches the value produced by the nodes bit for bit. Tail bytes of the
// key are sign-extended, as the nodes do.
//
// ForName resolves the partitioner reported by cluster metadata:
//
//	p, err := token.ForName("org.apache.cassandra.dht.Murmur3Partitioner")
//	t := p.Hash(partitionKey)
//
// # Ranges
//
// A Range is ]start, end]: start excluded, end included. The minimum token
// plays two roles. As a start it means "from the beginning of the ring", as
// an end it means "to the end of the ring". Consequently:
//
//	]min, min]          whole ring
//	]t, t], t != min    empty
//	]a, b], a > b       wrapped, unless b == min
//
// SplitEvenly cuts a range into n contiguous parts for parallel scans, and
// Unwrap cuts a wrapped range at the minimum token so that each part can be
// expressed as a simple "token > start AND token <= end" predicate.
//
// # Concurrency
//
// Token and Range are immutable values and can be shared freely. Partitioners
// are stateless. Each hash owns its own working integers.
//
// Tokens from different partitioners must never be compared; doing so
// panics or returns meaningless results.
package token
