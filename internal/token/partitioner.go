package token

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSplitCount is returned when a range is split into fewer than one part.
	ErrInvalidSplitCount = errors.New("number of splits must be at least 1")

	// ErrEmptyRange is returned when splitting a range that contains no tokens.
	ErrEmptyRange = errors.New("cannot split an empty range")

	// ErrSplitUnsupported is returned when the partitioner of a range has no
	// split capability.
	ErrSplitUnsupported = errors.New("partitioner does not support splitting")

	// ErrUnknownPartitioner is returned by ForName for unrecognized names.
	ErrUnknownPartitioner = errors.New("unknown partitioner")

	// ErrInvalidToken is returned when a token string cannot be parsed.
	ErrInvalidToken = errors.New("invalid token")
)

// Partitioner maps partition keys to positions on the ring and defines the
// order of those positions.
//
// Tokens and ranges keep a reference to the Partitioner that created them.
// Comparing tokens produced by different partitioners is undefined; a cluster
// uses a single partitioner for its whole lifetime.
type Partitioner interface {
	// Name returns the short partitioner name, e.g. "Murmur3Partitioner".
	Name() string

	// Hash returns the token of a serialized partition key.
	Hash(key []byte) Token

	// Parse reads a token in the form reported by cluster metadata.
	Parse(s string) (Token, error)

	// Stringify formats a token so that Parse(Stringify(t)) equals t.
	Stringify(t Token) string

	// Compare returns -1, 0 or +1 ordering a before, equal to or after b.
	Compare(a, b Token) int

	// MinToken returns the origin of the ring.
	MinToken() Token
}

// Splitter is implemented by partitioners that can divide a range of the ring.
//
// Split returns the n-1 interior boundaries that cut ]start, end] into n
// parts of near equal size, earlier parts receiving any remainder.
type Splitter interface {
	Split(start, end Token, n int) ([]Token, error)
}

const classPrefix = "org.apache.cassandra.dht."

// ForName returns the partitioner for a short or fully qualified class name,
// as found in the system.local table.
func ForName(name string) (Partitioner, error) {
	switch strings.TrimPrefix(strings.TrimSpace(name), classPrefix) {
	case Murmur3.Name():
		return Murmur3, nil
	case Random.Name():
		return Random, nil
	case ByteOrdered.Name():
		return ByteOrdered, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPartitioner, name)
}
