package token

import (
	"math/big"
)

// Token is an immutable position on the ring, tagged with the partitioner
// that produced it.
//
// The zero Token has no partitioner and is not a valid ring position.
type Token struct {
	p Partitioner

	// int64 for Murmur3, *big.Int for Random, string for ByteOrdered.
	// Never mutated after construction.
	value any
}

// Partitioner returns the partitioner that created t.
func (t Token) Partitioner() Partitioner {
	return t.p
}

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool {
	return t.p == nil
}

// Compare orders t relative to o using t's partitioner.
func (t Token) Compare(o Token) int {
	return t.p.Compare(t, o)
}

// Equal reports whether t and o are the same ring position.
func (t Token) Equal(o Token) bool {
	if t.p == nil || o.p == nil {
		return t.p == nil && o.p == nil
	}
	return t.Compare(o) == 0
}

// Less reports whether t sorts before o.
func (t Token) Less(o Token) bool {
	return t.Compare(o) < 0
}

func (t Token) String() string {
	if t.p == nil {
		return "<nil>"
	}
	return t.p.Stringify(t)
}

// Int64 returns the value of a Murmur3 token.
func (t Token) Int64() (int64, bool) {
	v, ok := t.value.(int64)
	return v, ok
}

// BigInt returns a copy of the value of a Random token.
func (t Token) BigInt() (*big.Int, bool) {
	v, ok := t.value.(*big.Int)
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

// Bytes returns a copy of the value of a ByteOrdered token.
func (t Token) Bytes() ([]byte, bool) {
	v, ok := t.value.(string)
	if !ok {
		return nil, false
	}
	return []byte(v), true
}

// Tokens sorts by ring order.
type Tokens []Token

func (ts Tokens) Len() int           { return len(ts) }
func (ts Tokens) Less(i, j int) bool { return ts[i].Less(ts[j]) }
func (ts Tokens) Swap(i, j int)      { ts[i], ts[j] = ts[j], ts[i] }

// Strings returns the string form of every token.
func (ts Tokens) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
