package token

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// ByteOrdered is the order-preserving partitioner.
var ByteOrdered = ByteOrderedPartitioner{}

// ByteOrderedPartitioner uses the raw key bytes as the token. Tokens are
// ordered by unsigned lexicographic comparison: a strict prefix sorts before
// the longer sequence. The empty sequence is the minimum token.
type ByteOrderedPartitioner struct{}

var _ Splitter = ByteOrderedPartitioner{}

// Maximum number of bytes appended to tokens to make room for the requested
// number of splits; four bytes cover any int32 split count.
const maxAddedSplitBytes = 4

func (ByteOrderedPartitioner) Name() string { return "ByteOrderedPartitioner" }

// FromBytes returns the token for b. b is copied.
func (p ByteOrderedPartitioner) FromBytes(b []byte) Token {
	return Token{p: p, value: string(b)}
}

func (p ByteOrderedPartitioner) Hash(key []byte) Token {
	return p.FromBytes(key)
}

// Parse reads a hex token, with or without a 0x prefix.
func (p ByteOrderedPartitioner) Parse(s string) (Token, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return p.FromBytes(b), nil
}

func (ByteOrderedPartitioner) Stringify(t Token) string {
	return "0x" + hex.EncodeToString([]byte(t.value.(string)))
}

func (ByteOrderedPartitioner) Compare(a, b Token) int {
	return strings.Compare(a.value.(string), b.value.(string))
}

func (p ByteOrderedPartitioner) MinToken() Token {
	return Token{p: p, value: ""}
}

// Split divides ]start, end] by reading both tokens as big-endian integers
// of a common width, right-padding the shorter one with zeros (0x0A and
// 0x0BCD become 0x0A00 and 0x0BCD). When the two values are too close for n
// parts, up to four more bytes of precision are added. Wrapping ranges,
// including the whole ring, measure distance modulo 2^(8*width).
func (p ByteOrderedPartitioner) Split(start, end Token, n int) ([]Token, error) {
	if n < 1 {
		return nil, ErrInvalidSplitCount
	}
	s, e := start.value.(string), end.value.(string)
	parts := big.NewInt(int64(n))
	width := max(len(s), len(e))

	var (
		bs, be, span        *big.Int
		ringEnd, ringLength *big.Int
	)
	if strings.Compare(s, e) < 0 {
		for added := 0; ; added++ {
			bs, be = paddedInt(s, width), paddedInt(e, width)
			span = new(big.Int).Sub(be, bs)
			if added == maxAddedSplitBytes || bs.Cmp(be) == 0 || span.Cmp(parts) >= 0 {
				break
			}
			width++
		}
	} else {
		for added := 0; ; added++ {
			bs, be = paddedInt(s, width), paddedInt(e, width)
			ringLength = new(big.Int).Lsh(bigOne, uint(width*8))
			ringEnd = new(big.Int).Sub(ringLength, bigOne)
			span = new(big.Int).Sub(be, bs)
			span.Add(span, ringLength)
			if added == maxAddedSplitBytes || span.Cmp(parts) >= 0 {
				break
			}
			width++
		}
	}

	values := splitSpan(bs, span, ringEnd, ringLength, n)
	tokens := make([]Token, len(values))
	for i, v := range values {
		tokens[i] = p.FromBytes(v.FillBytes(make([]byte, width)))
	}
	return tokens, nil
}

// paddedInt reads b as a big-endian unsigned integer of width bytes,
// appending zero bytes when b is shorter.
func paddedInt(b string, width int) *big.Int {
	buf := make([]byte, width)
	copy(buf, b)
	return new(big.Int).SetBytes(buf)
}
