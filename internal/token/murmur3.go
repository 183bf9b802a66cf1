package token

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/dreamware/torua/internal/fixedint"
)

// Murmur3 is the default partitioner of the cluster.
var Murmur3 = Murmur3Partitioner{}

// Murmur3Partitioner places keys with the first 64 bits of MurmurHash3
// x64/128 (seed 0) and orders tokens as signed 64-bit integers in
// [math.MinInt64, math.MaxInt64].
type Murmur3Partitioner struct{}

var _ Splitter = Murmur3Partitioner{}

// Ring length of the Murmur3 partitioner: 2^64.
var murmur3RingLength = new(big.Int).Lsh(bigOne, 64)

// Mixing constants. They are read-only operands: Multiply and Add never
// modify their argument, so concurrent hashes may share them.
var (
	murmurC1   = fixedint.FromUint64(0x87c37b91114253d5)
	murmurC2   = fixedint.FromUint64(0x4cf5ad432745937f)
	murmurR1   = fixedint.FromUint64(0x52dce729)
	murmurR2   = fixedint.FromUint64(0x38495ab5)
	murmurFive = fixedint.FromUint64(5)
	fmixC1     = fixedint.FromUint64(0xff51afd7ed558ccd)
	fmixC2     = fixedint.FromUint64(0xc4ceb9fe1a85ec53)
)

func (Murmur3Partitioner) Name() string { return "Murmur3Partitioner" }

// FromInt64 returns the Murmur3 token with value v.
func (p Murmur3Partitioner) FromInt64(v int64) Token {
	return Token{p: p, value: v}
}

func (p Murmur3Partitioner) Hash(key []byte) Token {
	return p.FromInt64(murmur3H1(key))
}

// Parse reads a signed decimal token. Values outside the 64-bit range wrap.
func (p Murmur3Partitioner) Parse(s string) (Token, error) {
	v, err := fixedint.FromString(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return p.FromInt64(v.Int64()), nil
}

func (Murmur3Partitioner) Stringify(t Token) string {
	return strconv.FormatInt(t.value.(int64), 10)
}

func (Murmur3Partitioner) Compare(a, b Token) int {
	x, y := a.value.(int64), b.value.(int64)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func (p Murmur3Partitioner) MinToken() Token {
	return p.FromInt64(math.MinInt64)
}

// Split divides ]start, end] measuring distance around the ring. The whole
// ring ]min, min] is measured up to math.MaxInt64.
func (p Murmur3Partitioner) Split(start, end Token, n int) ([]Token, error) {
	if n < 1 {
		return nil, ErrInvalidSplitCount
	}
	s, e := start.value.(int64), end.value.(int64)
	if s == e && s == math.MinInt64 {
		e = math.MaxInt64
	}

	bs, be := big.NewInt(s), big.NewInt(e)
	span := new(big.Int).Sub(be, bs)
	if span.Sign() < 0 {
		span.Add(span, murmur3RingLength)
	}

	values := splitSpan(bs, span, big.NewInt(math.MaxInt64), murmur3RingLength, n)
	tokens := make([]Token, len(values))
	for i, v := range values {
		tokens[i] = p.FromInt64(v.Int64())
	}
	return tokens, nil
}

// murmur3H1 returns h1 of MurmurHash3 x64/128 as computed by the cluster
// nodes. Tail bytes are sign-extended before they are shifted into place.
func murmur3H1(data []byte) int64 {
	length := len(data)
	nblocks := length / 16

	h1, h2 := fixedint.New(), fixedint.New()

	for i := 0; i < nblocks; i++ {
		k1 := getBlock(data, i*2)
		k2 := getBlock(data, i*2+1)

		k1.Multiply(murmurC1).RotateLeft64(31).Multiply(murmurC2)
		h1.Xor(k1)
		h1.RotateLeft64(27).Add(h2).Multiply(murmurFive).Add(murmurR1)

		k2.Multiply(murmurC2).RotateLeft64(33).Multiply(murmurC1)
		h2.Xor(k2)
		h2.RotateLeft64(31).Add(h1).Multiply(murmurFive).Add(murmurR2)
	}

	tail := data[nblocks*16:]
	k1, k2 := fixedint.New(), fixedint.New()
	for i := len(tail) - 1; i >= 8; i-- {
		k2.Xor(signedByte(tail[i]).ShiftLeft(uint(i-8) * 8))
	}
	if len(tail) > 8 {
		k2.Multiply(murmurC2).RotateLeft64(33).Multiply(murmurC1)
		h2.Xor(k2)
	}
	for i := min(len(tail), 8) - 1; i >= 0; i-- {
		k1.Xor(signedByte(tail[i]).ShiftLeft(uint(i) * 8))
	}
	if len(tail) > 0 {
		k1.Multiply(murmurC1).RotateLeft64(31).Multiply(murmurC2)
		h1.Xor(k1)
	}

	n := fixedint.FromInt64(int64(length))
	h1.Xor(n)
	h2.Xor(n)

	h1.Add(h2)
	h2.Add(h1)

	fmix(h1)
	fmix(h2)

	h1.Add(h2)
	return h1.Int64()
}

// getBlock reads the i-th little-endian 8-byte lane of data.
func getBlock(data []byte, i int) *fixedint.Int64 {
	b := data[i*8 : i*8+8]
	return fixedint.FromLimbs(
		uint16(b[0])|uint16(b[1])<<8,
		uint16(b[2])|uint16(b[3])<<8,
		uint16(b[4])|uint16(b[5])<<8,
		uint16(b[6])|uint16(b[7])<<8,
	)
}

func signedByte(b byte) *fixedint.Int64 {
	return fixedint.FromInt64(int64(int8(b)))
}

func fmix(k *fixedint.Int64) *fixedint.Int64 {
	k.Xor(k.Clone().ShiftRightUnsigned(33))
	k.Multiply(fmixC1)
	k.Xor(k.Clone().ShiftRightUnsigned(33))
	k.Multiply(fmixC2)
	k.Xor(k.Clone().ShiftRightUnsigned(33))
	return k
}
