package token

import (
	"crypto/md5"
	"fmt"
	"math/big"
)

// Random is the MD5-based partitioner.
var Random = RandomPartitioner{}

// RandomPartitioner places keys at the absolute value of their MD5 digest
// read as a signed 128-bit integer. Tokens lie in [0, 2^127].
type RandomPartitioner struct{}

var _ Splitter = RandomPartitioner{}

var (
	randomMaxToken = new(big.Int).Lsh(bigOne, 127)
	// 2^128, used to read a digest as two's complement.
	randomModulus    = new(big.Int).Lsh(bigOne, 128)
	randomRingLength = new(big.Int).Add(randomMaxToken, bigOne)
)

func (RandomPartitioner) Name() string { return "RandomPartitioner" }

// FromBigInt returns the Random token with value v. v is copied.
func (p RandomPartitioner) FromBigInt(v *big.Int) Token {
	return Token{p: p, value: new(big.Int).Set(v)}
}

func (p RandomPartitioner) Hash(key []byte) Token {
	sum := md5.Sum(key)
	v := new(big.Int).SetBytes(sum[:])
	if sum[0] > 127 {
		v.Sub(v, randomModulus)
		v.Abs(v)
	}
	return Token{p: p, value: v}
}

// Parse reads a non-negative decimal token no greater than 2^127.
func (p RandomPartitioner) Parse(s string) (Token, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidToken, s)
	}
	if v.Sign() < 0 || v.Cmp(randomMaxToken) > 0 {
		return Token{}, fmt.Errorf("%w: %q out of range [0, 2^127]", ErrInvalidToken, s)
	}
	return Token{p: p, value: v}, nil
}

func (RandomPartitioner) Stringify(t Token) string {
	return t.value.(*big.Int).String()
}

func (RandomPartitioner) Compare(a, b Token) int {
	return a.value.(*big.Int).Cmp(b.value.(*big.Int))
}

func (p RandomPartitioner) MinToken() Token {
	return Token{p: p, value: new(big.Int)}
}

// Split divides ]start, end] measuring distance around the ring. The whole
// ring ]0, 0] is measured up to 2^127.
func (p RandomPartitioner) Split(start, end Token, n int) ([]Token, error) {
	if n < 1 {
		return nil, ErrInvalidSplitCount
	}
	s, e := start.value.(*big.Int), end.value.(*big.Int)
	if s.Cmp(e) == 0 && s.Sign() == 0 {
		e = randomMaxToken
	}

	span := new(big.Int).Sub(e, s)
	if span.Sign() < 0 {
		span.Add(span, randomRingLength)
	}

	values := splitSpan(s, span, randomMaxToken, randomRingLength, n)
	tokens := make([]Token, len(values))
	for i, v := range values {
		tokens[i] = Token{p: p, value: v}
	}
	return tokens, nil
}
