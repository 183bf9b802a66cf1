package fixedint

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	limbBits = 16
	limbMask = 0xFFFF
	numLimbs = 4
)

var (
	// ErrSyntax indicates that a string is not a valid integer literal.
	ErrSyntax = errors.New("fixedint: invalid syntax")

	// ErrRadix indicates a radix outside [2, 36].
	ErrRadix = errors.New("fixedint: radix out of range")
)

// Int64 is a signed 64-bit value held in four little-limb-first 16-bit limbs
// (b00, b16, b32, b48). The zero value is 0.
type Int64 struct {
	limbs [numLimbs]uint16
}

// New returns a zero-valued Int64.
func New() *Int64 {
	return &Int64{}
}

// FromInt64 returns an Int64 holding v.
func FromInt64(v int64) *Int64 {
	return FromUint64(uint64(v))
}

// FromUint64 returns an Int64 holding the bit pattern of v.
func FromUint64(v uint64) *Int64 {
	x := &Int64{}
	for i := range x.limbs {
		x.limbs[i] = uint16(v >> (limbBits * i))
	}
	return x
}

// FromHalves builds an Int64 from its high and low 32-bit halves.
func FromHalves(hi, lo uint32) *Int64 {
	return &Int64{limbs: [numLimbs]uint16{
		uint16(lo), uint16(lo >> 16), uint16(hi), uint16(hi >> 16),
	}}
}

// FromLimbs builds an Int64 from limbs ordered least significant first.
func FromLimbs(b00, b16, b32, b48 uint16) *Int64 {
	return &Int64{limbs: [numLimbs]uint16{b00, b16, b32, b48}}
}

// Limbs returns the four limbs, least significant first.
func (x *Int64) Limbs() [4]uint16 {
	return x.limbs
}

// Clone returns an independent copy of x.
func (x *Int64) Clone() *Int64 {
	c := *x
	return &c
}

// Set copies y into x.
func (x *Int64) Set(y *Int64) *Int64 {
	x.limbs = y.limbs
	return x
}

// Int64 converts x to an immutable native value.
func (x *Int64) Int64() int64 {
	return int64(x.Uint64())
}

// Uint64 returns the bit pattern of x.
func (x *Int64) Uint64() uint64 {
	var v uint64
	for i := numLimbs - 1; i >= 0; i-- {
		v = v<<limbBits | uint64(x.limbs[i])
	}
	return v
}

// Halves returns the high and low 32-bit halves of x.
func (x *Int64) Halves() (hi, lo uint32) {
	lo = uint32(x.limbs[1])<<16 | uint32(x.limbs[0])
	hi = uint32(x.limbs[3])<<16 | uint32(x.limbs[2])
	return hi, lo
}

// IsZero reports whether x == 0.
func (x *Int64) IsZero() bool {
	return x.limbs == [numLimbs]uint16{}
}

// IsNegative reports whether the sign bit of x is set.
func (x *Int64) IsNegative() bool {
	return x.limbs[3]&0x8000 != 0
}

// Equal reports whether x and y hold the same value.
func (x *Int64) Equal(y *Int64) bool {
	return x.limbs == y.limbs
}

// Add sets x to x + y, wrapping on overflow.
func (x *Int64) Add(y *Int64) *Int64 {
	var carry uint32
	for i := 0; i < numLimbs; i++ {
		sum := uint32(x.limbs[i]) + uint32(y.limbs[i]) + carry
		x.limbs[i] = uint16(sum & limbMask)
		carry = sum >> limbBits
	}
	return x
}

// Sub sets x to x - y, wrapping on overflow.
func (x *Int64) Sub(y *Int64) *Int64 {
	return x.Add(y.Clone().Negate())
}

// Multiply sets x to x * y, keeping the low 64 bits of the product.
//
// Negative operands are multiplied in magnitude form and the result is
// negated when exactly one operand was negative.
func (x *Int64) Multiply(y *Int64) *Int64 {
	if x.IsZero() || y.IsZero() {
		x.limbs = [numLimbs]uint16{}
		return x
	}

	a, b := x.Clone(), y.Clone()
	negative := false
	if a.IsNegative() {
		a.Negate()
		negative = !negative
	}
	if b.IsNegative() {
		b.Negate()
		negative = !negative
	}

	// Schoolbook 16x16->32 partial products, columns above limb 3 dropped.
	var cols [numLimbs]uint64
	for i := 0; i < numLimbs; i++ {
		for j := 0; i+j < numLimbs; j++ {
			cols[i+j] += uint64(a.limbs[i]) * uint64(b.limbs[j])
		}
	}
	var carry uint64
	for i := 0; i < numLimbs; i++ {
		v := cols[i] + carry
		x.limbs[i] = uint16(v & limbMask)
		carry = v >> limbBits
	}

	if negative {
		x.Negate()
	}
	return x
}

// ShiftLeft sets x to x << n. Shifts of 64 or more yield zero.
func (x *Int64) ShiftLeft(n uint) *Int64 {
	if n == 0 {
		return x
	}
	if n >= 64 {
		x.limbs = [numLimbs]uint16{}
		return x
	}
	whole, bits := int(n/limbBits), n%limbBits
	var out [numLimbs]uint16
	for i := numLimbs - 1; i >= whole; i-- {
		v := uint32(x.limbs[i-whole]) << bits
		if bits != 0 && i-whole-1 >= 0 {
			v |= uint32(x.limbs[i-whole-1]) >> (limbBits - bits)
		}
		out[i] = uint16(v & limbMask)
	}
	x.limbs = out
	return x
}

// ShiftRightUnsigned sets x to x >>> n, filling with zero bits.
func (x *Int64) ShiftRightUnsigned(n uint) *Int64 {
	if n == 0 {
		return x
	}
	if n >= 64 {
		x.limbs = [numLimbs]uint16{}
		return x
	}
	whole, bits := int(n/limbBits), n%limbBits
	var out [numLimbs]uint16
	for i := 0; i+whole < numLimbs; i++ {
		v := uint32(x.limbs[i+whole]) >> bits
		if bits != 0 && i+whole+1 < numLimbs {
			v |= uint32(x.limbs[i+whole+1]) << (limbBits - bits)
		}
		out[i] = uint16(v & limbMask)
	}
	x.limbs = out
	return x
}

// RotateLeft64 rotates the 64 bits of x left by n.
func (x *Int64) RotateLeft64(n uint) *Int64 {
	n %= 64
	if n == 0 {
		return x
	}
	low := x.Clone().ShiftRightUnsigned(64 - n)
	return x.ShiftLeft(n).Or(low)
}

// Not sets x to its bitwise complement.
func (x *Int64) Not() *Int64 {
	for i := range x.limbs {
		x.limbs[i] = ^x.limbs[i]
	}
	return x
}

// Negate sets x to -x.
func (x *Int64) Negate() *Int64 {
	return x.Not().Add(FromInt64(1))
}

// Xor sets x to x ^ y.
func (x *Int64) Xor(y *Int64) *Int64 {
	for i := range x.limbs {
		x.limbs[i] ^= y.limbs[i]
	}
	return x
}

// Or sets x to x | y.
func (x *Int64) Or(y *Int64) *Int64 {
	for i := range x.limbs {
		x.limbs[i] |= y.limbs[i]
	}
	return x
}

// And sets x to x & y.
func (x *Int64) And(y *Int64) *Int64 {
	for i := range x.limbs {
		x.limbs[i] &= y.limbs[i]
	}
	return x
}

// Compare returns -1, 0 or +1 depending on whether x is less than, equal to,
// or greater than y as signed values.
func (x *Int64) Compare(y *Int64) int {
	xn, yn := x.IsNegative(), y.IsNegative()
	if xn && !yn {
		return -1
	}
	if !xn && yn {
		return 1
	}
	for i := numLimbs - 1; i >= 0; i-- {
		switch {
		case x.limbs[i] < y.limbs[i]:
			return -1
		case x.limbs[i] > y.limbs[i]:
			return 1
		}
	}
	return 0
}

// String returns the signed decimal form of x.
func (x *Int64) String() string {
	return strconv.FormatInt(x.Int64(), 10)
}

// Text returns the signed form of x in the given radix.
func (x *Int64) Text(radix int) string {
	return strconv.FormatInt(x.Int64(), radix)
}

// chunkDigits is how many digits are folded into the accumulator per step.
const chunkDigits = 8

// FromString parses s in base 10. See FromStringRadix.
func FromString(s string) (*Int64, error) {
	return FromStringRadix(s, 10)
}

// FromStringRadix parses an integer literal of arbitrary length in the given
// radix. Values that do not fit in 64 bits wrap. A leading '-' negates the
// value of the remaining digits; a '-' anywhere else is a syntax error.
func FromStringRadix(s string, radix int) (*Int64, error) {
	if radix < 2 || radix > 36 {
		return nil, fmt.Errorf("%w: %d", ErrRadix, radix)
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrSyntax)
	}
	negative := s[0] == '-'
	if negative {
		s = s[1:]
		if s == "" {
			return nil, fmt.Errorf("%w: lone sign", ErrSyntax)
		}
	}

	scale := FromUint64(pow(uint64(radix), chunkDigits))
	acc := New()
	for i := 0; i < len(s); i += chunkDigits {
		end := min(i+chunkDigits, len(s))
		chunk := s[i:end]
		for j := 0; j < len(chunk); j++ {
			if !isDigit(chunk[j], radix) {
				return nil, fmt.Errorf("%w: %q", ErrSyntax, s)
			}
		}
		v, err := strconv.ParseUint(chunk, radix, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
		if len(chunk) < chunkDigits {
			acc.Multiply(FromUint64(pow(uint64(radix), len(chunk))))
		} else {
			acc.Multiply(scale)
		}
		acc.Add(FromUint64(v))
	}
	if negative {
		acc.Negate()
	}
	return acc, nil
}

func isDigit(c byte, radix int) bool {
	var d int
	switch {
	case '0' <= c && c <= '9':
		d = int(c - '0')
	case 'a' <= c && c <= 'z':
		d = int(c-'a') + 10
	case 'A' <= c && c <= 'Z':
		d = int(c-'A') + 10
	default:
		return false
	}
	return d < radix
}

func pow(base uint64, exp int) uint64 {
	r := uint64(1)
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
