// Package fixedint provides a mutable two's-complement 64-bit integer stored
// as four 16-bit limbs.
//
// # Overview
//
// Int64 reproduces the wrapping arithmetic of a native signed 64-bit word
// limb by limb. It is the working type of the Murmur3 hash routine: one
// computation owns its instances from start to finish and converts the final
// value into an immutable int64 at the boundary.
//
// # Layout
//
// The limbs are kept least significant first:
//
//	bit   63        48 47        32 31        16 15         0
//	      ┌───────────┬────────────┬────────────┬───────────┐
//	      │    b48    │    b32     │    b16     │    b00    │
//	      └───────────┴────────────┴────────────┴───────────┘
//
// Additions carry from one limb into the next; products are computed as
// 16x16->32 partial products and everything above bit 63 is dropped.
// Multiply works on magnitudes and restores the sign afterwards, which gives
// the same low 64 bits as a native multiply.
//
// # Chaining
//
// Every mutating method updates the receiver in place and returns it so that
// calls can be chained:
//
//	k := fixedint.FromInt64(7)
//	k.Multiply(c1).RotateLeft64(31).Multiply(c2)
//
// Operands are never modified, so read-only constants may be shared by
// concurrent computations.
//
// # Parsing
//
// FromStringRadix accepts literals of any length in radix 2 to 36. Digits are
// folded in chunks of eight, and values that do not fit in 64 bits wrap the
// way the arithmetic does. A leading '-' negates the result.
//
// # Thread Safety
//
// An Int64 must not be shared between goroutines while it is being mutated.
package fixedint
