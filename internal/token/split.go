package token

import "math/big"

var bigOne = big.NewInt(1)

// splitSpan walks n-1 equal steps of span away from start. Steps carrying
// the remainder come first. When ringEnd is non-nil, positions past it wrap
// by ringLength.
func splitSpan(start, span, ringEnd, ringLength *big.Int, n int) []*big.Int {
	step, rem := new(big.Int).QuoRem(span, big.NewInt(int64(n)), new(big.Int))
	remainder := rem.Int64()
	stepPlusOne := new(big.Int).Add(step, bigOne)

	current := new(big.Int).Set(start)
	out := make([]*big.Int, 0, n-1)
	for i := 1; i < n; i++ {
		if remainder > 0 {
			current.Add(current, stepPlusOne)
			remainder--
		} else {
			current.Add(current, step)
		}
		if ringEnd != nil && current.Cmp(ringEnd) > 0 {
			current.Sub(current, ringLength)
		}
		out = append(out, new(big.Int).Set(current))
	}
	return out
}
