package token

import (
	"fmt"
)

// Range is an immutable interval ]start, end] of the ring: the start token is
// excluded and the end token included. A range whose end precedes its start
// wraps around the minimum token.
//
// Degenerate forms:
//   - ]min, min] is the whole ring;
//   - ]t, t] with t != min is empty.
type Range struct {
	start, end Token
	p          Partitioner
}

// NewRange returns the range ]start, end]. Both tokens must come from the
// same partitioner; mixing partitioners is a programming error and panics.
func NewRange(start, end Token) Range {
	if start.p == nil || end.p == nil {
		panic("token: range bound without partitioner")
	}
	if start.p != end.p {
		panic(fmt.Sprintf("token: range bounds from %s and %s", start.p.Name(), end.p.Name()))
	}
	return Range{start: start, end: end, p: start.p}
}

// WholeRing returns ]min, min] for p.
func WholeRing(p Partitioner) Range {
	return NewRange(p.MinToken(), p.MinToken())
}

func (r Range) Start() Token             { return r.start }
func (r Range) End() Token               { return r.end }
func (r Range) Partitioner() Partitioner { return r.p }

func (r Range) isMin(t Token) bool {
	return r.p.Compare(t, r.p.MinToken()) == 0
}

// IsEmpty reports whether the range contains no token: start == end and the
// range is not the whole ring.
func (r Range) IsEmpty() bool {
	return r.start.Equal(r.end) && !r.isMin(r.start)
}

// IsWholeRing reports whether the range is ]min, min].
func (r Range) IsWholeRing() bool {
	return r.start.Equal(r.end) && r.isMin(r.start)
}

// IsWrappedAround reports whether the range crosses the minimum token, that
// is start > end and end is not the minimum token. A range ending at the
// minimum token runs to the end of the ring without wrapping.
func (r Range) IsWrappedAround() bool {
	return r.start.Compare(r.end) > 0 && !r.isMin(r.end)
}

// Contains reports whether t lies in ]start, end].
func (r Range) Contains(t Token) bool {
	if r.IsEmpty() {
		return false
	}
	if r.isMin(r.end) {
		if r.isMin(r.start) || r.isMin(t) {
			return true
		}
		return t.Compare(r.start) > 0
	}
	afterStart := t.Compare(r.start) > 0
	beforeEnd := t.Compare(r.end) <= 0
	if r.IsWrappedAround() {
		return afterStart || beforeEnd
	}
	return afterStart && beforeEnd
}

// Unwrap splits a wrapped range at the minimum token into ]start, min] and
// ]min, end]. Other ranges are returned unchanged.
func (r Range) Unwrap() []Range {
	if !r.IsWrappedAround() {
		return []Range{r}
	}
	origin := r.p.MinToken()
	return []Range{NewRange(r.start, origin), NewRange(origin, r.end)}
}

// SplitEvenly divides the range into n contiguous ranges of near equal size.
// The first range starts at r's start and the last one ends at r's end;
// earlier ranges absorb any remainder.
func (r Range) SplitEvenly(n int) ([]Range, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSplitCount, n)
	}
	if r.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRange, r)
	}
	splitter, ok := r.p.(Splitter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSplitUnsupported, r.p.Name())
	}
	bounds, err := splitter.Split(r.start, r.end, n)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", r, err)
	}

	ranges := make([]Range, 0, n)
	from := r.start
	for _, to := range bounds {
		ranges = append(ranges, NewRange(from, to))
		from = to
	}
	return append(ranges, NewRange(from, r.end)), nil
}

// Compare orders ranges by start token, then by end token.
func (r Range) Compare(o Range) int {
	if c := r.start.Compare(o.start); c != 0 {
		return c
	}
	return r.end.Compare(o.end)
}

// Equal reports whether r and o have the same bounds.
func (r Range) Equal(o Range) bool {
	return r.Compare(o) == 0
}

func (r Range) String() string {
	return fmt.Sprintf("]%s, %s]", r.start, r.end)
}
