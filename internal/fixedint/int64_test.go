package fixedint

import (
	"math"
	"math/bits"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var representative = []int64{
	0, 1, -1, 2, -2, 5, 31, 65535, 65536, -65536,
	1 << 31, -(1 << 31), 1<<32 - 1, 1 << 32,
	1<<52 - 1, 1 << 52, -(1 << 52), 1<<53 + 1, -(1<<53 + 1),
	math.MaxInt64, math.MinInt64, math.MaxInt64 - 1, math.MinInt64 + 1,
	-5563837382979743776, 0x52dce729, 0x38495ab5,
}

func randomInt64s(n int) []int64 {
	r := rand.New(rand.NewSource(42))
	out := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, int64(r.Uint64()))
	}
	return out
}

func TestFromInt64RoundTrip(t *testing.T) {
	for _, v := range representative {
		assert.Equal(t, v, FromInt64(v).Int64(), "value %d", v)
	}
}

func TestHalvesRoundTrip(t *testing.T) {
	for _, v := range append(representative, randomInt64s(50)...) {
		hi, lo := FromInt64(v).Halves()
		assert.Equal(t, uint32(uint64(v)>>32), hi)
		assert.Equal(t, uint32(v), lo)
		assert.Equal(t, v, FromHalves(hi, lo).Int64())
	}
}

func TestLimbLayout(t *testing.T) {
	x := FromUint64(0x0123456789ABCDEF)
	assert.Equal(t, [4]uint16{0xCDEF, 0x89AB, 0x4567, 0x0123}, x.Limbs())
	assert.Equal(t, int64(0x0123456789ABCDEF), FromLimbs(0xCDEF, 0x89AB, 0x4567, 0x0123).Int64())
}

func TestAddMatchesNative(t *testing.T) {
	values := append(representative, randomInt64s(100)...)
	for i, a := range values {
		b := values[(i*7+3)%len(values)]
		got := FromInt64(a).Add(FromInt64(b)).Int64()
		assert.Equal(t, a+b, got, "%d + %d", a, b)
	}
}

func TestSubMatchesNative(t *testing.T) {
	values := append(representative, randomInt64s(100)...)
	for i, a := range values {
		b := values[(i*5+1)%len(values)]
		assert.Equal(t, a-b, FromInt64(a).Sub(FromInt64(b)).Int64(), "%d - %d", a, b)
	}
}

func TestMultiplySmallOperands(t *testing.T) {
	cases := [][2]int64{
		{0, 12345}, {12345, 0}, {1, 1}, {-1, 1}, {-1, -1},
		{3, 5}, {-3, 5}, {3, -5}, {-3, -5},
		{1<<26 + 3, 1<<26 - 7}, {-(1 << 26), 1<<26 + 1},
		{94906265, 94906265}, {1<<53 - 1, 1}, {-(1<<53 - 1), -1},
	}
	for _, c := range cases {
		got := FromInt64(c[0]).Multiply(FromInt64(c[1])).Int64()
		assert.Equal(t, c[0]*c[1], got, "%d * %d", c[0], c[1])
	}
}

func TestMultiplyFullRange(t *testing.T) {
	values := append(representative, randomInt64s(200)...)
	for i, a := range values {
		for _, b := range []int64{values[(i*13+1)%len(values)], -0x783c846eeebdac2b, 0x4cf5ad432745937f} {
			got := FromInt64(a).Multiply(FromInt64(b)).Int64()
			assert.Equal(t, a*b, got, "%d * %d", a, b)
		}
	}
}

func TestMultiplyDoesNotMutateOperand(t *testing.T) {
	y := FromInt64(-42)
	FromInt64(1000).Multiply(y)
	assert.Equal(t, int64(-42), y.Int64())
}

func TestShifts(t *testing.T) {
	for _, v := range append(representative, randomInt64s(40)...) {
		for n := uint(0); n <= 70; n++ {
			wantL, wantR := uint64(v)<<n, uint64(v)>>n
			if n >= 64 {
				wantL, wantR = 0, 0
			}
			assert.Equal(t, wantL, FromInt64(v).ShiftLeft(n).Uint64(), "%d << %d", v, n)
			assert.Equal(t, wantR, FromInt64(v).ShiftRightUnsigned(n).Uint64(), "%d >>> %d", v, n)
		}
	}
}

func TestRotateLeft64(t *testing.T) {
	for _, v := range append(representative, randomInt64s(40)...) {
		for n := uint(0); n < 64; n++ {
			got := FromInt64(v).RotateLeft64(n)
			assert.Equal(t, bits.RotateLeft64(uint64(v), int(n)), got.Uint64())
			assert.Equal(t, v, got.RotateLeft64(64-n).Int64(), "round trip %d by %d", v, n)
		}
	}
}

func TestBitwise(t *testing.T) {
	a, b := int64(0x0F0F_F0F0_1234_5678), int64(-0x7654_3210_FEDC_BA98)
	assert.Equal(t, a^b, FromInt64(a).Xor(FromInt64(b)).Int64())
	assert.Equal(t, a|b, FromInt64(a).Or(FromInt64(b)).Int64())
	assert.Equal(t, a&b, FromInt64(a).And(FromInt64(b)).Int64())
	assert.Equal(t, ^a, FromInt64(a).Not().Int64())
}

func TestNegate(t *testing.T) {
	for _, v := range representative {
		assert.Equal(t, -v, FromInt64(v).Negate().Int64())
	}
	assert.Equal(t, int64(math.MinInt64), FromInt64(math.MinInt64).Negate().Int64())
}

func TestCompare(t *testing.T) {
	values := append(representative, randomInt64s(60)...)
	for i, a := range values {
		b := values[(i*11+2)%len(values)]
		want := 0
		if a < b {
			want = -1
		} else if a > b {
			want = 1
		}
		assert.Equal(t, want, FromInt64(a).Compare(FromInt64(b)), "compare(%d, %d)", a, b)
	}
}

func TestFromString(t *testing.T) {
	for _, v := range append(representative, randomInt64s(50)...) {
		s := strconv.FormatInt(v, 10)
		got, err := FromString(s)
		require.NoError(t, err, s)
		assert.Equal(t, v, got.Int64(), s)
		assert.Equal(t, s, got.String())
	}
}

func TestFromStringRadix(t *testing.T) {
	cases := []struct {
		in    string
		radix int
		want  int64
	}{
		{"ff", 16, 255},
		{"FF", 16, 255},
		{"-ff", 16, -255},
		{"7fffffffffffffff", 16, math.MaxInt64},
		{"101", 2, 5},
		{"zz", 36, 36*35 + 35},
		{"0000000000000042", 10, 42},
		{"123456789012", 10, 123456789012},
	}
	for _, c := range cases {
		got, err := FromStringRadix(c.in, c.radix)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got.Int64(), c.in)
	}
}

func TestFromStringWraps(t *testing.T) {
	// 2^64 + 5 wraps to 5
	got, err := FromString("18446744073709551621")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Int64())
}

func TestFromStringErrors(t *testing.T) {
	for _, in := range []string{"", "-", "12a4", "1-2", "--1", " 1", "+1", "0x10"} {
		_, err := FromString(in)
		assert.ErrorIs(t, err, ErrSyntax, "input %q", in)
	}
	for _, radix := range []int{-1, 0, 1, 37} {
		_, err := FromStringRadix("1", radix)
		assert.ErrorIs(t, err, ErrRadix, "radix %d", radix)
	}
}

func TestChainingReturnsReceiver(t *testing.T) {
	x := FromInt64(3)
	assert.Same(t, x, x.Add(FromInt64(1)).Multiply(FromInt64(2)).ShiftLeft(1).Xor(New()))
	assert.Equal(t, int64(16), x.Int64())
}
