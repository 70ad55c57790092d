package fixedpoint

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm/ammerrors"
)

func bigFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("failed to parse big.Int: " + s)
	}
	return n
}

func TestMulDiv(t *testing.T) {
	q128 := new(big.Int).Lsh(big.NewInt(1), 128)

	testCases := []struct {
		name        string
		a, b, d     *big.Int
		expected    *big.Int
		expectedErr error
	}{
		{"simple", big.NewInt(10), big.NewInt(10), big.NewInt(3), big.NewInt(33), nil},
		{"512-bit intermediate", new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(2), big.NewInt(4), new(big.Int).Lsh(big.NewInt(1), 254), nil},
		{"all max inputs", MaxUint256, MaxUint256, MaxUint256, MaxUint256, nil},
		{"q128 squared over q128", q128, q128, q128, q128, nil},
		{"zero numerator", big.NewInt(0), MaxUint256, big.NewInt(7), big.NewInt(0), nil},
		{"division by zero", big.NewInt(1), big.NewInt(1), big.NewInt(0), nil, ammerrors.ErrDivisionByZero},
		{"result overflow", MaxUint256, big.NewInt(2), big.NewInt(1), nil, ammerrors.ErrOverflow},
		{"operand overflow", new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1), big.NewInt(1), nil, ammerrors.ErrOverflow},
		{"negative operand", big.NewInt(-1), big.NewInt(1), big.NewInt(1), nil, ammerrors.ErrInvalidAmount},
		{"nil operand", nil, big.NewInt(1), big.NewInt(1), nil, ammerrors.ErrInvalidAmount},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dest := new(big.Int)
			err := MulDiv(dest, tc.a, tc.b, tc.d)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, tc.expected.Cmp(dest), "expected %s, got %s", tc.expected, dest)
		})
	}
}

func TestMulDivRoundingUp(t *testing.T) {
	testCases := []struct {
		name        string
		a, b, d     *big.Int
		expected    *big.Int
		expectedErr error
	}{
		{"rounds up", big.NewInt(10), big.NewInt(10), big.NewInt(3), big.NewInt(34), nil},
		{"exact division", big.NewInt(10), big.NewInt(9), big.NewInt(3), big.NewInt(30), nil},
		{"all max inputs", MaxUint256, MaxUint256, MaxUint256, MaxUint256, nil},
		{
			"overflow after rounding up",
			big.NewInt(535006138814359),
			bigFromString("432862656469423142931042426214547535783388063929571229938474969"),
			big.NewInt(2),
			nil,
			ammerrors.ErrOverflow,
		},
		{"division by zero", big.NewInt(1), big.NewInt(1), big.NewInt(0), nil, ammerrors.ErrDivisionByZero},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dest := new(big.Int)
			err := MulDivRoundingUp(dest, tc.a, tc.b, tc.d)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, tc.expected.Cmp(dest), "expected %s, got %s", tc.expected, dest)
		})
	}
}

func TestDivRoundingUp(t *testing.T) {
	dest := new(big.Int)
	require.NoError(t, DivRoundingUp(dest, big.NewInt(7), big.NewInt(2)))
	assert.Equal(t, int64(4), dest.Int64())

	require.NoError(t, DivRoundingUp(dest, big.NewInt(8), big.NewInt(2)))
	assert.Equal(t, int64(4), dest.Int64())

	assert.ErrorIs(t, DivRoundingUp(dest, big.NewInt(8), big.NewInt(0)), ammerrors.ErrDivisionByZero)
}

func TestSqrt(t *testing.T) {
	testCases := []struct {
		name     string
		input    *big.Int
		expected *big.Int
	}{
		{"zero", big.NewInt(0), big.NewInt(0)},
		{"one", big.NewInt(1), big.NewInt(1)},
		{"two", big.NewInt(2), big.NewInt(1)},
		{"four", big.NewInt(4), big.NewInt(2)},
		{"99", big.NewInt(99), big.NewInt(9)},
		{"10^40", bigFromString("10000000000000000000000000000000000000000"), bigFromString("100000000000000000000")},
		{"max uint256", MaxUint256, bigFromString("340282366920938463463374607431768211455")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dest := new(big.Int)
			require.NoError(t, Sqrt(dest, tc.input))
			assert.Equal(t, 0, tc.expected.Cmp(dest), "expected %s, got %s", tc.expected, dest)
		})
	}

	assert.ErrorIs(t, Sqrt(new(big.Int), big.NewInt(-1)), ammerrors.ErrInvalidAmount)
}

func TestSqrt_Invariant(t *testing.T) {
	limit := new(big.Int).Lsh(big.NewInt(1), 512)
	for i := 0; i < 1000; i++ {
		x, err := rand.Int(rand.Reader, limit)
		require.NoError(t, err)

		root := new(big.Int)
		require.NoError(t, Sqrt(root, x))

		// root^2 <= x < (root+1)^2
		assert.True(t, new(big.Int).Mul(root, root).Cmp(x) <= 0, "sqrt(%s) = %s is too large", x, root)
		next := new(big.Int).Add(root, big.NewInt(1))
		assert.True(t, new(big.Int).Mul(next, next).Cmp(x) > 0, "sqrt(%s) = %s is too small", x, root)
		assert.Equal(t, 0, root.Cmp(new(big.Int).Sqrt(x)))
	}
}

func TestMulDiv_Invariant(t *testing.T) {
	limit := new(big.Int).Lsh(big.NewInt(1), 256)
	for i := 0; i < 1000; i++ {
		a, _ := rand.Int(rand.Reader, limit)
		b, _ := rand.Int(rand.Reader, limit)
		d, _ := rand.Int(rand.Reader, limit)
		if d.Sign() == 0 {
			d.SetInt64(1)
		}

		floor := new(big.Int).Mul(a, b)
		rem := new(big.Int)
		floor.QuoRem(floor, d, rem)

		down, up := new(big.Int), new(big.Int)
		errDown := MulDiv(down, a, b, d)
		errUp := MulDivRoundingUp(up, a, b, d)

		if floor.Cmp(MaxUint256) > 0 {
			assert.ErrorIs(t, errDown, ammerrors.ErrOverflow)
			continue
		}
		require.NoError(t, errDown)
		assert.Equal(t, 0, floor.Cmp(down))

		if rem.Sign() == 0 {
			require.NoError(t, errUp)
			assert.Equal(t, 0, down.Cmp(up))
		} else if floor.Cmp(MaxUint256) < 0 {
			require.NoError(t, errUp)
			assert.Equal(t, 0, new(big.Int).Add(down, big.NewInt(1)).Cmp(up))
		}
	}
}

func TestEncodeSqrtRatioX96(t *testing.T) {
	testCases := []struct {
		name             string
		amount1, amount0 *big.Int
		expected         *big.Int
	}{
		{"1:1", big.NewInt(1), big.NewInt(1), bigFromString("79228162514264337593543950336")},
		{"100:1", big.NewInt(100), big.NewInt(1), bigFromString("792281625142643375935439503360")},
		{"1:100", big.NewInt(1), big.NewInt(100), bigFromString("7922816251426433759354395033")},
		{"101:100", big.NewInt(101), big.NewInt(100), bigFromString("79623317895830914510639640423")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dest := new(big.Int)
			require.NoError(t, EncodeSqrtRatioX96(dest, tc.amount1, tc.amount0))
			assert.Equal(t, 0, tc.expected.Cmp(dest), "expected %s, got %s", tc.expected, dest)
		})
	}

	assert.ErrorIs(t, EncodeSqrtRatioX96(new(big.Int), big.NewInt(1), big.NewInt(0)), ammerrors.ErrDivisionByZero)
}

func TestPow10(t *testing.T) {
	assert.Equal(t, "1", Pow10(0).String())
	assert.Equal(t, "1000000", Pow10(6).String())
	assert.Equal(t, "1000000000000000000", Pow10(18).String())
	assert.Equal(t, "1000000000000000000000000000000000000", Pow10(36).String())
	assert.Equal(t, 41, len(Pow10(40).String()))
}

func TestShift96(t *testing.T) {
	x := big.NewInt(3)
	shifted := Lsh96(new(big.Int), x)
	assert.Equal(t, 0, new(big.Int).Mul(x, Q96).Cmp(shifted))
	assert.Equal(t, 0, x.Cmp(Rsh96(new(big.Int), shifted)))
	assert.Equal(t, 0, Q192.Cmp(new(big.Int).Mul(Q96, Q96)))
}
