package uniswapv3

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm/ammerrors"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
)

func TestFeeTier(t *testing.T) {
	testCases := []struct {
		fee     uint64
		spacing int64
		percent string
	}{
		{100, 1, "0.01%"},
		{500, 10, "0.05%"},
		{3000, 60, "0.30%"},
		{10000, 200, "1.00%"},
	}

	for _, tc := range testCases {
		tier, err := ParseFeeTier(tc.fee)
		require.NoError(t, err)
		spacing, err := tier.TickSpacing()
		require.NoError(t, err)
		assert.Equal(t, tc.spacing, spacing)
		assert.Equal(t, tc.percent, tier.Percent())
	}

	_, err := ParseFeeTier(2500)
	assert.ErrorIs(t, err, ammerrors.ErrInvalidFeeTier)
	_, err = ParseFeeTier(1 << 40)
	assert.ErrorIs(t, err, ammerrors.ErrInvalidFeeTier)
}

func TestPool(t *testing.T) {
	token0 := tokenregistry.Token{Address: common.HexToAddress("0x01"), Symbol: "A", Decimals: 18}
	token1 := tokenregistry.Token{Address: common.HexToAddress("0x02"), Symbol: "B", Decimals: 6}
	pool := Pool{
		Token0:       token0,
		Token1:       token1,
		Fee:          FeeTier3000,
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		Liquidity:    big.NewInt(1_000_000),
	}

	require.NoError(t, pool.Validate())
	spacing, err := pool.Spacing()
	require.NoError(t, err)
	assert.Equal(t, int64(60), spacing)
	assert.True(t, pool.Initialized())

	zeroForOne, err := pool.ZeroForOne(token0.Address)
	require.NoError(t, err)
	assert.True(t, zeroForOne)
	zeroForOne, err = pool.ZeroForOne(token1.Address)
	require.NoError(t, err)
	assert.False(t, zeroForOne)
	_, err = pool.ZeroForOne(common.HexToAddress("0x03"))
	assert.ErrorIs(t, err, ammerrors.ErrTokenMismatch)

	pool.Tick = 887273
	assert.ErrorIs(t, pool.Validate(), ammerrors.ErrTickOutOfRange)
}

func TestPool_ValidateTickMatchesPrice(t *testing.T) {
	token0 := tokenregistry.Token{Address: common.HexToAddress("0x01"), Symbol: "A", Decimals: 18}
	token1 := tokenregistry.Token{Address: common.HexToAddress("0x02"), Symbol: "B", Decimals: 18}
	atTick := func(tick int64) *big.Int {
		p := new(big.Int)
		require.NoError(t, tickmath.GetSqrtRatioAtTick(p, tick))
		return p
	}
	between := new(big.Int).Add(atTick(100), big.NewInt(1))

	testCases := []struct {
		name  string
		tick  int64
		price *big.Int
		want  error
	}{
		{"tick of the price", 100, between, nil},
		{"price on a boundary", 100, atTick(100), nil},
		{"boundary left by a downward swap", 99, atTick(100), nil},
		{"one below off the boundary", 99, between, ammerrors.ErrInvalidSnapshot},
		{"stale tick", 160, between, ammerrors.ErrInvalidSnapshot},
		{"uninitialized pool skips the check", 160, big.NewInt(0), nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pool := Pool{
				Token0:       token0,
				Token1:       token1,
				Fee:          FeeTier3000,
				Tick:         tc.tick,
				SqrtPriceX96: tc.price,
				Liquidity:    big.NewInt(1),
			}
			err := pool.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateTicks(t *testing.T) {
	tick := func(i int64) TickInfo {
		return TickInfo{Index: i, LiquidityGross: big.NewInt(1), LiquidityNet: big.NewInt(1)}
	}

	assert.NoError(t, ValidateTicks(nil))
	assert.NoError(t, ValidateTicks([]TickInfo{tick(-600), tick(0), tick(600)}))
	assert.ErrorIs(t, ValidateTicks([]TickInfo{tick(-600), tick(600), tick(0)}), ammerrors.ErrInvalidSnapshot)
	assert.ErrorIs(t, ValidateTicks([]TickInfo{tick(0), tick(0)}), ammerrors.ErrInvalidSnapshot)

	pool := Pool{
		Token0:       tokenregistry.Token{Address: common.HexToAddress("0x01"), Symbol: "A", Decimals: 18},
		Token1:       tokenregistry.Token{Address: common.HexToAddress("0x02"), Symbol: "B", Decimals: 18},
		Fee:          FeeTier3000,
		SqrtPriceX96: new(big.Int).Lsh(big.NewInt(1), 96),
		Liquidity:    big.NewInt(1),
		Ticks:        []TickInfo{tick(600), tick(-600)},
	}
	assert.ErrorIs(t, pool.Validate(), ammerrors.ErrInvalidSnapshot)
}

func TestPriceRange(t *testing.T) {
	testCases := []struct {
		name        string
		lower       int64
		upper       int64
		expectedErr error
	}{
		{"valid", -600, 600, nil},
		{"inverted", 600, -600, ammerrors.ErrInvalidRange},
		{"empty", 60, 60, ammerrors.ErrInvalidRange},
		{"unaligned", -610, 600, ammerrors.ErrInvalidRange},
		{"out of bounds", -887280, 600, ammerrors.ErrTickOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPriceRange(tc.lower, tc.upper, 60)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
		})
	}

	r := PriceRange{TickLower: -60, TickUpper: 60}
	assert.True(t, r.Contains(-60))
	assert.True(t, r.Contains(59))
	assert.False(t, r.Contains(60))
	assert.ErrorIs(t, r.Validate(0), ammerrors.ErrInvalidTickSpacing)
}
