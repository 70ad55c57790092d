package position

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm/ammerrors"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
	"github.com/defistate/defistate-amm/slippage"
)

var (
	dai  = tokenregistry.Token{Address: common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Symbol: "DAI", Decimals: 18}
	usdc = tokenregistry.Token{Address: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Symbol: "USDC", Decimals: 6}
	weth = tokenregistry.Token{Address: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Symbol: "WETH", Decimals: 18}

	oneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func fromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("failed to set string for big.Int")
	}
	return n
}

// poolAtTick is a 0.3% DAI/WETH pool sitting exactly on tick with 1e21 active liquidity.
func poolAtTick(t *testing.T, tick int64) uniswapv3.Pool {
	sqrtPriceX96 := new(big.Int)
	require.NoError(t, tickmath.GetSqrtRatioAtTick(sqrtPriceX96, tick))
	return uniswapv3.Pool{
		Address:      common.HexToAddress("0xC2e9F25Be6257c210d7Adf0D4Cd6E3E881ba25f8"),
		Token0:       dai,
		Token1:       weth,
		Fee:          uniswapv3.FeeTier3000,
		TickSpacing:  60,
		Tick:         tick,
		SqrtPriceX96: sqrtPriceX96,
		Liquidity:    fromString("1000000000000000000000"),
	}
}

func TestFromAmount0_InRange(t *testing.T) {
	pool := poolAtTick(t, 100)
	r := uniswapv3.PriceRange{TickLower: -600, TickUpper: 1200}

	for _, fullPrecision := range []bool{true, false} {
		s, err := FromAmount0(pool, r, oneEther, fullPrecision, slippage.Default)
		require.NoError(t, err)
		assert.Equal(t, "18780975967638176369", s.Position.Liquidity.String())
		assert.Equal(t, "1000000000000000000", s.Amount0.String())
		assert.Equal(t, "649169702426272273", s.Amount1.String())
		assert.Equal(t, "945000000000000000", s.Amount0Min.String())
		assert.Equal(t, "613465368792827297", s.Amount1Min.String())
		assert.Equal(t, "18434753308776702", s.PoolShareWad.String())
		assert.False(t, s.OnlyToken0)
		assert.False(t, s.OnlyToken1)
		assert.Equal(t, r, s.Position.Range)
	}
}

func TestFromAmount1_InRange(t *testing.T) {
	s, err := FromAmount1(poolAtTick(t, 100), uniswapv3.PriceRange{TickLower: -600, TickUpper: 1200}, oneEther, slippage.Default)
	require.NoError(t, err)
	assert.Equal(t, "28930764786841197201", s.Position.Liquidity.String())
	assert.Equal(t, "1540429253340843257", s.Amount0.String())
	assert.Equal(t, "1000000000000000000", s.Amount1.String())
}

func TestFromAmounts_LimitingSide(t *testing.T) {
	pool := poolAtTick(t, 100)
	r := uniswapv3.PriceRange{TickLower: -600, TickUpper: 1200}

	// token0 limits: 1 DAI funds less liquidity than 1 WETH
	s, err := FromAmounts(pool, r, oneEther, oneEther, true, slippage.Default)
	require.NoError(t, err)
	assert.Equal(t, "18780975967638176369", s.Position.Liquidity.String())
	assert.Equal(t, "1000000000000000000", s.Amount0.String())
	assert.Equal(t, "649169702426272273", s.Amount1.String())
}

// Price at tick 0, range entirely below it: only token1 can fund the position.
func TestFromAmount1_RangeBelowPrice(t *testing.T) {
	pool := poolAtTick(t, 0)
	r := uniswapv3.PriceRange{TickLower: -100 * 60, TickUpper: -10 * 60}

	s, err := FromAmount1(pool, r, oneEther, slippage.Default)
	require.NoError(t, err)
	assert.False(t, s.OnlyToken0)
	assert.True(t, s.OnlyToken1)
	assert.Equal(t, "4355065781242110626", s.Position.Liquidity.String())
	assert.Zero(t, s.Amount0.Sign())
	assert.Equal(t, "1000000000000000000", s.Amount1.String())
	assert.Zero(t, s.PoolShareWad.Sign())

	_, err = FromAmount0(pool, r, oneEther, true, slippage.Default)
	assert.ErrorIs(t, err, ammerrors.ErrTokenNotRequired)
	_, err = FromAmounts(pool, r, oneEther, oneEther, true, slippage.Default)
	assert.ErrorIs(t, err, ammerrors.ErrTokenNotRequired)

	s, err = FromAmounts(pool, r, big.NewInt(0), oneEther, true, slippage.Default)
	require.NoError(t, err)
	assert.Equal(t, "4355065781242110626", s.Position.Liquidity.String())
}

func TestFromAmount0_RangeAbovePrice(t *testing.T) {
	pool := poolAtTick(t, 0)
	r := uniswapv3.PriceRange{TickLower: 600, TickUpper: 6000}

	s, err := FromAmount0(pool, r, oneEther, true, slippage.Default)
	require.NoError(t, err)
	assert.True(t, s.OnlyToken0)
	assert.False(t, s.OnlyToken1)
	assert.Equal(t, "4355065781242110626", s.Position.Liquidity.String())
	assert.Equal(t, "1000000000000000000", s.Amount0.String())
	assert.Zero(t, s.Amount1.Sign())

	_, err = FromAmount1(pool, r, oneEther, slippage.Default)
	assert.ErrorIs(t, err, ammerrors.ErrTokenNotRequired)
}

func TestSizing_Errors(t *testing.T) {
	pool := poolAtTick(t, 0)
	uninitialized := poolAtTick(t, 0)
	uninitialized.SqrtPriceX96 = big.NewInt(0)

	testCases := []struct {
		name string
		pool uniswapv3.Pool
		r    uniswapv3.PriceRange
		amt  *big.Int
		want error
	}{
		{"uninitialized pool", uninitialized, uniswapv3.PriceRange{TickLower: -60, TickUpper: 60}, oneEther, ammerrors.ErrPoolUninitialized},
		{"inverted range", pool, uniswapv3.PriceRange{TickLower: 60, TickUpper: -60}, oneEther, ammerrors.ErrInvalidRange},
		{"empty range", pool, uniswapv3.PriceRange{TickLower: 60, TickUpper: 60}, oneEther, ammerrors.ErrInvalidRange},
		{"misaligned range", pool, uniswapv3.PriceRange{TickLower: -50, TickUpper: 60}, oneEther, ammerrors.ErrInvalidRange},
		{"range beyond max tick", pool, uniswapv3.PriceRange{TickLower: 0, TickUpper: 887280}, oneEther, ammerrors.ErrTickOutOfRange},
		{"negative amount", pool, uniswapv3.PriceRange{TickLower: -60, TickUpper: 60}, big.NewInt(-1), ammerrors.ErrInvalidAmount},
		{"nil amount", pool, uniswapv3.PriceRange{TickLower: -60, TickUpper: 60}, nil, ammerrors.ErrInvalidAmount},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromAmount0(tc.pool, tc.r, tc.amt, true, slippage.Default)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFullRange(t *testing.T) {
	testCases := []struct {
		spacing      int64
		lower, upper int64
	}{
		{1, -887272, 887272},
		{10, -887270, 887270},
		{60, -887220, 887220},
		{200, -887200, 887200},
	}
	for _, tc := range testCases {
		r, err := FullRange(tc.spacing)
		require.NoError(t, err)
		wantLower, err := tickmath.NearestUsableTick(tickmath.MinTick, tc.spacing)
		require.NoError(t, err)
		wantUpper, err := tickmath.NearestUsableTick(tickmath.MaxTick, tc.spacing)
		require.NoError(t, err)
		assert.Equal(t, wantLower, r.TickLower)
		assert.Equal(t, wantUpper, r.TickUpper)
		assert.Equal(t, tc.lower, r.TickLower)
		assert.Equal(t, tc.upper, r.TickUpper)
	}

	_, err := FullRange(0)
	assert.ErrorIs(t, err, ammerrors.ErrInvalidTickSpacing)
}

func TestFullRange_SizesBothTokens(t *testing.T) {
	pool := poolAtTick(t, 0)
	r, err := FullRange(60)
	require.NoError(t, err)
	s, err := FromAmounts(pool, r, oneEther, oneEther, true, slippage.Default)
	require.NoError(t, err)
	assert.Positive(t, s.Amount0.Sign())
	assert.Positive(t, s.Amount1.Sign())
	assert.LessOrEqual(t, s.Amount0.Cmp(oneEther), 0)
	assert.LessOrEqual(t, s.Amount1.Cmp(oneEther), 0)
}

func randBetween(t *testing.T, lo, hi int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(hi-lo))
	require.NoError(t, err)
	return n.Int64() + lo
}

func randAmount(t *testing.T) *big.Int {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 96))
	require.NoError(t, err)
	return n.Add(n, big.NewInt(1))
}

// TestFromAmounts_NeverExceedsSupplied checks on random pools and ranges that
// the mint amounts of the limiting liquidity fit inside what was supplied,
// with and without the full-precision amount0 path.
func TestFromAmounts_NeverExceedsSupplied(t *testing.T) {
	for _, fullPrecision := range []bool{true, false} {
		t.Run(fmt.Sprintf("fullPrecision=%t", fullPrecision), func(t *testing.T) {
			for i := 0; i < 500; i++ {
				tick := randBetween(t, -100_000, 100_000)
				lower := randBetween(t, -2000, 2000) * 60
				upper := lower + randBetween(t, 1, 2000)*60
				pool := poolAtTick(t, tick)
				r := uniswapv3.PriceRange{TickLower: lower, TickUpper: upper}

				amount0, amount1 := randAmount(t), randAmount(t)
				regime, err := RegimeOf(pool, r)
				require.NoError(t, err)
				switch regime {
				case BelowRange:
					amount1.SetUint64(0)
				case AboveRange:
					amount0.SetUint64(0)
				}

				s, err := FromAmounts(pool, r, amount0, amount1, fullPrecision, slippage.Default)
				require.NoError(t, err)
				assert.LessOrEqual(t, s.Amount0.Cmp(amount0), 0, "amount0 %s > supplied %s", s.Amount0, amount0)
				assert.LessOrEqual(t, s.Amount1.Cmp(amount1), 0, "amount1 %s > supplied %s", s.Amount1, amount1)
				assert.Equal(t, regime == BelowRange, s.OnlyToken0)
				assert.Equal(t, regime == AboveRange, s.OnlyToken1)

				if regime != AboveRange {
					single, err := FromAmount0(pool, r, amount0, fullPrecision, slippage.Default)
					require.NoError(t, err)
					assert.LessOrEqual(t, single.Amount0.Cmp(amount0), 0, "single-sided amount0 %s > supplied %s", single.Amount0, amount0)
				}
			}
		})
	}
}
