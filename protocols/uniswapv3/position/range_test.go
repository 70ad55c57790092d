package position

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm/ammerrors"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
)

func TestRangeFromPrices(t *testing.T) {
	testCases := []struct {
		name           string
		minPrice       string
		maxPrice       string
		token0, token1 tokenregistry.Token
		spacing        int64
		want           uniswapv3.PriceRange
	}{
		{"equal decimals", "0.5", "2", dai, weth, 60, uniswapv3.PriceRange{TickLower: -6960, TickUpper: 6960}},
		{"usdc per weth scaled by decimals", "0.0005", "0.0025", usdc, weth, 10, uniswapv3.PriceRange{TickLower: 200310, TickUpper: 216410}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := RangeFromPrices(tc.minPrice, tc.maxPrice, tc.token0, tc.token1, tc.spacing)
			require.NoError(t, err)
			assert.Equal(t, tc.want, r)
		})
	}
}

func TestRangeFromPrices_Errors(t *testing.T) {
	testCases := []struct {
		name     string
		min, max string
		want     error
	}{
		{"min equals max", "1", "1", ammerrors.ErrInvalidRange},
		{"min above max", "2", "1", ammerrors.ErrInvalidRange},
		{"snaps to one tick", "1", "1.0001", ammerrors.ErrInvalidRange},
		{"not a number", "abc", "2", ammerrors.ErrInvalidRange},
		{"zero price", "0", "2", ammerrors.ErrInvalidRange},
		{"negative price", "-1", "2", ammerrors.ErrInvalidRange},
		{"beyond max sqrt price", "1", "1e60", ammerrors.ErrSqrtPriceOutOfRange},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := RangeFromPrices(tc.min, tc.max, dai, weth, 60)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSqrtPriceAtPrice_One(t *testing.T) {
	sqrtPriceX96, err := SqrtPriceAtPrice(decimal.NewFromInt(1), dai, weth)
	require.NoError(t, err)
	tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tick)
}

func TestPriceAtTick_RoundTrip(t *testing.T) {
	for _, tick := range []int64{-6960, -60, 0, 60, 6960, 200310} {
		price, err := PriceAtTick(tick, usdc, weth, 30)
		require.NoError(t, err)
		back, err := TickAtPrice(price, usdc, weth, 10)
		require.NoError(t, err)
		assert.Equal(t, tick, back, "tick %d priced at %s", tick, price)
	}

	price, err := PriceAtTick(0, dai, weth, 6)
	require.NoError(t, err)
	assert.Equal(t, "1", price.String())
}
