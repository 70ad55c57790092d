package position

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
)

// maxPriceExponent bounds the decimal exponent of a price string. Anything
// beyond it is far outside the representable sqrt price range.
const maxPriceExponent = 100

// FullRange returns the widest range usable with tickSpacing.
func FullRange(tickSpacing int64) (uniswapv3.PriceRange, error) {
	lower, err := tickmath.NearestUsableTick(tickmath.MinTick, tickSpacing)
	if err != nil {
		return uniswapv3.PriceRange{}, err
	}
	upper, err := tickmath.NearestUsableTick(tickmath.MaxTick, tickSpacing)
	if err != nil {
		return uniswapv3.PriceRange{}, err
	}
	return uniswapv3.NewPriceRange(lower, upper, tickSpacing)
}

// RangeFromPrices converts a min and max price, given as decimal strings of
// token1 per token0 in whole units, into a range snapped to tickSpacing.
func RangeFromPrices(minPrice, maxPrice string, token0, token1 tokenregistry.Token, tickSpacing int64) (uniswapv3.PriceRange, error) {
	lowerPrice, err := parsePrice(minPrice)
	if err != nil {
		return uniswapv3.PriceRange{}, err
	}
	upperPrice, err := parsePrice(maxPrice)
	if err != nil {
		return uniswapv3.PriceRange{}, err
	}
	if lowerPrice.GreaterThanOrEqual(upperPrice) {
		return uniswapv3.PriceRange{}, fmt.Errorf("%w: min price %s >= max price %s", ammerrors.ErrInvalidRange, minPrice, maxPrice)
	}

	lower, err := TickAtPrice(lowerPrice, token0, token1, tickSpacing)
	if err != nil {
		return uniswapv3.PriceRange{}, err
	}
	upper, err := TickAtPrice(upperPrice, token0, token1, tickSpacing)
	if err != nil {
		return uniswapv3.PriceRange{}, err
	}
	if lower >= upper {
		return uniswapv3.PriceRange{}, fmt.Errorf("%w: prices %s and %s snap to the same tick %d", ammerrors.ErrInvalidRange, minPrice, maxPrice, lower)
	}
	return uniswapv3.NewPriceRange(lower, upper, tickSpacing)
}

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q", ammerrors.ErrInvalidRange, s)
	}
	if d.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q must be positive", ammerrors.ErrInvalidRange, s)
	}
	return d, nil
}

// TickAtPrice returns the usable tick nearest to price, a positive amount of
// token1 per whole token0.
func TickAtPrice(price decimal.Decimal, token0, token1 tokenregistry.Token, tickSpacing int64) (int64, error) {
	sqrtPriceX96, err := SqrtPriceAtPrice(price, token0, token1)
	if err != nil {
		return 0, err
	}
	tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return 0, err
	}
	return tickmath.NearestUsableTick(tick, tickSpacing)
}

// SqrtPriceAtPrice encodes a whole-unit price as a Q64.96 sqrt price of raw
// amounts. The decimal is converted exactly: price = coefficient * 10^exp,
// so raw1/raw0 = coefficient * 10^(exp + decimals1 - decimals0).
func SqrtPriceAtPrice(price decimal.Decimal, token0, token1 tokenregistry.Token) (*big.Int, error) {
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price %s must be positive", ammerrors.ErrInvalidRange, price)
	}
	exp := int64(price.Exponent()) + int64(token1.Decimals) - int64(token0.Decimals)
	if exp > maxPriceExponent || exp < -maxPriceExponent {
		return nil, fmt.Errorf("%w: price %s", ammerrors.ErrSqrtPriceOutOfRange, price)
	}

	amount1 := price.Coefficient()
	amount0 := big.NewInt(1)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(abs(exp)), nil)
	if exp >= 0 {
		amount1.Mul(amount1, scale)
	} else {
		amount0 = scale
	}

	sqrtPriceX96 := new(big.Int)
	if err := fixedpoint.EncodeSqrtRatioX96(sqrtPriceX96, amount1, amount0); err != nil {
		return nil, err
	}
	if sqrtPriceX96.Cmp(tickmath.MinSqrtRatio) < 0 || sqrtPriceX96.Cmp(tickmath.MaxSqrtRatio) >= 0 {
		return nil, fmt.Errorf("%w: price %s", ammerrors.ErrSqrtPriceOutOfRange, price)
	}
	return sqrtPriceX96, nil
}

// PriceAtTick returns the whole-unit price of token0 in token1 at tick,
// rounded to precision decimal places. It is meant for display.
func PriceAtTick(tick int64, token0, token1 tokenregistry.Token, precision int32) (decimal.Decimal, error) {
	sqrtPriceX96 := new(big.Int)
	if err := tickmath.GetSqrtRatioAtTick(sqrtPriceX96, tick); err != nil {
		return decimal.Decimal{}, err
	}
	return PriceAtSqrtPrice(sqrtPriceX96, token0, token1, precision)
}

// PriceAtSqrtPrice is PriceAtTick for a raw sqrt price.
func PriceAtSqrtPrice(sqrtPriceX96 *big.Int, token0, token1 tokenregistry.Token, precision int32) (decimal.Decimal, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: zero sqrt price", ammerrors.ErrPoolUninitialized)
	}
	// price = sqrtP^2 * 10^dec0 / (2^192 * 10^dec1)
	numerator := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	numerator.Mul(numerator, fixedpoint.Pow10(token0.Decimals))
	denominator := new(big.Int).Mul(fixedpoint.Q192, fixedpoint.Pow10(token1.Decimals))
	return decimal.NewFromBigInt(numerator, 0).DivRound(decimal.NewFromBigInt(denominator, 0), precision), nil
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
