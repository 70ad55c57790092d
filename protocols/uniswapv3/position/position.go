// Package position sizes concentrated-liquidity positions: it converts what a
// liquidity provider wants to deposit into the liquidity of a range and the
// exact token amounts a mint would pull.
package position

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/ammerrors"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/liquidityamounts"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/liquiditymath"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
	"github.com/defistate/defistate-amm/slippage"
)

// Regime tells which tokens a range needs at the pool's current price.
type Regime uint8

const (
	// InRange positions need both tokens.
	InRange Regime = iota
	// BelowRange positions (price under the range) need only token0.
	BelowRange
	// AboveRange positions (price at or over the range) need only token1.
	AboveRange
)

func (r Regime) String() string {
	switch r {
	case InRange:
		return "inRange"
	case BelowRange:
		return "belowRange"
	case AboveRange:
		return "aboveRange"
	default:
		return "unknown"
	}
}

// bounds holds the three sqrt prices a sizing works with.
type bounds struct {
	price, lower, upper *big.Int
	regime              Regime
}

func resolve(pool uniswapv3.Pool, r uniswapv3.PriceRange) (bounds, error) {
	if err := pool.Validate(); err != nil {
		return bounds{}, err
	}
	if !pool.Initialized() {
		return bounds{}, fmt.Errorf("%w: pool %s has no price", ammerrors.ErrPoolUninitialized, pool.Address.Hex())
	}
	spacing, err := pool.Spacing()
	if err != nil {
		return bounds{}, err
	}
	if err := r.Validate(spacing); err != nil {
		return bounds{}, err
	}

	b := bounds{price: pool.SqrtPriceX96, lower: new(big.Int), upper: new(big.Int)}
	if err := tickmath.GetSqrtRatioAtTick(b.lower, r.TickLower); err != nil {
		return bounds{}, err
	}
	if err := tickmath.GetSqrtRatioAtTick(b.upper, r.TickUpper); err != nil {
		return bounds{}, err
	}
	switch {
	case b.price.Cmp(b.lower) <= 0:
		b.regime = BelowRange
	case b.price.Cmp(b.upper) >= 0:
		b.regime = AboveRange
	default:
		b.regime = InRange
	}
	return b, nil
}

// RegimeOf reports which tokens r needs at pool's current price.
func RegimeOf(pool uniswapv3.Pool, r uniswapv3.PriceRange) (Regime, error) {
	b, err := resolve(pool, r)
	if err != nil {
		return 0, err
	}
	return b.regime, nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: %v", ammerrors.ErrInvalidAmount, amount)
	}
	return nil
}

// FromAmount0 sizes a position funded by amount0. The token1 amount is
// derived at the current price. A range above the price needs no token0 and
// yields ErrTokenNotRequired.
func FromAmount0(pool uniswapv3.Pool, r uniswapv3.PriceRange, amount0 *big.Int, useFullPrecision bool, tolerance slippage.Tolerance) (amm.Sizing, error) {
	if err := checkAmount(amount0); err != nil {
		return amm.Sizing{}, err
	}
	b, err := resolve(pool, r)
	if err != nil {
		return amm.Sizing{}, err
	}
	if b.regime == AboveRange {
		return amm.Sizing{}, fmt.Errorf("%w: token0 for range [%d, %d] above the price", ammerrors.ErrTokenNotRequired, r.TickLower, r.TickUpper)
	}

	lower := b.lower
	if b.regime == InRange {
		lower = b.price
	}
	liquidity := new(big.Int)
	if err := liquidityamounts.GetLiquidityForAmount0(liquidity, lower, b.upper, amount0, useFullPrecision); err != nil {
		return amm.Sizing{}, err
	}
	return size(pool, r, b, liquidity, tolerance)
}

// FromAmount1 sizes a position funded by amount1. A range below the price
// needs no token1 and yields ErrTokenNotRequired.
func FromAmount1(pool uniswapv3.Pool, r uniswapv3.PriceRange, amount1 *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	if err := checkAmount(amount1); err != nil {
		return amm.Sizing{}, err
	}
	b, err := resolve(pool, r)
	if err != nil {
		return amm.Sizing{}, err
	}
	if b.regime == BelowRange {
		return amm.Sizing{}, fmt.Errorf("%w: token1 for range [%d, %d] below the price", ammerrors.ErrTokenNotRequired, r.TickLower, r.TickUpper)
	}

	upper := b.upper
	if b.regime == InRange {
		upper = b.price
	}
	liquidity := new(big.Int)
	if err := liquidityamounts.GetLiquidityForAmount1(liquidity, b.lower, upper, amount1); err != nil {
		return amm.Sizing{}, err
	}
	return size(pool, r, b, liquidity, tolerance)
}

// FromAmounts sizes the largest position both amounts can fund. The smaller
// of the two single-sided liquidities wins, so neither amount is exceeded.
// Out of range, a non-zero amount of the unused token yields
// ErrTokenNotRequired.
func FromAmounts(pool uniswapv3.Pool, r uniswapv3.PriceRange, amount0, amount1 *big.Int, useFullPrecision bool, tolerance slippage.Tolerance) (amm.Sizing, error) {
	if err := checkAmount(amount0); err != nil {
		return amm.Sizing{}, err
	}
	if err := checkAmount(amount1); err != nil {
		return amm.Sizing{}, err
	}
	b, err := resolve(pool, r)
	if err != nil {
		return amm.Sizing{}, err
	}
	switch {
	case b.regime == BelowRange && amount1.Sign() > 0:
		return amm.Sizing{}, fmt.Errorf("%w: token1 for range [%d, %d] below the price", ammerrors.ErrTokenNotRequired, r.TickLower, r.TickUpper)
	case b.regime == AboveRange && amount0.Sign() > 0:
		return amm.Sizing{}, fmt.Errorf("%w: token0 for range [%d, %d] above the price", ammerrors.ErrTokenNotRequired, r.TickLower, r.TickUpper)
	}

	liquidity := new(big.Int)
	if err := liquidityamounts.GetLiquidityForAmounts(liquidity, b.price, b.lower, b.upper, amount0, amount1, useFullPrecision); err != nil {
		return amm.Sizing{}, err
	}
	return size(pool, r, b, liquidity, tolerance)
}

// size derives the mint amounts, slippage minimums and pool share of a
// position with the given liquidity.
func size(pool uniswapv3.Pool, r uniswapv3.PriceRange, b bounds, liquidity *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	s := amm.Sizing{
		Position:     amm.Position{Range: r, Liquidity: liquidity},
		Amount0:      new(big.Int),
		Amount1:      new(big.Int),
		OnlyToken0:   b.regime == BelowRange,
		OnlyToken1:   b.regime == AboveRange,
		PoolShareWad: new(big.Int),
	}
	if err := liquidityamounts.GetAmountsForLiquidity(s.Amount0, s.Amount1, b.price, b.lower, b.upper, liquidity, true); err != nil {
		return amm.Sizing{}, err
	}

	if tolerance == 0 {
		tolerance = slippage.Default
	}
	var err error
	if s.Amount0Min, err = tolerance.MinimumReceived(s.Amount0); err != nil {
		return amm.Sizing{}, err
	}
	if s.Amount1Min, err = tolerance.MinimumReceived(s.Amount1); err != nil {
		return amm.Sizing{}, err
	}

	// out-of-range positions earn nothing until the price re-enters
	if b.regime == InRange && pool.Liquidity != nil {
		if err := liquiditymath.ShareWad(s.PoolShareWad, pool.Liquidity, liquidity); err != nil {
			return amm.Sizing{}, err
		}
	}
	return s, nil
}
