// Package liquidityamounts converts between token amounts and the liquidity of
// a position spanning [sqrtRatioA, sqrtRatioB].
package liquidityamounts

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/sqrtpricemath"
)

func sorted(a, b *big.Int) (*big.Int, *big.Int, error) {
	if a.Cmp(b) > 0 {
		a, b = b, a
	}
	if a.Sign() <= 0 || a.Cmp(b) == 0 {
		return nil, nil, fmt.Errorf("%w: sqrt ratios %s and %s", ammerrors.ErrInvalidRange, a, b)
	}
	return a, b, nil
}

// GetLiquidityForAmount0 writes amount0 * (sqrtA*sqrtB/Q96) / (sqrtB - sqrtA)
// into dest. With fullPrecision the intermediate product is not truncated:
// amount0 * sqrtA * sqrtB / (Q96 * (sqrtB - sqrtA)).
func GetLiquidityForAmount0(dest, sqrtRatioAX96, sqrtRatioBX96, amount0 *big.Int, fullPrecision bool) error {
	sqrtA, sqrtB, err := sorted(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return err
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)

	if fullPrecision {
		numerator := new(big.Int).Mul(amount0, sqrtA)
		numerator.Mul(numerator, sqrtB)
		denominator := diff.Mul(diff, fixedpoint.Q96)
		dest.Quo(numerator, denominator)
		return checkUint128(dest)
	}

	intermediate := new(big.Int)
	if err := fixedpoint.MulDiv(intermediate, sqrtA, sqrtB, fixedpoint.Q96); err != nil {
		return err
	}
	if err := fixedpoint.MulDiv(dest, amount0, intermediate, diff); err != nil {
		return err
	}
	return checkUint128(dest)
}

// GetLiquidityForAmount1 writes amount1 * Q96 / (sqrtB - sqrtA) into dest.
func GetLiquidityForAmount1(dest, sqrtRatioAX96, sqrtRatioBX96, amount1 *big.Int) error {
	sqrtA, sqrtB, err := sorted(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return err
	}
	if err := fixedpoint.MulDiv(dest, amount1, fixedpoint.Q96, new(big.Int).Sub(sqrtB, sqrtA)); err != nil {
		return err
	}
	return checkUint128(dest)
}

// GetLiquidityForAmounts writes the largest liquidity that both amounts can
// fund at the current price sqrtRatioX96.
func GetLiquidityForAmounts(dest, sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *big.Int, fullPrecision bool) error {
	sqrtA, sqrtB, err := sorted(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return err
	}

	switch {
	case sqrtRatioX96.Cmp(sqrtA) <= 0:
		return GetLiquidityForAmount0(dest, sqrtA, sqrtB, amount0, fullPrecision)
	case sqrtRatioX96.Cmp(sqrtB) < 0:
		liquidity0, liquidity1 := new(big.Int), new(big.Int)
		if err := GetLiquidityForAmount0(liquidity0, sqrtRatioX96, sqrtB, amount0, fullPrecision); err != nil {
			return err
		}
		if err := GetLiquidityForAmount1(liquidity1, sqrtA, sqrtRatioX96, amount1); err != nil {
			return err
		}
		if liquidity0.Cmp(liquidity1) < 0 {
			dest.Set(liquidity0)
		} else {
			dest.Set(liquidity1)
		}
		return nil
	default:
		return GetLiquidityForAmount1(dest, sqrtA, sqrtB, amount1)
	}
}

// GetAmountsForLiquidity writes the token amounts backing liquidity at the
// current price. With roundUp the amounts are what a mint would pull.
func GetAmountsForLiquidity(amount0, amount1, sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	sqrtA, sqrtB, err := sorted(sqrtRatioAX96, sqrtRatioBX96)
	if err != nil {
		return err
	}
	amount0.SetUint64(0)
	amount1.SetUint64(0)

	switch {
	case sqrtRatioX96.Cmp(sqrtA) <= 0:
		return sqrtpricemath.GetAmount0Delta(amount0, sqrtA, sqrtB, liquidity, roundUp)
	case sqrtRatioX96.Cmp(sqrtB) < 0:
		if err := sqrtpricemath.GetAmount0Delta(amount0, sqrtRatioX96, sqrtB, liquidity, roundUp); err != nil {
			return err
		}
		return sqrtpricemath.GetAmount1Delta(amount1, sqrtA, sqrtRatioX96, liquidity, roundUp)
	default:
		return sqrtpricemath.GetAmount1Delta(amount1, sqrtA, sqrtB, liquidity, roundUp)
	}
}

func checkUint128(x *big.Int) error {
	if x.Cmp(fixedpoint.MaxUint128) > 0 {
		return fmt.Errorf("%w: liquidity exceeds uint128", ammerrors.ErrOverflow)
	}
	return nil
}
