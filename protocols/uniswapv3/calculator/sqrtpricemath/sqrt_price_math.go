// Package sqrtpricemath computes token amount deltas between two Q64.96 sqrt
// prices and the sqrt price reached after adding or removing an amount at
// constant liquidity.
package sqrtpricemath

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
)

var (
	ErrLiquidityZero = fmt.Errorf("%w: liquidity must be greater than zero", ammerrors.ErrInsufficientLiquidity)
	ErrSqrtPriceZero = fmt.Errorf("%w: sqrt price must be greater than zero", ammerrors.ErrPoolUninitialized)
	// ErrPriceUnderflow is returned when an output amount would move the price to or past zero.
	ErrPriceUnderflow = fmt.Errorf("%w: output exceeds the reserves of the range", ammerrors.ErrInsufficientLiquidity)
)

// SqrtPriceMath holds the scratch values of one calculation.
type SqrtPriceMath struct {
	product     *big.Int
	numerator1  *big.Int
	numerator2  *big.Int
	denominator *big.Int
	quotient    *big.Int
	term        *big.Int
}

var pool = sync.Pool{
	New: func() any {
		return &SqrtPriceMath{
			product:     new(big.Int),
			numerator1:  new(big.Int),
			numerator2:  new(big.Int),
			denominator: new(big.Int),
			quotient:    new(big.Int),
			term:        new(big.Int),
		}
	},
}

// GetNextSqrtPriceFromAmount0RoundingUp writes the sqrt price reached by adding
// (add == true) or removing amount of token0, rounded up.
func GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount, add)
}

// GetNextSqrtPriceFromAmount1RoundingDown writes the sqrt price reached by
// adding (add == true) or removing amount of token1, rounded down.
func GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount, add)
}

// GetNextSqrtPriceFromInput writes the sqrt price after amountIn of the input
// token is added. The rounding never overshoots the target price.
func GetNextSqrtPriceFromInput(dest, sqrtPX96, liquidity, amountIn *big.Int, zeroForOne bool) error {
	if sqrtPX96.Sign() <= 0 {
		return ErrSqrtPriceZero
	}
	if liquidity.Sign() <= 0 {
		return ErrLiquidityZero
	}

	if zeroForOne {
		return GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amountIn, true)
	}
	return GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput writes the sqrt price after amountOut of the
// output token is removed.
func GetNextSqrtPriceFromOutput(dest, sqrtPX96, liquidity, amountOut *big.Int, zeroForOne bool) error {
	if sqrtPX96.Sign() <= 0 {
		return ErrSqrtPriceZero
	}
	if liquidity.Sign() <= 0 {
		return ErrLiquidityZero
	}

	if zeroForOne {
		return GetNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amountOut, false)
	}
	return GetNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amountOut, false)
}

// GetAmount0Delta writes liquidity / sqrtA - liquidity / sqrtB, the token0
// amount between the two prices. The prices may be passed in any order.
func GetAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
}

// GetAmount1Delta writes liquidity * (sqrtB - sqrtA), the token1 amount
// between the two prices. The prices may be passed in any order.
func GetAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	s := pool.Get().(*SqrtPriceMath)
	defer pool.Put(s)
	return s.getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity, roundUp)
}

func (s *SqrtPriceMath) getNextSqrtPriceFromAmount0RoundingUp(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	if amount.Sign() == 0 {
		dest.Set(sqrtPX96)
		return nil
	}

	s.numerator1.Lsh(liquidity, fixedpoint.Resolution)
	s.product.Mul(amount, sqrtPX96)

	if add {
		s.denominator.Add(s.numerator1, s.product)
		if s.product.BitLen() <= 256 && s.denominator.BitLen() <= 256 {
			if err := fixedpoint.MulDivRoundingUp(dest, s.numerator1, sqrtPX96, s.denominator); err != nil {
				return err
			}
			return checkUint160(dest)
		}
		// L / (L/sqrtP + amount), used when the product overflows
		s.denominator.Quo(s.numerator1, sqrtPX96)
		s.denominator.Add(s.denominator, amount)
		if err := fixedpoint.DivRoundingUp(dest, s.numerator1, s.denominator); err != nil {
			return err
		}
		return checkUint160(dest)
	}

	if s.product.BitLen() > 256 || s.numerator1.Cmp(s.product) <= 0 {
		return ErrPriceUnderflow
	}
	s.denominator.Sub(s.numerator1, s.product)
	if err := fixedpoint.MulDivRoundingUp(dest, s.numerator1, sqrtPX96, s.denominator); err != nil {
		return err
	}
	return checkUint160(dest)
}

func (s *SqrtPriceMath) getNextSqrtPriceFromAmount1RoundingDown(dest, sqrtPX96, liquidity, amount *big.Int, add bool) error {
	if add {
		if err := fixedpoint.MulDiv(s.quotient, amount, fixedpoint.Q96, liquidity); err != nil {
			return err
		}
		dest.Add(sqrtPX96, s.quotient)
		return checkUint160(dest)
	}

	if err := fixedpoint.MulDivRoundingUp(s.quotient, amount, fixedpoint.Q96, liquidity); err != nil {
		return err
	}
	if sqrtPX96.Cmp(s.quotient) <= 0 {
		return ErrPriceUnderflow
	}
	dest.Sub(sqrtPX96, s.quotient)
	return nil
}

func (s *SqrtPriceMath) getAmount0Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.Sign() <= 0 {
		return ErrSqrtPriceZero
	}

	s.numerator1.Lsh(liquidity, fixedpoint.Resolution)
	s.numerator2.Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		if err := fixedpoint.MulDivRoundingUp(s.term, s.numerator1, s.numerator2, sqrtRatioBX96); err != nil {
			return err
		}
		return fixedpoint.DivRoundingUp(dest, s.term, sqrtRatioAX96)
	}
	if err := fixedpoint.MulDiv(s.term, s.numerator1, s.numerator2, sqrtRatioBX96); err != nil {
		return err
	}
	dest.Quo(s.term, sqrtRatioAX96)
	return nil
}

func (s *SqrtPriceMath) getAmount1Delta(dest, sqrtRatioAX96, sqrtRatioBX96, liquidity *big.Int, roundUp bool) error {
	if sqrtRatioAX96.Cmp(sqrtRatioBX96) > 0 {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}

	s.numerator1.Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fixedpoint.MulDivRoundingUp(dest, liquidity, s.numerator1, fixedpoint.Q96)
	}
	return fixedpoint.MulDiv(dest, liquidity, s.numerator1, fixedpoint.Q96)
}

func checkUint160(x *big.Int) error {
	if x.Cmp(fixedpoint.MaxUint160) > 0 {
		return fmt.Errorf("%w: sqrt price exceeds 160 bits", ammerrors.ErrOverflow)
	}
	return nil
}
