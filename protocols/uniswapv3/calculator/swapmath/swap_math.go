// Package swapmath computes a single swap step at constant liquidity: the
// price reached, the amounts exchanged and the LP fee taken from the input.
package swapmath

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/sqrtpricemath"
)

// FeeDenominator is 100% in hundredths of a bip.
const FeeDenominator = 1_000_000

var feeDenominator = big.NewInt(FeeDenominator)

// SwapMath holds the scratch values of one step.
type SwapMath struct {
	sqrtRatioNextX96 *big.Int
	amountIn         *big.Int
	amountOut        *big.Int
	feeAmount        *big.Int

	fee                    *big.Int
	feeComplement          *big.Int
	amountRemainingLessFee *big.Int
	amountRemainingAbs     *big.Int
}

var swapMathPool = sync.Pool{
	New: func() any {
		return &SwapMath{
			sqrtRatioNextX96:       new(big.Int),
			amountIn:               new(big.Int),
			amountOut:              new(big.Int),
			feeAmount:              new(big.Int),
			fee:                    new(big.Int),
			feeComplement:          new(big.Int),
			amountRemainingLessFee: new(big.Int),
			amountRemainingAbs:     new(big.Int),
		}
	},
}

// ComputeSwapStep swaps amountRemaining from sqrtRatioCurrentX96 toward
// sqrtRatioTargetX96 at constant liquidity. A non-negative amountRemaining is
// an exact input (fee included), a negative one an exact output. The
// direction is implied by the two prices: zeroForOne when current >= target.
//
// The four results are written into the destination pointers; the step stops
// at the target when the amount is more than the range can absorb.
func ComputeSwapStep(
	sqrtRatioNextX96 *big.Int,
	amountIn *big.Int,
	amountOut *big.Int,
	feeAmount *big.Int,

	sqrtRatioCurrentX96 *big.Int,
	sqrtRatioTargetX96 *big.Int,
	liquidity *big.Int,
	amountRemaining *big.Int,
	feePips uint32,
) error {
	if feePips >= FeeDenominator {
		return fmt.Errorf("%w: fee %d pips", ammerrors.ErrInvalidFeeTier, feePips)
	}

	s := swapMathPool.Get().(*SwapMath)
	defer swapMathPool.Put(s)

	if err := s.computeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining, feePips); err != nil {
		return err
	}

	sqrtRatioNextX96.Set(s.sqrtRatioNextX96)
	amountIn.Set(s.amountIn)
	amountOut.Set(s.amountOut)
	feeAmount.Set(s.feeAmount)
	return nil
}

func (s *SwapMath) computeSwapStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *big.Int, feePips uint32,
) error {
	zeroForOne := sqrtRatioCurrentX96.Cmp(sqrtRatioTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0

	s.amountIn.SetInt64(0)
	s.amountOut.SetInt64(0)
	s.feeAmount.SetInt64(0)
	s.fee.SetUint64(uint64(feePips))
	s.feeComplement.Sub(feeDenominator, s.fee)

	if exactIn {
		if err := fixedpoint.MulDiv(s.amountRemainingLessFee, amountRemaining, s.feeComplement, feeDenominator); err != nil {
			return err
		}
		if err := s.inputToTarget(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, zeroForOne); err != nil {
			return err
		}
		if s.amountRemainingLessFee.Cmp(s.amountIn) >= 0 {
			s.sqrtRatioNextX96.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromInput(s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, s.amountRemainingLessFee, zeroForOne); err != nil {
			return err
		}
	} else {
		s.amountRemainingAbs.Neg(amountRemaining)
		if err := s.outputToTarget(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, zeroForOne); err != nil {
			return err
		}
		if s.amountRemainingAbs.Cmp(s.amountOut) >= 0 {
			s.sqrtRatioNextX96.Set(sqrtRatioTargetX96)
		} else if err := sqrtpricemath.GetNextSqrtPriceFromOutput(s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, s.amountRemainingAbs, zeroForOne); err != nil {
			return err
		}
	}

	reachedTarget := sqrtRatioTargetX96.Cmp(s.sqrtRatioNextX96) == 0

	// recompute the amounts for the price actually reached
	if zeroForOne {
		if !(reachedTarget && exactIn) {
			if err := sqrtpricemath.GetAmount0Delta(s.amountIn, s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return err
			}
		}
		if !(reachedTarget && !exactIn) {
			if err := sqrtpricemath.GetAmount1Delta(s.amountOut, s.sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false); err != nil {
				return err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			if err := sqrtpricemath.GetAmount1Delta(s.amountIn, sqrtRatioCurrentX96, s.sqrtRatioNextX96, liquidity, true); err != nil {
				return err
			}
		}
		if !(reachedTarget && !exactIn) {
			if err := sqrtpricemath.GetAmount0Delta(s.amountOut, sqrtRatioCurrentX96, s.sqrtRatioNextX96, liquidity, false); err != nil {
				return err
			}
		}
	}

	if !exactIn && s.amountOut.Cmp(s.amountRemainingAbs) > 0 {
		s.amountOut.Set(s.amountRemainingAbs)
	}

	if exactIn && !reachedTarget {
		// the remainder of the input is kept as fee
		s.feeAmount.Sub(amountRemaining, s.amountIn)
		return nil
	}
	return fixedpoint.MulDivRoundingUp(s.feeAmount, s.amountIn, s.fee, s.feeComplement)
}

// inputToTarget writes the input needed to move the price all the way to the target.
func (s *SwapMath) inputToTarget(current, target, liquidity *big.Int, zeroForOne bool) error {
	if zeroForOne {
		return sqrtpricemath.GetAmount0Delta(s.amountIn, target, current, liquidity, true)
	}
	return sqrtpricemath.GetAmount1Delta(s.amountIn, current, target, liquidity, true)
}

// outputToTarget writes the output released by moving the price to the target.
func (s *SwapMath) outputToTarget(current, target, liquidity *big.Int, zeroForOne bool) error {
	if zeroForOne {
		return sqrtpricemath.GetAmount1Delta(s.amountOut, target, current, liquidity, false)
	}
	return sqrtpricemath.GetAmount0Delta(s.amountOut, current, target, liquidity, false)
}
