package liquiditymath

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
)

var (
	ErrLiquidityOverflow  = fmt.Errorf("%w: liquidity exceeds uint128", ammerrors.ErrOverflow)
	ErrLiquidityUnderflow = fmt.Errorf("%w: liquidity below zero", ammerrors.ErrOverflow)
)

// AddDelta writes x + y into dest, where y is a signed liquidity delta and the
// result must stay within uint128.
func AddDelta(dest *big.Int, x *big.Int, y *big.Int) error {
	dest.Add(x, y)
	if dest.Sign() < 0 {
		return ErrLiquidityUnderflow
	}
	if dest.Cmp(fixedpoint.MaxUint128) > 0 {
		return ErrLiquidityOverflow
	}
	return nil
}

// ShareWad writes part / (active + part) scaled by 1e18 into dest, the share
// of the in-range liquidity a new position of size part would own.
func ShareWad(dest, active, part *big.Int) error {
	total := new(big.Int)
	if err := AddDelta(total, active, part); err != nil {
		return err
	}
	if total.Sign() == 0 {
		dest.SetUint64(0)
		return nil
	}
	return fixedpoint.MulDiv(dest, part, fixedpoint.Pow10(18), total)
}
