package amm

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
)

// WadDecimals is the precision prices and shares are normalized to.
const WadDecimals = 18

var (
	// Wad is 1e18.
	Wad     = fixedpoint.Pow10(WadDecimals)
	halfWad = new(big.Int).Rsh(Wad, 1)
	tenK    = big.NewInt(10000)
)

// PriceWad returns amountOut/amountIn as a WAD after normalizing both amounts
// to 18 decimals, so tokens with different decimals compare correctly.
func PriceWad(amountOut, amountIn *big.Int, decimalsOut, decimalsIn uint8) (*big.Int, error) {
	if amountOut == nil || amountIn == nil || amountOut.Sign() < 0 || amountIn.Sign() < 0 {
		return nil, ammerrors.ErrInvalidAmount
	}
	if amountIn.Sign() == 0 {
		return nil, fmt.Errorf("%w: price with zero input", ammerrors.ErrDivisionByZero)
	}
	// out * 10^decIn * 1e18 / (in * 10^decOut)
	numerator := new(big.Int).Mul(amountOut, fixedpoint.Pow10(decimalsIn))
	numerator.Mul(numerator, Wad)
	denominator := new(big.Int).Mul(amountIn, fixedpoint.Pow10(decimalsOut))
	return numerator.Quo(numerator, denominator), nil
}

// SqrtPriceWad converts a Q64.96 sqrt price into the WAD price a trader sees:
// token1 per token0 when zeroForOne, token0 per token1 otherwise.
func SqrtPriceWad(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8, zeroForOne bool) (*big.Int, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return nil, fmt.Errorf("%w: zero sqrt price", ammerrors.ErrPoolUninitialized)
	}
	ratioX192 := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	if zeroForOne {
		return PriceWad(ratioX192, fixedpoint.Q192, decimals1, decimals0)
	}
	return PriceWad(fixedpoint.Q192, ratioX192, decimals0, decimals1)
}

// ImpactWad returns |reference - actual| / reference as a WAD. A zero
// reference yields zero.
func ImpactWad(reference, actual *big.Int) *big.Int {
	if reference == nil || actual == nil || reference.Sign() == 0 {
		return new(big.Int)
	}
	diff := new(big.Int).Sub(reference, actual)
	diff.Abs(diff)
	diff.Mul(diff, Wad)
	return diff.Quo(diff, reference)
}

// WadToBps converts a WAD fraction into basis points, rounding half up.
func WadToBps(wad *big.Int) uint32 {
	if wad == nil || wad.Sign() <= 0 {
		return 0
	}
	bps := new(big.Int).Mul(wad, tenK)
	bps.Add(bps, halfWad)
	bps.Quo(bps, Wad)
	if !bps.IsUint64() || bps.Uint64() > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(bps.Uint64())
}
