// Package slippage bounds what a trader accepts between quote and settlement.
package slippage

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
)

const (
	// Denominator is 100% in basis points.
	Denominator = 10000
	// MaxTolerance is the largest tolerance a user may choose (50%).
	MaxTolerance = 5000
	// Default is the tolerance used when none, or an invalid one, is configured (5.5%).
	Default Tolerance = 550
)

var denominator = big.NewInt(Denominator)

// Tolerance is a validated slippage tolerance in basis points, in (0, MaxTolerance].
type Tolerance uint32

// New validates bps as a tolerance.
func New(bps int64) (Tolerance, error) {
	if bps <= 0 || bps > MaxTolerance {
		return 0, fmt.Errorf("%w: %d bps not in (0, %d]", ammerrors.ErrInvalidSlippage, bps, MaxTolerance)
	}
	return Tolerance(bps), nil
}

// FromBps returns bps as a tolerance, or fallback when bps is out of range.
// Out-of-range values are replaced, never clamped.
func FromBps(bps int64, fallback Tolerance) Tolerance {
	t, err := New(bps)
	if err != nil {
		return fallback
	}
	return t
}

// ParsePercent parses a user-entered percentage such as "0.5" or "5.5%".
// The value must be a whole number of basis points.
func ParsePercent(percent string) (Tolerance, error) {
	s := strings.TrimSuffix(strings.TrimSpace(percent), "%")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ammerrors.ErrInvalidSlippage, percent)
	}
	bps := d.Shift(2)
	if !bps.Equal(bps.Truncate(0)) || !bps.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %q is not a whole number of basis points", ammerrors.ErrInvalidSlippage, percent)
	}
	return New(bps.IntPart())
}

// Parse is ParsePercent with unparseable or out-of-range input replaced by fallback.
func Parse(percent string, fallback Tolerance) Tolerance {
	t, err := ParsePercent(percent)
	if err != nil {
		return fallback
	}
	return t
}

// Bps returns the tolerance in basis points.
func (t Tolerance) Bps() uint32 {
	return uint32(t)
}

// Percent renders the tolerance as a percentage, e.g. "5.5%".
func (t Tolerance) Percent() string {
	return decimal.New(int64(t), -2).String() + "%"
}

// MinimumReceived is MinimumReceived(amountOut, t.Bps()).
func (t Tolerance) MinimumReceived(amountOut *big.Int) (*big.Int, error) {
	return MinimumReceived(amountOut, t.Bps())
}

// MaximumInput is MaximumInput(amountIn, t.Bps()).
func (t Tolerance) MaximumInput(amountIn *big.Int) (*big.Int, error) {
	return MaximumInput(amountIn, t.Bps())
}

// MinimumReceived returns amountOut * (10000 - bps) / 10000, rounded down.
func MinimumReceived(amountOut *big.Int, bps uint32) (*big.Int, error) {
	if err := checkArgs(amountOut, bps); err != nil {
		return nil, err
	}
	factor := big.NewInt(int64(Denominator - bps))
	out := new(big.Int)
	if err := fixedpoint.MulDiv(out, amountOut, factor, denominator); err != nil {
		return nil, err
	}
	return out, nil
}

// MaximumInput returns amountIn * (10000 + bps) / 10000, rounded up.
func MaximumInput(amountIn *big.Int, bps uint32) (*big.Int, error) {
	if err := checkArgs(amountIn, bps); err != nil {
		return nil, err
	}
	factor := big.NewInt(int64(Denominator + bps))
	in := new(big.Int)
	if err := fixedpoint.MulDivRoundingUp(in, amountIn, factor, denominator); err != nil {
		return nil, err
	}
	return in, nil
}

func checkArgs(amount *big.Int, bps uint32) error {
	if amount == nil || amount.Sign() < 0 {
		return ammerrors.ErrInvalidAmount
	}
	if bps > Denominator {
		return fmt.Errorf("%w: %d bps exceeds 100%%", ammerrors.ErrInvalidSlippage, bps)
	}
	return nil
}
