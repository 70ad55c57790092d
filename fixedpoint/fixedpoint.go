// Package fixedpoint implements the full-precision integer arithmetic used by
// the pricing engines: 512-bit intermediate mulDiv, rounding-up variants, an
// integer square root and Q64.96 sqrt-ratio encoding.
//
// Functions write their result into dest and never modify their inputs.
package fixedpoint

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint/bitmath"
)

// Resolution is the number of fractional bits in a Q64.96 number.
const Resolution = uint(96)

var (
	// Q96 is 2^96, the Q64.96 representation of 1.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Q192 is 2^192, the square of Q96.
	Q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	MaxUint128 = maxUint(128)
	MaxUint160 = maxUint(160)
	MaxUint256 = maxUint(256)

	one = big.NewInt(1)
	ten = big.NewInt(10)

	// precomputed 10^dec for the supported token decimals (0..36)
	precomputedScales [37]*big.Int
)

func init() {
	precomputedScales[0] = big.NewInt(1)
	for i := 1; i < len(precomputedScales); i++ {
		precomputedScales[i] = new(big.Int).Mul(precomputedScales[i-1], ten)
	}
}

func maxUint(bits uint) *big.Int {
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
}

// operands holds the uint256 scratch values of a single mulDiv call.
type operands struct {
	a, b, d, z, rem uint256.Int
}

var operandsPool = sync.Pool{
	New: func() any {
		return new(operands)
	},
}

func (o *operands) load(a, b, d *big.Int) error {
	for _, x := range []*big.Int{a, b, d} {
		if x == nil || x.Sign() < 0 {
			return fmt.Errorf("%w: mulDiv operand %v", ammerrors.ErrInvalidAmount, x)
		}
	}
	if d.Sign() == 0 {
		return ammerrors.ErrDivisionByZero
	}
	if o.a.SetFromBig(a) || o.b.SetFromBig(b) || o.d.SetFromBig(d) {
		return fmt.Errorf("%w: mulDiv operand exceeds 256 bits", ammerrors.ErrOverflow)
	}
	return nil
}

// MulDiv writes floor(a*b/d) into dest. The product is kept at 512 bits so no
// precision is lost; the result itself must fit in 256 bits.
func MulDiv(dest, a, b, d *big.Int) error {
	o := operandsPool.Get().(*operands)
	defer operandsPool.Put(o)

	if err := o.load(a, b, d); err != nil {
		return err
	}
	if _, overflow := o.z.MulDivOverflow(&o.a, &o.b, &o.d); overflow {
		return fmt.Errorf("%w: mulDiv result exceeds 256 bits", ammerrors.ErrOverflow)
	}
	dest.Set(o.z.ToBig())
	return nil
}

// MulDivRoundingUp writes ceil(a*b/d) into dest.
func MulDivRoundingUp(dest, a, b, d *big.Int) error {
	o := operandsPool.Get().(*operands)
	defer operandsPool.Put(o)

	if err := o.load(a, b, d); err != nil {
		return err
	}
	if _, overflow := o.z.MulDivOverflow(&o.a, &o.b, &o.d); overflow {
		return fmt.Errorf("%w: mulDiv result exceeds 256 bits", ammerrors.ErrOverflow)
	}
	if !o.rem.MulMod(&o.a, &o.b, &o.d).IsZero() {
		if _, overflow := o.z.AddOverflow(&o.z, uint256.NewInt(1)); overflow {
			return fmt.Errorf("%w: rounding up past 2^256-1", ammerrors.ErrOverflow)
		}
	}
	dest.Set(o.z.ToBig())
	return nil
}

// DivRoundingUp writes ceil(a/b) into dest.
func DivRoundingUp(dest, a, b *big.Int) error {
	if a == nil || b == nil || a.Sign() < 0 || b.Sign() < 0 {
		return ammerrors.ErrInvalidAmount
	}
	if b.Sign() == 0 {
		return ammerrors.ErrDivisionByZero
	}
	rem := new(big.Int)
	dest.QuoRem(a, b, rem)
	if rem.Sign() > 0 {
		dest.Add(dest, one)
	}
	return nil
}

// Sqrt writes floor(sqrt(x)) into dest using Newton's method. The first guess
// 2^(msb/2+1) is always above the root, so the iteration decreases
// monotonically until it settles.
func Sqrt(dest, x *big.Int) error {
	if x == nil || x.Sign() < 0 {
		return ammerrors.ErrInvalidAmount
	}
	if x.Sign() == 0 {
		dest.SetUint64(0)
		return nil
	}
	msb, err := bitmath.MostSignificantBit(x)
	if err != nil {
		return err
	}

	guess := new(big.Int).Lsh(one, msb/2+1)
	next := new(big.Int)
	for {
		next.Quo(x, guess)
		next.Add(next, guess)
		next.Rsh(next, 1)
		if next.Cmp(guess) >= 0 {
			break
		}
		guess, next = next, guess
	}
	dest.Set(guess)
	return nil
}

// EncodeSqrtRatioX96 writes sqrt(amount1/amount0) as a Q64.96 number into
// dest, the sqrt price of a pool holding the two amounts in that ratio.
func EncodeSqrtRatioX96(dest, amount1, amount0 *big.Int) error {
	if amount0 == nil || amount1 == nil || amount0.Sign() < 0 || amount1.Sign() < 0 {
		return ammerrors.ErrInvalidAmount
	}
	if amount0.Sign() == 0 {
		return fmt.Errorf("%w: encodeSqrtRatioX96 with zero amount0", ammerrors.ErrDivisionByZero)
	}
	ratioX192 := new(big.Int).Lsh(amount1, 192)
	ratioX192.Quo(ratioX192, amount0)
	return Sqrt(dest, ratioX192)
}

// Pow10 returns 10^dec. The returned value is shared and MUST NOT be modified.
func Pow10(dec uint8) *big.Int {
	if int(dec) < len(precomputedScales) {
		return precomputedScales[dec]
	}
	return new(big.Int).Exp(ten, big.NewInt(int64(dec)), nil)
}

// Lsh96 writes x * 2^96 into dest.
func Lsh96(dest, x *big.Int) *big.Int {
	return dest.Lsh(x, Resolution)
}

// Rsh96 writes floor(x / 2^96) into dest.
func Rsh96(dest, x *big.Int) *big.Int {
	return dest.Rsh(x, Resolution)
}
