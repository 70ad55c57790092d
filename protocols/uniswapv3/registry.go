package uniswapv3

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm/ammerrors"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
)

// FeeTier is a pool fee in hundredths of a bip (3000 == 0.3%).
type FeeTier uint32

const (
	FeeTier100   FeeTier = 100
	FeeTier500   FeeTier = 500
	FeeTier3000  FeeTier = 3000
	FeeTier10000 FeeTier = 10000
)

var tickSpacings = map[FeeTier]int64{
	FeeTier100:   1,
	FeeTier500:   10,
	FeeTier3000:  60,
	FeeTier10000: 200,
}

// ParseFeeTier validates a raw fee value.
func ParseFeeTier(fee uint64) (FeeTier, error) {
	if fee > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: %d", ammerrors.ErrInvalidFeeTier, fee)
	}
	tier := FeeTier(fee)
	if _, ok := tickSpacings[tier]; !ok {
		return 0, fmt.Errorf("%w: %d", ammerrors.ErrInvalidFeeTier, fee)
	}
	return tier, nil
}

// TickSpacing returns the tick spacing the factory enables for the tier.
func (f FeeTier) TickSpacing() (int64, error) {
	spacing, ok := tickSpacings[f]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ammerrors.ErrInvalidFeeTier, uint32(f))
	}
	return spacing, nil
}

// Percent renders the tier as a percentage string, e.g. "0.3%".
func (f FeeTier) Percent() string {
	return big.NewRat(int64(f), 10000).FloatString(2) + "%"
}

// TickInfo is an initialized tick of the pool.
type TickInfo struct {
	Index          int64    `json:"index"`
	LiquidityGross *big.Int `json:"liquidityGross"`
	LiquidityNet   *big.Int `json:"liquidityNet"`
}

// Pool is an immutable snapshot of a concentrated-liquidity pool: slot0,
// the active liquidity and optionally the initialized ticks sorted by index.
type Pool struct {
	Address      common.Address      `json:"address"`
	Token0       tokenregistry.Token `json:"token0"`
	Token1       tokenregistry.Token `json:"token1"`
	Fee          FeeTier             `json:"fee"`
	TickSpacing  int64               `json:"tickSpacing"`
	Tick         int64               `json:"tick"`
	SqrtPriceX96 *big.Int            `json:"sqrtPriceX96"`
	Liquidity    *big.Int            `json:"liquidity"`
	Ticks        []TickInfo          `json:"ticks,omitempty"`
}

// Spacing returns the pool's tick spacing, derived from the fee tier when the
// snapshot does not carry one.
func (p Pool) Spacing() (int64, error) {
	if p.TickSpacing > 0 {
		return p.TickSpacing, nil
	}
	if p.TickSpacing < 0 {
		return 0, fmt.Errorf("%w: %d", ammerrors.ErrInvalidTickSpacing, p.TickSpacing)
	}
	return p.Fee.TickSpacing()
}

// Initialized reports whether the pool has a non-zero sqrt price.
func (p Pool) Initialized() bool {
	return p.SqrtPriceX96 != nil && p.SqrtPriceX96.Sign() > 0
}

// Validate checks the snapshot's static invariants.
func (p Pool) Validate() error {
	if _, err := p.Fee.TickSpacing(); err != nil {
		return err
	}
	if _, err := p.Spacing(); err != nil {
		return err
	}
	if p.SqrtPriceX96 == nil || p.Liquidity == nil || p.SqrtPriceX96.Sign() < 0 || p.Liquidity.Sign() < 0 {
		return fmt.Errorf("%w: sqrt price and liquidity must be non-nil and non-negative", ammerrors.ErrInvalidAmount)
	}
	if p.Tick < tickmath.MinTick || p.Tick > tickmath.MaxTick {
		return fmt.Errorf("%w: pool tick %d", ammerrors.ErrTickOutOfRange, p.Tick)
	}
	if p.Initialized() {
		if err := p.validateTick(); err != nil {
			return err
		}
	}
	if err := ValidateTicks(p.Ticks); err != nil {
		return err
	}
	if err := p.Token0.Validate(); err != nil {
		return err
	}
	return p.Token1.Validate()
}

// validateTick checks that Tick is the tick of SqrtPriceX96. A price sitting
// exactly on a tick boundary may also carry the tick below it: that is where
// the pool leaves slot0 after a downward swap stops on the boundary.
func (p Pool) validateTick() error {
	tick, err := tickmath.GetTickAtSqrtRatio(p.SqrtPriceX96)
	if err != nil {
		return err
	}
	if p.Tick == tick {
		return nil
	}
	if p.Tick == tick-1 {
		boundary := new(big.Int)
		if err := tickmath.GetSqrtRatioAtTick(boundary, tick); err != nil {
			return err
		}
		if boundary.Cmp(p.SqrtPriceX96) == 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: tick %d does not match sqrt price %s (tick %d)", ammerrors.ErrInvalidSnapshot, p.Tick, p.SqrtPriceX96, tick)
}

// ValidateTicks checks that ticks are strictly ascending by index.
func ValidateTicks(ticks []TickInfo) error {
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Index <= ticks[i-1].Index {
			return fmt.Errorf("%w: ticks not strictly ascending at %d (%d after %d)",
				ammerrors.ErrInvalidSnapshot, i, ticks[i].Index, ticks[i-1].Index)
		}
	}
	return nil
}

// ZeroForOne reports the swap direction for selling tokenIn.
func (p Pool) ZeroForOne(tokenIn common.Address) (bool, error) {
	switch tokenIn {
	case p.Token0.Address:
		return true, nil
	case p.Token1.Address:
		return false, nil
	}
	return false, fmt.Errorf("%w: token %s is not in pool %s", ammerrors.ErrTokenMismatch, tokenIn.Hex(), p.Address.Hex())
}

// PriceRange is a position's tick interval [TickLower, TickUpper).
type PriceRange struct {
	TickLower int64 `json:"tickLower"`
	TickUpper int64 `json:"tickUpper"`
}

// NewPriceRange validates the interval against a tick spacing.
func NewPriceRange(tickLower, tickUpper, tickSpacing int64) (PriceRange, error) {
	r := PriceRange{TickLower: tickLower, TickUpper: tickUpper}
	return r, r.Validate(tickSpacing)
}

// Validate checks ordering, bounds and alignment of the range.
func (r PriceRange) Validate(tickSpacing int64) error {
	if tickSpacing <= 0 {
		return fmt.Errorf("%w: %d", ammerrors.ErrInvalidTickSpacing, tickSpacing)
	}
	if r.TickLower >= r.TickUpper {
		return fmt.Errorf("%w: tickLower %d >= tickUpper %d", ammerrors.ErrInvalidRange, r.TickLower, r.TickUpper)
	}
	if r.TickLower < tickmath.MinTick || r.TickUpper > tickmath.MaxTick {
		return fmt.Errorf("%w: [%d, %d]", ammerrors.ErrTickOutOfRange, r.TickLower, r.TickUpper)
	}
	if r.TickLower%tickSpacing != 0 || r.TickUpper%tickSpacing != 0 {
		return fmt.Errorf("%w: [%d, %d] not aligned to spacing %d", ammerrors.ErrInvalidRange, r.TickLower, r.TickUpper, tickSpacing)
	}
	return nil
}

// Contains reports whether tick lies inside the range, where the position is active.
func (r PriceRange) Contains(tick int64) bool {
	return tick >= r.TickLower && tick < r.TickUpper
}
