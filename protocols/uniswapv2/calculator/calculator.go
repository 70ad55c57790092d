package uniswapv2

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm/ammerrors"
	uniswapv2 "github.com/defistate/defistate-amm/protocols/uniswapv2"
)

var (
	// basisPointDivisor is a constant representing 100% in basis points (10000).
	basisPointDivisor = big.NewInt(10000)
	one               = big.NewInt(1)
)

// Calculator holds reusable big.Int objects to avoid memory allocations during calculations.
// Instances of this struct are NOT safe for concurrent use by themselves.
// They are intended to be managed by the sync.Pool below.
type Calculator struct {
	// Reusable objects for getAmountOut
	feeMultiplier   *big.Int
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int

	// Reusable objects for getAmountIn
	numeratorIn   *big.Int
	denominatorIn *big.Int

	// Reusable objects for simulateSwap
	newReserve0 *big.Int
	newReserve1 *big.Int
}

// calculatorPool manages a pool of Calculator objects, allowing for safe concurrent use
// and drastically reducing memory allocations.
var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			feeMultiplier:   new(big.Int),
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
			numeratorIn:     new(big.Int),
			denominatorIn:   new(big.Int),
			newReserve0:     new(big.Int),
			newReserve1:     new(big.Int),
		}
	},
}

// GetAmountOut returns the output of selling amountIn of tokenIn into pool.
func GetAmountOut(amountIn *big.Int, tokenIn common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, tokenIn, pool)
}

// GetAmountIn returns the input of tokenIn needed to buy amountOut of the other token.
func GetAmountIn(amountOut *big.Int, tokenIn common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountIn(amountOut, tokenIn, pool)
}

// SimulateSwap returns the output of an exact-input swap and the pool as it
// would be after the swap. The input pool is not modified.
func SimulateSwap(amountIn *big.Int, tokenIn common.Address, pool uniswapv2.Pool) (*big.Int, uniswapv2.Pool, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.simulateSwap(amountIn, tokenIn, pool)
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: nil amount", ammerrors.ErrInvalidAmount)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: %s", ammerrors.ErrInvalidAmount, amount)
	}
	return nil
}

func (c *Calculator) getAmountOut(amountIn *big.Int, tokenIn common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	if err := checkAmount(amountIn); err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := GetReserves(tokenIn, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool %s has a zero reserve", ammerrors.ErrPoolUninitialized, pool.Address.Hex())
	}
	if pool.FeeBps >= 10000 {
		return nil, fmt.Errorf("%w: %d bps", ammerrors.ErrInvalidFeeTier, pool.FeeBps)
	}

	// amountOut = amountIn * (10000 - fee) * reserveOut / (reserveIn * 10000 + amountIn * (10000 - fee))
	c.feeMultiplier.SetUint64(uint64(10000 - pool.FeeBps))
	c.amountInWithFee.Mul(amountIn, c.feeMultiplier)
	c.numerator.Mul(reserveOut, c.amountInWithFee)
	c.denominator.Mul(reserveIn, basisPointDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	return new(big.Int).Quo(c.numerator, c.denominator), nil
}

func (c *Calculator) getAmountIn(amountOut *big.Int, tokenIn common.Address, pool uniswapv2.Pool) (*big.Int, error) {
	if err := checkAmount(amountOut); err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := GetReserves(tokenIn, pool)
	if err != nil {
		return nil, err
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool %s has a zero reserve", ammerrors.ErrPoolUninitialized, pool.Address.Hex())
	}
	if pool.FeeBps >= 10000 {
		return nil, fmt.Errorf("%w: %d bps", ammerrors.ErrInvalidFeeTier, pool.FeeBps)
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", ammerrors.ErrInsufficientLiquidity, amountOut, reserveOut)
	}
	if amountOut.Sign() == 0 {
		return new(big.Int), nil
	}

	// amountIn = reserveIn * amountOut * 10000 / ((reserveOut - amountOut) * (10000 - fee)) + 1
	c.numeratorIn.Mul(reserveIn, amountOut)
	c.numeratorIn.Mul(c.numeratorIn, basisPointDivisor)
	c.feeMultiplier.SetUint64(uint64(10000 - pool.FeeBps))
	c.denominatorIn.Sub(reserveOut, amountOut)
	c.denominatorIn.Mul(c.denominatorIn, c.feeMultiplier)

	amountIn := new(big.Int).Quo(c.numeratorIn, c.denominatorIn)
	return amountIn.Add(amountIn, one), nil
}

func (c *Calculator) simulateSwap(amountIn *big.Int, tokenIn common.Address, pool uniswapv2.Pool) (*big.Int, uniswapv2.Pool, error) {
	amountOut, err := c.getAmountOut(amountIn, tokenIn, pool)
	if err != nil {
		return nil, uniswapv2.Pool{}, err
	}
	after := c.applySwap(pool, tokenIn, amountIn, amountOut)
	return amountOut, after, nil
}

// applySwap returns a copy of pool with amountIn added to the tokenIn reserve
// and amountOut removed from the other one.
func (c *Calculator) applySwap(pool uniswapv2.Pool, tokenIn common.Address, amountIn, amountOut *big.Int) uniswapv2.Pool {
	if tokenIn == pool.Token0.Address {
		c.newReserve0.Add(pool.Reserve0, amountIn)
		c.newReserve1.Sub(pool.Reserve1, amountOut)
	} else {
		c.newReserve1.Add(pool.Reserve1, amountIn)
		c.newReserve0.Sub(pool.Reserve0, amountOut)
	}
	after := pool
	after.Reserve0 = new(big.Int).Set(c.newReserve0)
	after.Reserve1 = new(big.Int).Set(c.newReserve1)
	return after
}

// GetReserves returns the reserves ordered for a swap that sells tokenIn.
// The returned values alias the pool's and MUST NOT be modified.
func GetReserves(tokenIn common.Address, pool uniswapv2.Pool) (reserveIn, reserveOut *big.Int, err error) {
	if pool.Reserve0 == nil || pool.Reserve1 == nil {
		return nil, nil, fmt.Errorf("%w: pool %s has nil reserves", ammerrors.ErrPoolUninitialized, pool.Address.Hex())
	}
	switch tokenIn {
	case pool.Token0.Address:
		return pool.Reserve0, pool.Reserve1, nil
	case pool.Token1.Address:
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: pool %s does not contain %s", ammerrors.ErrTokenMismatch, pool.Address.Hex(), tokenIn.Hex())
}
