package uniswapv3

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/swapmath"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickbitmap"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
)

var (
	one = big.NewInt(1)

	// defaultLimitZeroForOne and defaultLimitOneForZero are the furthest
	// prices a swap may reach when the caller sets no limit.
	defaultLimitZeroForOne = new(big.Int).Add(tickmath.MinSqrtRatio, one)
	defaultLimitOneForZero = new(big.Int).Sub(tickmath.MaxSqrtRatio, one)
)

// swapState holds the inputs and results of one swap step. It is reused
// through swapStatePool to avoid allocations.
type swapState struct {
	amountSpecified *big.Int
	sqrtPriceX96    *big.Int
	targetPrice     *big.Int

	sqrtPriceNextX96 *big.Int
	stepAmountIn     *big.Int
	stepAmountOut    *big.Int
	stepFeeAmount    *big.Int
	consumed         *big.Int
}

// swapStatePool manages a pool of swapState objects for safe concurrent use.
var swapStatePool = sync.Pool{
	New: func() any {
		return &swapState{
			amountSpecified:  new(big.Int),
			sqrtPriceX96:     new(big.Int),
			targetPrice:      new(big.Int),
			sqrtPriceNextX96: new(big.Int),
			stepAmountIn:     new(big.Int),
			stepAmountOut:    new(big.Int),
			stepFeeAmount:    new(big.Int),
			consumed:         new(big.Int),
		}
	},
}

// stepResult is the outcome of a swap step, detached from the pooled state.
type stepResult struct {
	zeroForOne        bool
	amountIn          *big.Int // net of fee
	amountOut         *big.Int
	feeAmount         *big.Int
	sqrtPriceAfterX96 *big.Int
}

// gross returns the input including the LP fee.
func (r stepResult) gross() *big.Int {
	return new(big.Int).Add(r.amountIn, r.feeAmount)
}

// swap runs a single swap step at the pool's active liquidity. amountSpecified
// is positive for an exact input and negative for an exact output. The step
// never crosses an initialized tick, whether or not a price limit is set: if
// the amount does not fit before the target price, ErrInsufficientLiquidity
// is returned.
func swap(pool uniswapv3.Pool, tokenIn common.Address, amountSpecified, sqrtPriceLimitX96 *big.Int) (stepResult, error) {
	zeroForOne, err := pool.ZeroForOne(tokenIn)
	if err != nil {
		return stepResult{}, err
	}
	if err := pool.Validate(); err != nil {
		return stepResult{}, err
	}
	if !pool.Initialized() {
		return stepResult{}, fmt.Errorf("%w: pool %s has no price", ammerrors.ErrPoolUninitialized, pool.Address.Hex())
	}
	if pool.Liquidity.Sign() == 0 {
		return stepResult{}, fmt.Errorf("%w: pool %s has no active liquidity", ammerrors.ErrInsufficientLiquidity, pool.Address.Hex())
	}

	state := swapStatePool.Get().(*swapState)
	defer swapStatePool.Put(state)

	state.amountSpecified.Set(amountSpecified)
	state.sqrtPriceX96.Set(pool.SqrtPriceX96)
	if err := stepTarget(state.targetPrice, pool, zeroForOne, sqrtPriceLimitX96); err != nil {
		return stepResult{}, err
	}

	err = swapmath.ComputeSwapStep(
		state.sqrtPriceNextX96, state.stepAmountIn, state.stepAmountOut, state.stepFeeAmount,
		state.sqrtPriceX96,
		state.targetPrice,
		pool.Liquidity,
		state.amountSpecified,
		uint32(pool.Fee),
	)
	if err != nil {
		return stepResult{}, err
	}

	exactInput := state.amountSpecified.Sign() > 0
	if exactInput {
		state.consumed.Add(state.stepAmountIn, state.stepFeeAmount)
		if state.consumed.Cmp(state.amountSpecified) < 0 {
			return stepResult{}, fmt.Errorf("%w: only %s of %s fits before the next tick", ammerrors.ErrInsufficientLiquidity, state.consumed, state.amountSpecified)
		}
		if state.stepAmountOut.Sign() == 0 {
			return stepResult{}, fmt.Errorf("%w: input %s produces no output", ammerrors.ErrInsufficientLiquidity, state.amountSpecified)
		}
	} else {
		state.consumed.Neg(state.amountSpecified)
		if state.stepAmountOut.Cmp(state.consumed) < 0 {
			return stepResult{}, fmt.Errorf("%w: only %s of %s available before the next tick", ammerrors.ErrInsufficientLiquidity, state.stepAmountOut, state.consumed)
		}
	}

	return stepResult{
		zeroForOne:        zeroForOne,
		amountIn:          new(big.Int).Set(state.stepAmountIn),
		amountOut:         new(big.Int).Set(state.stepAmountOut),
		feeAmount:         new(big.Int).Set(state.stepFeeAmount),
		sqrtPriceAfterX96: new(big.Int).Set(state.sqrtPriceNextX96),
	}, nil
}

// stepTarget writes the price the step may move to: the nearest of the
// caller's limit and the next initialized tick in the swap direction. Without
// either it is the edge of the price space.
func stepTarget(dest *big.Int, pool uniswapv3.Pool, zeroForOne bool, sqrtPriceLimitX96 *big.Int) error {
	switch {
	case sqrtPriceLimitX96 == nil && zeroForOne:
		dest.Set(defaultLimitZeroForOne)
	case sqrtPriceLimitX96 == nil:
		dest.Set(defaultLimitOneForZero)
	case zeroForOne && (sqrtPriceLimitX96.Cmp(pool.SqrtPriceX96) >= 0 || sqrtPriceLimitX96.Cmp(tickmath.MinSqrtRatio) <= 0),
		!zeroForOne && (sqrtPriceLimitX96.Cmp(pool.SqrtPriceX96) <= 0 || sqrtPriceLimitX96.Cmp(tickmath.MaxSqrtRatio) >= 0):
		return fmt.Errorf("%w: limit %s on the wrong side of %s", ammerrors.ErrSqrtPriceOutOfRange, sqrtPriceLimitX96, pool.SqrtPriceX96)
	default:
		dest.Set(sqrtPriceLimitX96)
	}

	next, ok := tickbitmap.NextInitializedTick(pool.Ticks, pool.Tick, zeroForOne)
	if !ok {
		return nil
	}
	tickPrice := new(big.Int)
	if err := tickmath.GetSqrtRatioAtTick(tickPrice, next); err != nil {
		return err
	}
	if zeroForOne && tickPrice.Cmp(dest) > 0 || !zeroForOne && tickPrice.Cmp(dest) < 0 {
		dest.Set(tickPrice)
	}
	return nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: nil amount", ammerrors.ErrInvalidAmount)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: %s", ammerrors.ErrInvalidAmount, amount)
	}
	if amount.Cmp(fixedpoint.MaxUint256) > 0 {
		return fmt.Errorf("%w: amount exceeds 256 bits", ammerrors.ErrOverflow)
	}
	return nil
}

// GetAmountOut returns the output of selling amountIn of tokenIn within the
// current tick range. A nil sqrtPriceLimitX96 means no limit.
func GetAmountOut(amountIn, sqrtPriceLimitX96 *big.Int, tokenIn common.Address, pool uniswapv3.Pool) (*big.Int, error) {
	if err := checkAmount(amountIn); err != nil {
		return nil, err
	}
	if amountIn.Sign() == 0 {
		return new(big.Int), nil
	}
	res, err := swap(pool, tokenIn, amountIn, sqrtPriceLimitX96)
	if err != nil {
		return nil, err
	}
	return res.amountOut, nil
}

// GetAmountIn returns the input of tokenIn, fee included, needed to buy
// amountOut of the other token within the current tick range.
func GetAmountIn(amountOut, sqrtPriceLimitX96 *big.Int, tokenIn common.Address, pool uniswapv3.Pool) (*big.Int, error) {
	if err := checkAmount(amountOut); err != nil {
		return nil, err
	}
	if amountOut.Sign() == 0 {
		return new(big.Int), nil
	}
	res, err := swap(pool, tokenIn, new(big.Int).Neg(amountOut), sqrtPriceLimitX96)
	if err != nil {
		return nil, err
	}
	return res.gross(), nil
}

// SimulateExactInSwap returns the output of selling amountIn and the pool as
// it would be after the swap. The input pool is not modified.
func SimulateExactInSwap(amountIn, sqrtPriceLimitX96 *big.Int, tokenIn common.Address, pool uniswapv3.Pool) (*big.Int, uniswapv3.Pool, error) {
	if err := checkAmount(amountIn); err != nil {
		return nil, uniswapv3.Pool{}, err
	}
	if amountIn.Sign() == 0 {
		return new(big.Int), pool, nil
	}
	res, err := swap(pool, tokenIn, amountIn, sqrtPriceLimitX96)
	if err != nil {
		return nil, uniswapv3.Pool{}, err
	}
	after, err := poolAfter(pool, res.sqrtPriceAfterX96)
	if err != nil {
		return nil, uniswapv3.Pool{}, err
	}
	return res.amountOut, after, nil
}

func poolAfter(pool uniswapv3.Pool, sqrtPriceX96 *big.Int) (uniswapv3.Pool, error) {
	tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return uniswapv3.Pool{}, errors.Wrap(err, "tick after swap")
	}
	after := pool
	after.SqrtPriceX96 = new(big.Int).Set(sqrtPriceX96)
	after.Tick = tick
	after.Liquidity = new(big.Int).Set(pool.Liquidity)
	return after, nil
}

// GetVirtualReserves returns the constant-product reserves equivalent to the
// pool's active liquidity at its current price, ordered for selling tokenIn.
func GetVirtualReserves(tokenIn common.Address, pool uniswapv3.Pool) (reserveIn, reserveOut *big.Int, err error) {
	zeroForOne, err := pool.ZeroForOne(tokenIn)
	if err != nil {
		return nil, nil, err
	}
	if !pool.Initialized() {
		return nil, nil, fmt.Errorf("%w: pool %s has no price", ammerrors.ErrPoolUninitialized, pool.Address.Hex())
	}
	if pool.Liquidity == nil {
		return nil, nil, fmt.Errorf("%w: nil liquidity", ammerrors.ErrInvalidAmount)
	}

	// reserve0 = L * 2^96 / sqrtP, reserve1 = L * sqrtP / 2^96
	reserve0 := fixedpoint.Lsh96(new(big.Int), pool.Liquidity)
	reserve0.Quo(reserve0, pool.SqrtPriceX96)
	reserve1 := fixedpoint.Rsh96(new(big.Int), new(big.Int).Mul(pool.Liquidity, pool.SqrtPriceX96))

	if zeroForOne {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}
