package uniswapv3

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"

	"github.com/defistate/defistate-amm/amm"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
	"github.com/defistate/defistate-amm/slippage"
)

// QuoteExactInput quotes selling amountIn of tokenIn into pool within its
// current tick range. A nil sqrtPriceLimitX96 means no limit; a zero
// tolerance selects slippage.Default.
//
// The swap stops at the nearer of the limit and the next initialized tick.
// When the price sits exactly on an initialized tick and the swap moves down
// (token0 in), that tick is the boundary, so any non-zero input yields
// ErrInsufficientLiquidity until the snapshot reflects the crossing.
func QuoteExactInput(pool uniswapv3.Pool, tokenIn common.Address, amountIn, sqrtPriceLimitX96 *big.Int, tolerance slippage.Tolerance) (amm.SwapQuote, error) {
	if err := checkAmount(amountIn); err != nil {
		return amm.SwapQuote{}, err
	}
	if amountIn.Sign() == 0 {
		return zeroQuote(pool, tokenIn, amm.ExactInput)
	}
	res, err := swap(pool, tokenIn, amountIn, sqrtPriceLimitX96)
	if err != nil {
		return amm.SwapQuote{}, errors.Wrap(err, "quote exact input")
	}
	q, err := buildQuote(pool, res, amm.ExactInput)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	if q.MinimumReceived, err = orDefault(tolerance).MinimumReceived(q.AmountOut); err != nil {
		return amm.SwapQuote{}, err
	}
	return q, nil
}

// QuoteExactOutput quotes buying amountOut of the token paired with tokenIn
// within the pool's current tick range.
func QuoteExactOutput(pool uniswapv3.Pool, tokenIn common.Address, amountOut, sqrtPriceLimitX96 *big.Int, tolerance slippage.Tolerance) (amm.SwapQuote, error) {
	if err := checkAmount(amountOut); err != nil {
		return amm.SwapQuote{}, err
	}
	if amountOut.Sign() == 0 {
		return zeroQuote(pool, tokenIn, amm.ExactOutput)
	}
	res, err := swap(pool, tokenIn, new(big.Int).Neg(amountOut), sqrtPriceLimitX96)
	if err != nil {
		return amm.SwapQuote{}, errors.Wrap(err, "quote exact output")
	}
	q, err := buildQuote(pool, res, amm.ExactOutput)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	if q.MaximumInput, err = orDefault(tolerance).MaximumInput(q.AmountIn); err != nil {
		return amm.SwapQuote{}, err
	}
	return q, nil
}

func orDefault(t slippage.Tolerance) slippage.Tolerance {
	if t == 0 {
		return slippage.Default
	}
	return t
}

func zeroQuote(pool uniswapv3.Pool, tokenIn common.Address, tradeType amm.TradeType) (amm.SwapQuote, error) {
	zeroForOne, err := pool.ZeroForOne(tokenIn)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	spot, err := amm.SqrtPriceWad(pool.SqrtPriceX96, pool.Token0.Decimals, pool.Token1.Decimals, zeroForOne)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	in, out := pool.Token0, pool.Token1
	if !zeroForOne {
		in, out = out, in
	}
	q := amm.SwapQuote{
		TradeType:         tradeType,
		TokenIn:           in.Address,
		TokenOut:          out.Address,
		AmountIn:          new(big.Int),
		AmountOut:         new(big.Int),
		FeeAmount:         new(big.Int),
		SpotPrice:         spot,
		ExecutionPrice:    new(big.Int).Set(spot),
		PriceAfter:        new(big.Int).Set(spot),
		PriceImpactWad:    new(big.Int),
		SqrtPriceAfterX96: new(big.Int).Set(pool.SqrtPriceX96),
		TickAfter:         pool.Tick,
	}
	if tradeType == amm.ExactInput {
		q.MinimumReceived = new(big.Int)
	} else {
		q.MaximumInput = new(big.Int)
	}
	return q, nil
}

// buildQuote derives the prices of a completed step. Impact is the relative
// move of the pool price, which excludes the LP fee.
func buildQuote(pool uniswapv3.Pool, res stepResult, tradeType amm.TradeType) (amm.SwapQuote, error) {
	in, out := pool.Token0, pool.Token1
	if !res.zeroForOne {
		in, out = out, in
	}
	amountIn := res.gross()

	spot, err := amm.SqrtPriceWad(pool.SqrtPriceX96, pool.Token0.Decimals, pool.Token1.Decimals, res.zeroForOne)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	after, err := amm.SqrtPriceWad(res.sqrtPriceAfterX96, pool.Token0.Decimals, pool.Token1.Decimals, res.zeroForOne)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	execution, err := amm.PriceWad(res.amountOut, amountIn, out.Decimals, in.Decimals)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	tickAfter, err := tickmath.GetTickAtSqrtRatio(res.sqrtPriceAfterX96)
	if err != nil {
		return amm.SwapQuote{}, errors.Wrap(err, "tick after swap")
	}

	impact := amm.ImpactWad(spot, after)
	return amm.SwapQuote{
		TradeType:         tradeType,
		TokenIn:           in.Address,
		TokenOut:          out.Address,
		AmountIn:          amountIn,
		AmountOut:         res.amountOut,
		FeeAmount:         res.feeAmount,
		SpotPrice:         spot,
		ExecutionPrice:    execution,
		PriceAfter:        after,
		PriceImpactWad:    impact,
		PriceImpactBps:    amm.WadToBps(impact),
		SqrtPriceAfterX96: res.sqrtPriceAfterX96,
		TickAfter:         tickAfter,
	}, nil
}
