package uniswapv2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/ammerrors"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm/protocols/uniswapv2"
	"github.com/defistate/defistate-amm/slippage"
)

// QuoteExactInput quotes selling amountIn of tokenIn into pool. A zero
// amountIn yields a zero quote with zero price impact.
func QuoteExactInput(pool uniswapv2.Pool, tokenIn common.Address, amountIn *big.Int, tolerance slippage.Tolerance) (amm.SwapQuote, error) {
	in, out, err := pool.Tokens(tokenIn)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)

	amountOut, err := calc.getAmountOut(amountIn, tokenIn, pool)
	if err != nil {
		return amm.SwapQuote{}, errors.Wrap(err, "quote exact input")
	}
	if amountIn.Sign() > 0 && amountOut.Sign() == 0 {
		return amm.SwapQuote{}, errors.Wrapf(ammerrors.ErrInsufficientLiquidity, "input %s produces no output", amountIn)
	}

	q, err := calc.buildQuote(pool, in, out, amountIn, amountOut)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	q.TradeType = amm.ExactInput
	if q.MinimumReceived, err = orDefault(tolerance).MinimumReceived(amountOut); err != nil {
		return amm.SwapQuote{}, err
	}
	return q, nil
}

// QuoteExactOutput quotes buying amountOut of the token paired with tokenIn.
func QuoteExactOutput(pool uniswapv2.Pool, tokenIn common.Address, amountOut *big.Int, tolerance slippage.Tolerance) (amm.SwapQuote, error) {
	in, out, err := pool.Tokens(tokenIn)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)

	amountIn, err := calc.getAmountIn(amountOut, tokenIn, pool)
	if err != nil {
		return amm.SwapQuote{}, errors.Wrap(err, "quote exact output")
	}

	q, err := calc.buildQuote(pool, in, out, amountIn, amountOut)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	q.TradeType = amm.ExactOutput
	if q.MaximumInput, err = orDefault(tolerance).MaximumInput(amountIn); err != nil {
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

// buildQuote derives the prices of a swap of amountIn for amountOut. Impact
// is measured on the input net of the LP fee, so the fee is never counted as
// impact.
func (c *Calculator) buildQuote(pool uniswapv2.Pool, in, out tokenregistry.Token, amountIn, amountOut *big.Int) (amm.SwapQuote, error) {
	reserveIn, reserveOut, err := GetReserves(in.Address, pool)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	spot, err := amm.PriceWad(reserveOut, reserveIn, out.Decimals, in.Decimals)
	if err != nil {
		return amm.SwapQuote{}, err
	}

	q := amm.SwapQuote{
		TokenIn:        in.Address,
		TokenOut:       out.Address,
		AmountIn:       new(big.Int).Set(amountIn),
		AmountOut:      new(big.Int).Set(amountOut),
		FeeAmount:      new(big.Int),
		SpotPrice:      spot,
		ExecutionPrice: new(big.Int).Set(spot),
		PriceAfter:     new(big.Int).Set(spot),
		PriceImpactWad: new(big.Int),
	}
	if amountIn.Sign() == 0 {
		return q, nil
	}

	// amountInLessFee = floor(amountIn * (10000 - fee) / 10000)
	lessFee := new(big.Int).Mul(amountIn, big.NewInt(int64(10000-pool.FeeBps)))
	lessFee.Quo(lessFee, basisPointDivisor)
	q.FeeAmount.Sub(amountIn, lessFee)

	if q.ExecutionPrice, err = amm.PriceWad(amountOut, amountIn, out.Decimals, in.Decimals); err != nil {
		return amm.SwapQuote{}, err
	}
	if lessFee.Sign() > 0 {
		feeless, err := amm.PriceWad(amountOut, lessFee, out.Decimals, in.Decimals)
		if err != nil {
			return amm.SwapQuote{}, err
		}
		q.PriceImpactWad = amm.ImpactWad(spot, feeless)
		q.PriceImpactBps = amm.WadToBps(q.PriceImpactWad)
	}

	after := c.applySwap(pool, in.Address, amountIn, amountOut)
	afterIn, afterOut, err := GetReserves(in.Address, after)
	if err != nil {
		return amm.SwapQuote{}, err
	}
	if afterOut.Sign() > 0 {
		if q.PriceAfter, err = amm.PriceWad(afterOut, afterIn, out.Decimals, in.Decimals); err != nil {
			return amm.SwapQuote{}, err
		}
	}
	return q, nil
}
