package api

import (
	"math/big"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/engine"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/position"
)

// Amounts are decimal strings of raw units; the *Display fields are whole
// units for humans.

type quoteResponse struct {
	Protocol  engine.ProtocolID `json:"protocol"`
	TradeType string            `json:"tradeType"`
	TokenIn   string            `json:"tokenIn"`
	TokenOut  string            `json:"tokenOut"`

	AmountIn         string `json:"amountIn"`
	AmountInDisplay  string `json:"amountInDisplay"`
	AmountOut        string `json:"amountOut"`
	AmountOutDisplay string `json:"amountOutDisplay"`
	FeeAmount        string `json:"feeAmount"`

	SpotPrice      string `json:"spotPrice"`
	ExecutionPrice string `json:"executionPrice"`
	PriceAfter     string `json:"priceAfter"`
	PriceImpact    string `json:"priceImpact"`
	PriceImpactBps uint32 `json:"priceImpactBps"`

	MinimumReceived string `json:"minimumReceived,omitempty"`
	MaximumInput    string `json:"maximumInput,omitempty"`

	SqrtPriceAfterX96 string `json:"sqrtPriceAfterX96,omitempty"`
	TickAfter         *int64 `json:"tickAfter,omitempty"`

	Deadline int64 `json:"deadline,omitempty"`
}

func newQuoteResponse(state engine.PoolState, q amm.SwapQuote) (quoteResponse, error) {
	decimalsIn, decimalsOut, err := tokenDecimals(state, q)
	if err != nil {
		return quoteResponse{}, err
	}
	resp := quoteResponse{
		Protocol:         state.Protocol(),
		TradeType:        q.TradeType.String(),
		TokenIn:          q.TokenIn.Hex(),
		TokenOut:         q.TokenOut.Hex(),
		AmountIn:         q.AmountIn.String(),
		AmountInDisplay:  amm.FormatAmount(q.AmountIn, decimalsIn, displayPrecision),
		AmountOut:        q.AmountOut.String(),
		AmountOutDisplay: amm.FormatAmount(q.AmountOut, decimalsOut, displayPrecision),
		FeeAmount:        q.FeeAmount.String(),
		SpotPrice:        amm.FormatWad(q.SpotPrice, amm.WadDecimals),
		ExecutionPrice:   amm.FormatWad(q.ExecutionPrice, amm.WadDecimals),
		PriceAfter:       amm.FormatWad(q.PriceAfter, amm.WadDecimals),
		PriceImpact:      amm.FormatBps(q.PriceImpactBps),
		PriceImpactBps:   q.PriceImpactBps,
		MinimumReceived:  stringOrEmpty(q.MinimumReceived),
		MaximumInput:     stringOrEmpty(q.MaximumInput),
		Deadline:         q.Deadline,
	}
	if state.Protocol() == engine.ProtocolUniswapV3 {
		resp.SqrtPriceAfterX96 = stringOrEmpty(q.SqrtPriceAfterX96)
		tick := q.TickAfter
		resp.TickAfter = &tick
	}
	return resp, nil
}

type sizeResponse struct {
	TickLower      int64  `json:"tickLower"`
	TickUpper      int64  `json:"tickUpper"`
	PriceLower     string `json:"priceLower"`
	PriceUpper     string `json:"priceUpper"`
	Liquidity      string `json:"liquidity"`
	Amount0        string `json:"amount0"`
	Amount0Display string `json:"amount0Display"`
	Amount1        string `json:"amount1"`
	Amount1Display string `json:"amount1Display"`
	Amount0Min     string `json:"amount0Min"`
	Amount1Min     string `json:"amount1Min"`
	OnlyToken0     bool   `json:"onlyToken0"`
	OnlyToken1     bool   `json:"onlyToken1"`
	PoolShare      string `json:"poolShare"`
}

func newSizeResponse(pool uniswapv3.Pool, s amm.Sizing) sizeResponse {
	r := s.Position.Range
	resp := sizeResponse{
		TickLower:      r.TickLower,
		TickUpper:      r.TickUpper,
		Liquidity:      stringOrEmpty(s.Position.Liquidity),
		Amount0:        s.Amount0.String(),
		Amount0Display: amm.FormatAmount(s.Amount0, pool.Token0.Decimals, displayPrecision),
		Amount1:        s.Amount1.String(),
		Amount1Display: amm.FormatAmount(s.Amount1, pool.Token1.Decimals, displayPrecision),
		Amount0Min:     s.Amount0Min.String(),
		Amount1Min:     s.Amount1Min.String(),
		OnlyToken0:     s.OnlyToken0,
		OnlyToken1:     s.OnlyToken1,
		PoolShare:      amm.FormatWad(s.PoolShareWad, amm.WadDecimals),
	}
	if p, err := position.PriceAtTick(r.TickLower, pool.Token0, pool.Token1, displayPrecision); err == nil {
		resp.PriceLower = p.String()
	}
	if p, err := position.PriceAtTick(r.TickUpper, pool.Token0, pool.Token1, displayPrecision); err == nil {
		resp.PriceUpper = p.String()
	}
	return resp
}

func tokenDecimals(state engine.PoolState, q amm.SwapQuote) (in, out uint8, err error) {
	if p, ok := state.UniswapV2(); ok {
		tin, tout, err := p.Tokens(q.TokenIn)
		return tin.Decimals, tout.Decimals, err
	}
	p, _ := state.UniswapV3()
	if q.TokenIn == p.Token0.Address {
		return p.Token0.Decimals, p.Token1.Decimals, nil
	}
	return p.Token1.Decimals, p.Token0.Decimals, nil
}

func stringOrEmpty(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}
