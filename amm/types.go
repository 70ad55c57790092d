// Package amm holds the result types shared by the quoting and sizing engines
// and the price helpers used to derive them.
package amm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
)

// TradeType selects which side of a swap is fixed.
type TradeType uint8

const (
	// ExactInput fixes the amount sold.
	ExactInput TradeType = iota
	// ExactOutput fixes the amount bought.
	ExactOutput
)

func (t TradeType) String() string {
	switch t {
	case ExactInput:
		return "exactInput"
	case ExactOutput:
		return "exactOutput"
	default:
		return "unknown"
	}
}

// SwapQuote is the result of quoting a swap against one pool snapshot. It is
// built once per request and never mutated.
//
// Prices are WAD (1e18) fixed-point numbers of tokenOut per tokenIn, with
// both tokens normalized to 18 decimals.
type SwapQuote struct {
	TradeType TradeType      `json:"tradeType"`
	TokenIn   common.Address `json:"tokenIn"`
	TokenOut  common.Address `json:"tokenOut"`

	AmountIn  *big.Int `json:"amountIn"`
	AmountOut *big.Int `json:"amountOut"`
	// FeeAmount is the LP fee charged in tokenIn.
	FeeAmount *big.Int `json:"feeAmount"`

	SpotPrice      *big.Int `json:"spotPrice"`
	ExecutionPrice *big.Int `json:"executionPrice"`
	PriceAfter     *big.Int `json:"priceAfter"`
	PriceImpactWad *big.Int `json:"priceImpactWad"`
	PriceImpactBps uint32   `json:"priceImpactBps"`

	// MinimumReceived is set for exact-input quotes, MaximumInput for exact-output ones.
	MinimumReceived *big.Int `json:"minimumReceived,omitempty"`
	MaximumInput    *big.Int `json:"maximumInput,omitempty"`

	// Concentrated-liquidity pools only.
	SqrtPriceAfterX96 *big.Int `json:"sqrtPriceAfterX96,omitempty"`
	TickAfter         int64    `json:"tickAfter,omitempty"`

	// Deadline is the unix time a swap built from this quote should expire
	// at, zero when the caller configured none.
	Deadline int64 `json:"deadline,omitempty"`
}

// Position is a concentrated-liquidity position built for one sizing call.
type Position struct {
	Range     uniswapv3.PriceRange `json:"range"`
	Liquidity *big.Int             `json:"liquidity"`
}

// Sizing is the result of sizing a liquidity deposit.
type Sizing struct {
	// Position is set for concentrated-liquidity pools.
	Position Position `json:"position"`
	// LPTokens is set for constant-product pools.
	LPTokens *big.Int `json:"lpTokens,omitempty"`

	Amount0    *big.Int `json:"amount0"`
	Amount1    *big.Int `json:"amount1"`
	Amount0Min *big.Int `json:"amount0Min"`
	Amount1Min *big.Int `json:"amount1Min"`

	// OnlyToken0 is true when the price is below the range, OnlyToken1 when
	// it is at or above it.
	OnlyToken0 bool `json:"onlyToken0"`
	OnlyToken1 bool `json:"onlyToken1"`

	// PoolShareWad is the share of the pool's (in-range) liquidity the
	// deposit would own, as a WAD.
	PoolShareWad *big.Int `json:"poolShareWad"`
}
