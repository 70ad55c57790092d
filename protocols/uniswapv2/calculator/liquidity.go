package uniswapv2

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
	uniswapv2 "github.com/defistate/defistate-amm/protocols/uniswapv2"
	"github.com/defistate/defistate-amm/slippage"
)

// MinimumLiquidity is the LP supply burned on the first deposit into a pair.
var MinimumLiquidity = big.NewInt(1000)

// Quote returns the amount of token B matching amountA at the pool ratio,
// rounded down.
func Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	if err := checkAmount(amountA); err != nil {
		return nil, err
	}
	if reserveA == nil || reserveB == nil || reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return nil, fmt.Errorf("%w: quote against a zero reserve", ammerrors.ErrPoolUninitialized)
	}
	amountB := new(big.Int).Mul(amountA, reserveB)
	return amountB.Quo(amountB, reserveA), nil
}

// SizeFromAmount0 sizes a deposit of amount0 with the matching amount of
// token1. An empty pool has no price, so both amounts must be given instead.
func SizeFromAmount0(pool uniswapv2.Pool, amount0 *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	amount1, err := Quote(amount0, pool.Reserve0, pool.Reserve1)
	if err != nil {
		return amm.Sizing{}, err
	}
	return size(pool, amount0, amount1, tolerance)
}

// SizeFromAmount1 sizes a deposit of amount1 with the matching amount of token0.
func SizeFromAmount1(pool uniswapv2.Pool, amount1 *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	amount0, err := Quote(amount1, pool.Reserve1, pool.Reserve0)
	if err != nil {
		return amm.Sizing{}, err
	}
	return size(pool, amount0, amount1, tolerance)
}

// SizeFromAmounts sizes the largest deposit within both desired amounts at
// the pool ratio. The first deposit into an empty pool uses both amounts as
// given and sets the price.
func SizeFromAmounts(pool uniswapv2.Pool, amount0Desired, amount1Desired *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	if err := checkAmount(amount0Desired); err != nil {
		return amm.Sizing{}, err
	}
	if err := checkAmount(amount1Desired); err != nil {
		return amm.Sizing{}, err
	}
	if !pool.Initialized() {
		return size(pool, amount0Desired, amount1Desired, tolerance)
	}

	amount1Optimal, err := Quote(amount0Desired, pool.Reserve0, pool.Reserve1)
	if err != nil {
		return amm.Sizing{}, err
	}
	if amount1Optimal.Cmp(amount1Desired) <= 0 {
		return size(pool, amount0Desired, amount1Optimal, tolerance)
	}
	amount0Optimal, err := Quote(amount1Desired, pool.Reserve1, pool.Reserve0)
	if err != nil {
		return amm.Sizing{}, err
	}
	return size(pool, amount0Optimal, amount1Desired, tolerance)
}

func size(pool uniswapv2.Pool, amount0, amount1 *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	lp, err := LiquidityMinted(pool, amount0, amount1)
	if err != nil {
		return amm.Sizing{}, err
	}
	s := amm.Sizing{
		Amount0:  new(big.Int).Set(amount0),
		Amount1:  new(big.Int).Set(amount1),
		LPTokens: lp,
	}
	tolerance = orDefault(tolerance)
	if s.Amount0Min, err = tolerance.MinimumReceived(amount0); err != nil {
		return amm.Sizing{}, err
	}
	if s.Amount1Min, err = tolerance.MinimumReceived(amount1); err != nil {
		return amm.Sizing{}, err
	}
	if s.PoolShareWad, err = poolShare(pool, amount0, lp); err != nil {
		return amm.Sizing{}, err
	}
	return s, nil
}

// LiquidityMinted returns the LP tokens a deposit mints. It returns nil when
// the pool carries no total supply. The first deposit mints
// sqrt(amount0*amount1) minus MinimumLiquidity.
func LiquidityMinted(pool uniswapv2.Pool, amount0, amount1 *big.Int) (*big.Int, error) {
	if pool.TotalSupply == nil {
		if pool.Initialized() {
			return nil, nil
		}
		return firstMint(amount0, amount1)
	}
	if pool.TotalSupply.Sign() == 0 {
		return firstMint(amount0, amount1)
	}
	if !pool.Initialized() {
		return nil, fmt.Errorf("%w: supply without reserves", ammerrors.ErrPoolUninitialized)
	}
	lp0 := new(big.Int).Mul(amount0, pool.TotalSupply)
	lp0.Quo(lp0, pool.Reserve0)
	lp1 := new(big.Int).Mul(amount1, pool.TotalSupply)
	lp1.Quo(lp1, pool.Reserve1)
	if lp1.Cmp(lp0) < 0 {
		lp0 = lp1
	}
	if lp0.Sign() == 0 {
		return nil, fmt.Errorf("%w: deposit mints no LP tokens", ammerrors.ErrInsufficientLiquidity)
	}
	return lp0, nil
}

func firstMint(amount0, amount1 *big.Int) (*big.Int, error) {
	lp := new(big.Int).Mul(amount0, amount1)
	if err := fixedpoint.Sqrt(lp, lp); err != nil {
		return nil, err
	}
	if lp.Cmp(MinimumLiquidity) <= 0 {
		return nil, fmt.Errorf("%w: first deposit must exceed the minimum liquidity", ammerrors.ErrInsufficientLiquidity)
	}
	return lp.Sub(lp, MinimumLiquidity), nil
}

// poolShare is lp/(supply+lp) when the supply is known and
// amount0/(reserve0+amount0) otherwise. A first deposit owns the whole pool.
func poolShare(pool uniswapv2.Pool, amount0, lp *big.Int) (*big.Int, error) {
	share := new(big.Int)
	if !pool.Initialized() {
		return share.Set(amm.Wad), nil
	}
	part, total := amount0, new(big.Int).Add(pool.Reserve0, amount0)
	if lp != nil && pool.TotalSupply != nil {
		part, total = lp, total.Add(pool.TotalSupply, lp)
	}
	if total.Sign() == 0 {
		return share, nil
	}
	if err := fixedpoint.MulDiv(share, part, amm.Wad, total); err != nil {
		return nil, err
	}
	return share, nil
}
