package uniswapv2

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm/ammerrors"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
)

// DefaultFeeBps is the swap fee of a canonical constant-product pair (0.3%).
const DefaultFeeBps = 30

// Pool is an immutable snapshot of a constant-product pair.
type Pool struct {
	Address     common.Address      `json:"address"`
	Token0      tokenregistry.Token `json:"token0"`
	Token1      tokenregistry.Token `json:"token1"`
	Reserve0    *big.Int            `json:"reserve0"`
	Reserve1    *big.Int            `json:"reserve1"`
	FeeBps      uint16              `json:"feeBps"` // i.e 30 for 0.3%
	TotalSupply *big.Int            `json:"totalSupply,omitempty"`
}

// NewPool builds a snapshot with the tokens put in pool order and the
// reserves following them. A zero feeBps selects DefaultFeeBps.
func NewPool(tokenA, tokenB tokenregistry.Token, reserveA, reserveB *big.Int, feeBps uint16) (Pool, error) {
	token0, token1, err := tokenregistry.Sort(tokenA, tokenB)
	if err != nil {
		return Pool{}, err
	}
	if token0 != tokenA {
		reserveA, reserveB = reserveB, reserveA
	}
	if feeBps == 0 {
		feeBps = DefaultFeeBps
	}
	p := Pool{
		Token0:   token0,
		Token1:   token1,
		Reserve0: reserveA,
		Reserve1: reserveB,
		FeeBps:   feeBps,
	}
	return p, p.Validate()
}

// Validate checks the snapshot's static invariants. A zero reserve is valid
// here; quoting reports it as ErrPoolUninitialized.
func (p Pool) Validate() error {
	if p.Reserve0 == nil || p.Reserve1 == nil || p.Reserve0.Sign() < 0 || p.Reserve1.Sign() < 0 {
		return fmt.Errorf("%w: reserves must be non-nil and non-negative", ammerrors.ErrInvalidAmount)
	}
	if p.FeeBps >= 10000 {
		return fmt.Errorf("%w: %d bps", ammerrors.ErrInvalidFeeTier, p.FeeBps)
	}
	if err := p.Token0.Validate(); err != nil {
		return err
	}
	return p.Token1.Validate()
}

// Initialized reports whether both reserves are positive.
func (p Pool) Initialized() bool {
	return p.Reserve0 != nil && p.Reserve1 != nil && p.Reserve0.Sign() > 0 && p.Reserve1.Sign() > 0
}

// Tokens returns the input and output token for a swap that sells tokenIn.
func (p Pool) Tokens(tokenIn common.Address) (in, out tokenregistry.Token, err error) {
	switch tokenIn {
	case p.Token0.Address:
		return p.Token0, p.Token1, nil
	case p.Token1.Address:
		return p.Token1, p.Token0, nil
	}
	return in, out, fmt.Errorf("%w: token %s is not in pool %s", ammerrors.ErrTokenMismatch, tokenIn.Hex(), p.Address.Hex())
}
