// Package chains holds the interfaces through which on-chain pool snapshots
// reach the quoting and sizing engines.
package chains

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/engine"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm/protocols/uniswapv2"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PoolReader reads pool and token snapshots. A nil block means the latest one.
type PoolReader interface {
	ReadToken(ctx context.Context, token common.Address) (tokenregistry.Token, error)
	ReadUniswapV2Pool(ctx context.Context, pool common.Address, block *big.Int) (uniswapv2.Pool, error)
	ReadUniswapV3Pool(ctx context.Context, pool common.Address, block *big.Int) (uniswapv3.Pool, error)
}

// ReadPoolState reads a pool of the given protocol and wraps it as a PoolState.
func ReadPoolState(ctx context.Context, r PoolReader, protocol engine.ProtocolID, pool common.Address, block *big.Int) (engine.PoolState, error) {
	switch protocol {
	case engine.ProtocolUniswapV2:
		p, err := r.ReadUniswapV2Pool(ctx, pool, block)
		if err != nil {
			return engine.PoolState{}, err
		}
		return engine.NewUniswapV2State(p), nil
	case engine.ProtocolUniswapV3:
		p, err := r.ReadUniswapV3Pool(ctx, pool, block)
		if err != nil {
			return engine.PoolState{}, err
		}
		return engine.NewUniswapV3State(p), nil
	default:
		return engine.PoolState{}, fmt.Errorf("%w: %q", ammerrors.ErrUnknownProtocol, protocol)
	}
}
