// Package ethereum reads Uniswap V2 pair and V3 pool snapshots from an
// Ethereum JSON-RPC endpoint with eth_call.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/go-faster/errors"

	"github.com/defistate/defistate-amm/chains"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm/protocols/uniswapv2"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/calculator/tickmath"
)

const dialTimeout = 15 * time.Second

var _ chains.PoolReader = (*Reader)(nil)

// Reader implements chains.PoolReader over a contract caller. Token metadata
// never changes, so it is cached per address.
type Reader struct {
	caller geth.ContractCaller
	logger chains.Logger
	closer func()

	mu     sync.RWMutex
	tokens map[common.Address]tokenregistry.Token
}

// NewReader builds a reader on top of an existing caller, such as an
// *ethclient.Client.
func NewReader(caller geth.ContractCaller, logger chains.Logger) (*Reader, error) {
	if caller == nil {
		return nil, errors.New("reader: caller cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("reader: logger cannot be nil")
	}
	if err := parseABIs(); err != nil {
		return nil, errors.Wrap(err, "parse abis")
	}
	return &Reader{
		caller: caller,
		logger: logger,
		tokens: make(map[common.Address]tokenregistry.Token),
	}, nil
}

// Dial connects to url and returns a reader owning the connection.
func Dial(ctx context.Context, url string, logger chains.Logger) (*Reader, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	r, err := NewReader(client, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	r.closer = client.Close
	logger.Info("Reader connected", "url", url)
	return r, nil
}

// Close releases the connection if the reader dialed it.
func (r *Reader) Close() {
	if r.closer != nil {
		r.closer()
	}
}

// ReadToken returns the token's symbol, name and decimals. A missing or
// non-string name is tolerated; decimals are required.
func (r *Reader) ReadToken(ctx context.Context, token common.Address) (tokenregistry.Token, error) {
	r.mu.RLock()
	cached, ok := r.tokens[token]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	values, err := r.call(ctx, token, erc20ABI, "decimals", nil)
	if err != nil {
		return tokenregistry.Token{}, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return tokenregistry.Token{}, fmt.Errorf("token %s: decimals has type %T", token.Hex(), values[0])
	}

	t := tokenregistry.Token{Address: token, Decimals: decimals}
	if values, err := r.call(ctx, token, erc20ABI, "symbol", nil); err == nil {
		t.Symbol, _ = values[0].(string)
	} else {
		r.logger.Debug("Token symbol unavailable", "token", token.Hex(), "err", err)
	}
	if values, err := r.call(ctx, token, erc20ABI, "name", nil); err == nil {
		t.Name, _ = values[0].(string)
	} else {
		r.logger.Debug("Token name unavailable", "token", token.Hex(), "err", err)
	}
	if err := t.Validate(); err != nil {
		return tokenregistry.Token{}, err
	}

	r.mu.Lock()
	r.tokens[token] = t
	r.mu.Unlock()
	return t, nil
}

// ReadUniswapV2Pool reads a pair's tokens, reserves and LP supply. The fee is
// the canonical 0.3%; forks with another fee must override FeeBps.
func (r *Reader) ReadUniswapV2Pool(ctx context.Context, pool common.Address, block *big.Int) (uniswapv2.Pool, error) {
	token0, token1, err := r.readTokens(ctx, pool, v2PairABI)
	if err != nil {
		return uniswapv2.Pool{}, err
	}

	values, err := r.call(ctx, pool, v2PairABI, "getReserves", block)
	if err != nil {
		return uniswapv2.Pool{}, err
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return uniswapv2.Pool{}, errors.Wrap(err, "reserve0")
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return uniswapv2.Pool{}, errors.Wrap(err, "reserve1")
	}

	values, err = r.call(ctx, pool, v2PairABI, "totalSupply", block)
	if err != nil {
		return uniswapv2.Pool{}, err
	}
	totalSupply, err := asBigInt(values[0])
	if err != nil {
		return uniswapv2.Pool{}, errors.Wrap(err, "totalSupply")
	}

	p := uniswapv2.Pool{
		Address:     pool,
		Token0:      token0,
		Token1:      token1,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
		FeeBps:      uniswapv2.DefaultFeeBps,
		TotalSupply: totalSupply,
	}
	if err := p.Validate(); err != nil {
		return uniswapv2.Pool{}, err
	}
	r.logger.Debug("Read uniswapv2 pool", "pool", pool.Hex(), "reserve0", reserve0, "reserve1", reserve1)
	return p, nil
}

// ReadUniswapV3Pool reads a pool's tokens, fee tier, slot0 and active
// liquidity. Initialized ticks are not read, so quotes on the snapshot are
// bounded by the price limits rather than the next tick.
func (r *Reader) ReadUniswapV3Pool(ctx context.Context, pool common.Address, block *big.Int) (uniswapv3.Pool, error) {
	token0, token1, err := r.readTokens(ctx, pool, v3PoolABI)
	if err != nil {
		return uniswapv3.Pool{}, err
	}

	values, err := r.call(ctx, pool, v3PoolABI, "fee", block)
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	fee, err := asBigInt(values[0])
	if err != nil {
		return uniswapv3.Pool{}, errors.Wrap(err, "fee")
	}
	tier, err := uniswapv3.ParseFeeTier(fee.Uint64())
	if err != nil {
		return uniswapv3.Pool{}, err
	}

	values, err = r.call(ctx, pool, v3PoolABI, "tickSpacing", block)
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	spacing, err := asBigInt(values[0])
	if err != nil {
		return uniswapv3.Pool{}, errors.Wrap(err, "tickSpacing")
	}

	values, err = r.call(ctx, pool, v3PoolABI, "slot0", block)
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	sqrtPriceX96, err := asBigInt(values[0])
	if err != nil {
		return uniswapv3.Pool{}, errors.Wrap(err, "sqrtPriceX96")
	}
	tick, err := asBigInt(values[1])
	if err != nil {
		return uniswapv3.Pool{}, errors.Wrap(err, "tick")
	}
	if !tick.IsInt64() || tick.Int64() < tickmath.MinTick || tick.Int64() > tickmath.MaxTick {
		return uniswapv3.Pool{}, fmt.Errorf("pool %s: tick %s out of range", pool.Hex(), tick)
	}

	values, err = r.call(ctx, pool, v3PoolABI, "liquidity", block)
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return uniswapv3.Pool{}, errors.Wrap(err, "liquidity")
	}

	p := uniswapv3.Pool{
		Address:      pool,
		Token0:       token0,
		Token1:       token1,
		Fee:          tier,
		TickSpacing:  spacing.Int64(),
		Tick:         tick.Int64(),
		SqrtPriceX96: sqrtPriceX96,
		Liquidity:    liquidity,
	}
	if err := p.Validate(); err != nil {
		return uniswapv3.Pool{}, err
	}
	r.logger.Debug("Read uniswapv3 pool", "pool", pool.Hex(), "tick", p.Tick, "liquidity", liquidity)
	return p, nil
}

func (r *Reader) readTokens(ctx context.Context, pool common.Address, contract abi.ABI) (token0, token1 tokenregistry.Token, err error) {
	addresses := make([]common.Address, 2)
	for i, method := range []string{"token0", "token1"} {
		values, err := r.call(ctx, pool, contract, method, nil)
		if err != nil {
			return token0, token1, err
		}
		address, ok := values[0].(common.Address)
		if !ok {
			return token0, token1, fmt.Errorf("pool %s: %s has type %T", pool.Hex(), method, values[0])
		}
		addresses[i] = address
	}
	if token0, err = r.ReadToken(ctx, addresses[0]); err != nil {
		return token0, token1, err
	}
	if token1, err = r.ReadToken(ctx, addresses[1]); err != nil {
		return token0, token1, err
	}
	return token0, token1, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, contract abi.ABI, method string, block *big.Int) ([]any, error) {
	data, err := contract.Pack(method)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}
	resp, err := r.caller.CallContract(ctx, geth.CallMsg{To: &to, Data: data}, block)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s on %s", method, to.Hex())
	}
	values, err := contract.Unpack(method, resp)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s from %s", method, to.Hex())
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s on %s returned nothing", method, to.Hex())
	}
	return values, nil
}

func asBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
