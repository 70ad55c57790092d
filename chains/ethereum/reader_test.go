package ethereum

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/chains"
	"github.com/defistate/defistate-amm/engine"
	"github.com/defistate/defistate-amm/fixedpoint"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
)

var (
	daiAddr  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	wethAddr = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	pairAddr = common.HexToAddress("0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11")
	poolAddr = common.HexToAddress("0xC2e9F25Be6257c210d7Adf0D4Cd6E3E881ba25f8")
)

type contract struct {
	abi     abi.ABI
	outputs map[string][]any
}

type callArgs struct {
	To    *common.Address `json:"to"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

// fakeEth answers eth_call from canned per-contract outputs.
type fakeEth struct {
	contracts map[common.Address]contract

	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeEth) Call(ctx context.Context, args callArgs, _ gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	input := args.Input
	if input == nil {
		input = args.Data
	}
	if args.To == nil || input == nil || len(*input) < 4 {
		return nil, errors.New("malformed call")
	}
	c, ok := f.contracts[*args.To]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	for name, method := range c.abi.Methods {
		if !bytes.Equal(method.ID, (*input)[:4]) {
			continue
		}
		f.mu.Lock()
		f.calls[args.To.Hex()+"."+name]++
		f.mu.Unlock()
		values, ok := c.outputs[name]
		if !ok {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack(values...)
	}
	return nil, errors.New("execution reverted")
}

func (f *fakeEth) count(address common.Address, method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[address.Hex()+"."+method]
}

func newFakeEth(t *testing.T) *fakeEth {
	t.Helper()
	require.NoError(t, parseABIs())
	return &fakeEth{
		calls: make(map[string]int),
		contracts: map[common.Address]contract{
			daiAddr: {abi: erc20ABI, outputs: map[string][]any{
				"name":     {"Dai Stablecoin"},
				"symbol":   {"DAI"},
				"decimals": {uint8(18)},
			}},
			// no name(): the reader must tolerate it
			wethAddr: {abi: erc20ABI, outputs: map[string][]any{
				"symbol":   {"WETH"},
				"decimals": {uint8(18)},
			}},
			pairAddr: {abi: v2PairABI, outputs: map[string][]any{
				"token0":      {daiAddr},
				"token1":      {wethAddr},
				"getReserves": {big.NewInt(3_000_000), big.NewInt(1_000), uint32(1_700_000_000)},
				"totalSupply": {big.NewInt(54_772)},
			}},
			poolAddr: {abi: v3PoolABI, outputs: map[string][]any{
				"token0":      {daiAddr},
				"token1":      {wethAddr},
				"fee":         {big.NewInt(3000)},
				"tickSpacing": {big.NewInt(60)},
				"slot0":       {new(big.Int).Set(fixedpoint.Q96), big.NewInt(0), uint16(1), uint16(1), uint16(1), uint8(0), true},
				"liquidity":   {big.NewInt(1_000_000)},
			}},
		},
	}
}

func newTestReader(t *testing.T, fe *fakeEth) *Reader {
	t.Helper()
	srv := gethrpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", fe))
	client := ethclient.NewClient(gethrpc.DialInProc(srv))
	t.Cleanup(client.Close)

	r, err := NewReader(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return r
}

func TestNewReader_Validation(t *testing.T) {
	_, err := NewReader(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)

	srv := gethrpc.NewServer()
	client := ethclient.NewClient(gethrpc.DialInProc(srv))
	defer client.Close()
	_, err = NewReader(client, nil)
	assert.Error(t, err)
}

func TestReader_ReadToken(t *testing.T) {
	fe := newFakeEth(t)
	r := newTestReader(t, fe)
	ctx := context.Background()

	dai, err := r.ReadToken(ctx, daiAddr)
	require.NoError(t, err)
	assert.Equal(t, "DAI", dai.Symbol)
	assert.Equal(t, "Dai Stablecoin", dai.Name)
	assert.Equal(t, uint8(18), dai.Decimals)

	weth, err := r.ReadToken(ctx, wethAddr)
	require.NoError(t, err)
	assert.Equal(t, "WETH", weth.Symbol)
	assert.Empty(t, weth.Name)

	// cached
	_, err = r.ReadToken(ctx, daiAddr)
	require.NoError(t, err)
	assert.Equal(t, 1, fe.count(daiAddr, "decimals"))

	_, err = r.ReadToken(ctx, common.HexToAddress("0x01"))
	assert.Error(t, err)
}

func TestReader_ReadUniswapV2Pool(t *testing.T) {
	r := newTestReader(t, newFakeEth(t))

	p, err := r.ReadUniswapV2Pool(context.Background(), pairAddr, big.NewInt(19_000_000))
	require.NoError(t, err)
	assert.Equal(t, pairAddr, p.Address)
	assert.Equal(t, daiAddr, p.Token0.Address)
	assert.Equal(t, wethAddr, p.Token1.Address)
	assert.Equal(t, "3000000", p.Reserve0.String())
	assert.Equal(t, "1000", p.Reserve1.String())
	assert.Equal(t, "54772", p.TotalSupply.String())
	assert.Equal(t, uint16(30), p.FeeBps)
}

func TestReader_ReadUniswapV3Pool(t *testing.T) {
	r := newTestReader(t, newFakeEth(t))

	p, err := r.ReadUniswapV3Pool(context.Background(), poolAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, uniswapv3.FeeTier3000, p.Fee)
	assert.Equal(t, int64(60), p.TickSpacing)
	assert.Equal(t, int64(0), p.Tick)
	assert.Equal(t, fixedpoint.Q96.String(), p.SqrtPriceX96.String())
	assert.Equal(t, "1000000", p.Liquidity.String())
	assert.Equal(t, "DAI", p.Token0.Symbol)
}

func TestReader_ReadUniswapV3Pool_BadFee(t *testing.T) {
	fe := newFakeEth(t)
	fe.contracts[poolAddr].outputs["fee"] = []any{big.NewInt(2500)}
	r := newTestReader(t, fe)

	_, err := r.ReadUniswapV3Pool(context.Background(), poolAddr, nil)
	assert.ErrorIs(t, err, ammerrors.ErrInvalidFeeTier)
}

func TestReadPoolState(t *testing.T) {
	r := newTestReader(t, newFakeEth(t))
	ctx := context.Background()

	s, err := chains.ReadPoolState(ctx, r, engine.ProtocolUniswapV2, pairAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ProtocolUniswapV2, s.Protocol())

	s, err = chains.ReadPoolState(ctx, r, engine.ProtocolUniswapV3, poolAddr, nil)
	require.NoError(t, err)
	assert.Equal(t, engine.ProtocolUniswapV3, s.Protocol())

	_, err = chains.ReadPoolState(ctx, r, "curve", poolAddr, nil)
	assert.ErrorIs(t, err, ammerrors.ErrUnknownProtocol)

	// a pair address read as a v3 pool fails on the first v3-only method
	_, err = chains.ReadPoolState(ctx, r, engine.ProtocolUniswapV3, pairAddr, nil)
	assert.Error(t, err)
}
