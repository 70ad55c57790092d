package tokenregistry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm/ammerrors"
)

var (
	wethAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

func testTokens() []Token {
	return []Token{
		{Address: wethAddress, Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18},
		{Address: usdcAddress, Name: "USD Coin", Symbol: "USDC", Decimals: 6},
	}
}

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(testTokens())
	require.NoError(t, err)

	t.Run("lookups", func(t *testing.T) {
		weth, found := registry.GetByAddress(wethAddress)
		assert.True(t, found)
		assert.Equal(t, "WETH", weth.Symbol)

		usdc, found := registry.GetBySymbol("usdc")
		assert.True(t, found)
		assert.Equal(t, uint8(6), usdc.Decimals)
	})

	t.Run("resolve by address or symbol", func(t *testing.T) {
		byAddress, found := registry.Resolve("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
		assert.True(t, found)
		bySymbol, found := registry.Resolve("USDC")
		assert.True(t, found)
		assert.Equal(t, byAddress, bySymbol)

		_, found = registry.Resolve("DAI")
		assert.False(t, found)
	})

	t.Run("all returns a copy", func(t *testing.T) {
		all := registry.All()
		require.Len(t, all, 2)
		all[0].Symbol = "MODIFIED"
		weth, _ := registry.GetByAddress(wethAddress)
		assert.Equal(t, "WETH", weth.Symbol)
	})
}

func TestNewRegistry_InvalidDecimals(t *testing.T) {
	_, err := NewRegistry([]Token{{Address: wethAddress, Symbol: "BAD", Decimals: 37}})
	assert.ErrorIs(t, err, ErrInvalidDecimals)
	assert.ErrorIs(t, err, ammerrors.ErrInvalidAmount)
}

func TestSort(t *testing.T) {
	tokens := testTokens()

	token0, token1, err := Sort(tokens[0], tokens[1])
	require.NoError(t, err)
	// 0xA0b8... < 0xC02a...
	assert.Equal(t, "USDC", token0.Symbol)
	assert.Equal(t, "WETH", token1.Symbol)

	token0, token1, err = Sort(tokens[1], tokens[0])
	require.NoError(t, err)
	assert.Equal(t, "USDC", token0.Symbol)
	assert.Equal(t, "WETH", token1.Symbol)

	_, _, err = Sort(tokens[0], tokens[0])
	assert.ErrorIs(t, err, ammerrors.ErrTokenMismatch)
}

func TestTokenScale(t *testing.T) {
	assert.Equal(t, "1000000", Token{Decimals: 6}.Scale().String())
	assert.Equal(t, "WETH", Token{Symbol: "WETH"}.String())
	assert.Equal(t, wethAddress.Hex(), Token{Address: wethAddress}.String())
}
