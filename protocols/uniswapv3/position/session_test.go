package position

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defistate/defistate-amm/ammerrors"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/slippage"
)

func TestSession_HappyPath(t *testing.T) {
	s := NewSession(0, true)
	assert.Equal(t, StateIdle, s.State())

	require.NoError(t, s.SetPool(poolAtTick(t, 100)))
	assert.Equal(t, StateIdle, s.State())

	r := uniswapv3.PriceRange{TickLower: -600, TickUpper: 1200}
	require.NoError(t, s.SelectRange(r))
	assert.Equal(t, StateRangeSelected, s.State())
	got, ok := s.Range()
	assert.True(t, ok)
	assert.Equal(t, r, got)

	require.NoError(t, s.EnterAmount(Token0, oneEther))
	assert.Equal(t, StateAmountEntered, s.State())
	_, ok = s.Result()
	assert.False(t, ok)

	sizing, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, StateSized, s.State())
	assert.Equal(t, "18780975967638176369", sizing.Position.Liquidity.String())
	assert.Equal(t, "649169702426272273", sizing.Amount1.String())

	// zero tolerance means the default
	assert.Equal(t, "945000000000000000", sizing.Amount0Min.String())

	cached, ok := s.Result()
	assert.True(t, ok)
	assert.Equal(t, sizing, cached)
}

func TestSession_Transitions(t *testing.T) {
	r := uniswapv3.PriceRange{TickLower: -600, TickUpper: 1200}
	sized := func(t *testing.T) *Session {
		s := NewSession(slippage.Default, true)
		require.NoError(t, s.SetPool(poolAtTick(t, 100)))
		require.NoError(t, s.SelectRange(r))
		require.NoError(t, s.EnterAmount(Token1, oneEther))
		_, err := s.Size()
		require.NoError(t, err)
		return s
	}

	t.Run("new snapshot of same pool drops the result", func(t *testing.T) {
		s := sized(t)
		pool := poolAtTick(t, 120)
		require.NoError(t, s.SetPool(pool))
		assert.Equal(t, StateAmountEntered, s.State())
		_, ok := s.Result()
		assert.False(t, ok)

		sizing, err := s.Size()
		require.NoError(t, err)
		assert.Equal(t, "1000000000000000000", sizing.Amount1.String())
	})

	t.Run("different pool resets", func(t *testing.T) {
		s := sized(t)
		pool := poolAtTick(t, 100)
		pool.Address = common.HexToAddress("0x60594a405d53811d3BC4766596EFD80fd545A270")
		require.NoError(t, s.SetPool(pool))
		assert.Equal(t, StateIdle, s.State())
		_, ok := s.Range()
		assert.False(t, ok)
	})

	t.Run("different fee tier resets", func(t *testing.T) {
		s := sized(t)
		pool := poolAtTick(t, 100)
		pool.Fee = uniswapv3.FeeTier500
		pool.TickSpacing = 10
		require.NoError(t, s.SetPool(pool))
		assert.Equal(t, StateIdle, s.State())
	})

	t.Run("new range clears the amount", func(t *testing.T) {
		s := sized(t)
		require.NoError(t, s.SelectRange(uniswapv3.PriceRange{TickLower: -1200, TickUpper: 1200}))
		assert.Equal(t, StateRangeSelected, s.State())
		_, err := s.Size()
		assert.ErrorIs(t, err, ammerrors.ErrInvalidAmount)
	})

	t.Run("reset", func(t *testing.T) {
		s := sized(t)
		s.Reset()
		assert.Equal(t, StateIdle, s.State())
		assert.ErrorIs(t, s.SelectFullRange(), ammerrors.ErrPoolUninitialized)
	})
}

func TestSession_Errors(t *testing.T) {
	s := NewSession(slippage.Default, true)
	assert.ErrorIs(t, s.SelectRange(uniswapv3.PriceRange{TickLower: -60, TickUpper: 60}), ammerrors.ErrPoolUninitialized)
	assert.ErrorIs(t, s.EnterAmount(Token0, oneEther), ammerrors.ErrInvalidRange)
	_, err := s.Size()
	assert.ErrorIs(t, err, ammerrors.ErrInvalidAmount)

	require.NoError(t, s.SetPool(poolAtTick(t, 0)))
	assert.ErrorIs(t, s.SelectRange(uniswapv3.PriceRange{TickLower: -50, TickUpper: 60}), ammerrors.ErrInvalidRange)
	assert.Equal(t, StateIdle, s.State())

	// range below the price takes only token1
	require.NoError(t, s.SelectRange(uniswapv3.PriceRange{TickLower: -6000, TickUpper: -600}))
	assert.ErrorIs(t, s.EnterAmount(Token0, oneEther), ammerrors.ErrTokenNotRequired)
	assert.Equal(t, StateRangeSelected, s.State())
	assert.ErrorIs(t, s.EnterAmount(Token1, big.NewInt(-1)), ammerrors.ErrInvalidAmount)

	require.NoError(t, s.EnterAmount(Token1, oneEther))
	sizing, err := s.Size()
	require.NoError(t, err)
	assert.True(t, sizing.OnlyToken1)
}

func TestSession_FullRange(t *testing.T) {
	s := NewSession(slippage.Default, false)
	require.NoError(t, s.SetPool(poolAtTick(t, 0)))
	require.NoError(t, s.SelectFullRange())
	r, ok := s.Range()
	require.True(t, ok)
	assert.Equal(t, uniswapv3.PriceRange{TickLower: -887220, TickUpper: 887220}, r)
}

func TestSession_SnapshotIsCopied(t *testing.T) {
	pool := poolAtTick(t, 100)
	s := NewSession(slippage.Default, true)
	require.NoError(t, s.SetPool(pool))
	require.NoError(t, s.SelectRange(uniswapv3.PriceRange{TickLower: -600, TickUpper: 1200}))
	require.NoError(t, s.EnterAmount(Token0, oneEther))

	pool.SqrtPriceX96.SetUint64(1)
	pool.Liquidity.SetUint64(0)

	sizing, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, "18780975967638176369", sizing.Position.Liquidity.String())
}
