package tokenregistry

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/defistate-amm/ammerrors"
	"github.com/defistate/defistate-amm/fixedpoint"
)

// MaxDecimals is the largest number of decimals a token may declare.
const MaxDecimals = 36

// ErrInvalidDecimals is returned for a token declaring more than MaxDecimals decimals.
var ErrInvalidDecimals = fmt.Errorf("%w: token decimals must be in [0, %d]", ammerrors.ErrInvalidAmount, MaxDecimals)

// Token is the metadata the pricing engines need about an ERC20 token.
type Token struct {
	Address  common.Address `json:"address" yaml:"address"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Symbol   string         `json:"symbol" yaml:"symbol"`
	Decimals uint8          `json:"decimals" yaml:"decimals"`
}

// Validate checks the token's decimals.
func (t Token) Validate() error {
	if t.Decimals > MaxDecimals {
		return fmt.Errorf("%w: %s has %d", ErrInvalidDecimals, t.Symbol, t.Decimals)
	}
	return nil
}

// SortsBefore reports whether t is token0 of a pair with other: pools order
// their tokens by ascending address.
func (t Token) SortsBefore(other Token) bool {
	return bytes.Compare(t.Address.Bytes(), other.Address.Bytes()) < 0
}

// Scale returns 10^decimals. The value is shared and MUST NOT be modified.
func (t Token) Scale() *big.Int {
	return fixedpoint.Pow10(t.Decimals)
}

func (t Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}

// Sort returns the two tokens in pool order (token0, token1).
func Sort(a, b Token) (Token, Token, error) {
	if a.Address == b.Address {
		return Token{}, Token{}, fmt.Errorf("%w: identical tokens %s", ammerrors.ErrTokenMismatch, a.Address.Hex())
	}
	if a.SortsBefore(b) {
		return a, b, nil
	}
	return b, a, nil
}
