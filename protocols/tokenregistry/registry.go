package tokenregistry

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Registry provides indexed lookups over a fixed list of known tokens.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	byAddress map[common.Address]Token
	bySymbol  map[string]Token
	all       []Token
}

// NewRegistry indexes tokens by address and upper-cased symbol. A later token
// with a duplicate symbol shadows an earlier one in symbol lookups only.
func NewRegistry(tokens []Token) (*Registry, error) {
	r := &Registry{
		byAddress: make(map[common.Address]Token, len(tokens)),
		bySymbol:  make(map[string]Token, len(tokens)),
		all:       make([]Token, 0, len(tokens)),
	}
	for _, t := range tokens {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		r.byAddress[t.Address] = t
		if t.Symbol != "" {
			r.bySymbol[strings.ToUpper(t.Symbol)] = t
		}
		r.all = append(r.all, t)
	}
	return r, nil
}

// GetByAddress retrieves a token by its contract address.
func (r *Registry) GetByAddress(address common.Address) (Token, bool) {
	t, ok := r.byAddress[address]
	return t, ok
}

// GetBySymbol retrieves a token by symbol, case-insensitively.
func (r *Registry) GetBySymbol(symbol string) (Token, bool) {
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// Resolve looks up a token given either its hex address or its symbol.
func (r *Registry) Resolve(ref string) (Token, bool) {
	if common.IsHexAddress(ref) {
		return r.GetByAddress(common.HexToAddress(ref))
	}
	return r.GetBySymbol(ref)
}

// All returns a copy of the registered tokens.
func (r *Registry) All() []Token {
	allCopy := make([]Token, len(r.all))
	copy(allCopy, r.all)
	return allCopy
}
