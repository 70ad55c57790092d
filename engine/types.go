package engine

import (
	"encoding/json"
	"fmt"

	"github.com/defistate/defistate-amm/ammerrors"
	tokenregistry "github.com/defistate/defistate-amm/protocols/tokenregistry"
	uniswapv2 "github.com/defistate/defistate-amm/protocols/uniswapv2"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
)

// ProtocolID names a pool model.
type ProtocolID string

const (
	ProtocolUniswapV2 ProtocolID = "uniswapv2"
	ProtocolUniswapV3 ProtocolID = "uniswapv3"
)

// PoolState is a snapshot of exactly one pool variant. The zero value holds
// no variant and is rejected by every operation with ErrUnknownProtocol.
type PoolState struct {
	protocol ProtocolID
	v2       uniswapv2.Pool
	v3       uniswapv3.Pool
}

// NewUniswapV2State wraps a constant-product snapshot.
func NewUniswapV2State(pool uniswapv2.Pool) PoolState {
	return PoolState{protocol: ProtocolUniswapV2, v2: pool}
}

// NewUniswapV3State wraps a concentrated-liquidity snapshot.
func NewUniswapV3State(pool uniswapv3.Pool) PoolState {
	return PoolState{protocol: ProtocolUniswapV3, v3: pool}
}

// Protocol returns the variant's protocol, empty for the zero value.
func (s PoolState) Protocol() ProtocolID {
	return s.protocol
}

// UniswapV2 returns the constant-product snapshot, if that is the variant.
func (s PoolState) UniswapV2() (uniswapv2.Pool, bool) {
	return s.v2, s.protocol == ProtocolUniswapV2
}

// UniswapV3 returns the concentrated-liquidity snapshot, if that is the variant.
func (s PoolState) UniswapV3() (uniswapv3.Pool, bool) {
	return s.v3, s.protocol == ProtocolUniswapV3
}

// Tokens returns the held pool's token pair in pool order.
func (s PoolState) Tokens() (token0, token1 tokenregistry.Token, err error) {
	switch s.protocol {
	case ProtocolUniswapV2:
		return s.v2.Token0, s.v2.Token1, nil
	case ProtocolUniswapV3:
		return s.v3.Token0, s.v3.Token1, nil
	default:
		return token0, token1, fmt.Errorf("%w: %q", ammerrors.ErrUnknownProtocol, s.protocol)
	}
}

// ResolveToken finds one of the pool's tokens by hex address or symbol.
func (s PoolState) ResolveToken(ref string) (tokenregistry.Token, error) {
	token0, token1, err := s.Tokens()
	if err != nil {
		return tokenregistry.Token{}, err
	}
	reg, err := tokenregistry.NewRegistry([]tokenregistry.Token{token0, token1})
	if err != nil {
		return tokenregistry.Token{}, err
	}
	t, ok := reg.Resolve(ref)
	if !ok {
		return tokenregistry.Token{}, fmt.Errorf("%w: %q is not %s or %s", ammerrors.ErrTokenMismatch, ref, token0.Symbol, token1.Symbol)
	}
	return t, nil
}

// Validate checks the held snapshot.
func (s PoolState) Validate() error {
	switch s.protocol {
	case ProtocolUniswapV2:
		return s.v2.Validate()
	case ProtocolUniswapV3:
		return s.v3.Validate()
	default:
		return fmt.Errorf("%w: %q", ammerrors.ErrUnknownProtocol, s.protocol)
	}
}

// poolStateJSON is the wire form: the protocol decides how Data decodes.
type poolStateJSON struct {
	Protocol ProtocolID      `json:"protocol"`
	Data     json.RawMessage `json:"data"`
}

func (s PoolState) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch s.protocol {
	case ProtocolUniswapV2:
		data, err = json.Marshal(s.v2)
	case ProtocolUniswapV3:
		data, err = json.Marshal(s.v3)
	default:
		return nil, fmt.Errorf("%w: %q", ammerrors.ErrUnknownProtocol, s.protocol)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(poolStateJSON{Protocol: s.protocol, Data: data})
}

func (s *PoolState) UnmarshalJSON(b []byte) error {
	var raw poolStateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Protocol {
	case ProtocolUniswapV2:
		var pool uniswapv2.Pool
		if err := json.Unmarshal(raw.Data, &pool); err != nil {
			return fmt.Errorf("decode %s pool: %w", raw.Protocol, err)
		}
		*s = NewUniswapV2State(pool)
	case ProtocolUniswapV3:
		var pool uniswapv3.Pool
		if err := json.Unmarshal(raw.Data, &pool); err != nil {
			return fmt.Errorf("decode %s pool: %w", raw.Protocol, err)
		}
		*s = NewUniswapV3State(pool)
	default:
		return fmt.Errorf("%w: %q", ammerrors.ErrUnknownProtocol, raw.Protocol)
	}
	return nil
}
