// Package engine puts the quoting and sizing engines of both pool models
// behind one entry point that dispatches on the pool variant, and records
// metrics and logs for every calculation.
package engine

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/ammerrors"
	uniswapv2 "github.com/defistate/defistate-amm/protocols/uniswapv2"
	uniswapv2calculator "github.com/defistate/defistate-amm/protocols/uniswapv2/calculator"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	uniswapv3calculator "github.com/defistate/defistate-amm/protocols/uniswapv3/calculator"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/position"
	"github.com/defistate/defistate-amm/slippage"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the engine's dependencies and caller defaults.
type Config struct {
	Registry prometheus.Registerer
	Logger   Logger
	// Tolerance applies to requests that carry none. Zero selects slippage.Default.
	Tolerance slippage.Tolerance
	// UseFullPrecision sizes token0-funded positions with a full-precision
	// intermediate instead of the periphery contract's truncated one.
	UseFullPrecision bool
	// Deadline, if set, stamps each quote with the unix time a swap built
	// from it should expire at.
	Deadline func(now time.Time) int64
}

func (c *Config) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Tolerance != 0 {
		if _, err := slippage.New(int64(c.Tolerance)); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// Engine is safe for concurrent use.
type Engine struct {
	metrics          *Metrics
	logger           Logger
	tolerance        slippage.Tolerance
	useFullPrecision bool
	deadline         func(now time.Time) int64
}

// New constructs an engine from a configuration, returning an error if the config is invalid.
func New(cfg *Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = slippage.Default
	}
	return &Engine{
		metrics:          NewMetrics(cfg.Registry),
		logger:           cfg.Logger,
		tolerance:        tolerance,
		useFullPrecision: cfg.UseFullPrecision,
		deadline:         cfg.Deadline,
	}, nil
}

// Tolerance returns the engine's default slippage tolerance.
func (e *Engine) Tolerance() slippage.Tolerance {
	return e.tolerance
}

// QuoteRequest asks for a swap quote against one pool snapshot.
type QuoteRequest struct {
	Pool      PoolState
	TokenIn   common.Address
	TradeType amm.TradeType
	// Amount is the input for exact-input quotes, the output otherwise.
	Amount *big.Int
	// SqrtPriceLimitX96 bounds a concentrated-liquidity swap; nil means none.
	SqrtPriceLimitX96 *big.Int
	Tolerance         slippage.Tolerance
}

// SizeRequest asks for the sizing of a liquidity deposit. Either amount may
// be nil; when both are set the limiting side decides.
type SizeRequest struct {
	Pool    PoolState
	Amount0 *big.Int
	Amount1 *big.Int
	// Range is required for concentrated-liquidity pools unless FullRange is set.
	Range     uniswapv3.PriceRange
	FullRange bool
	Tolerance slippage.Tolerance
}

// Quote prices a swap on the request's pool.
func (e *Engine) Quote(req QuoteRequest) (quote amm.SwapQuote, err error) {
	start := time.Now()
	protocol := req.Pool.Protocol()
	defer func() {
		e.metrics.observe(protocol, operationQuote, start, err)
		e.log(protocol, operationQuote, req.Pool, err)
	}()

	quote, err = e.quote(protocol, req)
	if err == nil && e.deadline != nil {
		quote.Deadline = e.deadline(start)
	}
	return quote, err
}

func (e *Engine) quote(protocol ProtocolID, req QuoteRequest) (amm.SwapQuote, error) {
	tolerance := e.toleranceFor(req.Tolerance)
	switch protocol {
	case ProtocolUniswapV2:
		pool, _ := req.Pool.UniswapV2()
		if req.TradeType == amm.ExactOutput {
			return uniswapv2calculator.QuoteExactOutput(pool, req.TokenIn, req.Amount, tolerance)
		}
		return uniswapv2calculator.QuoteExactInput(pool, req.TokenIn, req.Amount, tolerance)
	case ProtocolUniswapV3:
		pool, _ := req.Pool.UniswapV3()
		if req.TradeType == amm.ExactOutput {
			return uniswapv3calculator.QuoteExactOutput(pool, req.TokenIn, req.Amount, req.SqrtPriceLimitX96, tolerance)
		}
		return uniswapv3calculator.QuoteExactInput(pool, req.TokenIn, req.Amount, req.SqrtPriceLimitX96, tolerance)
	default:
		return amm.SwapQuote{}, fmt.Errorf("%w: %q", ammerrors.ErrUnknownProtocol, protocol)
	}
}

// Size computes the liquidity a deposit buys and the amounts it pulls.
func (e *Engine) Size(req SizeRequest) (sizing amm.Sizing, err error) {
	start := time.Now()
	protocol := req.Pool.Protocol()
	defer func() {
		e.metrics.observe(protocol, operationSize, start, err)
		e.log(protocol, operationSize, req.Pool, err)
	}()

	if req.Amount0 == nil && req.Amount1 == nil {
		return amm.Sizing{}, fmt.Errorf("%w: no deposit amount", ammerrors.ErrInvalidAmount)
	}
	tolerance := e.toleranceFor(req.Tolerance)
	switch protocol {
	case ProtocolUniswapV2:
		pool, _ := req.Pool.UniswapV2()
		return sizeV2(pool, req.Amount0, req.Amount1, tolerance)
	case ProtocolUniswapV3:
		pool, _ := req.Pool.UniswapV3()
		r := req.Range
		if req.FullRange {
			spacing, err := pool.Spacing()
			if err != nil {
				return amm.Sizing{}, err
			}
			if r, err = position.FullRange(spacing); err != nil {
				return amm.Sizing{}, err
			}
		}
		return e.sizeV3(pool, r, req.Amount0, req.Amount1, tolerance)
	default:
		return amm.Sizing{}, fmt.Errorf("%w: %q", ammerrors.ErrUnknownProtocol, protocol)
	}
}

// NewSession starts a position-sizing session with the engine's defaults.
func (e *Engine) NewSession() *position.Session {
	return position.NewSession(e.tolerance, e.useFullPrecision)
}

func sizeV2(pool uniswapv2.Pool, amount0, amount1 *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	switch {
	case amount0 != nil && amount1 != nil:
		return uniswapv2calculator.SizeFromAmounts(pool, amount0, amount1, tolerance)
	case amount0 != nil:
		return uniswapv2calculator.SizeFromAmount0(pool, amount0, tolerance)
	default:
		return uniswapv2calculator.SizeFromAmount1(pool, amount1, tolerance)
	}
}

func (e *Engine) sizeV3(pool uniswapv3.Pool, r uniswapv3.PriceRange, amount0, amount1 *big.Int, tolerance slippage.Tolerance) (amm.Sizing, error) {
	switch {
	case amount0 != nil && amount1 != nil:
		return position.FromAmounts(pool, r, amount0, amount1, e.useFullPrecision, tolerance)
	case amount0 != nil:
		return position.FromAmount0(pool, r, amount0, e.useFullPrecision, tolerance)
	default:
		return position.FromAmount1(pool, r, amount1, tolerance)
	}
}

func (e *Engine) toleranceFor(t slippage.Tolerance) slippage.Tolerance {
	if t == 0 {
		return e.tolerance
	}
	return t
}

func (e *Engine) log(protocol ProtocolID, operation string, pool PoolState, err error) {
	address := poolAddress(pool)
	switch ammerrors.KindOf(err) {
	case ammerrors.KindUnknown:
		if err == nil {
			e.logger.Debug("Calculation done", "protocol", protocol, "operation", operation, "pool", address)
			return
		}
		e.logger.Error("Calculation failed", "protocol", protocol, "operation", operation, "pool", address, "err", err)
	case ammerrors.KindRecoverable:
		e.logger.Warn("Calculation rejected", "protocol", protocol, "operation", operation, "pool", address, "err", err)
	case ammerrors.KindFatal:
		e.logger.Error("Calculation failed", "protocol", protocol, "operation", operation, "pool", address, "err", err)
	}
}

func poolAddress(s PoolState) string {
	if p, ok := s.UniswapV2(); ok {
		return p.Address.Hex()
	}
	if p, ok := s.UniswapV3(); ok {
		return p.Address.Hex()
	}
	return ""
}
