// Package api serves quotes and position sizings over HTTP.
package api

import (
	"context"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/chains"
	"github.com/defistate/defistate-amm/engine"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/protocols/uniswapv3/position"
	"github.com/defistate/defistate-amm/slippage"
)

const (
	readTimeout      = 10 * time.Second
	displayPrecision = 6
)

// Config holds the handler's dependencies.
type Config struct {
	Engine   *engine.Engine
	Reader   chains.PoolReader
	Logger   chains.Logger
	Gatherer prometheus.Gatherer
}

func (c *Config) validate() error {
	if c.Engine == nil {
		return errors.New("config: Engine cannot be nil")
	}
	if c.Reader == nil {
		return errors.New("config: Reader cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Gatherer == nil {
		return errors.New("config: Gatherer cannot be nil")
	}
	return nil
}

// Handler reads a pool snapshot per request and runs it through the engine.
type Handler struct {
	engine   *engine.Engine
	reader   chains.PoolReader
	logger   chains.Logger
	gatherer prometheus.Gatherer
}

// New constructs a handler from a configuration, returning an error if the config is invalid.
func New(cfg *Config) (*Handler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Handler{
		engine:   cfg.Engine,
		reader:   cfg.Reader,
		logger:   cfg.Logger,
		gatherer: cfg.Gatherer,
	}, nil
}

// NewApp returns a fiber app with JSON errors and the handler's routes.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	h.Register(app)
	return app
}

// Register mounts the routes on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/v2/quote", h.quote(engine.ProtocolUniswapV2))
	app.Get("/v3/quote", h.quote(engine.ProtocolUniswapV3))
	app.Get("/v3/size", h.sizeV3())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
}

// QuoteRequest is the query of the quote routes.
type QuoteRequest struct {
	Pool    string `query:"pool"`
	TokenIn string `query:"token_in"`
	Amount  string `query:"amount"`
	// TradeType is "exact_input" (default) or "exact_output".
	TradeType string `query:"trade_type"`
	// SqrtPriceLimit is a Q64.96 sqrt price limit, concentrated-liquidity pools only.
	SqrtPriceLimit string `query:"sqrt_price_limit"`
	// Slippage is a percentage such as "0.5"; invalid values fall back to the default.
	Slippage string `query:"slippage"`
}

func (h *Handler) quote(protocol engine.ProtocolID) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req QuoteRequest
		if err := c.Bind().Query(&req); err != nil {
			h.logger.Debug("failed to bind query parameters", "err", err)
			return ErrInvalidQueryParameters
		}
		pool, err := parseAddress("pool", req.Pool)
		if err != nil {
			return err
		}
		tokenIn, err := parseAddress("token_in", req.TokenIn)
		if err != nil {
			return err
		}
		if req.Amount == "" {
			return ErrAmountRequired
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			return err
		}
		tradeType := amm.ExactInput
		switch req.TradeType {
		case "", "exact_input":
		case "exact_output":
			tradeType = amm.ExactOutput
		default:
			return fiber.NewError(fiber.StatusBadRequest, "trade_type must be exact_input or exact_output")
		}
		var limit *big.Int
		if req.SqrtPriceLimit != "" {
			if limit, err = parseAmount(req.SqrtPriceLimit); err != nil {
				return err
			}
		}

		state, err := h.readPool(c.Context(), protocol, pool)
		if err != nil {
			return err
		}
		quote, err := h.engine.Quote(engine.QuoteRequest{
			Pool:              state,
			TokenIn:           tokenIn,
			TradeType:         tradeType,
			Amount:            amount,
			SqrtPriceLimitX96: limit,
			Tolerance:         slippage.Parse(req.Slippage, h.engine.Tolerance()),
		})
		if err != nil {
			return fromCalculation(err)
		}
		resp, err := newQuoteResponse(state, quote)
		if err != nil {
			return fromCalculation(err)
		}
		return c.JSON(resp)
	}
}

// SizeRequest is the query of the sizing route. The range is given by ticks,
// by prices of token0 in token1, or as the full range.
type SizeRequest struct {
	Pool      string `query:"pool"`
	TickLower string `query:"tick_lower"`
	TickUpper string `query:"tick_upper"`
	MinPrice  string `query:"min_price"`
	MaxPrice  string `query:"max_price"`
	FullRange bool   `query:"full_range"`
	Amount0   string `query:"amount0"`
	Amount1   string `query:"amount1"`
	Slippage  string `query:"slippage"`
}

func (h *Handler) sizeV3() fiber.Handler {
	return func(c fiber.Ctx) error {
		var req SizeRequest
		if err := c.Bind().Query(&req); err != nil {
			h.logger.Debug("failed to bind query parameters", "err", err)
			return ErrInvalidQueryParameters
		}
		pool, err := parseAddress("pool", req.Pool)
		if err != nil {
			return err
		}
		if req.Amount0 == "" && req.Amount1 == "" {
			return ErrAmountRequired
		}
		var amount0, amount1 *big.Int
		if req.Amount0 != "" {
			if amount0, err = parseAmount(req.Amount0); err != nil {
				return err
			}
		}
		if req.Amount1 != "" {
			if amount1, err = parseAmount(req.Amount1); err != nil {
				return err
			}
		}

		state, err := h.readPool(c.Context(), engine.ProtocolUniswapV3, pool)
		if err != nil {
			return err
		}
		v3, _ := state.UniswapV3()
		r, err := parseRange(req, v3)
		if err != nil {
			return err
		}

		sizing, err := h.engine.Size(engine.SizeRequest{
			Pool:      state,
			Amount0:   amount0,
			Amount1:   amount1,
			Range:     r,
			FullRange: req.FullRange,
			Tolerance: slippage.Parse(req.Slippage, h.engine.Tolerance()),
		})
		if err != nil {
			return fromCalculation(err)
		}
		return c.JSON(newSizeResponse(v3, sizing))
	}
}

func (h *Handler) readPool(ctx context.Context, protocol engine.ProtocolID, pool common.Address) (engine.PoolState, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	state, err := chains.ReadPoolState(ctx, h.reader, protocol, pool, nil)
	if err != nil {
		h.logger.Error("pool read failed", "protocol", protocol, "pool", pool.Hex(), "err", err)
		return engine.PoolState{}, ErrPoolReadFailed
	}
	return state, nil
}

func parseRange(req SizeRequest, pool uniswapv3.Pool) (uniswapv3.PriceRange, error) {
	switch {
	case req.FullRange:
		return uniswapv3.PriceRange{}, nil
	case req.TickLower != "" && req.TickUpper != "":
		lower, err := strconv.ParseInt(req.TickLower, 10, 64)
		if err != nil {
			return uniswapv3.PriceRange{}, fiber.NewError(fiber.StatusBadRequest, "invalid tick_lower")
		}
		upper, err := strconv.ParseInt(req.TickUpper, 10, 64)
		if err != nil {
			return uniswapv3.PriceRange{}, fiber.NewError(fiber.StatusBadRequest, "invalid tick_upper")
		}
		return uniswapv3.PriceRange{TickLower: lower, TickUpper: upper}, nil
	case req.MinPrice != "" && req.MaxPrice != "":
		spacing, err := pool.Spacing()
		if err != nil {
			return uniswapv3.PriceRange{}, fromCalculation(err)
		}
		r, err := position.RangeFromPrices(req.MinPrice, req.MaxPrice, pool.Token0, pool.Token1, spacing)
		if err != nil {
			return uniswapv3.PriceRange{}, fromCalculation(err)
		}
		return r, nil
	default:
		return uniswapv3.PriceRange{}, ErrRangeRequired
	}
}

func parseAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, NewAddressRequired(field)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, NewInvalidAddress(field)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, ErrInvalidAmountFormat
	}
	return amount, nil
}
