// Package ammerrors defines the error taxonomy shared by the quoting and
// sizing engines. Every calculation error wraps exactly one of the sentinels
// below, so callers can classify it with errors.Is or KindOf.
package ammerrors

import (
	"github.com/go-faster/errors"
)

// Kind tells the caller whether an error is a user-facing condition or a bug.
type Kind uint8

const (
	// KindUnknown is returned for errors that did not originate in this module.
	KindUnknown Kind = iota
	// KindRecoverable errors are rendered to the user (no pool, bad range, ...).
	KindRecoverable
	// KindFatal errors abort the calculation and indicate a caller bug or an
	// arithmetic bound being exceeded.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindRecoverable:
		return "recoverable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	// ErrPoolUninitialized is returned for a V2 pool with a zero reserve or a
	// V3 pool whose sqrt price is zero.
	ErrPoolUninitialized = errors.New("pool uninitialized")
	// ErrInsufficientLiquidity is returned when a non-zero input produces no
	// output, or the trade does not fit the available liquidity.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidRange is returned when tickLower >= tickUpper or min price >= max price.
	ErrInvalidRange = errors.New("invalid price range")
	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
	// ErrTokenMismatch is returned when a token is not part of the pool.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrTokenNotRequired is returned when an amount is supplied for a token the
	// position cannot use at the current price.
	ErrTokenNotRequired = errors.New("token not required for this range")
	// ErrInvalidSlippage is returned for a slippage tolerance outside its bounds.
	ErrInvalidSlippage = errors.New("invalid slippage tolerance")
	// ErrInvalidFeeTier is returned for a fee tier other than 100, 500, 3000 or 10000.
	ErrInvalidFeeTier = errors.New("invalid fee tier")
	// ErrInvalidSnapshot is returned for a pool snapshot whose fields disagree,
	// such as a tick that does not match the sqrt price or unsorted ticks.
	ErrInvalidSnapshot = errors.New("inconsistent pool snapshot")

	// ErrTickOutOfRange is returned for a tick outside [MinTick, MaxTick].
	ErrTickOutOfRange = errors.New("tick out of range")
	// ErrSqrtPriceOutOfRange is returned for a sqrt price outside [MinSqrtRatio, MaxSqrtRatio).
	ErrSqrtPriceOutOfRange = errors.New("sqrt price out of range")
	// ErrOverflow is returned when a result does not fit its fixed-width type.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrDivisionByZero is returned when a denominator is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidTickSpacing is returned for a non-positive tick spacing.
	ErrInvalidTickSpacing = errors.New("invalid tick spacing")
	// ErrUnknownProtocol is returned when a pool state carries no known variant.
	ErrUnknownProtocol = errors.New("unknown pool protocol")
)

var recoverable = []error{
	ErrPoolUninitialized,
	ErrInsufficientLiquidity,
	ErrInvalidRange,
	ErrInvalidAmount,
	ErrTokenMismatch,
	ErrTokenNotRequired,
	ErrInvalidSlippage,
	ErrInvalidFeeTier,
	ErrInvalidSnapshot,
}

var fatal = []error{
	ErrTickOutOfRange,
	ErrSqrtPriceOutOfRange,
	ErrOverflow,
	ErrDivisionByZero,
	ErrInvalidTickSpacing,
	ErrUnknownProtocol,
}

// KindOf classifies err. Fatal wins when an error chain carries both kinds.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, target := range fatal {
		if errors.Is(err, target) {
			return KindFatal
		}
	}
	for _, target := range recoverable {
		if errors.Is(err, target) {
			return KindRecoverable
		}
	}
	return KindUnknown
}

// Message returns the text shown to an end user for err.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPoolUninitialized):
		return "no liquidity pool found"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient liquidity for this trade"
	case errors.Is(err, ErrInvalidRange):
		return "invalid price range: the minimum price must be lower than the maximum price"
	case errors.Is(err, ErrTokenNotRequired):
		return "the current price is outside the range; only one token can be deposited"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid amount"
	case errors.Is(err, ErrTokenMismatch):
		return "token is not part of this pool"
	case errors.Is(err, ErrInvalidSlippage):
		return "invalid slippage tolerance"
	case errors.Is(err, ErrInvalidFeeTier):
		return "unsupported fee tier"
	case errors.Is(err, ErrInvalidSnapshot):
		return "pool data is out of date, refresh and try again"
	}
	return "calculation failed"
}
