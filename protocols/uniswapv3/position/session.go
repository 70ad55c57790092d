package position

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm/amm"
	"github.com/defistate/defistate-amm/ammerrors"
	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/slippage"
)

// State is the step a sizing Session is at.
type State uint8

const (
	StateIdle State = iota
	StateRangeSelected
	StateAmountEntered
	StateSized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRangeSelected:
		return "rangeSelected"
	case StateAmountEntered:
		return "amountEntered"
	case StateSized:
		return "sized"
	default:
		return "unknown"
	}
}

// Side names the token whose amount the user entered last.
type Side uint8

const (
	Token0 Side = iota
	Token1
)

// Session walks one liquidity provider through sizing a deposit:
// Idle -> RangeSelected -> AmountEntered -> Sized. A new pool, token pair or
// fee tier sends it back to Idle, a new range back to RangeSelected, and a
// new snapshot of the same pool discards the sized result.
//
// A Session is owned by one caller and is not safe for concurrent use.
type Session struct {
	tolerance        slippage.Tolerance
	useFullPrecision bool

	state   State
	pool    uniswapv3.Pool
	hasPool bool
	rng     uniswapv3.PriceRange
	side    Side
	amount  *big.Int
	result  amm.Sizing
}

// NewSession returns an idle session. A zero tolerance selects slippage.Default.
func NewSession(tolerance slippage.Tolerance, useFullPrecision bool) *Session {
	if tolerance == 0 {
		tolerance = slippage.Default
	}
	return &Session{tolerance: tolerance, useFullPrecision: useFullPrecision}
}

// State returns the current step.
func (s *Session) State() State {
	return s.state
}

// Range returns the selected range, valid from StateRangeSelected on.
func (s *Session) Range() (uniswapv3.PriceRange, bool) {
	return s.rng, s.state >= StateRangeSelected
}

// Reset discards everything and returns to Idle.
func (s *Session) Reset() {
	*s = Session{tolerance: s.tolerance, useFullPrecision: s.useFullPrecision}
}

// SetPool installs a pool snapshot. A different pool, token pair or fee tier
// resets the session; a fresh snapshot of the same pool keeps the range and
// amount but drops any sized result.
func (s *Session) SetPool(pool uniswapv3.Pool) error {
	if err := pool.Validate(); err != nil {
		return err
	}
	snapshot := clonePool(pool)
	if !s.hasPool || !samePool(s.pool, snapshot) {
		s.Reset()
		s.pool, s.hasPool = snapshot, true
		return nil
	}
	s.pool = snapshot
	if s.state == StateSized {
		s.state = StateAmountEntered
		s.result = amm.Sizing{}
	}
	return nil
}

// SelectRange validates r against the pool's tick spacing and clears any
// entered amount.
func (s *Session) SelectRange(r uniswapv3.PriceRange) error {
	if !s.hasPool {
		return fmt.Errorf("%w: select a pool before a range", ammerrors.ErrPoolUninitialized)
	}
	spacing, err := s.pool.Spacing()
	if err != nil {
		return err
	}
	if err := r.Validate(spacing); err != nil {
		return err
	}
	s.rng = r
	s.amount = nil
	s.result = amm.Sizing{}
	s.state = StateRangeSelected
	return nil
}

// SelectFullRange selects the widest range of the pool's tick spacing.
func (s *Session) SelectFullRange() error {
	if !s.hasPool {
		return fmt.Errorf("%w: select a pool before a range", ammerrors.ErrPoolUninitialized)
	}
	spacing, err := s.pool.Spacing()
	if err != nil {
		return err
	}
	r, err := FullRange(spacing)
	if err != nil {
		return err
	}
	return s.SelectRange(r)
}

// EnterAmount records the amount of one token the user typed. The other
// token's amount is derived when the session is sized. Entering a token the
// range cannot use yields ErrTokenNotRequired and leaves the session as is.
func (s *Session) EnterAmount(side Side, amount *big.Int) error {
	if s.state < StateRangeSelected {
		return fmt.Errorf("%w: select a range before an amount", ammerrors.ErrInvalidRange)
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	regime, err := RegimeOf(s.pool, s.rng)
	if err != nil {
		return err
	}
	if side == Token0 && regime == AboveRange || side == Token1 && regime == BelowRange {
		return fmt.Errorf("%w: %s for a position %s", ammerrors.ErrTokenNotRequired, side, regime)
	}
	s.side = side
	s.amount = new(big.Int).Set(amount)
	s.result = amm.Sizing{}
	s.state = StateAmountEntered
	return nil
}

// Size computes the sizing for the current snapshot, range and amount.
func (s *Session) Size() (amm.Sizing, error) {
	switch s.state {
	case StateSized:
		return s.result, nil
	case StateAmountEntered:
	default:
		return amm.Sizing{}, fmt.Errorf("%w: session is %s", ammerrors.ErrInvalidAmount, s.state)
	}

	var (
		sizing amm.Sizing
		err    error
	)
	if s.side == Token0 {
		sizing, err = FromAmount0(s.pool, s.rng, s.amount, s.useFullPrecision, s.tolerance)
	} else {
		sizing, err = FromAmount1(s.pool, s.rng, s.amount, s.tolerance)
	}
	if err != nil {
		return amm.Sizing{}, err
	}
	s.result = sizing
	s.state = StateSized
	return sizing, nil
}

// Result returns the sized result, if the session holds one for its current
// snapshot.
func (s *Session) Result() (amm.Sizing, bool) {
	if s.state != StateSized {
		return amm.Sizing{}, false
	}
	return s.result, true
}

func (s Side) String() string {
	if s == Token0 {
		return "token0"
	}
	return "token1"
}

func samePool(a, b uniswapv3.Pool) bool {
	return a.Address == b.Address &&
		a.Token0.Address == b.Token0.Address &&
		a.Token1.Address == b.Token1.Address &&
		a.Fee == b.Fee &&
		a.TickSpacing == b.TickSpacing
}

// clonePool copies the snapshot's big.Int fields so later changes by the
// caller cannot reach the session.
func clonePool(p uniswapv3.Pool) uniswapv3.Pool {
	c := p
	c.SqrtPriceX96 = new(big.Int).Set(p.SqrtPriceX96)
	c.Liquidity = new(big.Int).Set(p.Liquidity)
	if p.Ticks != nil {
		c.Ticks = append([]uniswapv3.TickInfo(nil), p.Ticks...)
	}
	return c
}
