// Package bitmath finds the most and least significant set bits of
// arbitrary-size non-negative integers.
package bitmath

import (
	"errors"
	"math/big"
	"math/bits"

	"github.com/holiman/uint256"
)

var (
	// ErrInputIsZero is returned when a function requires a non-zero input but receives zero.
	ErrInputIsZero = errors.New("input must be greater than zero")
	// ErrInputIsNil is returned when a function receives a nil pointer.
	ErrInputIsNil = errors.New("input cannot be nil")
)

// MostSignificantBit returns the index of the highest set bit of x, so that
// 2**msb <= x < 2**(msb+1). Unlike the on-chain version the input is not
// limited to 256 bits.
func MostSignificantBit(x *big.Int) (uint, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.Sign() <= 0 {
		return 0, ErrInputIsZero
	}
	return uint(x.BitLen() - 1), nil
}

// LeastSignificantBit returns the index of the lowest set bit of x, so that
// x & 2**lsb != 0 and x & (2**lsb - 1) == 0.
func LeastSignificantBit(x *big.Int) (uint, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.Sign() <= 0 {
		return 0, ErrInputIsZero
	}
	return x.TrailingZeroBits(), nil
}

// MostSignificantBit256 is MostSignificantBit for a uint256 operand.
func MostSignificantBit256(x *uint256.Int) (uint, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.IsZero() {
		return 0, ErrInputIsZero
	}
	return uint(x.BitLen() - 1), nil
}

// LeastSignificantBit256 is LeastSignificantBit for a uint256 operand.
func LeastSignificantBit256(x *uint256.Int) (uint, error) {
	if x == nil {
		return 0, ErrInputIsNil
	}
	if x.IsZero() {
		return 0, ErrInputIsZero
	}
	for i, word := range x {
		if word != 0 {
			return uint(i*64 + bits.TrailingZeros64(word)), nil
		}
	}
	return 0, ErrInputIsZero
}
