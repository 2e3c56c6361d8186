package domain

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest power of ten that fits in 256 bits.
const MaxDecimals = 77

// Pow10 returns 10^decimals.
func Pow10(decimals uint8) (*uint256.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: 10^%d", ErrArithmeticOverflow, decimals)
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals))), nil
}

// Value returns floor(amount × price / scale) using a 512-bit intermediate.
// A nil or zero scale means prices are unscaled.
func Value(amount, price, scale *uint256.Int) (*uint256.Int, error) {
	if scale == nil || scale.IsZero() {
		scale = uint256.NewInt(1)
	}
	out, overflow := new(uint256.Int).MulDivOverflow(amount, price, scale)
	if overflow {
		return nil, fmt.Errorf("%w: %s x %s", ErrArithmeticOverflow, amount.Dec(), price.Dec())
	}
	return out, nil
}

// CheckedAdd returns a + b or ErrArithmeticOverflow.
func CheckedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, a.Dec(), b.Dec())
	}
	return out, nil
}

// ParseUnits converts a human readable decimal ("1000.5") into base units
// with the given number of decimals.
func ParseUnits(s string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: must not be negative", s)
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("invalid amount %q: more than %d decimal places", s, decimals)
	}

	out, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrArithmeticOverflow, s)
	}
	return out, nil
}

// ParseBaseUnits parses an integer amount already expressed in base units.
func ParseBaseUnits(s string) (*uint256.Int, error) {
	out, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return out, nil
}

// FormatUnits renders base units as a decimal with the given precision.
func FormatUnits(v *uint256.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -decimals)
}
