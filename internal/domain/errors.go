package domain

import "errors"

// Deposit rejection kinds. Every one of them is detected before any state
// is mutated, so a rejected deposit can be resubmitted as is.
var (
	// ErrUnsupportedAsset is returned when the oracle reports no valid price.
	ErrUnsupportedAsset = errors.New("unsupported asset")

	// ErrDepositBelowMinimum is returned when the deposit valuation is under the floor.
	ErrDepositBelowMinimum = errors.New("deposit below minimum valuation")

	// ErrArithmeticOverflow is returned when a product or sum exceeds 256 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrDegenerateFundState is returned when shares exist but the fund is valued at zero.
	ErrDegenerateFundState = errors.New("degenerate fund state")
)

var (
	ErrInvalidDeposit = errors.New("invalid deposit")
	ErrNotFound       = errors.New("not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSupplyMismatch = errors.New("share supply mismatch")
)

// ErrorKind returns a stable label for err, used in metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedAsset):
		return "unsupported_asset"
	case errors.Is(err, ErrDepositBelowMinimum):
		return "below_minimum"
	case errors.Is(err, ErrArithmeticOverflow):
		return "overflow"
	case errors.Is(err, ErrDegenerateFundState):
		return "degenerate_fund"
	case errors.Is(err, ErrInvalidDeposit):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrSupplyMismatch):
		return "supply_mismatch"
	default:
		return "internal"
	}
}
