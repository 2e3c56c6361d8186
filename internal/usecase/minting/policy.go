package minting

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// CheckMinimum rejects deposits valued under the policy floor
func CheckMinimum(policy domain.MintingPolicy, depositValuation *uint256.Int) error {
	if depositValuation.Lt(policy.MinDepositValuation) {
		return fmt.Errorf("%w: valued %s, minimum %s",
			domain.ErrDepositBelowMinimum, depositValuation.Dec(), policy.MinDepositValuation.Dec())
	}
	return nil
}

// SharesToMint calculates how many shares a deposit is worth
// Logic:
//  1. Reject deposits under the minimum valuation
//  2. No shares yet: shares = depositValuation / BootstrapPrice
//  3. Otherwise: shares = depositValuation × supplyBefore / fundValueBefore
//
// Both divisions truncate. The pro-rata branch multiplies into a 512-bit
// intermediate before dividing, so price per share is held constant across
// the deposit. fundValueBefore and supplyBefore must be read before the
// deposit touches any state.
func SharesToMint(policy domain.MintingPolicy, depositValuation, fundValueBefore, supplyBefore *uint256.Int) (*uint256.Int, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	if err := CheckMinimum(policy, depositValuation); err != nil {
		return nil, err
	}

	// Bootstrap: nothing to derive a share price from
	if supplyBefore.IsZero() {
		return new(uint256.Int).Div(depositValuation, policy.BootstrapPrice), nil
	}

	if fundValueBefore.IsZero() {
		return nil, fmt.Errorf("%w: supply %s backed by zero valuation",
			domain.ErrDegenerateFundState, supplyBefore.Dec())
	}

	shares, overflow := new(uint256.Int).MulDivOverflow(depositValuation, supplyBefore, fundValueBefore)
	if overflow {
		return nil, fmt.Errorf("%w: %s x %s / %s", domain.ErrArithmeticOverflow,
			depositValuation.Dec(), supplyBefore.Dec(), fundValueBefore.Dec())
	}
	return shares, nil
}
