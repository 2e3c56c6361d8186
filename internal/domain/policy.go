package domain

import (
	"errors"

	"github.com/holiman/uint256"
)

// MintingPolicy holds the constants share issuance is computed with
type MintingPolicy struct {
	MinDepositValuation *uint256.Int // floor, in valuation base units
	BootstrapPrice      *uint256.Int // valuation per share while no shares exist
}

// Validate ensures the policy adheres to domain rules
// Returns an error if validation fails
func (p *MintingPolicy) Validate() error {
	if p.MinDepositValuation == nil {
		return errors.New("minimum deposit valuation must be set")
	}

	// The bootstrap price is a divisor
	if p.BootstrapPrice == nil || p.BootstrapPrice.IsZero() {
		return errors.New("bootstrap price must be positive")
	}

	return nil
}
