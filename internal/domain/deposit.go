package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Deposit represents an accepted contribution in the fund ledger
// It records the pre-deposit snapshot the shares were priced against
type Deposit struct {
	ID              uuid.UUID
	Depositor       Account
	AssetID         AssetID
	Amount          *uint256.Int // asset base units
	Price           *uint256.Int // oracle price used, scaled
	Valuation       *uint256.Int // value of Amount in the valuation currency
	FundValueBefore *uint256.Int
	SupplyBefore    *uint256.Int
	Shares          *uint256.Int // shares minted to Depositor
	CreatedAt       time.Time
}

// Validate ensures the deposit adheres to domain rules
// Returns an error if validation fails
func (d *Deposit) Validate() error {
	if d.ID == uuid.Nil {
		return errors.New("deposit id must be set")
	}

	if err := d.Depositor.Validate(); err != nil {
		return err
	}

	holding := Asset{ID: d.AssetID, Balance: d.Amount}
	if err := holding.Validate(); err != nil {
		return err
	}

	// Every amount must be present; snapshot values may legitimately be zero
	for _, v := range []*uint256.Int{d.Price, d.Valuation, d.FundValueBefore, d.SupplyBefore, d.Shares} {
		if v == nil {
			return errors.New("deposit amounts must all be set")
		}
	}

	if d.Amount.IsZero() {
		return errors.New("deposit amount must be positive")
	}

	if d.Shares.IsZero() {
		return errors.New("deposit must mint a positive number of shares")
	}

	if d.CreatedAt.IsZero() {
		return errors.New("deposit time must be set")
	}

	return nil
}
