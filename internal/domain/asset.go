package domain

import (
	"errors"
	"strings"

	"github.com/holiman/uint256"
)

// AssetID identifies an approved asset (for example a token contract address)
type AssetID string

// Account identifies a depositor or share holder
type Account string

// Asset represents a holding of the fund in the domain layer
// Balance is expressed in the asset's base units and only ever grows
type Asset struct {
	ID       AssetID
	Position int // insertion order inside the registry
	Balance  *uint256.Int
}

// Validate ensures the asset adheres to domain rules
// Returns an error if validation fails
func (a *Asset) Validate() error {
	if strings.TrimSpace(string(a.ID)) == "" {
		return errors.New("asset id cannot be empty")
	}

	if a.Position < 0 {
		return errors.New("asset position must be non-negative")
	}

	if a.Balance == nil {
		return errors.New("asset balance must be set")
	}

	return nil
}

// Clone returns a deep copy so callers cannot mutate registry state
func (a *Asset) Clone() *Asset {
	out := &Asset{ID: a.ID, Position: a.Position}
	if a.Balance != nil {
		out.Balance = a.Balance.Clone()
	}
	return out
}

// Validate reports whether the account identifier is usable
func (acc Account) Validate() error {
	if strings.TrimSpace(string(acc)) == "" {
		return errors.New("account cannot be empty")
	}
	return nil
}
