package domain

import (
	"context"

	"github.com/holiman/uint256"
)

// PriceOracle is the external price feed consumed by the valuation engine
type PriceOracle interface {
	// GetPrice returns the scaled unit price of an asset
	// A zero price is the sentinel for "asset not supported"
	GetPrice(ctx context.Context, id AssetID) (*uint256.Int, error)
}

// ShareToken is the mintable index share, as seen by the engine
// The engine never burns or transfers shares
type ShareToken interface {
	// Mint creates amount new shares for to
	Mint(ctx context.Context, to Account, amount *uint256.Int) error

	// TotalSupply returns the number of shares in existence
	TotalSupply(ctx context.Context) (*uint256.Int, error)
}

// AssetRepository defines the interface for fund holding persistence operations
type AssetRepository interface {
	// List retrieves every holding ordered by registry position
	List(ctx context.Context) ([]*Asset, error)
}

// DepositRepository defines the interface for deposit ledger persistence operations
type DepositRepository interface {
	// Record stores the deposit and upserts the resulting holding in one
	// database transaction. finalize runs inside that transaction after the
	// writes; returning an error from it rolls everything back.
	Record(ctx context.Context, deposit *Deposit, holding *Asset, finalize func(ctx context.Context) error) error

	// List retrieves a paginated list of deposits, oldest first
	// If depositor is nil, returns deposits of every depositor
	List(ctx context.Context, limit, offset int, depositor *Account) ([]*Deposit, error)

	// Count returns the number of deposits, optionally for one depositor
	Count(ctx context.Context, depositor *Account) (int, error)

	// TotalShares returns the sum of shares minted over the whole ledger
	TotalShares(ctx context.Context) (*uint256.Int, error)
}

// PriceRepository defines the interface for price history persistence operations
type PriceRepository interface {
	// Add creates a new price history entry
	Add(ctx context.Context, point *PricePoint) error

	// GetLatest retrieves the most recent price for an asset
	// Returns an error wrapping ErrNotFound when the asset was never priced
	GetLatest(ctx context.Context, id AssetID) (*PricePoint, error)
}

// ShareBalanceRepository defines the interface for share token balance persistence
type ShareBalanceRepository interface {
	// List retrieves every non-zero share balance
	List(ctx context.Context) ([]*ShareBalance, error)

	// Save upserts a balance. When ctx carries a deposit transaction the
	// write joins it.
	Save(ctx context.Context, balance *ShareBalance) error
}
