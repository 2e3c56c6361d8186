package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// PricePoint represents an oracle price observation for an asset
// Price is the value of one whole asset unit in the valuation currency,
// scaled by the configured price decimals. Zero means "not supported".
type PricePoint struct {
	ID         uuid.UUID
	AssetID    AssetID
	Price      *uint256.Int
	ObservedAt time.Time
}

// ShareBalance represents the share token balance of one holder
type ShareBalance struct {
	Account Account
	Balance *uint256.Int
}
