package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// SeedPrice is an approved asset and the price it starts with
type SeedPrice struct {
	AssetID domain.AssetID
	Price   *uint256.Int
}

// PriceSeeder makes sure every approved asset has a price in the store
type PriceSeeder struct {
	repo domain.PriceRepository

	// Refresh appends a new price point when the stored one differs
	Refresh bool

	now func() time.Time
}

// NewPriceSeeder creates a new PriceSeeder instance
func NewPriceSeeder(repo domain.PriceRepository) *PriceSeeder {
	return &PriceSeeder{
		repo: repo,
		now:  time.Now,
	}
}

// Seed writes a price point for each asset that has none yet
// Returns the number of price points written
func (s *PriceSeeder) Seed(ctx context.Context, prices []SeedPrice) (int, error) {
	written := 0
	for _, sp := range prices {
		asset := domain.Asset{ID: sp.AssetID, Balance: uint256.NewInt(0)}
		if err := asset.Validate(); err != nil {
			return written, err
		}
		if sp.Price == nil {
			return written, fmt.Errorf("price of %s must be set", sp.AssetID)
		}

		latest, err := s.repo.GetLatest(ctx, sp.AssetID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// Not priced yet, seed it below
		case err != nil:
			return written, fmt.Errorf("failed to get latest price of %s: %w", sp.AssetID, err)
		case !s.Refresh || latest.Price.Eq(sp.Price):
			continue
		}

		point := &domain.PricePoint{
			ID:         uuid.New(),
			AssetID:    sp.AssetID,
			Price:      sp.Price.Clone(),
			ObservedAt: s.now().UTC(),
		}
		if err := s.repo.Add(ctx, point); err != nil {
			return written, fmt.Errorf("failed to seed price of %s: %w", sp.AssetID, err)
		}
		written++
	}

	return written, nil
}
