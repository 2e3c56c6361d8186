package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// Store prices assets from the latest entry of the price history.
// Assets never priced, or priced longer than MaxAge ago, report zero.
type Store struct {
	Repo   domain.PriceRepository
	MaxAge time.Duration // 0 disables the staleness check

	now func() time.Time
}

// NewStore creates a new Store instance
func NewStore(repo domain.PriceRepository, maxAge time.Duration) *Store {
	return &Store{Repo: repo, MaxAge: maxAge, now: time.Now}
}

// GetPrice implements domain.PriceOracle.
func (s *Store) GetPrice(ctx context.Context, id domain.AssetID) (*uint256.Int, error) {
	point, err := s.Repo.GetLatest(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return uint256.NewInt(0), nil
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	if s.MaxAge > 0 && s.clock().Sub(point.ObservedAt) > s.MaxAge {
		return uint256.NewInt(0), nil
	}
	if point.Price == nil {
		return uint256.NewInt(0), nil
	}
	return point.Price.Clone(), nil
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
