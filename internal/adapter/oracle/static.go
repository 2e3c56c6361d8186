package oracle

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// Static is an in-memory price table. Unknown assets are priced at zero.
type Static struct {
	mu     sync.RWMutex
	prices map[domain.AssetID]*uint256.Int
}

// NewStatic creates a price table seeded with prices.
func NewStatic(prices map[domain.AssetID]*uint256.Int) *Static {
	s := &Static{prices: make(map[domain.AssetID]*uint256.Int, len(prices))}
	for id, p := range prices {
		s.prices[id] = p.Clone()
	}
	return s
}

// Set replaces the price of an asset. A zero price delists it.
func (s *Static) Set(id domain.AssetID, price *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if price == nil {
		delete(s.prices, id)
		return
	}
	s.prices[id] = price.Clone()
}

// GetPrice implements domain.PriceOracle.
func (s *Static) GetPrice(_ context.Context, id domain.AssetID) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.prices[id]; ok {
		return p.Clone(), nil
	}
	return uint256.NewInt(0), nil
}
