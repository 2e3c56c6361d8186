package domain

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/holiman/uint256"
)

// PriceFunc resolves the current unit price of an asset
type PriceFunc func(id AssetID) (*uint256.Int, error)

// AssetRegistry is the enumerable mapping from asset id to the balance the
// fund holds. Entries are kept in a backing slice in insertion order and an
// id -> slot index gives O(1) lookup-or-insert. Iteration order is stable
// for a given state, so valuations over it are reproducible.
type AssetRegistry struct {
	mu      sync.RWMutex
	entries []registryEntry
	index   map[AssetID]int
}

type registryEntry struct {
	id      AssetID
	balance *uint256.Int
}

// NewAssetRegistry creates an empty registry
func NewAssetRegistry() *AssetRegistry {
	return &AssetRegistry{
		index: make(map[AssetID]int),
	}
}

// RecordDeposit adds amount to the balance of id, inserting the asset on
// its first deposit. Returns the new balance.
// The registry is left untouched when the balance would overflow.
func (r *AssetRegistry) RecordDeposit(id AssetID, amount *uint256.Int) (*uint256.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot, ok := r.index[id]; ok {
		next, err := CheckedAdd(r.entries[slot].balance, amount)
		if err != nil {
			return nil, err
		}
		r.entries[slot].balance = next
		return next.Clone(), nil
	}

	r.index[id] = len(r.entries)
	r.entries = append(r.entries, registryEntry{id: id, balance: amount.Clone()})
	return amount.Clone(), nil
}

// BalanceAfter previews the holding RecordDeposit would produce, without
// mutating the registry.
func (r *AssetRegistry) BalanceAfter(id AssetID, amount *uint256.Int) (*Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.index[id]
	if !ok {
		return &Asset{ID: id, Position: len(r.entries), Balance: amount.Clone()}, nil
	}

	next, err := CheckedAdd(r.entries[slot].balance, amount)
	if err != nil {
		return nil, err
	}
	return &Asset{ID: id, Position: slot, Balance: next}, nil
}

// Get returns a copy of the holding for id
func (r *AssetRegistry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	slot, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.entries[slot].asset(slot), true
}

// Len returns the number of registered assets
func (r *AssetRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Assets returns a snapshot of all holdings in insertion order
func (r *AssetRegistry) Assets() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Asset, 0, len(r.entries))
	for slot, entry := range r.entries {
		out = append(out, entry.asset(slot))
	}
	return out
}

// TotalValue returns Σ balance(a) × priceOf(a) / scale over every
// registered asset, in insertion order and in a single pass.
// The first pricing or overflow error aborts the sum.
func (r *AssetRegistry) TotalValue(priceOf PriceFunc, scale *uint256.Int) (*uint256.Int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := new(uint256.Int)
	for _, entry := range r.entries {
		price, err := priceOf(entry.id)
		if err != nil {
			return nil, fmt.Errorf("price of held asset %s: %w", entry.id, err)
		}

		value, err := Value(entry.balance, price, scale)
		if err != nil {
			return nil, err
		}

		total, err = CheckedAdd(total, value)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Restore rebuilds an empty registry from persisted holdings.
// Holdings are ordered by Position; duplicate ids are rejected.
func (r *AssetRegistry) Restore(assets []*Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) > 0 {
		return errors.New("registry already populated")
	}

	sorted := make([]*Asset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	entries := make([]registryEntry, 0, len(sorted))
	index := make(map[AssetID]int, len(sorted))
	for _, asset := range sorted {
		if err := asset.Validate(); err != nil {
			return err
		}
		if _, dup := index[asset.ID]; dup {
			return fmt.Errorf("duplicate asset %s in registry", asset.ID)
		}
		index[asset.ID] = len(entries)
		entries = append(entries, registryEntry{id: asset.ID, balance: asset.Balance.Clone()})
	}

	r.entries = entries
	r.index = index
	return nil
}

func (e registryEntry) asset(slot int) *Asset {
	return &Asset{ID: e.id, Position: slot, Balance: e.balance.Clone()}
}
