package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

// Add creates a new price history entry
func (r *priceRepository) Add(ctx context.Context, point *domain.PricePoint) error {
	if point.Price == nil {
		return fmt.Errorf("price of %s must be set", point.AssetID)
	}

	query := `
		INSERT INTO prices (id, asset_id, price, observed_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.executor(ctx).ExecContext(ctx, r.db.rebind(query),
		point.ID.String(),
		string(point.AssetID),
		point.Price.Dec(),
		point.ObservedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert price entry: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent price entry for a given asset
func (r *priceRepository) GetLatest(ctx context.Context, id domain.AssetID) (*domain.PricePoint, error) {
	query := `
		SELECT id, asset_id, price, observed_at
		FROM prices
		WHERE asset_id = ?
		ORDER BY observed_at DESC, seq DESC
		LIMIT 1
	`

	var point domain.PricePoint
	var priceStr string
	var observedAt int64

	err := r.db.executor(ctx).QueryRowContext(ctx, r.db.rebind(query), string(id)).Scan(
		&point.ID,
		&point.AssetID,
		&priceStr,
		&observedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no price found for asset %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}

	price, err := domain.ParseBaseUnits(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	point.Price = price
	point.ObservedAt = time.Unix(0, observedAt).UTC()

	return &point, nil
}
