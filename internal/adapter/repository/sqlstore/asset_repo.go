package sqlstore

import (
	"context"
	"fmt"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

// List retrieves every holding ordered by registry position
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT asset_id, position, balance
		FROM assets
		ORDER BY position ASC
	`

	rows, err := r.db.executor(ctx).QueryContext(ctx, r.db.rebind(query))
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		var asset domain.Asset
		var balanceStr string

		if err := rows.Scan(&asset.ID, &asset.Position, &balanceStr); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}

		balance, err := domain.ParseBaseUnits(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance of %s: %w", asset.ID, err)
		}
		asset.Balance = balance

		assets = append(assets, &asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

// upsert writes the holding inside the caller's transaction
func (r *assetRepository) upsert(ctx context.Context, exec executor, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (asset_id, position, balance)
		VALUES (?, ?, ?)
		ON CONFLICT (asset_id) DO UPDATE SET balance = excluded.balance
	`

	_, err := exec.ExecContext(ctx, r.db.rebind(query),
		string(asset.ID),
		asset.Position,
		asset.Balance.Dec(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", asset.ID, err)
	}
	return nil
}
