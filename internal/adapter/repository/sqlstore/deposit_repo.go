package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// depositRepository implements domain.DepositRepository
type depositRepository struct {
	db     *DB
	assets *assetRepository
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *DB) domain.DepositRepository {
	return &depositRepository{db: db, assets: &assetRepository{db: db}}
}

// Record stores the deposit and the resulting holding in a database
// transaction, runs finalize inside it and commits. Hooks registered with
// domain.AfterCommit during finalize run only after a successful commit.
func (r *depositRepository) Record(ctx context.Context, d *domain.Deposit, holding *domain.Asset, finalize func(ctx context.Context) error) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDeposit, err)
	}
	if err := holding.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidDeposit, err)
	}

	// Start a database transaction
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	hookCtx, hooks := domain.WithCommitHooks(ctx)
	defer hooks.Discard()
	txCtx := withTx(hookCtx, dbTx)

	insertQuery := `
		INSERT INTO deposits (id, depositor, asset_id, amount, price, valuation,
			fund_value_before, supply_before, shares, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = dbTx.ExecContext(ctx, r.db.rebind(insertQuery),
		d.ID.String(),
		string(d.Depositor),
		string(d.AssetID),
		d.Amount.Dec(),
		d.Price.Dec(),
		d.Valuation.Dec(),
		d.FundValueBefore.Dec(),
		d.SupplyBefore.Dec(),
		d.Shares.Dec(),
		d.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert deposit: %w", err)
	}

	if err := r.assets.upsert(ctx, dbTx, holding); err != nil {
		return err
	}

	if finalize != nil {
		if err := finalize(txCtx); err != nil {
			return err
		}
	}

	// Commit the transaction
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	hooks.Run()
	return nil
}

// List retrieves a paginated list of deposits, oldest first
// If depositor is nil, returns deposits of every depositor
func (r *depositRepository) List(ctx context.Context, limit, offset int, depositor *domain.Account) ([]*domain.Deposit, error) {
	query := `
		SELECT id, depositor, asset_id, amount, price, valuation,
			fund_value_before, supply_before, shares, created_at
		FROM deposits
	`

	args := []any{}
	if depositor != nil {
		query += " WHERE depositor = ?"
		args = append(args, string(*depositor))
	}
	query += " ORDER BY seq ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.executor(ctx).QueryContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposits: %w", err)
	}
	defer rows.Close()

	var deposits []*domain.Deposit
	for rows.Next() {
		var d domain.Deposit
		var nums [6]string
		var createdAt int64

		err := rows.Scan(
			&d.ID,
			&d.Depositor,
			&d.AssetID,
			&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5],
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}

		targets := []**uint256.Int{&d.Amount, &d.Price, &d.Valuation, &d.FundValueBefore, &d.SupplyBefore, &d.Shares}
		for i, s := range nums {
			v, err := domain.ParseBaseUnits(s)
			if err != nil {
				return nil, fmt.Errorf("failed to parse deposit %s: %w", d.ID, err)
			}
			*targets[i] = v
		}
		d.CreatedAt = time.Unix(0, createdAt).UTC()

		deposits = append(deposits, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposits: %w", err)
	}

	return deposits, nil
}

// Count returns the number of deposits, optionally for one depositor
func (r *depositRepository) Count(ctx context.Context, depositor *domain.Account) (int, error) {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM deposits")
	args := []any{}
	if depositor != nil {
		b.WriteString(" WHERE depositor = ?")
		args = append(args, string(*depositor))
	}

	var count int
	if err := r.db.executor(ctx).QueryRowContext(ctx, r.db.rebind(b.String()), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deposits: %w", err)
	}
	return count, nil
}

// TotalShares returns the sum of shares minted over the whole ledger
// Summed in Go; SQLite would round a SUM over 256-bit values.
func (r *depositRepository) TotalShares(ctx context.Context) (*uint256.Int, error) {
	rows, err := r.db.executor(ctx).QueryContext(ctx, "SELECT shares FROM deposits")
	if err != nil {
		return nil, fmt.Errorf("failed to query shares: %w", err)
	}
	defer rows.Close()

	total := uint256.NewInt(0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan shares: %w", err)
		}
		shares, err := domain.ParseBaseUnits(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse shares: %w", err)
		}
		if total, err = domain.CheckedAdd(total, shares); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shares: %w", err)
	}
	return total, nil
}
