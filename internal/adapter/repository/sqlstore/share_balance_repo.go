package sqlstore

import (
	"context"
	"fmt"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// shareBalanceRepository implements domain.ShareBalanceRepository
type shareBalanceRepository struct {
	db *DB
}

// NewShareBalanceRepository creates a new share balance repository
func NewShareBalanceRepository(db *DB) domain.ShareBalanceRepository {
	return &shareBalanceRepository{db: db}
}

// List retrieves every non-zero share balance ordered by account
func (r *shareBalanceRepository) List(ctx context.Context) ([]*domain.ShareBalance, error) {
	query := `
		SELECT account, balance
		FROM share_balances
		ORDER BY account ASC
	`

	rows, err := r.db.executor(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query share balances: %w", err)
	}
	defer rows.Close()

	var balances []*domain.ShareBalance
	for rows.Next() {
		var b domain.ShareBalance
		var balanceStr string
		if err := rows.Scan(&b.Account, &balanceStr); err != nil {
			return nil, fmt.Errorf("failed to scan share balance: %w", err)
		}

		balance, err := domain.ParseBaseUnits(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance of %s: %w", b.Account, err)
		}
		if balance.IsZero() {
			continue
		}
		b.Balance = balance
		balances = append(balances, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating share balances: %w", err)
	}
	return balances, nil
}

// Save upserts a balance, joining the deposit transaction carried by ctx
func (r *shareBalanceRepository) Save(ctx context.Context, balance *domain.ShareBalance) error {
	if err := balance.Account.Validate(); err != nil {
		return err
	}
	if balance.Balance == nil {
		return fmt.Errorf("balance of %s must be set", balance.Account)
	}

	query := `
		INSERT INTO share_balances (account, balance)
		VALUES (?, ?)
		ON CONFLICT (account) DO UPDATE SET balance = excluded.balance
	`

	_, err := r.db.executor(ctx).ExecContext(ctx, r.db.rebind(query),
		string(balance.Account),
		balance.Balance.Dec(),
	)
	if err != nil {
		return fmt.Errorf("failed to save share balance: %w", err)
	}
	return nil
}
