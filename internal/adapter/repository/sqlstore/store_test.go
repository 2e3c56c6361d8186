package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	raw, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)

	db, err := New(raw, DialectSQLite)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

func testDeposit(depositor domain.Account, asset domain.AssetID, amount, shares uint64) *domain.Deposit {
	return &domain.Deposit{
		ID:              uuid.New(),
		Depositor:       depositor,
		AssetID:         asset,
		Amount:          uint256.NewInt(amount),
		Price:           uint256.NewInt(1),
		Valuation:       uint256.NewInt(amount),
		FundValueBefore: uint256.NewInt(0),
		SupplyBefore:    uint256.NewInt(0),
		Shares:          uint256.NewInt(shares),
		CreatedAt:       time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNew_UnsupportedDialect(t *testing.T) {
	_, err := New(nil, Dialect("oracle"))
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: DialectPostgres}
	lite := &DB{dialect: DialectSQLite}

	query := "SELECT a FROM t WHERE b = ? AND c = ? LIMIT ?"
	assert.Equal(t, "SELECT a FROM t WHERE b = $1 AND c = $2 LIMIT $3", pg.rebind(query))
	assert.Equal(t, query, lite.rebind(query))
}

func TestDepositRepository_Record(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	deposits := NewDepositRepository(db)
	assets := NewAssetRepository(db)
	balances := NewShareBalanceRepository(db)

	d := testDeposit("alice", "A", 100, 10)
	holding := &domain.Asset{ID: "A", Position: 0, Balance: uint256.NewInt(100)}

	committed := false
	err := deposits.Record(ctx, d, holding, func(txCtx context.Context) error {
		domain.AfterCommit(txCtx, func() { committed = true })
		return balances.Save(txCtx, &domain.ShareBalance{Account: "alice", Balance: uint256.NewInt(10)})
	})
	require.NoError(t, err)
	assert.True(t, committed)

	listed, err := assets.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, uint256.NewInt(100), listed[0].Balance)

	saved, err := balances.List(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, uint256.NewInt(10), saved[0].Balance)

	got, err := deposits.List(ctx, 10, 0, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, d.ID, got[0].ID)
	assert.Equal(t, d.CreatedAt, got[0].CreatedAt)
	assert.Equal(t, d.Shares, got[0].Shares)
	assert.Equal(t, d.Valuation, got[0].Valuation)

	// Second deposit of the same asset updates the holding
	d2 := testDeposit("bob", "A", 50, 5)
	require.NoError(t, deposits.Record(ctx, d2, &domain.Asset{ID: "A", Position: 0, Balance: uint256.NewInt(150)}, nil))
	listed, _ = assets.List(ctx)
	require.Len(t, listed, 1)
	assert.Equal(t, uint256.NewInt(150), listed[0].Balance)
}

func TestDepositRepository_Record_FinalizeFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	deposits := NewDepositRepository(db)
	balances := NewShareBalanceRepository(db)

	committed := false
	err := deposits.Record(ctx, testDeposit("alice", "A", 100, 10),
		&domain.Asset{ID: "A", Balance: uint256.NewInt(100)},
		func(txCtx context.Context) error {
			domain.AfterCommit(txCtx, func() { committed = true })
			if err := balances.Save(txCtx, &domain.ShareBalance{Account: "alice", Balance: uint256.NewInt(10)}); err != nil {
				return err
			}
			return domain.ErrUnauthorized
		})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.False(t, committed)

	count, err := deposits.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	listed, err := NewAssetRepository(db).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	saved, err := balances.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestDepositRepository_Record_Invalid(t *testing.T) {
	ctx := context.Background()
	deposits := NewDepositRepository(openTestDB(t))

	d := testDeposit("alice", "A", 100, 0)
	err := deposits.Record(ctx, d, &domain.Asset{ID: "A", Balance: uint256.NewInt(100)}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDeposit)

	d = testDeposit("alice", "A", 100, 1)
	err = deposits.Record(ctx, d, &domain.Asset{ID: "", Balance: uint256.NewInt(100)}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDeposit)
}

func TestDepositRepository_ListCountTotal(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	deposits := NewDepositRepository(db)

	huge := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	for i, acc := range []domain.Account{"alice", "bob", "alice"} {
		d := testDeposit(acc, "A", uint64(100*(i+1)), uint64(i+1))
		if i == 2 {
			d.Shares = huge
		}
		require.NoError(t, deposits.Record(ctx, d, &domain.Asset{ID: "A", Balance: uint256.NewInt(600)}, nil))
	}

	alice := domain.Account("alice")
	count, err := deposits.Count(ctx, &alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	page, err := deposits.List(ctx, 1, 1, &alice)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint256.NewInt(300), page[0].Amount)

	all, err := deposits.List(ctx, 10, 0, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.Account("bob"), all[1].Depositor)

	// 256-bit values survive storage exactly
	total, err := deposits.TotalShares(ctx)
	require.NoError(t, err)
	want := new(uint256.Int).Add(huge, uint256.NewInt(3))
	assert.Equal(t, want, total)
}

func TestPriceRepository(t *testing.T) {
	ctx := context.Background()
	prices := NewPriceRepository(openTestDB(t))

	_, err := prices.GetLatest(ctx, "A")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	require.NoError(t, prices.Add(ctx, &domain.PricePoint{ID: uuid.New(), AssetID: "A", Price: uint256.NewInt(2), ObservedAt: newer}))
	require.NoError(t, prices.Add(ctx, &domain.PricePoint{ID: uuid.New(), AssetID: "A", Price: uint256.NewInt(1), ObservedAt: older}))

	latest, err := prices.GetLatest(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(2), latest.Price)
	assert.Equal(t, newer, latest.ObservedAt)

	assert.Error(t, prices.Add(ctx, &domain.PricePoint{ID: uuid.New(), AssetID: "A"}))
}

func TestShareBalanceRepository(t *testing.T) {
	ctx := context.Background()
	balances := NewShareBalanceRepository(openTestDB(t))

	require.NoError(t, balances.Save(ctx, &domain.ShareBalance{Account: "bob", Balance: uint256.NewInt(5)}))
	require.NoError(t, balances.Save(ctx, &domain.ShareBalance{Account: "alice", Balance: uint256.NewInt(1)}))
	require.NoError(t, balances.Save(ctx, &domain.ShareBalance{Account: "alice", Balance: uint256.NewInt(7)}))
	require.NoError(t, balances.Save(ctx, &domain.ShareBalance{Account: "zero", Balance: uint256.NewInt(0)}))

	list, err := balances.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.Account("alice"), list[0].Account)
	assert.Equal(t, uint256.NewInt(7), list[0].Balance)

	assert.Error(t, balances.Save(ctx, &domain.ShareBalance{Account: "", Balance: uint256.NewInt(1)}))
	assert.Error(t, balances.Save(ctx, &domain.ShareBalance{Account: "carol"}))
}
