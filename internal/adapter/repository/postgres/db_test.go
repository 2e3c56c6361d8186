//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oleksiishulzhenko/indexfund/internal/adapter/repository/sqlstore"
	"github.com/oleksiishulzhenko/indexfund/internal/domain"
)

// getDBConnectionString returns the database connection string from environment variables or defaults
func getDBConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return "host=localhost port=5432 user=postgres password=postgres dbname=indexfund sslmode=disable"
}

func TestNewDB_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, getDBConnectionString())
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, sqlstore.DialectPostgres, db.Dialect())

	asset := domain.AssetID("it-" + uuid.NewString())
	prices := sqlstore.NewPriceRepository(db)
	price := new(uint256.Int).Lsh(uint256.NewInt(1), 250)

	require.NoError(t, prices.Add(ctx, &domain.PricePoint{
		ID:         uuid.New(),
		AssetID:    asset,
		Price:      price,
		ObservedAt: time.Now().UTC(),
	}))

	latest, err := prices.GetLatest(ctx, asset)
	require.NoError(t, err)
	assert.Equal(t, price, latest.Price)
}
