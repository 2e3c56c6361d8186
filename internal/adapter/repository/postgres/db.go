package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/oleksiishulzhenko/indexfund/internal/adapter/repository/sqlstore"
)

// NewDB creates a new database connection and applies the schema
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=indexfund sslmode=disable"
func NewDB(ctx context.Context, connectionString string) (*sqlstore.DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := sqlstore.New(db, sqlstore.DialectPostgres)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}
