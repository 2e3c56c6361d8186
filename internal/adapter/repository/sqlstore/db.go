package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder style and schema.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	dialect Dialect
}

// New wraps an open connection. The caller owns the driver registration.
func New(db *sql.DB, dialect Dialect) (*DB, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	return &DB{DB: db, dialect: dialect}, nil
}

// Dialect returns the SQL dialect of the connection
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Migrate creates the tables when they do not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	schema := schemaSQLite
	if db.dialect == DialectPostgres {
		schema = schemaPostgres
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// executor is satisfied by both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// executor returns the transaction carried by ctx, or the pool
func (db *DB) executor(ctx context.Context) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return db.DB
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS assets (
	asset_id TEXT PRIMARY KEY,
	position INTEGER NOT NULL UNIQUE,
	balance  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS deposits (
	seq               INTEGER PRIMARY KEY AUTOINCREMENT,
	id                TEXT NOT NULL UNIQUE,
	depositor         TEXT NOT NULL,
	asset_id          TEXT NOT NULL,
	amount            TEXT NOT NULL,
	price             TEXT NOT NULL,
	valuation         TEXT NOT NULL,
	fund_value_before TEXT NOT NULL,
	supply_before     TEXT NOT NULL,
	shares            TEXT NOT NULL,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS deposits_depositor_idx ON deposits(depositor);

CREATE TABLE IF NOT EXISTS prices (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	asset_id    TEXT NOT NULL,
	price       TEXT NOT NULL,
	observed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS prices_asset_idx ON prices(asset_id, observed_at);

CREATE TABLE IF NOT EXISTS share_balances (
	account TEXT PRIMARY KEY,
	balance TEXT NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS assets (
	asset_id TEXT PRIMARY KEY,
	position INTEGER NOT NULL UNIQUE,
	balance  NUMERIC(78, 0) NOT NULL
);

CREATE TABLE IF NOT EXISTS deposits (
	seq               BIGSERIAL PRIMARY KEY,
	id                UUID NOT NULL UNIQUE,
	depositor         TEXT NOT NULL,
	asset_id          TEXT NOT NULL,
	amount            NUMERIC(78, 0) NOT NULL,
	price             NUMERIC(78, 0) NOT NULL,
	valuation         NUMERIC(78, 0) NOT NULL,
	fund_value_before NUMERIC(78, 0) NOT NULL,
	supply_before     NUMERIC(78, 0) NOT NULL,
	shares            NUMERIC(78, 0) NOT NULL,
	created_at        BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS deposits_depositor_idx ON deposits(depositor);

CREATE TABLE IF NOT EXISTS prices (
	seq         BIGSERIAL PRIMARY KEY,
	id          UUID NOT NULL UNIQUE,
	asset_id    TEXT NOT NULL,
	price       NUMERIC(78, 0) NOT NULL,
	observed_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS prices_asset_idx ON prices(asset_id, observed_at);

CREATE TABLE IF NOT EXISTS share_balances (
	account TEXT PRIMARY KEY,
	balance NUMERIC(78, 0) NOT NULL
);
`
