package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

const (
	balanceQuery  = `SELECT balance::text FROM wallets WHERE account = $1`
	withdrawQuery = `UPDATE wallets SET balance = balance - $2::numeric, updated_at = now() WHERE account = $1 AND balance >= $2::numeric`
	schemaDDL     = `CREATE TABLE IF NOT EXISTS wallets (
	account    TEXT PRIMARY KEY,
	balance    NUMERIC(20,4) NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
)

// SQL is a Postgres-backed ledger over a wallets(account, balance) table.
// Missing accounts have a zero balance.
type SQL struct {
	db *sql.DB
}

// OpenPostgres opens dsn through the pgx driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*SQL, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	// simple protocol keeps poolers like PgBouncer happy
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	db := stdlib.OpenDB(*cfg)
	db.SetConnMaxIdleTime(4 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &SQL{db: db}, nil
}

// NewSQL wraps an existing handle.
func NewSQL(db *sql.DB) *SQL { return &SQL{db: db} }

// Migrate creates the wallets table if it does not exist.
func (s *SQL) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL)
	return err
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, balanceQuery, account).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Withdraw debits in one conditional UPDATE, so a concurrent spend that
// drained the wallet makes it report ErrRejected.
func (s *SQL) Withdraw(ctx context.Context, account string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrRejected
	}
	res, err := s.db.ExecContext(ctx, withdrawQuery, account, amount.String())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if n == 0 {
		return ErrRejected
	}
	return nil
}
