// Package postgres implements every component repository over pgx. One Tx
// wraps one database transaction and satisfies all TxRepository interfaces,
// so an orchestrated posting commits or rolls back as a unit.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/locks"
	"github.com/odyssey-erp/odyssey-gl/internal/assets"
	"github.com/odyssey-erp/odyssey-gl/internal/banking"
	"github.com/odyssey-erp/odyssey-gl/internal/integrity"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/db"
	"github.com/odyssey-erp/odyssey-gl/internal/posting"
	"github.com/odyssey-erp/odyssey-gl/internal/subledger"
	"github.com/odyssey-erp/odyssey-gl/internal/vat"
)

const uniqueViolation = "23505"

// Store opens pgx transactions.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTx executes fn within a ReadCommitted transaction.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	if s == nil || s.pool == nil {
		return errors.New("postgres store not initialised")
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Tx{tx: tx})
	})
}

// Tx is a single database transaction.
type Tx struct {
	tx pgx.Tx
}

var (
	_ locks.TxRepository     = (*Tx)(nil)
	_ journals.TxRepository  = (*Tx)(nil)
	_ subledger.TxRepository = (*Tx)(nil)
	_ banking.TxRepository   = (*Tx)(nil)
	_ vat.TxRepository       = (*Tx)(nil)
	_ assets.TxRepository    = (*Tx)(nil)
	_ posting.TxRepository   = (*Tx)(nil)
	_ integrity.Repository   = (*Tx)(nil)
)

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}

func forUpdate(lock bool) string {
	if lock {
		return " FOR UPDATE"
	}
	return ""
}

func notFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
