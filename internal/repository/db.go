package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx so repositories can be built
// either pool-scoped or transaction-scoped.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LockSlot takes a transaction-scoped advisory lock on the slot key,
// serializing the cross-table availability check for that slot. Released at
// commit or rollback.
func LockSlot(ctx context.Context, q DBTX, slotKey string) error {
	_, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", slotKey)
	return err
}

// IsUniqueViolation reports whether err is a unique-index conflict, the
// storage-level signal that another live hold or booking owns the slot.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
