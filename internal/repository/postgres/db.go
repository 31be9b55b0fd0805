// internal/repository/postgres/db.go
package postgres

import (
	"context"
	"errors"

	xerrors "pochasovo-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

type DB struct {
	pool *pgxpool.Pool
}

func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// MapLockError converts driver-level lock casualties (deadlock victim,
// serialization failure) into the retriable sentinel. Any other error
// passes through unchanged.
func MapLockError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure) {
		return xerrors.ErrConcurrentModification
	}
	return err
}
