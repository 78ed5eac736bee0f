package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/orderdesk/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that signal contention between transactions
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// translateError maps driver errors onto domain errors. Contention becomes
// CONCURRENCY_CONFLICT so the application layer can retry it; anything unknown passes through.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return shared.ErrConcurrencyConflict.WithDetail("sqlstate", pgErr.Code)
		}
	}
	return err
}
