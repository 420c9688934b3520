package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTransactionConflict is returned when a concurrent mutation prevented the transaction
// from committing. The operation can be retried.
var ErrTransactionConflict = errors.New("transaction conflict, retry the operation")

// PostgreSQL SQLSTATE codes that indicate a lost race rather than a bad request
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// IsTransactionConflict reports whether err was caused by concurrent access to the same rows.
// Unique violations on the doctor/position constraint count as conflicts: two writers read the
// same queue state.
func IsTransactionConflict(err error) bool {
	if errors.Is(err, ErrTransactionConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		case pgUniqueViolation:
			return pgErr.ConstraintName == "uq_queue_positions_doctor_position"
		}
	}
	return false
}
