package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// postgres error codes we care about
const (
	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
	pgCheckViolation  = "23514"
)

// FromPG translates a pgx-level failure into the taxonomy. The msg describes
// the operation that failed, not the constraint.
func FromPG(msg string, err error) *Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(CodeNotFound, msg, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Wrap(CodeAlreadyExists, msg, err)
		case pgFKViolation:
			return Wrap(CodeNotFound, msg, err)
		case pgCheckViolation:
			return Wrap(CodeConflict, msg, err)
		}
	}
	return Wrap(CodeStorage, msg, err)
}
