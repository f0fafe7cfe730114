package store

import (
	"errors"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the store translates.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// classify maps a driver error onto the failure taxonomy. Already-typed errors pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *errs.Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.E(op, errs.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return errs.E(op, errs.ErrConflict, err)
		case codeForeignKeyViolation:
			return errs.E(op, errs.ErrReferentialConflict, err)
		case codeCheckViolation, codeNotNullViolation:
			return errs.E(op, errs.ErrInvalidArgument, err)
		}
	}
	return errs.E(op, errs.ErrStorageUnavailable, err)
}

func notFound(op string, id int64) error {
	return errs.E(op, errs.ErrNotFound, nil).WithID(id)
}
