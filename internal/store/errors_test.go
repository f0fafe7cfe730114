package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, errs.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, errs.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, errs.ErrReferentialConflict},
		{"check", &pgconn.PgError{Code: "23514"}, errs.ErrInvalidArgument},
		{"serialization", &pgconn.PgError{Code: "40001"}, errs.ErrStorageUnavailable},
		{"io", errors.New("connection reset by peer"), errs.ErrStorageUnavailable},
		{"wrapped pg", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), errs.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify("op", tc.err)
			assert.True(t, errors.Is(got, tc.want), "got %v", got)
		})
	}
}

func TestClassifyPassesThroughTypedErrors(t *testing.T) {
	typed := errs.E("store.DecrementStock", errs.ErrInsufficientStock, nil)
	assert.Same(t, typed, classify("other", typed))
	assert.NoError(t, classify("op", nil))
}
