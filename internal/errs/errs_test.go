package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("duplicate key")
	err := E("store.AddCategory", ErrConflict, cause)

	assert.True(t, errors.Is(err, ErrConflict))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestErrorIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("commit: %w", E("store.InsertSale", ErrStorageUnavailable, nil))
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.Equal(t, ErrStorageUnavailable, KindOf(err))
}

func TestErrorMessage(t *testing.T) {
	err := E("store.FindProduct", ErrNotFound, nil).WithID(7)
	assert.Equal(t, "store.FindProduct [7]: not found", err.Error())

	err = Ef("domain.NewProduct", ErrInvalidArgument, "price %s is negative", "-1")
	assert.Equal(t, "domain.NewProduct: invalid argument: price -1 is negative", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Nil(t, KindOf(nil))
	assert.Nil(t, KindOf(errors.New("plain")))
	assert.Equal(t, ErrAuthDenied, KindOf(E("auth", ErrAuthDenied, nil)))
}
