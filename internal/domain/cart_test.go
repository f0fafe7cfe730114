package domain

import (
	"errors"
	"testing"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalesceMergesDuplicateProducts(t *testing.T) {
	got, err := Coalesce([]Line{{1, 3}, {2, 1}, {1, 3}})
	require.NoError(t, err)
	assert.Equal(t, []Line{{1, 6}, {2, 1}}, got)
}

func TestCoalesceRejectsBadInput(t *testing.T) {
	_, err := Coalesce(nil)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = Coalesce([]Line{{1, 2}, {2, 0}})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestCartPreviewAndLines(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(Product{ID: 1, Name: "Argola Simples", Price: dec("25")}, 2))
	require.NoError(t, c.Add(Product{ID: 2, Name: "Colar de Perola", Price: dec("80")}, 1))
	assert.Error(t, c.Add(Product{ID: 3}, -1))

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Total().Equal(dec("130")))
	assert.Equal(t, []Line{{1, 2}, {2, 1}}, c.Lines())
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "R$10.00", FormatMoney(dec("10")))
	assert.Equal(t, "R$0.35", FormatMoney(dec("0.345")))
}
