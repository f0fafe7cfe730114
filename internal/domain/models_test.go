package domain

import (
	"errors"
	"testing"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNewCategory(t *testing.T) {
	c, err := NewCategory("  Earrings ")
	require.NoError(t, err)
	assert.Equal(t, "Earrings", c.Name)

	_, err = NewCategory("   ")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestNewProductRejectsNegatives(t *testing.T) {
	cat := Category{ID: 1, Name: "Earrings"}

	_, err := NewProduct("Stud", dec("-0.01"), 5, cat)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = NewProduct("Stud", dec("10"), -1, cat)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	p, err := NewProduct("Stud", dec("0"), 0, cat)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestProductMutatorsLeaveReceiverValid(t *testing.T) {
	p, err := NewProduct("Stud", dec("10"), 5, Category{ID: 1})
	require.NoError(t, err)

	same, err := p.WithPrice(dec("-3"))
	require.Error(t, err)
	assert.True(t, same.Price.Equal(dec("10")))

	same, err = p.WithStock(-2)
	require.Error(t, err)
	assert.Equal(t, 5, same.Stock)

	updated, err := p.WithPrice(dec("20"))
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(dec("20")))
	assert.True(t, p.Price.Equal(dec("10")))
}

func TestRemoveStock(t *testing.T) {
	p, _ := NewProduct("Stud", dec("10"), 5, Category{ID: 1})

	left, err := p.RemoveStock(3)
	require.NoError(t, err)
	assert.Equal(t, 2, left.Stock)

	_, err = left.RemoveStock(3)
	assert.True(t, errors.Is(err, errs.ErrInsufficientStock))

	_, err = p.RemoveStock(0)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

func TestSaleItemSubtotalAndTotal(t *testing.T) {
	p := Product{ID: 1, Name: "Stud", Price: dec("10")}
	a, err := NewSaleItem(p, 3, dec("10"))
	require.NoError(t, err)
	b, err := NewSaleItem(Product{ID: 2}, 2, dec("0.10"))
	require.NoError(t, err)

	assert.True(t, a.Subtotal().Equal(dec("30")))
	s := Sale{Items: []SaleItem{a, b}}
	assert.True(t, s.ItemsTotal().Equal(dec("30.20")))

	_, err = NewSaleItem(p, 0, dec("10"))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}
