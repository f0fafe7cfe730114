package assembler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/auth"
	"github.com/ariefcatur/go-kiosk-pos/internal/domain"
	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/ariefcatur/go-kiosk-pos/internal/sales"
	"github.com/ariefcatur/go-kiosk-pos/internal/store/storetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type env struct {
	mem   *storetest.Memory
	a     *Assembler
	admin auth.Grant
	clock time.Time
}

func setup(t *testing.T) *env {
	t.Helper()
	e := &env{mem: storetest.NewMemory(), clock: time.Date(2026, 5, 2, 15, 4, 0, 0, time.UTC)}
	svc := &sales.Service{Store: e.mem, Sales: e.mem, Logger: zap.NewNop(), Now: func() time.Time { return e.clock }}
	e.a = &Assembler{Store: e.mem, Engine: svc, Logger: zap.NewNop()}

	grant, err := auth.NewGate("admin").Authorize("admin")
	require.NoError(t, err)
	e.admin = grant
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seed: Category 1 "Earrings", Product 1 "Stud" 10.00 x5.
func (e *env) seed(t *testing.T) (domain.Category, domain.Product) {
	t.Helper()
	ctx := context.Background()
	cat, err := e.a.AddCategory(ctx, domain.Category{Name: "Earrings"})
	require.NoError(t, err)
	p, err := e.a.AddProduct(ctx, domain.Product{Name: "Stud", Price: dec("10.0"), Stock: 5, Category: cat})
	require.NoError(t, err)
	return cat, p
}

func TestCategoryRoundTrip(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	c, err := e.a.AddCategory(ctx, domain.Category{Name: "Earrings"})
	require.NoError(t, err)
	got, err := e.a.GetCategoryByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Earrings", got.Name)

	_, err = e.a.AddCategory(ctx, domain.Category{Name: "Earrings"})
	assert.True(t, errors.Is(err, errs.ErrConflict))
}

func TestAddProductResolvesCategory(t *testing.T) {
	e := setup(t)
	cat, p := e.seed(t)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, cat, p.Category)

	got, err := e.a.GetProductByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stud", got.Name)
	assert.Equal(t, "Earrings", got.Category.Name)
	assert.True(t, got.Price.Equal(dec("10")))

	_, err = e.a.AddProduct(context.Background(), domain.Product{Name: "Orphan", Price: dec("1"), Category: domain.Category{ID: 77}})
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = e.a.AddProduct(context.Background(), domain.Product{Name: "Stud", Price: dec("1"), Category: cat})
	assert.True(t, errors.Is(err, errs.ErrConflict))
}

func TestAddProductRejectsNegativePrice(t *testing.T) {
	e := setup(t)
	cat, _ := e.seed(t)
	writes := e.mem.Writes()

	_, err := e.a.AddProduct(context.Background(), domain.Product{Name: "Bad", Price: dec("-1"), Category: cat})
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	assert.Equal(t, writes, e.mem.Writes())
}

func TestRegisterSaleAndGetSaleByID(t *testing.T) {
	e := setup(t)
	_, p := e.seed(t)
	ctx := context.Background()

	var cart domain.Cart
	require.NoError(t, cart.Add(p, 3))
	out, err := e.a.RegisterSale(ctx, &cart)
	require.NoError(t, err)
	require.True(t, out.Committed)

	sale, err := e.a.GetSaleByID(ctx, out.SaleID)
	require.NoError(t, err)
	assert.Equal(t, e.clock, sale.CreatedAt)
	assert.True(t, sale.Total.Equal(dec("30.0")))
	assert.True(t, sale.Total.Equal(sale.ItemsTotal()))
	require.Len(t, sale.Items, 1)
	assert.Equal(t, 3, sale.Items[0].Quantity)
	assert.Equal(t, "Earrings", sale.Items[0].Product.Category.Name)

	stud, err := e.a.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stud.Stock)

	again, err := e.a.RegisterSale(ctx, &cart)
	require.NoError(t, err)
	assert.False(t, again.Committed)
	assert.True(t, errors.Is(again.Err(), errs.ErrInsufficientStock))
}

func TestGetSaleByIDKeepsPriceSnapshotAfterProductDrifts(t *testing.T) {
	e := setup(t)
	_, p := e.seed(t)
	ctx := context.Background()

	out, err := e.a.Engine.CommitSale(ctx, []domain.Line{{ProductID: p.ID, Quantity: 3}})
	require.NoError(t, err)

	newPrice := dec("20.0")
	newName := "Stud Gold"
	require.NoError(t, e.a.UpdateProductFields(ctx, e.admin, p.ID, &newName, &newPrice))

	sale, err := e.a.GetSaleByID(ctx, out.SaleID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	item := sale.Items[0]
	assert.True(t, item.UnitPrice.Equal(dec("10.0")), "unit price %s", item.UnitPrice)
	assert.True(t, sale.Total.Equal(dec("30.0")))
	// The embedded product is the live one.
	assert.Equal(t, "Stud Gold", item.Product.Name)
	assert.True(t, item.Product.Price.Equal(newPrice))
}

func TestDeleteCategoryInUseIsReferentialConflict(t *testing.T) {
	e := setup(t)
	cat, _ := e.seed(t)
	ctx := context.Background()

	err := e.a.DeleteCategory(ctx, e.admin, cat.ID)
	assert.True(t, errors.Is(err, errs.ErrReferentialConflict))

	all, err := e.a.GetAllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, cat.ID, all[0].ID)
}

func TestDeleteProductSoldIsReferentialConflict(t *testing.T) {
	e := setup(t)
	_, p := e.seed(t)
	ctx := context.Background()

	_, err := e.a.Engine.CommitSale(ctx, []domain.Line{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	err = e.a.DeleteProduct(ctx, e.admin, p.ID)
	assert.True(t, errors.Is(err, errs.ErrReferentialConflict))
}

func TestGatedOperationsDeniedWithoutGrant(t *testing.T) {
	e := setup(t)
	cat, p := e.seed(t)
	ctx := context.Background()
	var none auth.Grant
	writes := e.mem.Writes()

	price := dec("1")
	name := "X"
	checks := map[string]error{
		"rename category": e.a.RenameCategory(ctx, none, cat.ID, "Rings"),
		"delete category": e.a.DeleteCategory(ctx, none, cat.ID),
		"update stock":    e.a.UpdateProductStock(ctx, none, p.ID, 50),
		"update fields":   e.a.UpdateProductFields(ctx, none, p.ID, &name, &price),
		"delete product":  e.a.DeleteProduct(ctx, none, p.ID),
	}
	_, err := e.a.DeleteSale(ctx, none, 1)
	checks["delete sale"] = err

	for what, err := range checks {
		assert.True(t, errors.Is(err, errs.ErrAuthDenied), "%s: %v", what, err)
	}
	assert.Equal(t, writes, e.mem.Writes())

	got, err := e.a.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stud", got.Name)
	assert.Equal(t, 5, got.Stock)
}

func TestGatedOperationsWithGrant(t *testing.T) {
	e := setup(t)
	cat, p := e.seed(t)
	ctx := context.Background()

	require.NoError(t, e.a.RenameCategory(ctx, e.admin, cat.ID, "Rings"))
	require.NoError(t, e.a.UpdateProductStock(ctx, e.admin, p.ID, 9))
	assert.True(t, errors.Is(e.a.UpdateProductStock(ctx, e.admin, p.ID, -1), errs.ErrInvalidArgument))
	assert.True(t, errors.Is(e.a.UpdateProductStock(ctx, e.admin, 404, 1), errs.ErrNotFound))

	got, err := e.a.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Stock)
	assert.Equal(t, "Rings", got.Category.Name)

	require.NoError(t, e.a.DeleteProduct(ctx, e.admin, p.ID))
	require.NoError(t, e.a.DeleteCategory(ctx, e.admin, cat.ID))
	all, err := e.a.GetAllCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteSaleRestocks(t *testing.T) {
	e := setup(t)
	_, p := e.seed(t)
	ctx := context.Background()

	out, err := e.a.Engine.CommitSale(ctx, []domain.Line{{ProductID: p.ID, Quantity: 4}})
	require.NoError(t, err)

	rev, err := e.a.DeleteSale(ctx, e.admin, out.SaleID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Line{{ProductID: p.ID, Quantity: 4}}, rev.Restocked)

	got, err := e.a.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	_, err = e.a.GetSaleByID(ctx, out.SaleID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestProductsByCategoryName(t *testing.T) {
	e := setup(t)
	cat, _ := e.seed(t)
	ctx := context.Background()
	other, err := e.a.AddCategory(ctx, domain.Category{Name: "Necklaces"})
	require.NoError(t, err)
	_, err = e.a.AddProduct(ctx, domain.Product{Name: "Pearl", Price: dec("80"), Stock: 10, Category: other})
	require.NoError(t, err)

	got, err := e.a.ProductsByCategoryName(ctx, cat.Name)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Stud", got[0].Name)

	got, err = e.a.ProductsByCategoryName(ctx, "Tiaras")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	all, err := e.a.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSalesOnFiltersByCalendarDay(t *testing.T) {
	e := setup(t)
	_, p := e.seed(t)
	ctx := context.Background()

	e.clock = time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)
	_, err := e.a.Engine.CommitSale(ctx, []domain.Line{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	e.clock = time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	second, err := e.a.Engine.CommitSale(ctx, []domain.Line{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	day, err := e.a.SalesOn(ctx, time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, second.SaleID, day[0].ID)

	all, err := e.a.GetAllSales(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReadsNeverWrite(t *testing.T) {
	e := setup(t)
	cat, p := e.seed(t)
	ctx := context.Background()
	out, err := e.a.Engine.CommitSale(ctx, []domain.Line{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	writes := e.mem.Writes()

	_, _ = e.a.GetCategoryByID(ctx, cat.ID)
	_, _ = e.a.GetAllCategories(ctx)
	_, _ = e.a.GetProductByID(ctx, p.ID)
	_, _ = e.a.GetAllProducts(ctx)
	_, _ = e.a.ProductsByCategory(ctx, cat.ID)
	_, _ = e.a.GetSaleByID(ctx, out.SaleID)
	_, _ = e.a.GetAllSales(ctx)
	_, _ = e.a.SalesOn(ctx, e.clock)

	assert.Equal(t, writes, e.mem.Writes())
}
