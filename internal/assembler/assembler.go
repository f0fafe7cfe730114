// Package assembler turns store rows into domain aggregates and flattens
// aggregates back into store and engine calls. Reads never write.
package assembler

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/auth"
	"github.com/ariefcatur/go-kiosk-pos/internal/domain"
	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/ariefcatur/go-kiosk-pos/internal/sales"
	"github.com/ariefcatur/go-kiosk-pos/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the subset of *store.Repo the assembler reads and the gated writes it forwards.
type Store interface {
	AddCategory(ctx context.Context, name string) (int64, error)
	GetCategory(ctx context.Context, id int64) (store.CategoryRow, error)
	FindCategoryByName(ctx context.Context, name string) (store.CategoryRow, error)
	ListCategories(ctx context.Context) ([]store.CategoryRow, error)
	RenameCategory(ctx context.Context, id int64, name string) error
	DeleteCategory(ctx context.Context, id int64) error

	AddProduct(ctx context.Context, p store.NewProduct) (int64, error)
	FindProduct(ctx context.Context, id int64) (store.ProductRow, error)
	ListProducts(ctx context.Context) ([]store.ProductRow, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]store.ProductRow, error)
	UpdateProductStock(ctx context.Context, id int64, qty int) error
	UpdateProductFields(ctx context.Context, id int64, patch store.ProductPatch) error
	DeleteProduct(ctx context.Context, id int64) error

	GetSale(ctx context.Context, id int64) (store.SaleRow, error)
	ListSales(ctx context.Context) ([]store.SaleRow, error)
	ListSalesByDate(ctx context.Context, from, to time.Time) ([]store.SaleRow, error)
	ListItemsBySale(ctx context.Context, saleID int64) ([]store.SaleItemRow, error)
}

// Engine is satisfied by *sales.Service.
type Engine interface {
	CommitSale(ctx context.Context, lines []domain.Line) (sales.Outcome, error)
	CommitSaleOnce(ctx context.Context, key string, lines []domain.Line) (sales.Outcome, error)
	ReverseSale(ctx context.Context, saleID int64) (sales.Reversal, error)
}

type Assembler struct {
	Store  Store
	Engine Engine
	Logger *zap.Logger
}

func (a *Assembler) log() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

// gate refuses before any store call is made.
func (a *Assembler) gate(grant auth.Grant, op string, id int64) error {
	if err := grant.Check(op); err != nil {
		a.log().Warn("gated operation denied", zap.String("op", op), zap.Int64("id", id))
		return err
	}
	return nil
}

// ---- categories ----

func (a *Assembler) AddCategory(ctx context.Context, c domain.Category) (domain.Category, error) {
	c, err := domain.NewCategory(c.Name)
	if err != nil {
		return domain.Category{}, err
	}
	id, err := a.Store.AddCategory(ctx, c.Name)
	if err != nil {
		return domain.Category{}, err
	}
	c.ID = id
	return c, nil
}

func (a *Assembler) GetCategoryByID(ctx context.Context, id int64) (domain.Category, error) {
	r, err := a.Store.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	return categoryFromRow(r), nil
}

func (a *Assembler) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := a.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, categoryFromRow(r))
	}
	return out, nil
}

func (a *Assembler) RenameCategory(ctx context.Context, grant auth.Grant, id int64, name string) error {
	if err := a.gate(grant, "assembler.RenameCategory", id); err != nil {
		return err
	}
	c, err := domain.NewCategory(name)
	if err != nil {
		return err
	}
	return a.Store.RenameCategory(ctx, id, c.Name)
}

// DeleteCategory fails with ErrReferentialConflict while products still use the category.
func (a *Assembler) DeleteCategory(ctx context.Context, grant auth.Grant, id int64) error {
	if err := a.gate(grant, "assembler.DeleteCategory", id); err != nil {
		return err
	}
	return a.Store.DeleteCategory(ctx, id)
}

// ---- products ----

// AddProduct stores p under p.Category.ID and returns it with its new ID.
func (a *Assembler) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p, err := domain.NewProduct(p.Name, p.Price, p.Stock, p.Category)
	if err != nil {
		return domain.Product{}, err
	}
	cat, err := a.Store.GetCategory(ctx, p.Category.ID)
	if err != nil {
		return domain.Product{}, err
	}
	id, err := a.Store.AddProduct(ctx, store.NewProduct{
		Name:       p.Name,
		Price:      p.Price.InexactFloat64(),
		Stock:      p.Stock,
		CategoryID: cat.ID,
	})
	if err != nil {
		return domain.Product{}, err
	}
	p.ID = id
	p.Category = categoryFromRow(cat)
	return p, nil
}

func (a *Assembler) GetProductByID(ctx context.Context, id int64) (domain.Product, error) {
	r, err := a.Store.FindProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return productFromRow(r), nil
}

func (a *Assembler) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := a.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return productsFromRows(rows), nil
}

func (a *Assembler) ProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	rows, err := a.Store.ListProductsByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return productsFromRows(rows), nil
}

// ProductsByCategoryName returns an empty list when no category has that name.
func (a *Assembler) ProductsByCategoryName(ctx context.Context, name string) ([]domain.Product, error) {
	c, err := a.Store.FindCategoryByName(ctx, name)
	if errors.Is(err, errs.ErrNotFound) {
		return []domain.Product{}, nil
	}
	if err != nil {
		return nil, err
	}
	return a.ProductsByCategory(ctx, c.ID)
}

func (a *Assembler) UpdateProductStock(ctx context.Context, grant auth.Grant, id int64, qty int) error {
	if err := a.gate(grant, "assembler.UpdateProductStock", id); err != nil {
		return err
	}
	if _, err := (domain.Product{}).WithStock(qty); err != nil {
		return err
	}
	return a.Store.UpdateProductStock(ctx, id, qty)
}

// UpdateProductFields changes whichever of name and price is non-nil.
// Committed sales keep the unit price they were sold at.
func (a *Assembler) UpdateProductFields(ctx context.Context, grant auth.Grant, id int64, name *string, price *decimal.Decimal) error {
	if err := a.gate(grant, "assembler.UpdateProductFields", id); err != nil {
		return err
	}
	patch := store.ProductPatch{Name: name}
	if price != nil {
		if _, err := (domain.Product{}).WithPrice(*price); err != nil {
			return err
		}
		f := price.InexactFloat64()
		patch.Price = &f
	}
	return a.Store.UpdateProductFields(ctx, id, patch)
}

func (a *Assembler) DeleteProduct(ctx context.Context, grant auth.Grant, id int64) error {
	if err := a.gate(grant, "assembler.DeleteProduct", id); err != nil {
		return err
	}
	return a.Store.DeleteProduct(ctx, id)
}

// ---- sales ----

// RegisterSale flattens the cart into engine lines. The engine prices the sale.
func (a *Assembler) RegisterSale(ctx context.Context, cart *domain.Cart) (sales.Outcome, error) {
	return a.Engine.CommitSale(ctx, cart.Lines())
}

// RegisterSaleOnce is RegisterSale with an idempotency key.
func (a *Assembler) RegisterSaleOnce(ctx context.Context, key string, cart *domain.Cart) (sales.Outcome, error) {
	return a.Engine.CommitSaleOnce(ctx, key, cart.Lines())
}

// DeleteSale reverses the sale, returning its stock.
func (a *Assembler) DeleteSale(ctx context.Context, grant auth.Grant, saleID int64) (sales.Reversal, error) {
	if err := a.gate(grant, "assembler.DeleteSale", saleID); err != nil {
		return sales.Reversal{}, err
	}
	return a.Engine.ReverseSale(ctx, saleID)
}

// GetSaleByID assembles the sale with its items. Quantities and unit prices are
// the ones recorded at commit; each item's product is its current state.
func (a *Assembler) GetSaleByID(ctx context.Context, id int64) (domain.Sale, error) {
	r, err := a.Store.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return a.assemble(ctx, r, map[int64]domain.Product{})
}

func (a *Assembler) GetAllSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := a.Store.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return a.assembleAll(ctx, rows)
}

// SalesOn returns the sales made on day's calendar date, in day's location.
func (a *Assembler) SalesOn(ctx context.Context, day time.Time) ([]domain.Sale, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := a.Store.ListSalesByDate(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return a.assembleAll(ctx, rows)
}

func (a *Assembler) assembleAll(ctx context.Context, rows []store.SaleRow) ([]domain.Sale, error) {
	products := map[int64]domain.Product{}
	out := make([]domain.Sale, 0, len(rows))
	for _, r := range rows {
		s, err := a.assemble(ctx, r, products)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// products caches lookups across the sales of one call.
func (a *Assembler) assemble(ctx context.Context, r store.SaleRow, products map[int64]domain.Product) (domain.Sale, error) {
	items, err := a.Store.ListItemsBySale(ctx, r.ID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale := domain.Sale{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Total:     decimal.NewFromFloat(r.Total),
		Items:     make([]domain.SaleItem, 0, len(items)),
	}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			if p, err = a.GetProductByID(ctx, it.ProductID); err != nil {
				return domain.Sale{}, err
			}
			products[it.ProductID] = p
		}
		sale.Items = append(sale.Items, domain.SaleItem{
			Product:   p,
			Quantity:  it.Qty,
			UnitPrice: decimal.NewFromFloat(it.UnitPrice),
		})
	}
	return sale, nil
}

func categoryFromRow(r store.CategoryRow) domain.Category {
	return domain.Category{ID: r.ID, Name: r.Name}
}

func productFromRow(r store.ProductRow) domain.Product {
	return domain.Product{
		ID:       r.ID,
		Name:     r.Name,
		Price:    decimal.NewFromFloat(r.Price),
		Stock:    r.Stock,
		Category: domain.Category{ID: r.CategoryID, Name: r.CategoryName},
	}
}

func productsFromRows(rows []store.ProductRow) []domain.Product {
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, productFromRow(r))
	}
	return out
}
