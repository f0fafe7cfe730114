package domain

import (
	"strings"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64
	Name string
}

// NewCategory returns an unsaved category (ID 0).
func NewCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errs.Ef("domain.NewCategory", errs.ErrInvalidArgument, "category name is required")
	}
	return Category{Name: name}, nil
}

type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Stock    int
	Category Category
}

// NewProduct returns an unsaved product. Price and stock must not be negative.
func NewProduct(name string, price decimal.Decimal, stock int, category Category) (Product, error) {
	const op = "domain.NewProduct"
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, errs.Ef(op, errs.ErrInvalidArgument, "product name is required")
	}
	if err := checkPrice(op, price); err != nil {
		return Product{}, err
	}
	if err := checkStock(op, stock); err != nil {
		return Product{}, err
	}
	return Product{Name: name, Price: price, Stock: stock, Category: category}, nil
}

func (p Product) WithPrice(price decimal.Decimal) (Product, error) {
	if err := checkPrice("domain.Product.WithPrice", price); err != nil {
		return p, err
	}
	p.Price = price
	return p, nil
}

func (p Product) WithStock(stock int) (Product, error) {
	if err := checkStock("domain.Product.WithStock", stock); err != nil {
		return p, err
	}
	p.Stock = stock
	return p, nil
}

// RemoveStock takes qty units out of stock. The receiver is returned unchanged on failure.
func (p Product) RemoveStock(qty int) (Product, error) {
	const op = "domain.Product.RemoveStock"
	if qty <= 0 {
		return p, errs.Ef(op, errs.ErrInvalidArgument, "quantity %d must be positive", qty)
	}
	if qty > p.Stock {
		return p, errs.Ef(op, errs.ErrInsufficientStock, "%q has %d, requested %d", p.Name, p.Stock, qty)
	}
	p.Stock -= qty
	return p, nil
}

func checkPrice(op string, price decimal.Decimal) error {
	if price.IsNegative() {
		return errs.Ef(op, errs.ErrInvalidArgument, "price %s is negative", price)
	}
	return nil
}

func checkStock(op string, stock int) error {
	if stock < 0 {
		return errs.Ef(op, errs.ErrInvalidArgument, "stock %d is negative", stock)
	}
	return nil
}

// SaleItem is one line of a sale. UnitPrice is the price captured at commit time;
// Product reflects the product as it is now and may have drifted since.
type SaleItem struct {
	Product   Product
	Quantity  int
	UnitPrice decimal.Decimal
}

func NewSaleItem(product Product, qty int, unitPrice decimal.Decimal) (SaleItem, error) {
	const op = "domain.NewSaleItem"
	if qty <= 0 {
		return SaleItem{}, errs.Ef(op, errs.ErrInvalidArgument, "quantity %d must be positive", qty)
	}
	if err := checkPrice(op, unitPrice); err != nil {
		return SaleItem{}, err
	}
	return SaleItem{Product: product, Quantity: qty, UnitPrice: unitPrice}, nil
}

func (i SaleItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Sale is a committed sale. Total is the persisted value and is never recomputed.
type Sale struct {
	ID        int64
	CreatedAt time.Time
	Total     decimal.Decimal
	Items     []SaleItem
}

// ItemsTotal sums the item subtotals. For a sale read from the store it equals Total.
func (s Sale) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}
