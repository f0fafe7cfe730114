package domain

import (
	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/shopspring/decimal"
)

// Line is a requested (product, quantity) pair for a sale.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"qty"`
}

// Coalesce merges lines naming the same product, keeping the order of first appearance.
// An empty list or a non-positive quantity is rejected.
func Coalesce(lines []Line) ([]Line, error) {
	const op = "domain.Coalesce"
	if len(lines) == 0 {
		return nil, errs.Ef(op, errs.ErrInvalidArgument, "sale has no lines")
	}
	out := make([]Line, 0, len(lines))
	pos := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, errs.Ef(op, errs.ErrInvalidArgument, "quantity %d for product %d must be positive", l.Quantity, l.ProductID)
		}
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// Cart collects products for a sale before it is registered. Its total is a preview
// at the prices the cart holds; the committed total is priced by the store.
type Cart struct {
	items []SaleItem
}

func (c *Cart) Add(p Product, qty int) error {
	it, err := NewSaleItem(p, qty, p.Price)
	if err != nil {
		return err
	}
	c.items = append(c.items, it)
	return nil
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) Items() []SaleItem {
	out := make([]SaleItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Total() decimal.Decimal {
	return Sale{Items: c.items}.ItemsTotal()
}

// Lines flattens the cart into the engine's input.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, Line{ProductID: it.Product.ID, Quantity: it.Quantity})
	}
	return out
}

// FormatMoney renders an amount the way receipts show it, e.g. R$10.00.
func FormatMoney(d decimal.Decimal) string {
	return "R$" + d.StringFixed(2)
}
