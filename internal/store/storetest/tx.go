package storetest

import (
	"context"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/ariefcatur/go-kiosk-pos/internal/store"
)

// memTx works on a private copy of the state; Memory.InTx publishes it on success.
type memTx struct {
	m *Memory
	s *state
}

func (t *memTx) LockProducts(ctx context.Context, ids []int64) (map[int64]store.ProductRow, error) {
	if err := t.m.injected("LockProducts"); err != nil {
		return nil, err
	}
	out := make(map[int64]store.ProductRow, len(ids))
	for _, id := range ids {
		if p, ok := joined(t.s, id); ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	if err := t.m.injected("DecrementStock"); err != nil {
		return err
	}
	p, ok := t.s.products[productID]
	if !ok || p.Stock < qty {
		return errs.E("store.DecrementStock", errs.ErrInsufficientStock, nil).WithID(productID)
	}
	p.Stock -= qty
	t.s.products[productID] = p
	return nil
}

func (t *memTx) IncrementStock(ctx context.Context, productID int64, qty int) error {
	if err := t.m.injected("IncrementStock"); err != nil {
		return err
	}
	p, ok := t.s.products[productID]
	if !ok {
		return errs.E("store.IncrementStock", errs.ErrNotFound, nil).WithID(productID)
	}
	p.Stock += qty
	t.s.products[productID] = p
	return nil
}

func (t *memTx) InsertSale(ctx context.Context, at time.Time, total float64) (int64, error) {
	if err := t.m.injected("InsertSale"); err != nil {
		return 0, err
	}
	t.s.nextSale++
	id := t.s.nextSale
	t.s.sales[id] = store.SaleRow{ID: id, CreatedAt: at, Total: total}
	return id, nil
}

func (t *memTx) InsertSaleItem(ctx context.Context, it store.SaleItemRow) error {
	const op = "store.InsertSaleItem"
	if err := t.m.injected("InsertSaleItem"); err != nil {
		return err
	}
	if _, ok := t.s.sales[it.SaleID]; !ok {
		return errs.Ef(op, errs.ErrReferentialConflict, "sale %d", it.SaleID)
	}
	if _, ok := t.s.products[it.ProductID]; !ok {
		return errs.Ef(op, errs.ErrReferentialConflict, "product %d", it.ProductID)
	}
	for _, existing := range t.s.items[it.SaleID] {
		if existing.ProductID == it.ProductID {
			return errs.Ef(op, errs.ErrConflict, "sale %d already has product %d", it.SaleID, it.ProductID)
		}
	}
	t.s.items[it.SaleID] = append(t.s.items[it.SaleID], it)
	return nil
}

func (t *memTx) ItemsBySale(ctx context.Context, saleID int64) ([]store.SaleItemRow, error) {
	if err := t.m.injected("ItemsBySale"); err != nil {
		return nil, err
	}
	return append([]store.SaleItemRow(nil), t.s.items[saleID]...), nil
}

func (t *memTx) DeleteSaleItemsAndSale(ctx context.Context, saleID int64) error {
	if err := t.m.injected("DeleteSaleItemsAndSale"); err != nil {
		return err
	}
	if _, ok := t.s.sales[saleID]; !ok {
		return errs.E("store.DeleteSaleItemsAndSale", errs.ErrNotFound, nil).WithID(saleID)
	}
	delete(t.s.items, saleID)
	delete(t.s.sales, saleID)
	return nil
}
