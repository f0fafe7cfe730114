// Package storetest provides an in-memory store with the same constraints and
// failure kinds as the Postgres repository, for tests of the layers above it.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/ariefcatur/go-kiosk-pos/internal/store"
)

type state struct {
	nextCategory, nextProduct, nextSale int64

	categories map[int64]store.CategoryRow
	products   map[int64]store.ProductRow
	sales      map[int64]store.SaleRow
	items      map[int64][]store.SaleItemRow
}

func newState() *state {
	return &state{
		categories: map[int64]store.CategoryRow{},
		products:   map[int64]store.ProductRow{},
		sales:      map[int64]store.SaleRow{},
		items:      map[int64][]store.SaleItemRow{},
	}
}

func (s *state) clone() *state {
	c := *s
	c.categories = make(map[int64]store.CategoryRow, len(s.categories))
	for k, v := range s.categories {
		c.categories[k] = v
	}
	c.products = make(map[int64]store.ProductRow, len(s.products))
	for k, v := range s.products {
		c.products[k] = v
	}
	c.sales = make(map[int64]store.SaleRow, len(s.sales))
	for k, v := range s.sales {
		c.sales[k] = v
	}
	c.items = make(map[int64][]store.SaleItemRow, len(s.items))
	for k, v := range s.items {
		c.items[k] = append([]store.SaleItemRow(nil), v...)
	}
	return &c
}

// Memory is safe for concurrent use; a unit of work holds the lock for its whole run.
type Memory struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
	writes   int
}

func NewMemory() *Memory {
	return &Memory{st: newState(), failures: map[string]error{}}
}

// FailOn makes the next call to the named operation (e.g. "InsertSaleItem") return err.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// Writes counts committed mutating calls, including units of work.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) injected(op string) error {
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return err
	}
	return nil
}

// write runs fn against a copy of the state and keeps the copy only on success.
func (m *Memory) write(op string, fn func(*state) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(op); err != nil {
		return err
	}
	work := m.st.clone()
	if err := fn(work); err != nil {
		return err
	}
	m.st = work
	m.writes++
	return nil
}

func (m *Memory) read(fn func(*state)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.st)
}

func (m *Memory) InTx(ctx context.Context, fn func(store.Tx) error) error {
	return m.write("InTx", func(s *state) error {
		return fn(&memTx{m: m, s: s})
	})
}

func (m *Memory) AddCategory(ctx context.Context, name string) (int64, error) {
	const op = "store.AddCategory"
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errs.Ef(op, errs.ErrInvalidArgument, "category name is required")
	}
	var id int64
	err := m.write("AddCategory", func(s *state) error {
		if categoryNamed(s, name, 0) {
			return errs.Ef(op, errs.ErrConflict, "category %q exists", name)
		}
		s.nextCategory++
		id = s.nextCategory
		s.categories[id] = store.CategoryRow{ID: id, Name: name}
		return nil
	})
	return id, err
}

func (m *Memory) GetCategory(ctx context.Context, id int64) (store.CategoryRow, error) {
	var (
		c  store.CategoryRow
		ok bool
	)
	m.read(func(s *state) { c, ok = s.categories[id] })
	if !ok {
		return store.CategoryRow{}, errs.E("store.GetCategory", errs.ErrNotFound, nil).WithID(id)
	}
	return c, nil
}

func (m *Memory) FindCategoryByName(ctx context.Context, name string) (store.CategoryRow, error) {
	var (
		c  store.CategoryRow
		ok bool
	)
	m.read(func(s *state) {
		for _, v := range s.categories {
			if v.Name == name {
				c, ok = v, true
				return
			}
		}
	})
	if !ok {
		return store.CategoryRow{}, errs.Ef("store.FindCategoryByName", errs.ErrNotFound, "category %q", name)
	}
	return c, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]store.CategoryRow, error) {
	var out []store.CategoryRow
	m.read(func(s *state) {
		for _, c := range s.categories {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) RenameCategory(ctx context.Context, id int64, name string) error {
	const op = "store.RenameCategory"
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.Ef(op, errs.ErrInvalidArgument, "category name is required")
	}
	return m.write("RenameCategory", func(s *state) error {
		c, ok := s.categories[id]
		if !ok {
			return errs.E(op, errs.ErrNotFound, nil).WithID(id)
		}
		if categoryNamed(s, name, id) {
			return errs.Ef(op, errs.ErrConflict, "category %q exists", name)
		}
		c.Name = name
		s.categories[id] = c
		return nil
	})
}

func (m *Memory) DeleteCategory(ctx context.Context, id int64) error {
	const op = "store.DeleteCategory"
	return m.write("DeleteCategory", func(s *state) error {
		if _, ok := s.categories[id]; !ok {
			return errs.E(op, errs.ErrNotFound, nil).WithID(id)
		}
		for _, p := range s.products {
			if p.CategoryID == id {
				return errs.Ef(op, errs.ErrReferentialConflict, "product %d references category", p.ID).WithID(id)
			}
		}
		delete(s.categories, id)
		return nil
	})
}

func (m *Memory) AddProduct(ctx context.Context, p store.NewProduct) (int64, error) {
	const op = "store.AddProduct"
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return 0, errs.Ef(op, errs.ErrInvalidArgument, "product name is required")
	case p.Price < 0:
		return 0, errs.Ef(op, errs.ErrInvalidArgument, "price %v is negative", p.Price)
	case p.Stock < 0:
		return 0, errs.Ef(op, errs.ErrInvalidArgument, "stock %d is negative", p.Stock)
	}
	var id int64
	err := m.write("AddProduct", func(s *state) error {
		if _, ok := s.categories[p.CategoryID]; !ok {
			return errs.Ef(op, errs.ErrNotFound, "category %d", p.CategoryID)
		}
		if productNamed(s, p.Name, 0) {
			return errs.Ef(op, errs.ErrConflict, "product %q exists", p.Name)
		}
		s.nextProduct++
		id = s.nextProduct
		s.products[id] = store.ProductRow{ID: id, Name: p.Name, Price: p.Price, Stock: p.Stock, CategoryID: p.CategoryID}
		return nil
	})
	return id, err
}

func (m *Memory) FindProduct(ctx context.Context, id int64) (store.ProductRow, error) {
	var (
		p  store.ProductRow
		ok bool
	)
	m.read(func(s *state) { p, ok = joined(s, id) })
	if !ok {
		return store.ProductRow{}, errs.E("store.FindProduct", errs.ErrNotFound, nil).WithID(id)
	}
	return p, nil
}

func (m *Memory) ListProducts(ctx context.Context) ([]store.ProductRow, error) {
	return m.listProducts(func(store.ProductRow) bool { return true }), nil
}

func (m *Memory) ListProductsByCategory(ctx context.Context, categoryID int64) ([]store.ProductRow, error) {
	return m.listProducts(func(p store.ProductRow) bool { return p.CategoryID == categoryID }), nil
}

func (m *Memory) listProducts(keep func(store.ProductRow) bool) []store.ProductRow {
	var out []store.ProductRow
	m.read(func(s *state) {
		for id := range s.products {
			if p, _ := joined(s, id); keep(p) {
				out = append(out, p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) UpdateProductStock(ctx context.Context, id int64, qty int) error {
	const op = "store.UpdateProductStock"
	if qty < 0 {
		return errs.Ef(op, errs.ErrInvalidArgument, "stock %d is negative", qty)
	}
	return m.write("UpdateProductStock", func(s *state) error {
		p, ok := s.products[id]
		if !ok {
			return errs.E(op, errs.ErrNotFound, nil).WithID(id)
		}
		p.Stock = qty
		s.products[id] = p
		return nil
	})
}

func (m *Memory) UpdateProductFields(ctx context.Context, id int64, patch store.ProductPatch) error {
	const op = "store.UpdateProductFields"
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return errs.Ef(op, errs.ErrInvalidArgument, "product name is required")
	}
	if patch.Price != nil && *patch.Price < 0 {
		return errs.Ef(op, errs.ErrInvalidArgument, "price %v is negative", *patch.Price)
	}
	return m.write("UpdateProductFields", func(s *state) error {
		p, ok := s.products[id]
		if !ok {
			return errs.E(op, errs.ErrNotFound, nil).WithID(id)
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if productNamed(s, name, id) {
				return errs.Ef(op, errs.ErrConflict, "product %q exists", name)
			}
			p.Name = name
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		s.products[id] = p
		return nil
	})
}

func (m *Memory) DeleteProduct(ctx context.Context, id int64) error {
	const op = "store.DeleteProduct"
	return m.write("DeleteProduct", func(s *state) error {
		if _, ok := s.products[id]; !ok {
			return errs.E(op, errs.ErrNotFound, nil).WithID(id)
		}
		for saleID, items := range s.items {
			for _, it := range items {
				if it.ProductID == id {
					return errs.Ef(op, errs.ErrReferentialConflict, "sale %d references product", saleID).WithID(id)
				}
			}
		}
		delete(s.products, id)
		return nil
	})
}

func (m *Memory) GetSale(ctx context.Context, id int64) (store.SaleRow, error) {
	var (
		r  store.SaleRow
		ok bool
	)
	m.read(func(s *state) { r, ok = s.sales[id] })
	if !ok {
		return store.SaleRow{}, errs.E("store.GetSale", errs.ErrNotFound, nil).WithID(id)
	}
	return r, nil
}

func (m *Memory) ListSales(ctx context.Context) ([]store.SaleRow, error) {
	return m.listSales(func(store.SaleRow) bool { return true }), nil
}

func (m *Memory) ListSalesByDate(ctx context.Context, from, to time.Time) ([]store.SaleRow, error) {
	return m.listSales(func(r store.SaleRow) bool {
		return !r.CreatedAt.Before(from) && r.CreatedAt.Before(to)
	}), nil
}

func (m *Memory) listSales(keep func(store.SaleRow) bool) []store.SaleRow {
	var out []store.SaleRow
	m.read(func(s *state) {
		for _, r := range s.sales {
			if keep(r) {
				out = append(out, r)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) ListItemsBySale(ctx context.Context, saleID int64) ([]store.SaleItemRow, error) {
	var out []store.SaleItemRow
	m.read(func(s *state) { out = append(out, s.items[saleID]...) })
	return out, nil
}

func (m *Memory) DeleteSaleItemsAndSale(ctx context.Context, saleID int64) error {
	return m.InTx(ctx, func(tx store.Tx) error {
		return tx.DeleteSaleItemsAndSale(ctx, saleID)
	})
}

func categoryNamed(s *state, name string, except int64) bool {
	for id, c := range s.categories {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func productNamed(s *state, name string, except int64) bool {
	for id, p := range s.products {
		if id != except && p.Name == name {
			return true
		}
	}
	return false
}

func joined(s *state, id int64) (store.ProductRow, bool) {
	p, ok := s.products[id]
	if !ok {
		return store.ProductRow{}, false
	}
	p.CategoryName = s.categories[p.CategoryID].Name
	return p, true
}
