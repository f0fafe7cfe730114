package store

import (
	"context"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/jackc/pgx/v5"
)

// Tx is what a unit of work can do. Its reads see the transaction's own writes.
type Tx interface {
	// LockProducts reads and row-locks the given products. Unknown ids are absent from the map.
	LockProducts(ctx context.Context, ids []int64) (map[int64]ProductRow, error)
	// DecrementStock fails with ErrInsufficientStock instead of driving stock negative.
	DecrementStock(ctx context.Context, productID int64, qty int) error
	IncrementStock(ctx context.Context, productID int64, qty int) error
	InsertSale(ctx context.Context, at time.Time, total float64) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItemRow) error
	ItemsBySale(ctx context.Context, saleID int64) ([]SaleItemRow, error)
	DeleteSaleItemsAndSale(ctx context.Context, saleID int64) error
}

// InTx runs fn in one serializable transaction. Any error from fn rolls everything back.
func (r *Repo) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify("store.Begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.E("store.Commit", errs.ErrStorageUnavailable, err)
	}
	return nil
}

// DeleteSaleItemsAndSale removes a sale and its items without touching stock.
func (r *Repo) DeleteSaleItemsAndSale(ctx context.Context, saleID int64) error {
	return r.InTx(ctx, func(tx Tx) error {
		return tx.DeleteSaleItemsAndSale(ctx, saleID)
	})
}

type pgTx struct{ q querier }

func (t *pgTx) LockProducts(ctx context.Context, ids []int64) (map[int64]ProductRow, error) {
	const op = "store.LockProducts"
	// ORDER BY id keeps the lock order stable across callers.
	rows, err := t.q.Query(ctx, `SELECT `+productColumns+productFrom+`
		WHERE p.id = ANY($1) ORDER BY p.id FOR UPDATE OF p`, ids)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := make(map[int64]ProductRow, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

func (t *pgTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	const op = "store.DecrementStock"
	ct, err := t.q.Exec(ctx, `UPDATE products SET stock = stock - $2 WHERE id=$1 AND stock >= $2`, productID, qty)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() != 1 {
		return errs.E(op, errs.ErrInsufficientStock, nil).WithID(productID)
	}
	return nil
}

func (t *pgTx) IncrementStock(ctx context.Context, productID int64, qty int) error {
	const op = "store.IncrementStock"
	ct, err := t.q.Exec(ctx, `UPDATE products SET stock = stock + $2 WHERE id=$1`, productID, qty)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() != 1 {
		return notFound(op, productID)
	}
	return nil
}

func (t *pgTx) InsertSale(ctx context.Context, at time.Time, total float64) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `INSERT INTO sales(created_at, total) VALUES ($1, $2) RETURNING id`, at, total).Scan(&id)
	if err != nil {
		return 0, classify("store.InsertSale", err)
	}
	return id, nil
}

func (t *pgTx) InsertSaleItem(ctx context.Context, it SaleItemRow) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO sale_items(sale_id, line_no, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`,
		it.SaleID, it.Line, it.ProductID, it.Qty, it.UnitPrice,
	)
	return classify("store.InsertSaleItem", err)
}

func (t *pgTx) ItemsBySale(ctx context.Context, saleID int64) ([]SaleItemRow, error) {
	return listItems(ctx, t.q, "store.ItemsBySale", saleID)
}

func (t *pgTx) DeleteSaleItemsAndSale(ctx context.Context, saleID int64) error {
	const op = "store.DeleteSaleItemsAndSale"
	if _, err := t.q.Exec(ctx, `DELETE FROM sale_items WHERE sale_id=$1`, saleID); err != nil {
		return classify(op, err)
	}
	ct, err := t.q.Exec(ctx, `DELETE FROM sales WHERE id=$1`, saleID)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() == 0 {
		return notFound(op, saleID)
	}
	return nil
}
