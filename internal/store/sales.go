package store

import (
	"context"
	"time"
)

func (r *Repo) GetSale(ctx context.Context, id int64) (SaleRow, error) {
	var s SaleRow
	err := r.DB.QueryRow(ctx, `SELECT id, created_at, total FROM sales WHERE id=$1`, id).
		Scan(&s.ID, &s.CreatedAt, &s.Total)
	if err != nil {
		return SaleRow{}, classify("store.GetSale", err)
	}
	return s, nil
}

func (r *Repo) ListSales(ctx context.Context) ([]SaleRow, error) {
	return r.listSales(ctx, "store.ListSales", `SELECT id, created_at, total FROM sales ORDER BY created_at, id`)
}

// ListSalesByDate returns sales with from <= created_at < to.
func (r *Repo) ListSalesByDate(ctx context.Context, from, to time.Time) ([]SaleRow, error) {
	return r.listSales(ctx, "store.ListSalesByDate", `
		SELECT id, created_at, total FROM sales
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id`, from, to)
}

func (r *Repo) ListItemsBySale(ctx context.Context, saleID int64) ([]SaleItemRow, error) {
	return listItems(ctx, r.DB, "store.ListItemsBySale", saleID)
}

func (r *Repo) listSales(ctx context.Context, op, sql string, args ...any) ([]SaleRow, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var out []SaleRow
	for rows.Next() {
		var s SaleRow
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.Total); err != nil {
			return nil, classify(op, err)
		}
		out = append(out, s)
	}
	return out, classify(op, rows.Err())
}

// Items come back in line order.
func listItems(ctx context.Context, q querier, op string, saleID int64) ([]SaleItemRow, error) {
	rows, err := q.Query(ctx, `
		SELECT sale_id, line_no, product_id, quantity, unit_price
		FROM sale_items WHERE sale_id=$1 ORDER BY line_no`, saleID)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var out []SaleItemRow
	for rows.Next() {
		var it SaleItemRow
		if err := rows.Scan(&it.SaleID, &it.Line, &it.ProductID, &it.Qty, &it.UnitPrice); err != nil {
			return nil, classify(op, err)
		}
		out = append(out, it)
	}
	return out, classify(op, rows.Err())
}
