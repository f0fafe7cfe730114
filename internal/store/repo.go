package store

import (
	"context"
	"strings"

	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `p.id, p.name, p.price, p.stock, p.category_id, c.name`

const productFrom = ` FROM products p JOIN categories c ON c.id = p.category_id`

func (r *Repo) AddCategory(ctx context.Context, name string) (int64, error) {
	const op = "store.AddCategory"
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errs.Ef(op, errs.ErrInvalidArgument, "category name is required")
	}
	var id int64
	err := r.DB.QueryRow(ctx, `INSERT INTO categories(name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, classify(op, err)
	}
	return id, nil
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (CategoryRow, error) {
	var c CategoryRow
	err := r.DB.QueryRow(ctx, `SELECT id, name FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		return CategoryRow{}, classify("store.GetCategory", err)
	}
	return c, nil
}

func (r *Repo) FindCategoryByName(ctx context.Context, name string) (CategoryRow, error) {
	var c CategoryRow
	err := r.DB.QueryRow(ctx, `SELECT id, name FROM categories WHERE name=$1`, name).Scan(&c.ID, &c.Name)
	if err != nil {
		return CategoryRow{}, classify("store.FindCategoryByName", err)
	}
	return c, nil
}

func (r *Repo) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	const op = "store.ListCategories"
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var out []CategoryRow
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, classify(op, err)
		}
		out = append(out, c)
	}
	return out, classify(op, rows.Err())
}

func (r *Repo) RenameCategory(ctx context.Context, id int64, name string) error {
	const op = "store.RenameCategory"
	name = strings.TrimSpace(name)
	if name == "" {
		return errs.Ef(op, errs.ErrInvalidArgument, "category name is required")
	}
	ct, err := r.DB.Exec(ctx, `UPDATE categories SET name=$2 WHERE id=$1`, id, name)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() == 0 {
		return notFound(op, id)
	}
	return nil
}

// DeleteCategory fails with ErrReferentialConflict while any product references the category.
func (r *Repo) DeleteCategory(ctx context.Context, id int64) error {
	const op = "store.DeleteCategory"
	ct, err := r.DB.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() == 0 {
		return notFound(op, id)
	}
	return nil
}

func (r *Repo) AddProduct(ctx context.Context, p NewProduct) (int64, error) {
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
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(name, price, stock, category_id)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		p.Name, p.Price, p.Stock, p.CategoryID,
	).Scan(&id)
	if err != nil {
		err = classify(op, err)
		// On insert the only foreign key is the category.
		if errs.KindOf(err) == errs.ErrReferentialConflict {
			return 0, errs.Ef(op, errs.ErrNotFound, "category %d", p.CategoryID)
		}
		return 0, err
	}
	return id, nil
}

func (r *Repo) FindProduct(ctx context.Context, id int64) (ProductRow, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id=$1`, id))
	if err != nil {
		return ProductRow{}, classify("store.FindProduct", err)
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]ProductRow, error) {
	return listProducts(ctx, r.DB, "store.ListProducts", `SELECT `+productColumns+productFrom+` ORDER BY p.id`)
}

func (r *Repo) ListProductsByCategory(ctx context.Context, categoryID int64) ([]ProductRow, error) {
	return listProducts(ctx, r.DB, "store.ListProductsByCategory",
		`SELECT `+productColumns+productFrom+` WHERE p.category_id=$1 ORDER BY p.id`, categoryID)
}

func (r *Repo) UpdateProductStock(ctx context.Context, id int64, qty int) error {
	const op = "store.UpdateProductStock"
	if qty < 0 {
		return errs.Ef(op, errs.ErrInvalidArgument, "stock %d is negative", qty)
	}
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock=$2 WHERE id=$1`, id, qty)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() == 0 {
		return notFound(op, id)
	}
	return nil
}

func (r *Repo) UpdateProductFields(ctx context.Context, id int64, patch ProductPatch) error {
	const op = "store.UpdateProductFields"
	if patch.Name != nil {
		n := strings.TrimSpace(*patch.Name)
		if n == "" {
			return errs.Ef(op, errs.ErrInvalidArgument, "product name is required")
		}
		patch.Name = &n
	}
	if patch.Price != nil && *patch.Price < 0 {
		return errs.Ef(op, errs.ErrInvalidArgument, "price %v is negative", *patch.Price)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name = COALESCE($2, name), price = COALESCE($3, price)
		WHERE id=$1`, id, patch.Name, patch.Price)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() == 0 {
		return notFound(op, id)
	}
	return nil
}

// DeleteProduct fails with ErrReferentialConflict while any sale item references the product.
func (r *Repo) DeleteProduct(ctx context.Context, id int64) error {
	const op = "store.DeleteProduct"
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return classify(op, err)
	}
	if ct.RowsAffected() == 0 {
		return notFound(op, id)
	}
	return nil
}

func scanProduct(row pgx.Row) (ProductRow, error) {
	var p ProductRow
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CategoryID, &p.CategoryName)
	return p, err
}

func listProducts(ctx context.Context, q querier, op, sql string, args ...any) ([]ProductRow, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	var out []ProductRow
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, p)
	}
	return out, classify(op, rows.Err())
}
