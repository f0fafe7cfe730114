package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Foreign keys are left at NO ACTION so deleting a referenced row fails instead of cascading.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL CHECK (name <> '')
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT UNIQUE NOT NULL CHECK (name <> ''),
		price       DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		stock       INTEGER NOT NULL CHECK (stock >= 0),
		category_id BIGINT NOT NULL REFERENCES categories(id)
	)`,
	`CREATE INDEX IF NOT EXISTS products_category_id_idx ON products(category_id)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id         BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		total      DOUBLE PRECISION NOT NULL CHECK (total >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS sales_created_at_idx ON sales(created_at)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		sale_id    BIGINT NOT NULL REFERENCES sales(id),
		line_no    INTEGER NOT NULL,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price DOUBLE PRECISION NOT NULL CHECK (unit_price >= 0),
		PRIMARY KEY (sale_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS sale_items_product_id_idx ON sale_items(product_id)`,
}

// EnsureSchema creates the tables when missing. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema step %d: %w", i+1, err)
		}
	}
	return nil
}
