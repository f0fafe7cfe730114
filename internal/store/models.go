package store

import "time"

// Rows as persisted. Money is REAL in the schema; callers convert to decimal at the edge.

type CategoryRow struct {
	ID   int64
	Name string
}

type ProductRow struct {
	ID           int64
	Name         string
	Price        float64
	Stock        int
	CategoryID   int64
	CategoryName string // filled by joined reads
}

type NewProduct struct {
	Name       string
	Price      float64
	Stock      int
	CategoryID int64
}

// ProductPatch updates only the non-nil fields.
type ProductPatch struct {
	Name  *string
	Price *float64
}

type SaleRow struct {
	ID        int64
	CreatedAt time.Time
	Total     float64
}

type SaleItemRow struct {
	SaleID    int64
	Line      int // 1-based position within the sale
	ProductID int64
	Qty       int
	UnitPrice float64
}
