package sales

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventSaleCommitted = "SaleCommitted"
	EventSaleReversed  = "SaleReversed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // sale id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID int64           `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type SaleCommittedPayload struct {
	SaleID    int64           `json:"sale_id"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []ItemPrice     `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type SaleReversedPayload struct {
	SaleID    int64     `json:"sale_id"`
	Restocked []ItemQty `json:"restocked"`
}
