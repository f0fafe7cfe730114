package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-kiosk-pos/internal/domain"
	"github.com/ariefcatur/go-kiosk-pos/internal/errs"
	kafkax "github.com/ariefcatur/go-kiosk-pos/internal/kafka"
	"github.com/ariefcatur/go-kiosk-pos/internal/store"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-kiosk-pos/internal/sales")

// UnitOfWork runs fn atomically; *store.Repo is the production implementation.
type UnitOfWork interface {
	InTx(ctx context.Context, fn func(store.Tx) error) error
}

// SaleLookup is only needed for CommitSaleOnce.
type SaleLookup interface {
	GetSale(ctx context.Context, id int64) (store.SaleRow, error)
}

// Publisher matches *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Ledger remembers which sale an idempotency key produced.
type Ledger interface {
	Lookup(ctx context.Context, key string) (saleID int64, ok bool, err error)
	Remember(ctx context.Context, key string, saleID int64) error
}

// Service commits and reverses sales. Store is required; everything else is optional.
type Service struct {
	Store       UnitOfWork
	Sales       SaleLookup
	Ledger      Ledger
	Committed   Publisher // publishes to TopicSaleCommitted
	Reversed    Publisher // publishes to TopicSaleReversed
	Logger      *zap.Logger
	ServiceName string
	Now         func() time.Time
}

type Shortage struct {
	ProductID int64 `json:"product_id"`
	Required  int   `json:"required"`
	Available int   `json:"available"`
}

// Outcome of CommitSale. A stock refusal is Committed=false with Shortages set and a nil error.
type Outcome struct {
	SaleID    int64
	CreatedAt time.Time
	Total     decimal.Decimal
	Items     []domain.SaleItem
	Committed bool
	Replayed  bool // returned from the idempotency ledger, nothing new was written
	Shortages []Shortage
}

// Err turns a refusal into an ErrInsufficientStock error, nil otherwise.
func (o Outcome) Err() error {
	if o.Committed || len(o.Shortages) == 0 {
		return nil
	}
	s := o.Shortages[0]
	return errs.Ef("sales.CommitSale", errs.ErrInsufficientStock,
		"product %d: required %d, available %d", s.ProductID, s.Required, s.Available)
}

type Reversal struct {
	SaleID    int64
	Restocked []domain.Line
}

// errRefused aborts the unit of work when validation rejects the sale.
var errRefused = errors.New("sale refused")

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// CommitSale validates all lines against live stock and writes the sale in one unit of work.
// Lines for the same product are merged and checked against stock as one quantity.
func (s *Service) CommitSale(ctx context.Context, lines []domain.Line) (Outcome, error) {
	const op = "sales.CommitSale"
	ctx, span := tracer.Start(ctx, "sale.commit")
	defer span.End()
	span.SetAttributes(attribute.Int("sale.lines", len(lines)))

	merged, err := domain.Coalesce(lines)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}

	var out Outcome
	err = s.Store.InTx(ctx, func(tx store.Tx) error {
		out = Outcome{}

		ids := make([]int64, 0, len(merged))
		for _, l := range merged {
			ids = append(ids, l.ProductID)
		}
		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		for _, l := range merged {
			if _, ok := products[l.ProductID]; !ok {
				return errs.E(op, errs.ErrNotFound, nil).WithID(l.ProductID)
			}
		}

		for _, l := range merged {
			if p := products[l.ProductID]; l.Quantity > p.Stock {
				out.Shortages = append(out.Shortages, Shortage{ProductID: l.ProductID, Required: l.Quantity, Available: p.Stock})
			}
		}
		if len(out.Shortages) > 0 {
			return errRefused
		}

		// Prices are the ones read under the lock above; they are not re-read.
		total := decimal.Zero
		items := make([]domain.SaleItem, 0, len(merged))
		for _, l := range merged {
			row := products[l.ProductID]
			it, err := domain.NewSaleItem(productFromRow(row), l.Quantity, decimal.NewFromFloat(row.Price))
			if err != nil {
				return err
			}
			total = total.Add(it.Subtotal())
			items = append(items, it)
		}

		for _, l := range merged {
			if err := tx.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		at := s.now()
		saleID, err := tx.InsertSale(ctx, at, total.InexactFloat64())
		if err != nil {
			return err
		}
		for i, it := range items {
			row := store.SaleItemRow{
				SaleID:    saleID,
				Line:      i + 1,
				ProductID: it.Product.ID,
				Qty:       it.Quantity,
				UnitPrice: it.UnitPrice.InexactFloat64(),
			}
			if err := tx.InsertSaleItem(ctx, row); err != nil {
				return err
			}
		}

		out = Outcome{SaleID: saleID, CreatedAt: at, Total: total, Items: items, Committed: true}
		return nil
	})

	switch {
	case errors.Is(err, errRefused):
		span.SetAttributes(attribute.Bool("sale.refused", true))
		span.SetStatus(codes.Ok, "sale refused: insufficient stock")
		s.log().Info("sale refused",
			zap.Int("lines", len(merged)),
			zap.Any("shortages", out.Shortages),
		)
		return Outcome{Shortages: out.Shortages}, nil
	case err != nil:
		err = fail(op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log().Warn("sale commit failed", zap.Error(err))
		return Outcome{}, err
	}

	span.SetAttributes(
		attribute.Int64("sale.id", out.SaleID),
		attribute.String("sale.total", out.Total.String()),
	)
	span.SetStatus(codes.Ok, "sale committed")
	s.log().Info("sale committed",
		zap.Int64("sale_id", out.SaleID),
		zap.String("total", out.Total.StringFixed(2)),
		zap.Int("items", len(out.Items)),
	)
	s.publishCommitted(out)
	return out, nil
}

// CommitSaleOnce is CommitSale guarded by an idempotency key. Repeating a key whose sale
// still exists returns that sale; a key whose sale was reversed commits again.
func (s *Service) CommitSaleOnce(ctx context.Context, key string, lines []domain.Line) (Outcome, error) {
	if key == "" || s.Ledger == nil || s.Sales == nil {
		return s.CommitSale(ctx, lines)
	}

	saleID, ok, err := s.Ledger.Lookup(ctx, key)
	switch {
	case err != nil:
		// The ledger is best effort; the database stays the source of truth.
		s.log().Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
	case ok:
		row, err := s.Sales.GetSale(ctx, saleID)
		if err == nil {
			s.log().Info("sale replayed", zap.String("key", key), zap.Int64("sale_id", saleID))
			return Outcome{
				SaleID:    row.ID,
				CreatedAt: row.CreatedAt,
				Total:     decimal.NewFromFloat(row.Total),
				Committed: true,
				Replayed:  true,
			}, nil
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return Outcome{}, fail("sales.CommitSaleOnce", err)
		}
	}

	out, err := s.CommitSale(ctx, lines)
	if err != nil || !out.Committed {
		return out, err
	}
	if err := s.Ledger.Remember(ctx, key, out.SaleID); err != nil {
		s.log().Warn("idempotency remember failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

// ReverseSale refunds every item's quantity to stock and deletes the sale, atomically.
// It is not idempotent: the second call on the same id fails with ErrNotFound only
// because the first one deleted the sale.
func (s *Service) ReverseSale(ctx context.Context, saleID int64) (Reversal, error) {
	const op = "sales.ReverseSale"
	ctx, span := tracer.Start(ctx, "sale.reverse")
	defer span.End()
	span.SetAttributes(attribute.Int64("sale.id", saleID))

	var rev Reversal
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		items, err := tx.ItemsBySale(ctx, saleID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errs.E(op, errs.ErrNotFound, nil).WithID(saleID)
		}
		rev = Reversal{SaleID: saleID}
		for _, it := range items {
			if err := tx.IncrementStock(ctx, it.ProductID, it.Qty); err != nil {
				return err
			}
			rev.Restocked = append(rev.Restocked, domain.Line{ProductID: it.ProductID, Quantity: it.Qty})
		}
		return tx.DeleteSaleItemsAndSale(ctx, saleID)
	})
	if err != nil {
		err = fail(op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log().Warn("sale reverse failed", zap.Int64("sale_id", saleID), zap.Error(err))
		return Reversal{}, err
	}

	span.SetStatus(codes.Ok, "sale reversed")
	s.log().Info("sale reversed", zap.Int64("sale_id", saleID), zap.Int("items", len(rev.Restocked)))
	s.publishReversed(rev)
	return rev, nil
}

// fail folds any failure inside the unit of work into one error for the whole operation.
func fail(op string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) && e.Op == op {
		return err
	}
	kind := errs.KindOf(err)
	if kind == nil {
		kind = errs.ErrStorageUnavailable
	}
	return errs.E(op, kind, err)
}

func productFromRow(r store.ProductRow) domain.Product {
	return domain.Product{
		ID:       r.ID,
		Name:     r.Name,
		Price:    decimal.NewFromFloat(r.Price),
		Stock:    r.Stock,
		Category: domain.Category{ID: r.CategoryID, Name: r.CategoryName},
	}
}

func (s *Service) envelope(eventType string, saleID int64, payload any) []byte {
	return kafkax.MustMarshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		CorrelationID: fmt.Sprint(saleID),
		Payload:       kafkax.MustMarshal(payload),
	})
}

func (s *Service) publishCommitted(out Outcome) {
	if s.Committed == nil {
		return
	}
	p := SaleCommittedPayload{SaleID: out.SaleID, CreatedAt: out.CreatedAt, Total: out.Total}
	for _, it := range out.Items {
		p.Items = append(p.Items, ItemPrice{ProductID: it.Product.ID, Qty: it.Quantity, UnitPrice: it.UnitPrice})
	}
	s.Committed.Publish(PartitionKey(out.SaleID), s.envelope(EventSaleCommitted, out.SaleID, p),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventSaleCommitted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) publishReversed(rev Reversal) {
	if s.Reversed == nil {
		return
	}
	p := SaleReversedPayload{SaleID: rev.SaleID}
	for _, l := range rev.Restocked {
		p.Restocked = append(p.Restocked, ItemQty{ProductID: l.ProductID, Qty: l.Quantity})
	}
	s.Reversed.Publish(PartitionKey(rev.SaleID), s.envelope(EventSaleReversed, rev.SaleID, p),
		kafkago.Header{Key: "x-event-type", Value: []byte(EventSaleReversed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
