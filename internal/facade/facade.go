// Package facade is the submission entry point: it validates a
// request, assigns an id, persists the order as OPEN, and enqueues it
// for matching. It never touches the book or blocks on matching.
package facade

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/idgen"
	"github.com/lemonmarkets/matching-engine/internal/metrics"
	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/lemonmarkets/matching-engine/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const instrumentWidth = 12

var limitPricePattern = regexp.MustCompile(`^\d+\.\d{2}$`)

// ValidationError names the single offending field, per the §6
// machine-readable field error contract.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Enqueuer is the narrow slice of the processor the facade depends on.
type Enqueuer interface {
	Enqueue(id string)
}

// Facade accepts submissions on behalf of many concurrent callers.
type Facade struct {
	store   store.Store
	ids     idgen.Generator
	queue   Enqueuer
	log     *zap.Logger
	metrics *metrics.Collector
}

// New builds a Facade. mx may be nil, in which case submission metrics
// are skipped.
func New(st store.Store, ids idgen.Generator, q Enqueuer, log *zap.Logger, mx *metrics.Collector) *Facade {
	return &Facade{store: st, ids: ids, queue: q, log: log, metrics: mx}
}

// Submit validates req, persists a fresh OPEN order, and enqueues its
// id. It returns before matching starts.
func (f *Facade) Submit(ctx context.Context, req models.SubmitRequest) (models.SubmitResponse, error) {
	order, err := f.buildOrder(req)
	if err != nil {
		return models.SubmitResponse{}, err
	}

	if err := f.store.InsertOrder(ctx, order); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			return models.SubmitResponse{}, &ValidationError{Field: "id", Reason: "duplicate order id"}
		}
		return models.SubmitResponse{}, fmt.Errorf("insert order: %w", err)
	}

	f.log.Info("order submitted", zap.String("order_id", order.ID), zap.String("instrument", order.Instrument))
	if f.metrics != nil {
		f.metrics.OrdersSubmittedTotal.Inc()
	}
	f.queue.Enqueue(order.ID)

	return order.ToResponse(), nil
}

func (f *Facade) buildOrder(req models.SubmitRequest) (*models.Order, error) {
	typ, err := parseType(req.Type)
	if err != nil {
		return nil, err
	}
	side, err := parseSide(req.Side)
	if err != nil {
		return nil, err
	}
	if len(req.Instrument) != instrumentWidth {
		return nil, &ValidationError{Field: "instrument", Reason: fmt.Sprintf("must be exactly %d characters", instrumentWidth)}
	}
	if req.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}

	var limitPrice *decimal.Decimal
	switch typ {
	case models.Limit:
		if req.LimitPrice == "" {
			return nil, &ValidationError{Field: "limit_price", Reason: "required when type is limit"}
		}
		if !limitPricePattern.MatchString(req.LimitPrice) {
			return nil, &ValidationError{Field: "limit_price", Reason: "must have exactly two fractional digits"}
		}
		d, err := decimal.NewFromString(req.LimitPrice)
		if err != nil {
			return nil, &ValidationError{Field: "limit_price", Reason: "not a valid decimal"}
		}
		if !d.IsPositive() {
			return nil, &ValidationError{Field: "limit_price", Reason: "must be greater than zero"}
		}
		limitPrice = &d
	case models.Market:
		if req.LimitPrice != "" {
			return nil, &ValidationError{Field: "limit_price", Reason: "forbidden when type is market"}
		}
	}

	return &models.Order{
		ID:         f.ids.Generate(),
		CreatedAt:  time.Now().UTC(),
		Type:       typ,
		Side:       side,
		Instrument: req.Instrument,
		LimitPrice: limitPrice,
		Quantity:   req.Quantity,
		Status:     models.Open,
	}, nil
}

func parseType(raw string) (models.Type, error) {
	switch strings.ToLower(raw) {
	case "market":
		return models.Market, nil
	case "limit":
		return models.Limit, nil
	default:
		return "", &ValidationError{Field: "type", Reason: "must be one of market, limit"}
	}
}

func parseSide(raw string) (models.Side, error) {
	switch strings.ToLower(raw) {
	case "buy":
		return models.Buy, nil
	case "sell":
		return models.Sell, nil
	default:
		return "", &ValidationError{Field: "side", Reason: "must be one of buy, sell"}
	}
}
