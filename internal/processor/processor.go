// Package processor runs the single-consumer worker that drains the
// submission queue, matches orders against the book, and forwards the
// unmatched remainder to the exchange. It is the only writer of order
// and match state.
package processor

import (
	"context"
	"errors"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/book"
	"github.com/lemonmarkets/matching-engine/internal/events"
	"github.com/lemonmarkets/matching-engine/internal/exchange"
	"github.com/lemonmarkets/matching-engine/internal/matching"
	"github.com/lemonmarkets/matching-engine/internal/metrics"
	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/lemonmarkets/matching-engine/internal/queue"
	"github.com/lemonmarkets/matching-engine/internal/store"
	"go.uber.org/zap"
)

// Store is the slice of store.Store the processor needs.
type Store interface {
	BeginPass(ctx context.Context) (store.Pass, error)
}

// Processor drains ids from a queue.Queue, one at a time, running the
// full load-match-place-persist pass for each.
type Processor struct {
	queue     *queue.Queue
	store     Store
	book      *book.Book
	matcher   *matching.Matcher
	exchange  exchange.Client
	publisher events.Publisher
	metrics   *metrics.Collector
	log       *zap.Logger

	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)

	retryCounts map[string]int
}

// New builds a Processor. Only the worker goroutine started by Run
// ever touches retryCounts, book, or matcher, so no additional
// synchronization is needed beyond what those types already provide.
func New(q *queue.Queue, st Store, bk *book.Book, exch exchange.Client, pub events.Publisher, mx *metrics.Collector, log *zap.Logger, maxRetries int, retryDelay time.Duration) *Processor {
	return &Processor{
		queue:       q,
		store:       st,
		book:        bk,
		matcher:     matching.New(),
		exchange:    exch,
		publisher:   pub,
		metrics:     mx,
		log:         log,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		sleep:       time.Sleep,
		retryCounts: make(map[string]int),
	}
}

// Enqueue queues id for processing. Safe to call from any goroutine.
func (p *Processor) Enqueue(id string) {
	p.log.Debug("enqueuing order", zap.String("order_id", id))
	p.queue.Put(id)
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(p.queue.Len()))
	}
}

// Run drains the queue until ctx is cancelled or the queue is closed.
// It is meant to be run in its own goroutine.
func (p *Processor) Run(ctx context.Context) {
	for {
		id, ok := p.queue.Get()
		if !ok {
			return
		}
		if p.metrics != nil {
			p.metrics.QueueDepth.Set(float64(p.queue.Len()))
		}
		if ctx.Err() != nil {
			return
		}
		p.process(ctx, id)
	}
}

// process runs one full pass for order id: load, book membership,
// match, and either persist the resulting trades or forward the
// order to the exchange.
func (p *Processor) process(ctx context.Context, id string) {
	p.log.Debug("processing order", zap.String("order_id", id))

	pass, err := p.store.BeginPass(ctx)
	if err != nil {
		p.log.Error("failed to begin pass", zap.String("order_id", id), zap.Error(err))
		return
	}

	order, err := pass.LoadOrder(ctx, id)
	if err != nil {
		pass.Rollback()
		if errors.Is(err, store.ErrNotFound) {
			p.log.Debug("order not found, dropping", zap.String("order_id", id))
			delete(p.retryCounts, id)
			return
		}
		p.log.Error("failed to load order", zap.String("order_id", id), zap.Error(err))
		delete(p.retryCounts, id)
		return
	}

	if order.Status != models.Open && order.Status != models.Submitted {
		pass.Rollback()
		p.log.Debug("order not open or submitted, dropping", zap.String("order_id", id), zap.String("status", string(order.Status)))
		delete(p.retryCounts, id)
		p.book.Remove(order.Instrument, order.Side, order.ID)
		return
	}

	p.book.Add(order)

	if order.Status == models.Submitted {
		order.Status = models.Open
	}

	candidates := p.book.Candidates(order)
	result := p.matcher.Match(order, candidates, time.Now().UTC())

	if len(result.Matches) == 0 {
		p.handleNoMatch(ctx, pass, order)
		return
	}

	p.handleMatches(ctx, pass, order, result)
}

// handleNoMatch forwards order to the upstream exchange and applies
// the three-valued placement outcome.
func (p *Processor) handleNoMatch(ctx context.Context, pass store.Pass, order *models.Order) {
	res, err := p.exchange.PlaceOrder(ctx, order)
	if err != nil {
		pass.Rollback()
		p.log.Error("exchange placement transport error", zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	switch res.Outcome {
	case exchange.Ok:
		order.Status = models.Submitted
		if err := pass.UpdateOrder(ctx, order); err != nil {
			pass.Rollback()
			p.log.Error("failed to persist submitted order", zap.String("order_id", order.ID), zap.Error(err))
			return
		}
		if err := pass.Commit(); err != nil {
			p.log.Error("failed to commit pass", zap.String("order_id", order.ID), zap.Error(err))
			return
		}
		delete(p.retryCounts, order.ID)
		p.recordOutcome(exchange.Ok)
		p.publishStatus(ctx, order)

	case exchange.Transient:
		retryCount := p.retryCounts[order.ID]
		if retryCount < p.maxRetries {
			pass.Rollback()
			p.retryCounts[order.ID] = retryCount + 1
			p.recordOutcome(exchange.Transient)
			if p.metrics != nil {
				p.metrics.PlacementRetriesTotal.Inc()
			}
			p.log.Warn("transient placement error, re-enqueuing",
				zap.String("order_id", order.ID),
				zap.Int("attempt", retryCount+1),
				zap.Int("max_retries", p.maxRetries),
				zap.Duration("delay", p.retryDelay),
			)
			p.sleep(p.retryDelay)
			p.queue.Put(order.ID)
			return
		}

		p.log.Error("order failed after exhausting retries", zap.String("order_id", order.ID), zap.Int("retries", retryCount))
		p.failOrder(ctx, pass, order, exchange.Transient)

	case exchange.Permanent:
		p.log.Error("permanent placement error", zap.String("order_id", order.ID), zap.String("reason", res.Reason))
		p.failOrder(ctx, pass, order, exchange.Permanent)

	default:
		pass.Rollback()
		p.log.Error("unrecognized placement outcome", zap.String("order_id", order.ID))
	}
}

func (p *Processor) failOrder(ctx context.Context, pass store.Pass, order *models.Order, outcome exchange.Outcome) {
	order.Status = models.Failed
	if err := pass.UpdateOrder(ctx, order); err != nil {
		pass.Rollback()
		p.log.Error("failed to persist failed order", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if err := pass.Commit(); err != nil {
		p.log.Error("failed to commit pass", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	delete(p.retryCounts, order.ID)
	p.book.Remove(order.Instrument, order.Side, order.ID)
	p.recordOutcome(outcome)
	if p.metrics != nil {
		p.metrics.OrdersFailedTotal.Inc()
	}
	p.publishStatus(ctx, order)
}

// handleMatches persists every trade produced against order, updates
// every touched order's row, and removes fully matched orders from
// the book.
func (p *Processor) handleMatches(ctx context.Context, pass store.Pass, order *models.Order, result matching.Result) {
	internalIDByID := map[string]int64{order.ID: order.InternalID}
	for _, touched := range result.Touched {
		internalIDByID[touched.ID] = touched.InternalID
	}

	for i := range result.Matches {
		match := result.Matches[i]
		buyInternalID := internalIDByID[match.BuyOrderID]
		sellInternalID := internalIDByID[match.SellOrderID]
		if err := pass.InsertMatch(ctx, &match, buyInternalID, sellInternalID); err != nil {
			pass.Rollback()
			p.log.Error("failed to insert match", zap.String("buy_order_id", match.BuyOrderID), zap.String("sell_order_id", match.SellOrderID), zap.Error(err))
			return
		}
	}

	if err := pass.UpdateOrder(ctx, order); err != nil {
		pass.Rollback()
		p.log.Error("failed to persist incoming order", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	for _, touched := range result.Touched {
		if err := pass.UpdateOrder(ctx, touched); err != nil {
			pass.Rollback()
			p.log.Error("failed to persist touched order", zap.String("order_id", touched.ID), zap.Error(err))
			return
		}
	}

	if err := pass.Commit(); err != nil {
		p.log.Error("failed to commit pass", zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	delete(p.retryCounts, order.ID)
	if order.Status.Terminal() {
		p.book.Remove(order.Instrument, order.Side, order.ID)
	}
	if p.metrics != nil {
		p.metrics.MatchesTotal.Add(float64(len(result.Matches)))
		if order.Status == models.Matched {
			p.metrics.OrdersMatchedTotal.Inc()
		}
	}

	for _, touched := range result.Touched {
		if touched.Status.Terminal() {
			p.book.Remove(touched.Instrument, touched.Side, touched.ID)
		}
		if touched.Status == models.Matched && p.metrics != nil {
			p.metrics.OrdersMatchedTotal.Inc()
		}
		p.publishStatus(ctx, touched)
	}

	if p.publisher != nil {
		for i := range result.Matches {
			if err := p.publisher.PublishMatch(ctx, &result.Matches[i]); err != nil {
				p.log.Warn("failed to publish match event", zap.String("buy_order_id", result.Matches[i].BuyOrderID), zap.String("sell_order_id", result.Matches[i].SellOrderID), zap.Error(err))
			}
		}
	}

	p.log.Info("order processed with matches", zap.String("order_id", order.ID), zap.Int("matches", len(result.Matches)))
	p.publishStatus(ctx, order)
}

func (p *Processor) recordOutcome(outcome exchange.Outcome) {
	if p.metrics == nil {
		return
	}
	p.metrics.PlacementOutcomes.WithLabelValues(outcome.String()).Inc()
}

func (p *Processor) publishStatus(ctx context.Context, order *models.Order) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishOrderStatus(ctx, order); err != nil {
		p.log.Warn("failed to publish order status event", zap.String("order_id", order.ID), zap.Error(err))
	}
}
