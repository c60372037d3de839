// Package book implements the in-memory, per-instrument price-time
// priority order book. The book is a cache: the store remains the
// source of truth, and the processor is its sole mutator.
package book

import (
	"sort"
	"sync"

	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/shopspring/decimal"
)

const marketKey = "\x00MARKET"

// instrumentBook holds the bid/ask indices for a single instrument.
type instrumentBook struct {
	mu   sync.Mutex
	bids map[string]*priceLevel
	asks map[string]*priceLevel
}

func newInstrumentBook() *instrumentBook {
	return &instrumentBook{
		bids: make(map[string]*priceLevel),
		asks: make(map[string]*priceLevel),
	}
}

func levelKey(order *models.Order) string {
	price, isMarket := order.EffectivePrice()
	if isMarket {
		return marketKey
	}
	return price.String()
}

func sideMap(ib *instrumentBook, side models.Side) map[string]*priceLevel {
	if side == models.Buy {
		return ib.bids
	}
	return ib.asks
}

// Book is the collection of instrument books, one per traded symbol.
type Book struct {
	mu         sync.Mutex
	instrument map[string]*instrumentBook
}

// New returns an empty Book.
func New() *Book {
	return &Book{instrument: make(map[string]*instrumentBook)}
}

func (b *Book) get(instrument string) *instrumentBook {
	b.mu.Lock()
	ib, ok := b.instrument[instrument]
	if !ok {
		ib = newInstrumentBook()
		b.instrument[instrument] = ib
	}
	b.mu.Unlock()
	return ib
}

// Add places order into its side's map under its effective price.
// Re-adding an already-present id replaces the slot in place.
func (b *Book) Add(order *models.Order) {
	ib := b.get(order.Instrument)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	levels := sideMap(ib, order.Side)
	key := levelKey(order)
	pl := levels[key]
	if pl == nil {
		pl = &priceLevel{}
		levels[key] = pl
	}
	pl.add(order)
}

// Remove deletes the order from whatever price level it resides in on
// the given instrument and side. No-op if absent.
func (b *Book) Remove(instrument string, side models.Side, id string) {
	ib := b.get(instrument)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	levels := sideMap(ib, side)
	for key, pl := range levels {
		if pl.remove(id) {
			if pl.isEmpty() {
				delete(levels, key)
			}
			return
		}
	}
}

// Candidates returns the opposite-side resting orders eligible to match
// incoming, in price-time priority order. Any encountered order whose
// status has already become terminal is purged from the book as a
// side effect (the book is a cache; the store is truth).
func (b *Book) Candidates(order *models.Order) []*models.Order {
	ib := b.get(order.Instrument)
	ib.mu.Lock()
	defer ib.mu.Unlock()

	oppositeSide := models.Sell
	if order.Side == models.Sell {
		oppositeSide = models.Buy
	}
	opposite := sideMap(ib, oppositeSide)

	keys := orderedKeys(opposite, order.Side)

	incomingPrice, incomingIsMarket := order.EffectivePrice()

	var out []*models.Order
	for _, key := range keys {
		pl := opposite[key]
		if pl == nil {
			continue
		}
		if !incomingIsMarket && key != marketKey {
			levelPrice, err := decimal.NewFromString(key)
			if err != nil {
				continue
			}
			if order.Side == models.Buy && levelPrice.GreaterThan(incomingPrice) {
				continue
			}
			if order.Side == models.Sell && levelPrice.LessThan(incomingPrice) {
				continue
			}
		}

		// Iterate a snapshot since purging mutates pl.orders.
		snapshot := append([]*models.Order(nil), pl.orders...)
		for _, candidate := range snapshot {
			if candidate.Status.Terminal() {
				pl.remove(candidate.ID)
				continue
			}
			if candidate.Status != models.Open && candidate.Status != models.Submitted {
				continue
			}
			out = append(out, candidate)
		}
		if pl.isEmpty() {
			delete(opposite, key)
		}
	}
	return out
}

// orderedKeys returns price-level keys in the priority order dictated
// by the incoming order's side: MARKET sentinel always first, then
// ascending price for an incoming BUY (cheapest ask first) or
// descending price for an incoming SELL (highest bid first).
func orderedKeys(levels map[string]*priceLevel, incomingSide models.Side) []string {
	var priced []decimal.Decimal
	hasMarket := false
	for key := range levels {
		if key == marketKey {
			hasMarket = true
			continue
		}
		d, err := decimal.NewFromString(key)
		if err != nil {
			continue
		}
		priced = append(priced, d)
	}

	ascending := incomingSide == models.Buy
	sort.Slice(priced, func(i, j int) bool {
		if ascending {
			return priced[i].LessThan(priced[j])
		}
		return priced[i].GreaterThan(priced[j])
	})

	keys := make([]string, 0, len(priced)+1)
	if hasMarket {
		keys = append(keys, marketKey)
	}
	for _, p := range priced {
		keys = append(keys, p.String())
	}
	return keys
}
