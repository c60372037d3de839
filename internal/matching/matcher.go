// Package matching implements the price-time priority crossing
// algorithm. It is deliberately pure: given an incoming order and the
// candidates the book has already ranked, it computes trades and
// mutated order states without touching the book or the store. The
// processor applies the resulting book mutations and persists
// everything inside one transaction.
package matching

import (
	"time"

	"github.com/lemonmarkets/matching-engine/internal/models"
)

// Result is the outcome of matching one incoming order against a
// candidate list.
type Result struct {
	Matches []models.Match
	// Touched holds every candidate order mutated by the pass (including
	// ones that became fully MATCHED and must be removed from the book).
	Touched []*models.Order
	// IncomingFullyMatched reports whether the incoming order reached
	// zero remaining quantity.
	IncomingFullyMatched bool
}

// Matcher runs the crossing algorithm described in the matching rule.
type Matcher struct{}

// New returns a Matcher.
func New() *Matcher { return &Matcher{} }

// Match consumes candidates in the order supplied (already ranked by
// the book under price-time priority) and mutates incoming and the
// candidates in place as they trade, stopping once incoming has no
// quantity left or candidates are exhausted.
func (m *Matcher) Match(incoming *models.Order, candidates []*models.Order, now time.Time) Result {
	var result Result

	for _, candidate := range candidates {
		if incoming.Quantity <= 0 {
			break
		}

		quantity := incoming.Quantity
		if candidate.Quantity < quantity {
			quantity = candidate.Quantity
		}

		buyID, sellID := incoming.ID, candidate.ID
		if incoming.Side == models.Sell {
			buyID, sellID = candidate.ID, incoming.ID
		}

		result.Matches = append(result.Matches, models.Match{
			BuyOrderID:      buyID,
			SellOrderID:     sellID,
			MatchedQuantity: quantity,
			MatchedAt:       now,
			Instrument:      incoming.Instrument,
		})

		incoming.Quantity -= quantity
		candidate.Quantity -= quantity

		if candidate.Quantity == 0 {
			candidate.Status = models.Matched
		} else {
			candidate.Status = models.Partial
		}
		result.Touched = append(result.Touched, candidate)
	}

	if incoming.Quantity == 0 {
		incoming.Status = models.Matched
		result.IncomingFullyMatched = true
	} else if len(result.Matches) > 0 {
		incoming.Status = models.Partial
	}

	return result
}
