package book

import (
	"sort"

	"github.com/lemonmarkets/matching-engine/internal/models"
)

// priceLevel is a FIFO queue of orders resting at one price (or at the
// MARKET sentinel). Orders are kept sorted by (CreatedAt, ID) so that
// re-adding an already-present id never disturbs price-time priority.
type priceLevel struct {
	orders []*models.Order
}

func (pl *priceLevel) add(order *models.Order) {
	for i, o := range pl.orders {
		if o.ID == order.ID {
			pl.orders[i] = order
			pl.sort()
			return
		}
	}
	pl.orders = append(pl.orders, order)
	pl.sort()
}

func (pl *priceLevel) sort() {
	sort.SliceStable(pl.orders, func(i, j int) bool {
		a, b := pl.orders[i], pl.orders[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// remove deletes the order by id. Returns true if it was present.
func (pl *priceLevel) remove(id string) bool {
	for i, o := range pl.orders {
		if o.ID == id {
			pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
			return true
		}
	}
	return false
}

func (pl *priceLevel) isEmpty() bool {
	return len(pl.orders) == 0
}
