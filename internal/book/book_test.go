package book

import (
	"testing"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitOrder(id string, side models.Side, price string, qty int64, createdAt time.Time) *models.Order {
	p := decimal.RequireFromString(price)
	return &models.Order{
		ID:         id,
		Side:       side,
		Type:       models.Limit,
		Instrument: "DE0001234567",
		LimitPrice: &p,
		Quantity:   qty,
		Status:     models.Open,
		CreatedAt:  createdAt,
	}
}

func marketOrder(id string, side models.Side, qty int64, createdAt time.Time) *models.Order {
	return &models.Order{
		ID:         id,
		Side:       side,
		Type:       models.Market,
		Instrument: "DE0001234567",
		Quantity:   qty,
		Status:     models.Open,
		CreatedAt:  createdAt,
	}
}

func TestCandidates_PriceTimePriority(t *testing.T) {
	b := New()
	now := time.Now()

	ask1 := limitOrder("a1", models.Sell, "100.00", 5, now)
	ask2 := limitOrder("a2", models.Sell, "99.00", 5, now.Add(time.Second)) // better price, later
	b.Add(ask1)
	b.Add(ask2)

	buy := limitOrder("b1", models.Buy, "100.00", 10, now.Add(2*time.Second))
	candidates := b.Candidates(buy)

	require.Len(t, candidates, 2)
	assert.Equal(t, "a2", candidates[0].ID, "cheaper ask must be visited first")
	assert.Equal(t, "a1", candidates[1].ID)
}

func TestCandidates_FIFOWithinPriceLevel(t *testing.T) {
	b := New()
	now := time.Now()

	first := limitOrder("first", models.Sell, "100.00", 5, now)
	second := limitOrder("second", models.Sell, "100.00", 5, now.Add(time.Second))
	b.Add(second)
	b.Add(first) // inserted second, but created earlier

	buy := limitOrder("buyer", models.Buy, "100.00", 1, now.Add(2*time.Second))
	candidates := b.Candidates(buy)

	require.Len(t, candidates, 2)
	assert.Equal(t, "first", candidates[0].ID)
	assert.Equal(t, "second", candidates[1].ID)
}

func TestCandidates_LimitPruningByCross(t *testing.T) {
	b := New()
	now := time.Now()

	tooExpensive := limitOrder("expensive", models.Sell, "101.00", 5, now)
	b.Add(tooExpensive)

	buy := limitOrder("buyer", models.Buy, "100.00", 5, now.Add(time.Second))
	candidates := b.Candidates(buy)

	assert.Empty(t, candidates, "ask above the buy limit must not cross")
}

func TestCandidates_MarketAlwaysCrossesFirst(t *testing.T) {
	b := New()
	now := time.Now()

	priced := limitOrder("priced", models.Sell, "50.00", 5, now)
	b.Add(priced)
	marketResting := marketOrder("market-resting", models.Sell, 5, now.Add(time.Second))
	b.Add(marketResting)

	buy := limitOrder("buyer", models.Buy, "40.00", 10, now.Add(2*time.Second))
	candidates := b.Candidates(buy)

	require.Len(t, candidates, 1, "only the market ask crosses a 40.00 limit buy")
	assert.Equal(t, "market-resting", candidates[0].ID)
}

func TestCandidates_SkipsAndPurgesTerminalOrders(t *testing.T) {
	b := New()
	now := time.Now()

	stale := limitOrder("stale", models.Sell, "100.00", 5, now)
	stale.Status = models.Matched
	b.Add(stale)

	fresh := limitOrder("fresh", models.Sell, "100.00", 5, now.Add(time.Second))
	b.Add(fresh)

	buy := limitOrder("buyer", models.Buy, "100.00", 5, now.Add(2*time.Second))
	candidates := b.Candidates(buy)

	require.Len(t, candidates, 1)
	assert.Equal(t, "fresh", candidates[0].ID)

	// The stale order must have been purged; re-running candidates confirms
	// its slot is gone rather than merely skipped.
	candidatesAgain := b.Candidates(limitOrder("buyer2", models.Buy, "100.00", 5, now.Add(3*time.Second)))
	for _, c := range candidatesAgain {
		assert.NotEqual(t, "stale", c.ID)
	}
}

func TestAdd_Idempotent(t *testing.T) {
	b := New()
	now := time.Now()

	o := limitOrder("o1", models.Buy, "100.00", 10, now)
	b.Add(o)

	updated := limitOrder("o1", models.Buy, "100.00", 4, now)
	b.Add(updated)

	candidates := b.Candidates(limitOrder("probe", models.Sell, "100.00", 1, now.Add(time.Second)))
	require.Len(t, candidates, 1)
	assert.Equal(t, int64(4), candidates[0].Quantity, "re-adding must replace the slot in place")
}

func TestRemove_NoopIfAbsent(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() {
		b.Remove("DE0001234567", models.Buy, "missing")
	})
}
