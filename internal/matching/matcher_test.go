package matching

import (
	"testing"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(id string, side models.Side, qty int64) *models.Order {
	price := decimal.RequireFromString("100.00")
	return &models.Order{
		ID:         id,
		Side:       side,
		Type:       models.Limit,
		Instrument: "DE0001234567",
		LimitPrice: &price,
		Quantity:   qty,
		Status:     models.Open,
		CreatedAt:  time.Now(),
	}
}

// Scenario 1: full cross, limit vs limit.
func TestMatch_FullCross(t *testing.T) {
	s := order("S", models.Sell, 10)
	b := order("B", models.Buy, 10)

	result := New().Match(b, []*models.Order{s}, time.Now())

	require.Len(t, result.Matches, 1)
	assert.Equal(t, int64(10), result.Matches[0].MatchedQuantity)
	assert.Equal(t, "B", result.Matches[0].BuyOrderID)
	assert.Equal(t, "S", result.Matches[0].SellOrderID)

	assert.Equal(t, models.Matched, b.Status)
	assert.Equal(t, int64(0), b.Quantity)
	assert.Equal(t, models.Matched, s.Status)
	assert.Equal(t, int64(0), s.Quantity)
	assert.True(t, result.IncomingFullyMatched)
}

// Scenario 2: partial cross.
func TestMatch_PartialCross(t *testing.T) {
	s := order("S", models.Sell, 5)
	b := order("B", models.Buy, 10)

	result := New().Match(b, []*models.Order{s}, time.Now())

	require.Len(t, result.Matches, 1)
	assert.Equal(t, int64(5), result.Matches[0].MatchedQuantity)
	assert.Equal(t, models.Partial, b.Status)
	assert.Equal(t, int64(5), b.Quantity)
	assert.Equal(t, models.Matched, s.Status)
	assert.Equal(t, int64(0), s.Quantity)
	assert.False(t, result.IncomingFullyMatched)
}

// Scenario: no candidates at all.
func TestMatch_NoCandidates(t *testing.T) {
	b := order("B", models.Buy, 10)
	result := New().Match(b, nil, time.Now())

	assert.Empty(t, result.Matches)
	assert.Equal(t, models.Open, b.Status, "status untouched when nothing matches")
}

// Multiple candidates consumed in supplied order until exhausted.
func TestMatch_MultipleCandidatesConsumedInOrder(t *testing.T) {
	s1 := order("S1", models.Sell, 3)
	s2 := order("S2", models.Sell, 10)
	b := order("B", models.Buy, 8)

	result := New().Match(b, []*models.Order{s1, s2}, time.Now())

	require.Len(t, result.Matches, 2)
	assert.Equal(t, int64(3), result.Matches[0].MatchedQuantity)
	assert.Equal(t, int64(5), result.Matches[1].MatchedQuantity)
	assert.Equal(t, models.Matched, s1.Status)
	assert.Equal(t, models.Partial, s2.Status)
	assert.Equal(t, int64(5), s2.Quantity)
	assert.True(t, result.IncomingFullyMatched)
}

func TestMatch_SideAssignmentWhenIncomingIsSell(t *testing.T) {
	bid := order("BID", models.Buy, 5)
	sell := order("ASK", models.Sell, 5)

	result := New().Match(sell, []*models.Order{bid}, time.Now())

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "BID", result.Matches[0].BuyOrderID)
	assert.Equal(t, "ASK", result.Matches[0].SellOrderID)
}
