// Package models holds the domain types shared by every layer of the
// matching engine: the order store, the in-memory book, the matcher,
// and the processor.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is which side of the book an order rests on.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Type distinguishes market orders (accept any price) from limit orders.
type Type string

const (
	Market Type = "MARKET"
	Limit  Type = "LIMIT"
)

// Status is the lifecycle state of an Order. MATCHED and FAILED are terminal.
type Status string

const (
	Open      Status = "OPEN"
	Submitted Status = "SUBMITTED"
	Partial   Status = "PARTIAL"
	Matched   Status = "MATCHED"
	Failed    Status = "FAILED"
)

// Terminal reports whether a status removes the order from the book for good.
func (s Status) Terminal() bool {
	return s == Matched || s == Failed
}

// Order is one submission. InternalID is a store-assigned surrogate key
// used only to satisfy the matches table's foreign keys; domain code
// (book, matcher, processor, facade) identifies orders by ID.
type Order struct {
	InternalID int64

	ID         string
	CreatedAt  time.Time
	Type       Type
	Side       Side
	Instrument string
	LimitPrice *decimal.Decimal
	Quantity   int64
	Status     Status
}

// EffectivePrice returns the order's crossing price and whether the order
// is a market order (and therefore occupies the book's sentinel level).
func (o *Order) EffectivePrice() (price decimal.Decimal, isMarket bool) {
	if o.Type == Market || o.LimitPrice == nil {
		return decimal.Zero, true
	}
	return *o.LimitPrice, false
}

// Match is one executed fill between two opposite-side orders on the
// same instrument. Once written, a Match is immutable.
type Match struct {
	ID              int64
	BuyOrderID      string
	SellOrderID     string
	MatchedQuantity int64
	MatchedAt       time.Time
	Instrument      string
}
