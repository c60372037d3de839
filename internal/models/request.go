package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SubmitRequest is the structured submission accepted by the facade.
// LimitPrice is carried as the raw decimal string from the caller so
// the facade can enforce the exactly-two-fractional-digits rule before
// parsing it.
type SubmitRequest struct {
	Type       string
	Side       string
	Instrument string
	LimitPrice string
	Quantity   int64
}

// SubmitResponse is the persisted order view returned on a successful submit.
type SubmitResponse struct {
	ID         string           `json:"id"`
	CreatedAt  string           `json:"created_at"`
	Type       string           `json:"type"`
	Side       string           `json:"side"`
	Instrument string           `json:"instrument"`
	LimitPrice *decimal.Decimal `json:"limit_price"`
	Quantity   int64            `json:"quantity"`
}

// ToResponse renders the persisted fields exactly as submitted (modulo
// type coercion), per the submit round-trip property.
func (o *Order) ToResponse() SubmitResponse {
	return SubmitResponse{
		ID:         o.ID,
		CreatedAt:  o.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		Type:       strings.ToLower(string(o.Type)),
		Side:       strings.ToLower(string(o.Side)),
		Instrument: o.Instrument,
		LimitPrice: o.LimitPrice,
		Quantity:   o.Quantity,
	}
}
