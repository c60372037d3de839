// Package events is the best-effort fan-out of match and order-status
// notifications to a downstream message broker. Nothing in this
// package may block a processor pass or influence order state; every
// error is logged and swallowed by the caller.
package events

import (
	"context"

	"github.com/lemonmarkets/matching-engine/internal/models"
)

// Publisher fans out domain events after a pass has committed. Errors
// are informational only.
type Publisher interface {
	PublishMatch(ctx context.Context, match *models.Match) error
	PublishOrderStatus(ctx context.Context, order *models.Order) error
	Close() error
}

// NoopPublisher discards every event. It is the default when no
// broker is configured and is used throughout the test suite.
type NoopPublisher struct{}

func (NoopPublisher) PublishMatch(ctx context.Context, match *models.Match) error { return nil }

func (NoopPublisher) PublishOrderStatus(ctx context.Context, order *models.Order) error { return nil }

func (NoopPublisher) Close() error { return nil }
