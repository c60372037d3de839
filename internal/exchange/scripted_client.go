package exchange

import (
	"context"
	"sync"

	"github.com/lemonmarkets/matching-engine/internal/models"
)

// Scripted returns a pre-programmed sequence of results, one per call,
// repeating the final entry once exhausted. It exists for tests that
// drive the retry state machine deterministically.
type Scripted struct {
	mu      sync.Mutex
	results []Result
	calls   int
}

// NewScripted returns a Scripted client that yields results in order.
func NewScripted(results ...Result) *Scripted {
	return &Scripted{results: results}
}

// Calls reports how many times PlaceOrder has been invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// PlaceOrder returns the next scripted result.
func (s *Scripted) PlaceOrder(_ context.Context, _ *models.Order) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	if idx < 0 {
		return Result{Outcome: Ok}, nil
	}
	return s.results[idx], nil
}
