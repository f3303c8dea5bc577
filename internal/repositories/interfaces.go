package repositories

import (
	"context"
	"errors"

	"github.com/lumicab/api/internal/domain"
)

var (
	// ErrQuoteNotFound indicates no quote exists for the requested identifier.
	ErrQuoteNotFound = errors.New("quote repository: quote not found")
	// ErrQuoteExists indicates an insert collided with an already stored quote.
	ErrQuoteExists = errors.New("quote repository: quote already exists")
)

// QuoteRepository persists submitted quotes and their frozen pricing snapshots.
type QuoteRepository interface {
	Insert(ctx context.Context, quote domain.Quote) error
	Update(ctx context.Context, quote domain.Quote) error
	FindByID(ctx context.Context, quoteID string) (domain.Quote, error)
	FindBySessionID(ctx context.Context, sessionID string) (domain.Quote, error)
}

// HealthChecker verifies that the persistence layer is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
