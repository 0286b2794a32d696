package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/scour/internal/core/domain"
)

// StartRequest carries the parameters for starting a search.
type StartRequest struct {
	// ID is the unique identifier for the search. Required.
	ID string

	// Query is the search text. Required.
	Query string

	// Scope restricts where the engine looks.
	Scope domain.SearchScope
}

// SearchOrchestrator owns the lifecycle of searches: registration,
// progress propagation, cancellation, finalization, and pruning.
type SearchOrchestrator interface {
	// Start issues a search and returns once the created record has been
	// persisted and announced. Progress is observed through the broadcast
	// and query interfaces, not through the return value.
	Start(ctx context.Context, req StartRequest) (*domain.SearchRecord, error)

	// Cancel requests cooperative cancellation of an in-flight search.
	// Returns true if a search with the given ID was in flight, false
	// otherwise (unknown ID, never started, or already finished).
	Cancel(id string) bool

	// Delete removes a record and announces its deletion.
	Delete(ctx context.Context, id string) error

	// Prune deletes every terminal record that ended more than olderThan
	// ago, announcing each deletion. Returns the number deleted.
	// Records still running are never eligible.
	Prune(ctx context.Context, olderThan time.Duration) (int, error)

	// Find retrieves a single record. The heavy Responses field is
	// omitted unless includeResponses is true.
	Find(ctx context.Context, id string, includeResponses bool) (*domain.SearchRecord, error)

	// List returns records matching the filter.
	List(ctx context.Context, filter domain.RecordFilter, includeResponses bool) ([]domain.SearchRecord, error)
}
