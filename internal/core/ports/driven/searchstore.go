package driven

import (
	"context"

	"github.com/custodia-labs/scour/internal/core/domain"
)

// SearchStore persists search records.
// Backed by SQLite for durable runs, or memory for tests.
// No cross-record transactional guarantees are required; each call
// writes or reads a single record.
type SearchStore interface {
	// Create stores a new record. Returns domain.ErrAlreadyExists if a
	// record with the same ID is already present.
	Create(ctx context.Context, record *domain.SearchRecord) error

	// Update overwrites an existing record.
	Update(ctx context.Context, record *domain.SearchRecord) error

	// Delete removes a record by ID.
	// Returns domain.ErrNotFound if no such record exists.
	Delete(ctx context.Context, id string) error

	// Get retrieves a record by ID. The heavy Responses field is omitted
	// unless includeResponses is true.
	Get(ctx context.Context, id string, includeResponses bool) (*domain.SearchRecord, error)

	// List returns records matching the filter. The heavy Responses field
	// is omitted unless includeResponses is true.
	List(ctx context.Context, filter domain.RecordFilter, includeResponses bool) ([]domain.SearchRecord, error)
}
