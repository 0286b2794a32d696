package driven

import (
	"context"

	"github.com/custodia-labs/scour/internal/core/domain"
)

// SearchRequest describes one search issued to an engine.
type SearchRequest struct {
	// ID is the search record identifier.
	ID string

	// Query is the search text.
	Query string

	// Scope restricts where the engine looks.
	Scope domain.SearchScope

	// Token is an opaque engine token generated at start.
	Token string
}

// SearchTask is the live handle for an issued search. The engine owns all
// three channels and closes Responses and States when it stops producing,
// always before settling Done. Done is buffered with capacity one and
// receives exactly one terminal result, whether the engine completed,
// faulted, or observed cancellation. Events may still be queued in
// buffered channels when Done settles; the consumer drains them.
type SearchTask struct {
	// Responses streams discovered results. It may deliver events at any
	// rate from any goroutine, and is closed when production stops.
	Responses <-chan domain.ResponseEvent

	// States streams engine state advances. Closed with Responses.
	States <-chan domain.StateEvent

	// Done settles the task exactly once.
	Done <-chan domain.EngineResult
}

// SearchEngine discovers results for a query. Cancellation is cooperative:
// when the issuing context is cancelled the engine stops producing new
// responses and settles the task, but in-flight work is not interrupted.
type SearchEngine interface {
	// Issue starts a search and returns its live task handle.
	// The returned error covers startup failures only; faults after a
	// successful Issue are reported through the task's Done channel.
	Issue(ctx context.Context, req SearchRequest) (*SearchTask, error)
}
