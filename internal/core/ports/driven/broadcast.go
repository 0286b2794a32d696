package driven

import "github.com/custodia-labs/scour/internal/core/domain"

// BroadcastSink announces record lifecycle events to downstream consumers.
// Delivery is fire-and-forget: the sink gives no acknowledgment and never
// retries. Announced records never carry the heavy Responses field.
type BroadcastSink interface {
	// AnnounceCreated announces a newly created record.
	AnnounceCreated(record domain.SearchRecord) error

	// AnnounceUpdated announces a progress or finalization update.
	AnnounceUpdated(record domain.SearchRecord) error

	// AnnounceDeleted announces that a record was deleted.
	AnnounceDeleted(record domain.SearchRecord) error
}
