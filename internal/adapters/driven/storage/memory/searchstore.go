// Package memory provides in-memory store implementations for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driven"
)

// Ensure SearchStore implements the interface.
var _ driven.SearchStore = (*SearchStore)(nil)

// SearchStore is an in-memory implementation of driven.SearchStore.
type SearchStore struct {
	mu      sync.RWMutex
	records map[string]domain.SearchRecord
}

// NewSearchStore creates a new in-memory search store.
func NewSearchStore() *SearchStore {
	return &SearchStore{
		records: make(map[string]domain.SearchRecord),
	}
}

// Create stores a new record.
func (s *SearchStore) Create(_ context.Context, record *domain.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Update overwrites an existing record.
func (s *SearchStore) Update(_ context.Context, record *domain.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; !exists {
		return domain.ErrNotFound
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Delete removes a record by ID.
func (s *SearchStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Get retrieves a record by ID.
func (s *SearchStore) Get(_ context.Context, id string, includeResponses bool) (*domain.SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := cloneRecord(&record)
	if !includeResponses {
		clone.Responses = nil
	}
	return &clone, nil
}

// List returns records matching the filter, ordered by start time.
func (s *SearchStore) List(_ context.Context, filter domain.RecordFilter, includeResponses bool) ([]domain.SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.SearchRecord
	for id := range s.records {
		record := s.records[id]
		if !filter.Matches(&record) {
			continue
		}
		clone := cloneRecord(&record)
		if !includeResponses {
			clone.Responses = nil
		}
		result = append(result, clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.Before(result[j].StartedAt)
	})
	return result, nil
}

// cloneRecord copies a record so callers cannot alias stored state.
func cloneRecord(record *domain.SearchRecord) domain.SearchRecord {
	clone := *record
	if record.Responses != nil {
		clone.Responses = make([]domain.SearchResponse, len(record.Responses))
		copy(clone.Responses, record.Responses)
	}
	if record.Scope.Roots != nil {
		clone.Scope.Roots = append([]string(nil), record.Scope.Roots...)
	}
	return clone
}
