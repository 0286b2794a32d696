package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driven"
)

// setupTestStore creates a store backed by a temp-dir database.
func setupTestStore(t *testing.T) driven.SearchStore {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store.SearchStore()
}

func testRecord(id string, startedAt time.Time) *domain.SearchRecord {
	return &domain.SearchRecord{
		ID:        id,
		Query:     "needle",
		Token:     "tok-" + id,
		Scope:     domain.SearchScope{Roots: []string{"/srv/data"}, MaxResults: 10},
		State:     domain.StateRequested,
		StartedAt: startedAt,
	}
}

func TestNewStoreCreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, "scour.db"), store.Path())
}

func TestMigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening the same database must not re-run applied migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SearchStore().Create(context.Background(),
		testRecord("s1", time.Now().UTC())))
}

func TestCreateGetRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	record := testRecord("s1", now)
	record.Responses = []domain.SearchResponse{
		{ID: "r1", Path: "/srv/data/a.txt", Line: 12, Snippet: "needle here"},
	}
	record.ResponseCount = 1
	record.FileCount = 40
	require.NoError(t, store.Create(ctx, record))

	got, err := store.Get(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, "needle", got.Query)
	assert.Equal(t, "tok-s1", got.Token)
	assert.Equal(t, []string{"/srv/data"}, got.Scope.Roots)
	assert.Equal(t, 10, got.Scope.MaxResults)
	assert.Equal(t, domain.StateRequested, got.State)
	assert.Equal(t, int64(1), got.ResponseCount)
	assert.Equal(t, int64(40), got.FileCount)
	assert.False(t, got.Ended())
	require.Len(t, got.Responses, 1)
	assert.Equal(t, "/srv/data/a.txt", got.Responses[0].Path)
	assert.Equal(t, 12, got.Responses[0].Line)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testRecord("s1", time.Now().UTC())))
	err := store.Create(ctx, testRecord("s1", time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestGetOmitsResponsesByDefault(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	record := testRecord("s1", time.Now().UTC())
	record.Responses = []domain.SearchResponse{{ID: "r1"}, {ID: "r2"}}
	require.NoError(t, store.Create(ctx, record))

	lean, err := store.Get(ctx, "s1", false)
	require.NoError(t, err)
	assert.Empty(t, lean.Responses)
}

func TestGetUnknownRecord(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.Get(context.Background(), "missing", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdatePersistsFinalization(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	record := testRecord("s1", now)
	require.NoError(t, store.Create(ctx, record))

	record.State = domain.StateCompleted
	record.EndedAt = now.Add(time.Minute)
	record.ResponseCount = 3
	record.Responses = []domain.SearchResponse{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}}
	require.NoError(t, store.Update(ctx, record))

	got, err := store.Get(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, got.State)
	assert.True(t, got.Ended())
	assert.Len(t, got.Responses, 3)

	err = store.Update(ctx, testRecord("missing", now))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testRecord("s1", time.Now().UTC())))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.Delete(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListIncludesResponsesOnlyOnRequest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	record := testRecord("s1", time.Now().UTC())
	record.Responses = []domain.SearchResponse{{ID: "r1", Path: "/srv/data/a.txt"}}
	require.NoError(t, store.Create(ctx, record))

	lean, err := store.List(ctx, domain.RecordFilter{}, false)
	require.NoError(t, err)
	require.Len(t, lean, 1)
	assert.Empty(t, lean[0].Responses)

	full, err := store.List(ctx, domain.RecordFilter{}, true)
	require.NoError(t, err)
	require.Len(t, full, 1)
	require.Len(t, full[0].Responses, 1)
	assert.Equal(t, "r1", full[0].Responses[0].ID)
}

func TestListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	oldDone := testRecord("old-done", now.Add(-3*time.Hour))
	oldDone.State = domain.StateCompleted
	oldDone.EndedAt = now.Add(-2 * time.Hour)

	freshCancelled := testRecord("fresh-cancelled", now.Add(-time.Hour))
	freshCancelled.State = domain.StateCancelled
	freshCancelled.EndedAt = now.Add(-time.Minute)

	running := testRecord("running", now)
	running.State = domain.StateInProgress

	for _, r := range []*domain.SearchRecord{running, freshCancelled, oldDone} {
		require.NoError(t, store.Create(ctx, r))
	}

	// Unfiltered, ordered by start time.
	all, err := store.List(ctx, domain.RecordFilter{}, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "old-done", all[0].ID)
	assert.Equal(t, "running", all[2].ID)

	// By state.
	byState, err := store.List(ctx, domain.RecordFilter{
		States: []domain.SearchState{domain.StateCompleted, domain.StateCancelled},
	}, false)
	require.NoError(t, err)
	assert.Len(t, byState, 2)

	// Terminal records ended before a cutoff.
	prunable, err := store.List(ctx, domain.RecordFilter{
		OnlyTerminal: true,
		EndedBefore:  now.Add(-time.Hour),
	}, false)
	require.NoError(t, err)
	require.Len(t, prunable, 1)
	assert.Equal(t, "old-done", prunable[0].ID)

	// Terminal-only without a cutoff.
	terminal, err := store.List(ctx, domain.RecordFilter{OnlyTerminal: true}, false)
	require.NoError(t, err)
	assert.Len(t, terminal, 2)
}
