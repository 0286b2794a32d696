package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/scour/internal/core/domain"
)

func sampleRecord(id string, startedAt time.Time) *domain.SearchRecord {
	return &domain.SearchRecord{
		ID:        id,
		Query:     "needle",
		Token:     "tok-" + id,
		Scope:     domain.SearchScope{Roots: []string{"/tmp"}},
		State:     domain.StateRequested,
		StartedAt: startedAt,
	}
}

func TestCreateAndGet(t *testing.T) {
	store := NewSearchStore()
	ctx := context.Background()

	record := sampleRecord("s1", time.Now())
	require.NoError(t, store.Create(ctx, record))

	got, err := store.Get(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, "needle", got.Query)

	// Duplicate IDs are rejected.
	err = store.Create(ctx, sampleRecord("s1", time.Now()))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestGetOmitsResponsesByDefault(t *testing.T) {
	store := NewSearchStore()
	ctx := context.Background()

	record := sampleRecord("s1", time.Now())
	record.Responses = []domain.SearchResponse{{ID: "r1"}, {ID: "r2"}}
	require.NoError(t, store.Create(ctx, record))

	lean, err := store.Get(ctx, "s1", false)
	require.NoError(t, err)
	assert.Empty(t, lean.Responses)

	full, err := store.Get(ctx, "s1", true)
	require.NoError(t, err)
	assert.Len(t, full.Responses, 2)
}

func TestGetReturnsCopies(t *testing.T) {
	store := NewSearchStore()
	ctx := context.Background()

	record := sampleRecord("s1", time.Now())
	record.Responses = []domain.SearchResponse{{ID: "r1"}}
	require.NoError(t, store.Create(ctx, record))

	// Mutating what we got back must not touch the stored record.
	got, err := store.Get(ctx, "s1", true)
	require.NoError(t, err)
	got.Query = "tampered"
	got.Responses[0].ID = "tampered"
	got.Scope.Roots[0] = "/tampered"

	fresh, err := store.Get(ctx, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, "needle", fresh.Query)
	assert.Equal(t, "r1", fresh.Responses[0].ID)
	assert.Equal(t, "/tmp", fresh.Scope.Roots[0])
}

func TestUpdate(t *testing.T) {
	store := NewSearchStore()
	ctx := context.Background()

	record := sampleRecord("s1", time.Now())
	require.NoError(t, store.Create(ctx, record))

	record.State = domain.StateCompleted
	record.EndedAt = time.Now()
	record.ResponseCount = 9
	require.NoError(t, store.Update(ctx, record))

	got, err := store.Get(ctx, "s1", false)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, got.State)
	assert.Equal(t, int64(9), got.ResponseCount)
	assert.True(t, got.Ended())

	err = store.Update(ctx, sampleRecord("missing", time.Now()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := NewSearchStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleRecord("s1", time.Now())))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.Delete(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrderedAndFiltered(t *testing.T) {
	store := NewSearchStore()
	ctx := context.Background()
	now := time.Now().UTC()

	oldest := sampleRecord("oldest", now.Add(-2*time.Hour))
	oldest.State = domain.StateCompleted
	oldest.EndedAt = now.Add(-time.Hour)
	middle := sampleRecord("middle", now.Add(-time.Hour))
	middle.State = domain.StateErrored
	middle.EndedAt = now.Add(-30 * time.Minute)
	newest := sampleRecord("newest", now)
	newest.State = domain.StateInProgress

	for _, r := range []*domain.SearchRecord{newest, oldest, middle} {
		require.NoError(t, store.Create(ctx, r))
	}

	all, err := store.List(ctx, domain.RecordFilter{}, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "oldest", all[0].ID)
	assert.Equal(t, "middle", all[1].ID)
	assert.Equal(t, "newest", all[2].ID)

	terminal, err := store.List(ctx, domain.RecordFilter{OnlyTerminal: true}, false)
	require.NoError(t, err)
	assert.Len(t, terminal, 2)

	old, err := store.List(ctx, domain.RecordFilter{
		OnlyTerminal: true,
		EndedBefore:  now.Add(-45 * time.Minute),
	}, false)
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, "oldest", old[0].ID)
}
