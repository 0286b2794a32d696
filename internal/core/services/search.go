package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driven"
	"github.com/custodia-labs/scour/internal/core/ports/driving"
	"github.com/custodia-labs/scour/internal/logger"
)

// DefaultDebounceInterval is the minimum time between persisted/broadcast
// response-driven progress updates for one search.
const DefaultDebounceInterval = 250 * time.Millisecond

// Ensure SearchOrchestrator implements the interface.
var _ driving.SearchOrchestrator = (*SearchOrchestrator)(nil)

// SearchOrchestrator coordinates the lifecycle of searches: it issues them
// to the engine, applies engine events to the in-memory record through a
// single consuming goroutine per search, rate-limits response-driven
// persistence through a per-search debouncer, and finalizes each record
// exactly once when the engine task settles.
type SearchOrchestrator struct {
	engine driven.SearchEngine
	store  driven.SearchStore
	sink   driven.BroadcastSink

	debounceInterval time.Duration

	// Cancellation registry: one entry per in-flight search, inserted at
	// start, removed unconditionally when the engine task settles.
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewSearchOrchestrator creates a search orchestrator. A debounceInterval
// of 0 selects DefaultDebounceInterval.
func NewSearchOrchestrator(
	engine driven.SearchEngine,
	store driven.SearchStore,
	sink driven.BroadcastSink,
	debounceInterval time.Duration,
) *SearchOrchestrator {
	if debounceInterval <= 0 {
		debounceInterval = DefaultDebounceInterval
	}
	return &SearchOrchestrator{
		engine:           engine,
		store:            store,
		sink:             sink,
		debounceInterval: debounceInterval,
		active:           make(map[string]context.CancelFunc),
	}
}

// Start issues a search. It returns once the created record has been
// persisted and announced; progress is observed asynchronously via the
// broadcast and query interfaces.
//
// A Start for an ID that is already in flight or already stored is
// rejected with domain.ErrAlreadyExists.
func (o *SearchOrchestrator) Start(ctx context.Context, req driving.StartRequest) (*domain.SearchRecord, error) {
	if req.ID == "" || req.Query == "" {
		return nil, fmt.Errorf("start requires id and query: %w", domain.ErrInvalidInput)
	}
	if o.engine == nil {
		return nil, domain.ErrEngineUnavailable
	}

	o.mu.Lock()
	if _, exists := o.active[req.ID]; exists {
		o.mu.Unlock()
		return nil, fmt.Errorf("search %s: %w", req.ID, domain.ErrAlreadyExists)
	}
	o.mu.Unlock()

	record := &domain.SearchRecord{
		ID:        req.ID,
		Query:     req.Query,
		Token:     uuid.New().String(),
		Scope:     req.Scope,
		State:     domain.StateRequested,
		StartedAt: time.Now().UTC(),
	}

	if err := o.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	if err := o.sink.AnnounceCreated(record.WithoutResponses()); err != nil {
		logger.Warn("search %s: created broadcast failed: %v", record.ID, err)
	}

	searchCtx, cancel := context.WithCancel(ctx)
	o.register(record.ID, cancel)

	debouncer, err := NewDebouncer(o.debounceInterval, 1)
	if err != nil {
		// Unreachable with a validated interval; keep the registry clean.
		o.unregister(record.ID)
		cancel()
		return nil, fmt.Errorf("create debouncer: %w", err)
	}

	task, err := o.engine.Issue(searchCtx, driven.SearchRequest{
		ID:    record.ID,
		Query: record.Query,
		Scope: record.Scope,
		Token: record.Token,
	})
	if err != nil {
		o.unregister(record.ID)
		cancel()
		debouncer.Dispose(false)
		o.finalizeFailedStart(record, err)
		return nil, fmt.Errorf("issue search: %w", err)
	}

	logger.Info("search %s started: %q", record.ID, record.Query)
	go o.watch(searchCtx, record, task, debouncer)

	result := *record
	return &result, nil
}

// Cancel requests cooperative cancellation. Returns true iff a search with
// the given ID is currently in flight.
func (o *SearchOrchestrator) Cancel(id string) bool {
	o.mu.Lock()
	cancel, ok := o.active[id]
	o.mu.Unlock()

	if !ok {
		return false
	}
	logger.Info("search %s: cancellation requested", id)
	cancel()
	return true
}

// Delete removes a record and announces its deletion. A search that is
// still in flight cannot be deleted; cancel it first and let the watcher
// finalize the record.
func (o *SearchOrchestrator) Delete(ctx context.Context, id string) error {
	o.mu.Lock()
	_, inFlight := o.active[id]
	o.mu.Unlock()
	if inFlight {
		return fmt.Errorf("search %s is still running: %w", id, domain.ErrSearchRunning)
	}

	record, err := o.store.Get(ctx, id, false)
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	if err := o.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if err := o.sink.AnnounceDeleted(record.WithoutResponses()); err != nil {
		logger.Warn("search %s: deleted broadcast failed: %v", id, err)
	}
	return nil
}

// Prune deletes every terminal record that ended before now-olderThan,
// each through the same path as an explicit Delete so one deletion
// broadcast goes out per record. Store failures propagate to the caller.
func (o *SearchOrchestrator) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, fmt.Errorf("prune age must be >= 0: %w", domain.ErrInvalidInput)
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	records, err := o.store.List(ctx, domain.RecordFilter{
		OnlyTerminal: true,
		EndedBefore:  cutoff,
	}, false)
	if err != nil {
		return 0, fmt.Errorf("list prunable records: %w", err)
	}

	deleted := 0
	for i := range records {
		if err := o.Delete(ctx, records[i].ID); err != nil {
			return deleted, fmt.Errorf("prune %s: %w", records[i].ID, err)
		}
		deleted++
	}

	logger.Info("pruned %d records older than %s", deleted, olderThan)
	return deleted, nil
}

// Find retrieves a single record by ID.
func (o *SearchOrchestrator) Find(ctx context.Context, id string, includeResponses bool) (*domain.SearchRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("find requires an id: %w", domain.ErrInvalidInput)
	}
	record, err := o.store.Get(ctx, id, includeResponses)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// List returns records matching the filter.
func (o *SearchOrchestrator) List(ctx context.Context, filter domain.RecordFilter, includeResponses bool) ([]domain.SearchRecord, error) {
	for _, s := range filter.States {
		if !s.Valid() {
			return nil, fmt.Errorf("unknown state %q: %w", s, domain.ErrInvalidInput)
		}
	}
	records, err := o.store.List(ctx, filter, includeResponses)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// watch is the completion watcher and single event consumer for one
// search. All mutations of the record happen here, so no lock guards the
// record itself. The registry entry is released on every exit path.
func (o *SearchOrchestrator) watch(
	ctx context.Context,
	record *domain.SearchRecord,
	task *driven.SearchTask,
	debouncer *Debouncer,
) {
	defer o.unregister(record.ID)
	defer debouncer.Dispose(false)

	responses := task.Responses
	states := task.States
	var accumulated []domain.SearchResponse

	for {
		select {
		case ev, ok := <-responses:
			if !ok {
				responses = nil
				continue
			}
			// Counters are always merged immediately; only their
			// persistence and broadcast is rate-limited. The raw
			// response is accumulated outside the debouncer so no
			// result is lost when its update is dropped.
			record.ApplyStats(ev.Stats)
			accumulated = append(accumulated, ev.Response)
			snapshot := record.WithoutResponses()
			debouncer.Invoke(func() {
				o.persistAndAnnounce(snapshot)
			})

		case ev, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			// State transitions are rare and must be visible
			// promptly, so they bypass the debouncer.
			if record.State.CanTransitionTo(ev.State) {
				record.State = ev.State
			}
			record.ApplyStats(ev.Stats)
			o.persistAndAnnounce(record.WithoutResponses())

		case result := <-task.Done:
			// The engine may buffer its channels, so events can still
			// be queued when Done settles. Drain them first or their
			// responses would be lost from the finalized record.
			accumulated = drainTask(record, responses, states, accumulated)
			// A trailing debounced update is intentionally
			// abandoned: the definitive finalize follows.
			debouncer.Dispose(false)
			o.finalize(ctx, record, result, accumulated)
			return
		}
	}
}

// drainTask consumes the remaining events of a settled task. The engine
// closes both production channels before settling Done, so this always
// terminates. Drained events update the record and the accumulated
// responses but are not persisted or announced; the finalize write that
// follows is definitive.
func drainTask(
	record *domain.SearchRecord,
	responses <-chan domain.ResponseEvent,
	states <-chan domain.StateEvent,
	accumulated []domain.SearchResponse,
) []domain.SearchResponse {
	for responses != nil || states != nil {
		select {
		case ev, ok := <-responses:
			if !ok {
				responses = nil
				continue
			}
			record.ApplyStats(ev.Stats)
			accumulated = append(accumulated, ev.Response)
		case ev, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			if record.State.CanTransitionTo(ev.State) {
				record.State = ev.State
			}
			record.ApplyStats(ev.Stats)
		}
	}
	return accumulated
}

// finalize settles the record exactly once: terminal state, EndedAt, and
// the accumulated response sequence. Persistence or broadcast failures
// here are logged only; there is no caller left awaiting the watcher, so
// nothing propagates and nothing retries. The last persisted snapshot
// stays the record's final observable state.
func (o *SearchOrchestrator) finalize(
	ctx context.Context,
	record *domain.SearchRecord,
	result domain.EngineResult,
	accumulated []domain.SearchResponse,
) {
	record.ApplyStats(result.Stats)

	terminal := result.State
	if !terminal.IsTerminal() {
		switch {
		case result.Err != nil:
			terminal = domain.StateErrored
		case ctx.Err() != nil:
			terminal = domain.StateCancelled
		default:
			terminal = domain.StateCompleted
		}
	}
	if record.State.CanTransitionTo(terminal) {
		record.State = terminal
	}
	if !record.Ended() {
		record.EndedAt = time.Now().UTC()
	}
	record.Responses = accumulated

	if result.Err != nil {
		logger.Warn("search %s: engine task faulted: %v", record.ID, result.Err)
	}

	// The search context is likely cancelled by now; the final write must
	// still go through.
	finalCtx := context.WithoutCancel(ctx)
	if err := o.store.Update(finalCtx, record); err != nil {
		logger.Warn("search %s: finalize persist failed: %v", record.ID, err)
	}
	if err := o.sink.AnnounceUpdated(record.WithoutResponses()); err != nil {
		logger.Warn("search %s: finalize broadcast failed: %v", record.ID, err)
	}

	logger.Info("search %s settled: %s (%d responses, %d files, %d locked)",
		record.ID, record.State, record.ResponseCount, record.FileCount, record.LockedFileCount)
}

// finalizeFailedStart marks a record whose engine issue failed before any
// watcher existed. Best effort, log only.
func (o *SearchOrchestrator) finalizeFailedStart(record *domain.SearchRecord, issueErr error) {
	record.State = domain.StateErrored
	record.EndedAt = time.Now().UTC()
	logger.Warn("search %s: issue failed: %v", record.ID, issueErr)

	if err := o.store.Update(context.Background(), record); err != nil {
		logger.Warn("search %s: failed-start persist failed: %v", record.ID, err)
	}
	if err := o.sink.AnnounceUpdated(record.WithoutResponses()); err != nil {
		logger.Warn("search %s: failed-start broadcast failed: %v", record.ID, err)
	}
}

// persistAndAnnounce writes a record snapshot and announces it.
// Used for debounced progress updates and direct state updates; failures
// are logged only.
func (o *SearchOrchestrator) persistAndAnnounce(snapshot domain.SearchRecord) {
	if err := o.store.Update(context.Background(), &snapshot); err != nil {
		logger.Warn("search %s: progress persist failed: %v", snapshot.ID, err)
		return
	}
	if err := o.sink.AnnounceUpdated(snapshot); err != nil {
		logger.Warn("search %s: progress broadcast failed: %v", snapshot.ID, err)
	}
}

// register inserts a cancellation handle for an in-flight search.
func (o *SearchOrchestrator) register(id string, cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[id] = cancel
}

// unregister removes the cancellation handle for a search.
func (o *SearchOrchestrator) unregister(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, id)
}
