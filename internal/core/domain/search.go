package domain

import "time"

// SearchState describes the lifecycle stage of a search.
// Transitions only move forward: Requested -> InProgress -> terminal.
type SearchState string

const (
	// StateRequested means the search was accepted but the engine has not
	// reported any progress yet.
	StateRequested SearchState = "requested"

	// StateInProgress means the engine has started producing events.
	StateInProgress SearchState = "in_progress"

	// StateCompleted means the engine finished normally.
	StateCompleted SearchState = "completed"

	// StateCancelled means the search was cancelled cooperatively.
	StateCancelled SearchState = "cancelled"

	// StateErrored means the engine task faulted.
	StateErrored SearchState = "errored"
)

// Valid reports whether s is one of the known search states.
func (s SearchState) Valid() bool {
	return s.rank() >= 0
}

// IsTerminal reports whether no further state transition can occur.
func (s SearchState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateErrored:
		return true
	default:
		return false
	}
}

// rank orders states for forward-only transition checks.
// Terminal states share a rank; once terminal, nothing moves.
func (s SearchState) rank() int {
	switch s {
	case StateRequested:
		return 0
	case StateInProgress:
		return 1
	case StateCompleted, StateCancelled, StateErrored:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only state machine.
func (s SearchState) CanTransitionTo(next SearchState) bool {
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// SearchScope restricts where the engine looks for matches.
type SearchScope struct {
	// Roots are the directories or locations the engine searches.
	Roots []string

	// Follow keeps the search alive after the initial pass, streaming
	// matches from subsequent changes until cancelled.
	Follow bool

	// MaxResults stops the engine after this many responses (0 = unlimited).
	MaxResults int
}

// SearchResponse is a single result discovered by the engine.
type SearchResponse struct {
	// ID uniquely identifies this response.
	ID string

	// Path is the location of the match.
	Path string

	// Line is the 1-based line number of the match (0 if not line-based).
	Line int

	// Snippet is the matched text fragment.
	Snippet string

	// FoundAt is when the engine discovered the match.
	FoundAt time.Time
}

// EngineStats is the engine's last-reported counter snapshot.
// All counters are monotonically non-decreasing for the life of a search.
type EngineStats struct {
	// ResponseCount is the number of responses produced so far.
	ResponseCount int64

	// FileCount is the number of files the engine has visited.
	FileCount int64

	// LockedFileCount is the number of files the engine could not read.
	LockedFileCount int64
}

// StateEvent reports an engine state advance.
type StateEvent struct {
	// State is the engine-reported search state.
	State SearchState

	// Stats is the counter snapshot at the time of the state change.
	Stats EngineStats
}

// ResponseEvent delivers one discovered result together with the counter
// snapshot current at the moment it was produced.
type ResponseEvent struct {
	// Response is the discovered result.
	Response SearchResponse

	// Stats is the counter snapshot including this response.
	Stats EngineStats
}

// EngineResult is the engine task's terminal summary. Exactly one is
// produced per issued search, however the task ends.
type EngineResult struct {
	// State is the terminal state the engine settled in.
	State SearchState

	// Stats is the final counter snapshot.
	Stats EngineStats

	// Err is the fault that ended the task, if any.
	Err error
}

// SearchRecord is the mutable aggregate for one search. While a search is
// in flight the orchestrator exclusively owns the in-memory instance; the
// store holds snapshots that may lag response-driven updates by up to one
// debounce interval.
type SearchRecord struct {
	// ID is the externally supplied unique identifier. Immutable.
	ID string

	// Query is the search text. Immutable after creation.
	Query string

	// Token is the engine token issued at start. Immutable after creation.
	Token string

	// Scope restricts the search. Immutable after creation.
	Scope SearchScope

	// State is the current lifecycle stage.
	State SearchState

	// StartedAt is when the search was accepted.
	StartedAt time.Time

	// EndedAt is when the search settled. Zero until finalization,
	// then set exactly once.
	EndedAt time.Time

	// ResponseCount mirrors the engine's last-reported response counter.
	ResponseCount int64

	// FileCount mirrors the engine's last-reported visited-file counter.
	FileCount int64

	// LockedFileCount mirrors the engine's last-reported locked-file counter.
	LockedFileCount int64

	// Responses holds the full result sequence. Empty until finalization,
	// populated exactly once, and never included in broadcasts.
	Responses []SearchResponse
}

// Ended reports whether the record has been finalized.
func (r *SearchRecord) Ended() bool {
	return !r.EndedAt.IsZero()
}

// ApplyStats merges an engine counter snapshot into the record.
func (r *SearchRecord) ApplyStats(stats EngineStats) {
	r.ResponseCount = stats.ResponseCount
	r.FileCount = stats.FileCount
	r.LockedFileCount = stats.LockedFileCount
}

// WithoutResponses returns a copy of the record with the response sequence
// emptied. Broadcast payloads use this form to stay bounded in size.
func (r *SearchRecord) WithoutResponses() SearchRecord {
	clone := *r
	clone.Responses = nil
	return clone
}

// RecordFilter selects search records in store queries.
// A zero filter matches every record.
type RecordFilter struct {
	// States restricts results to the given states (empty = all).
	States []SearchState

	// OnlyTerminal restricts results to ended records.
	OnlyTerminal bool

	// EndedBefore restricts results to records finalized strictly before
	// the given time. Zero means no cutoff. Records that have not ended
	// never match a non-zero cutoff.
	EndedBefore time.Time
}

// Matches reports whether the record satisfies the filter.
func (f RecordFilter) Matches(r *SearchRecord) bool {
	if len(f.States) > 0 {
		found := false
		for _, s := range f.States {
			if r.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.OnlyTerminal && !r.Ended() {
		return false
	}
	if !f.EndedBefore.IsZero() {
		if !r.Ended() || !r.EndedAt.Before(f.EndedBefore) {
			return false
		}
	}
	return true
}
