// Package filesystem implements the search engine port against the local
// filesystem. It walks the scope roots matching the query against file
// names and content lines, and can optionally follow the roots with
// fsnotify to keep streaming matches until the search is cancelled.
package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driven"
	"github.com/custodia-labs/scour/internal/logger"
)

// DefaultMaxFileSize is the content-match size cutoff. Larger files still
// count as visited but their content is not scanned.
const DefaultMaxFileSize = 4 << 20

// Config tunes the engine.
type Config struct {
	// RatePerSecond caps response emission. 0 means unpaced.
	RatePerSecond float64

	// Burst is the emission burst size when pacing is enabled.
	Burst int

	// MaxFileSize skips content matching for files larger than this many
	// bytes. 0 selects DefaultMaxFileSize.
	MaxFileSize int64
}

// Ensure Engine implements the port.
var _ driven.SearchEngine = (*Engine)(nil)

// Engine is a filesystem-backed search engine.
type Engine struct {
	cfg Config
}

// NewEngine creates a filesystem engine.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Engine{cfg: cfg}
}

// Issue starts a search over the scope roots. The returned task settles
// when the walk finishes, the context is cancelled, or (in follow mode)
// only on cancellation.
func (e *Engine) Issue(ctx context.Context, req driven.SearchRequest) (*driven.SearchTask, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query must not be empty: %w", domain.ErrInvalidInput)
	}
	if len(req.Scope.Roots) == 0 {
		return nil, fmt.Errorf("scope needs at least one root: %w", domain.ErrInvalidInput)
	}

	responses := make(chan domain.ResponseEvent)
	states := make(chan domain.StateEvent, 4)
	done := make(chan domain.EngineResult, 1)

	run := &searchRun{
		engine:    e,
		req:       req,
		query:     strings.ToLower(req.Query),
		responses: responses,
		states:    states,
	}
	if e.cfg.RatePerSecond > 0 {
		run.limiter = rate.NewLimiter(rate.Limit(e.cfg.RatePerSecond), e.cfg.Burst)
	}

	go func() {
		result := run.execute(ctx)
		close(responses)
		close(states)
		done <- result
	}()

	return &driven.SearchTask{
		Responses: responses,
		States:    states,
		Done:      done,
	}, nil
}

// searchRun carries the state of one issued search. All fields are owned
// by the single producing goroutine.
type searchRun struct {
	engine    *Engine
	req       driven.SearchRequest
	query     string
	limiter   *rate.Limiter
	responses chan<- domain.ResponseEvent
	states    chan<- domain.StateEvent

	stats domain.EngineStats
	dirs  []string // directories seen during the walk, for follow mode
}

// execute performs the walk (and optional follow phase) and returns the
// terminal result.
func (r *searchRun) execute(ctx context.Context) domain.EngineResult {
	r.sendState(ctx, domain.StateInProgress)

	walkErr := r.walk(ctx)

	if walkErr == nil && r.req.Scope.Follow && ctx.Err() == nil && !r.limitReached() {
		walkErr = r.follow(ctx)
	}

	switch {
	case ctx.Err() != nil:
		return domain.EngineResult{State: domain.StateCancelled, Stats: r.stats}
	case walkErr != nil:
		return domain.EngineResult{State: domain.StateErrored, Stats: r.stats, Err: walkErr}
	default:
		return domain.EngineResult{State: domain.StateCompleted, Stats: r.stats}
	}
}

// walk visits every file under the scope roots once.
func (r *searchRun) walk(ctx context.Context) error {
	for _, root := range r.req.Scope.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			if r.limitReached() {
				return fs.SkipAll
			}
			if err != nil {
				// Unreadable entry. Count it and move on.
				r.stats.LockedFileCount++
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				r.dirs = append(r.dirs, path)
				return nil
			}
			r.scanFile(ctx, path)
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return nil
}

// follow watches the walked directories and keeps matching changed files
// until the context is cancelled.
func (r *searchRun) follow(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range r.dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Debug("engine %s: cannot watch %s: %v", r.req.ID, dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				if err == nil && event.Has(fsnotify.Create) {
					// New directory: watch it too.
					if werr := watcher.Add(event.Name); werr != nil {
						logger.Debug("engine %s: cannot watch %s: %v", r.req.ID, event.Name, werr)
					}
				}
				continue
			}
			r.scanFile(ctx, event.Name)
			if r.limitReached() {
				return nil
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Debug("engine %s: watch error: %v", r.req.ID, werr)
		}
	}
}

// scanFile matches one file by name and content, emitting a response per
// match. Files that cannot be opened count as locked.
func (r *searchRun) scanFile(ctx context.Context, path string) {
	r.stats.FileCount++

	if strings.Contains(strings.ToLower(filepath.Base(path)), r.query) {
		r.emit(ctx, path, 0, filepath.Base(path))
		if r.limitReached() {
			return
		}
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() > r.engine.cfg.MaxFileSize {
		if err != nil {
			r.stats.LockedFileCount++
		}
		return
	}

	f, err := os.Open(path)
	if err != nil {
		r.stats.LockedFileCount++
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil || r.limitReached() {
			return
		}
		text := scanner.Text()
		if strings.Contains(strings.ToLower(text), r.query) {
			r.emit(ctx, path, line, strings.TrimSpace(text))
		}
	}
	// Scan errors (binary content, oversized lines) end matching for
	// this file but are not search faults.
}

// emit sends one response event, paced by the limiter when configured.
func (r *searchRun) emit(ctx context.Context, path string, line int, snippet string) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
	}

	// The snapshot counts this response, but the run's stats only commit
	// once the send lands. An event aborted by cancellation must not
	// inflate the final count past the responses actually delivered.
	stats := r.stats
	stats.ResponseCount++
	ev := domain.ResponseEvent{
		Response: domain.SearchResponse{
			ID:      uuid.New().String(),
			Path:    path,
			Line:    line,
			Snippet: snippet,
			FoundAt: time.Now().UTC(),
		},
		Stats: stats,
	}

	select {
	case r.responses <- ev:
		r.stats = stats
	case <-ctx.Done():
	}
}

// sendState reports an engine state advance without ever blocking the
// producer for long: cancellation aborts the send.
func (r *searchRun) sendState(ctx context.Context, state domain.SearchState) {
	select {
	case r.states <- domain.StateEvent{State: state, Stats: r.stats}:
	case <-ctx.Done():
	}
}

// limitReached reports whether the scope's MaxResults cap is hit.
func (r *searchRun) limitReached() bool {
	max := r.req.Scope.MaxResults
	return max > 0 && r.stats.ResponseCount >= int64(max)
}
