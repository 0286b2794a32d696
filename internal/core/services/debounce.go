package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/logger"
)

// Debouncer guarantees a minimum interval between executions of a supplied
// action. The very first Invoke runs its action immediately (leading edge)
// and arms a repeating ticker; every later Invoke before the next tick
// replaces the currently staged action, discarding the previous one
// unexecuted. Each tick runs at most the single most recently staged action.
//
// An optional concurrency limit gates executions: a tick that cannot
// acquire a slot immediately is skipped, and the staged action stays staged
// for the next tick that finds a free slot. The ticker never blocks on the
// limit. A panicking action is recovered and logged; the ticker keeps
// running.
type Debouncer struct {
	interval time.Duration
	sem      chan struct{} // nil means no concurrency gating

	mu       sync.Mutex
	staged   func()
	started  bool
	disposed bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDebouncer creates a debouncer with the given minimum interval and
// concurrency limit. An interval <= 0 is a configuration error and is
// rejected rather than treated as immediate-every-call. A limit of 0
// means unlimited concurrent executions; the orchestrator uses 1.
func NewDebouncer(interval time.Duration, limit int) (*Debouncer, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("debounce interval must be positive, got %v: %w", interval, domain.ErrInvalidInput)
	}
	if limit < 0 {
		return nil, fmt.Errorf("concurrency limit must be >= 0, got %d: %w", limit, domain.ErrInvalidInput)
	}

	d := &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	if limit > 0 {
		d.sem = make(chan struct{}, limit)
	}
	return d, nil
}

// Invoke requests execution of action under the configured interval.
// The first call executes action synchronously and starts the ticker;
// subsequent calls stage action, replacing any previously staged one.
// Calls after Dispose are ignored.
func (d *Debouncer) Invoke(action func()) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}

	if !d.started {
		d.started = true
		d.wg.Add(1)
		go d.loop()

		// Leading edge: run synchronously, holding a slot so a
		// concurrent tick cannot overlap it.
		acquired := d.tryAcquire()
		d.mu.Unlock()
		runProtected(action)
		if acquired {
			d.release()
		}
		return
	}

	d.staged = action
	d.mu.Unlock()
}

// Dispose stops the ticker. If flush is true, any currently staged action
// runs synchronously exactly once before resources are released; if false,
// it is discarded unexecuted. Dispose is idempotent.
func (d *Debouncer) Dispose(flush bool) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	staged := d.staged
	d.staged = nil
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()

	if flush && staged != nil {
		runProtected(staged)
	}
}

// loop is the ticker goroutine. It runs until Dispose closes stopCh.
func (d *Debouncer) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			d.tick()
		}
	}
}

// tick runs the staged action if one exists and a slot is free. A busy
// slot leaves the action staged; the tick is skipped without re-queuing.
func (d *Debouncer) tick() {
	d.mu.Lock()
	if d.staged == nil {
		d.mu.Unlock()
		return
	}
	if !d.tryAcquire() {
		// Previous execution still running. Skip this tick; the
		// staged action stays for the next free tick.
		d.mu.Unlock()
		return
	}
	action := d.staged
	d.staged = nil
	d.mu.Unlock()

	go func() {
		defer d.release()
		runProtected(action)
	}()
}

// tryAcquire takes a concurrency slot without blocking.
// Always succeeds when no limit is configured.
func (d *Debouncer) tryAcquire() bool {
	if d.sem == nil {
		return true
	}
	select {
	case d.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (d *Debouncer) release() {
	if d.sem == nil {
		return
	}
	<-d.sem
}

// runProtected executes action, recovering panics so a faulty action
// cannot take down the ticker or its caller.
func runProtected(action func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("debouncer: recovered panic in action: %v", r)
		}
	}()
	action()
}
