// Package tui provides a live progress view for an in-flight search.
// It subscribes to the broadcast hub and repaints at the debounced
// update rate; it never touches the orchestrator's in-memory state.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/scour/internal/adapters/driven/broadcast"
	"github.com/custodia-labs/scour/internal/core/domain"
)

// CancelFunc requests cooperative cancellation of the watched search.
type CancelFunc func()

// eventMsg wraps one broadcast event for the bubbletea loop.
type eventMsg broadcast.Event

// streamClosedMsg signals that the hub subscription ended.
type streamClosedMsg struct{}

// Model is the bubbletea model for the progress view.
type Model struct {
	styles  *Styles
	spinner spinner.Model

	events <-chan broadcast.Event
	cancel CancelFunc

	record    domain.SearchRecord
	startedAt time.Time
	done      bool
	cancelled bool
}

// NewModel creates a progress view for the given search record, fed by
// the given subscription channel.
func NewModel(record domain.SearchRecord, events <-chan broadcast.Event, cancel CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		styles:    DefaultStyles(),
		spinner:   sp,
		events:    events,
		cancel:    cancel,
		record:    record,
		startedAt: time.Now(),
	}
}

// Init starts the spinner and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
			// First press cancels; the view quits once the
			// finalize update arrives.
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}

	case eventMsg:
		if msg.Record.ID == m.record.ID && msg.Kind != broadcast.EventDeleted {
			m.record = msg.Record
			if m.record.State.IsTerminal() {
				m.done = true
				return m, tea.Sequence(waitForEvent(m.events), quitAfter(time.Second))
			}
		}
		return m, waitForEvent(m.events)

	case streamClosedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress view.
func (m Model) View() string {
	header := m.styles.Title.Render(fmt.Sprintf("scour %q", m.record.Query))

	var state string
	if m.record.State.IsTerminal() {
		state = m.styles.Terminal.Render(string(m.record.State))
	} else {
		state = m.spinner.View() + m.styles.State.Render(string(m.record.State))
		if m.cancelled {
			state += m.styles.Help.Render("  (cancelling...)")
		}
	}

	counters := m.styles.Counter.Render(fmt.Sprintf(
		"%d responses   %d files   %d locked   %s elapsed",
		m.record.ResponseCount, m.record.FileCount, m.record.LockedFileCount,
		time.Since(m.startedAt).Round(time.Second)))

	help := m.styles.Help.Render("q: cancel/quit")
	if m.done {
		help = m.styles.Help.Render("q: quit")
	}

	return fmt.Sprintf("%s\n\n  %s\n  %s\n\n%s\n", header, state, counters, help)
}

// waitForEvent pumps the next broadcast event into the update loop.
func waitForEvent(events <-chan broadcast.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// quitAfter quits the program after a short grace period so the final
// frame stays visible.
func quitAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tea.QuitMsg{}
	})
}
