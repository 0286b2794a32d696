package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/scour/internal/adapters/driven/broadcast"
	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driving"
)

var (
	searchID     string
	searchRoots  []string
	searchFollow bool
	searchMax    int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Start a search and stream its progress",
	Long: `Starts a filesystem search and follows its debounced progress
updates until it settles. Ctrl-C cancels the search cooperatively; the
record is still finalized before the command returns.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchID, "id", "", "search identifier (default: random)")
	searchCmd.Flags().StringSliceVarP(&searchRoots, "root", "r", []string{"."}, "directories to search")
	searchCmd.Flags().BoolVarP(&searchFollow, "follow", "f", false, "keep searching as files change until cancelled")
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 0, "stop after this many results (0 = unlimited)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the final record as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	id := searchID
	if id == "" {
		id = uuid.New().String()
	}

	// Ctrl-C requests cooperative cancellation instead of killing the
	// process outright.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscribe before starting so no update is missed.
	events, unsubscribe := hub.Subscribe(0)
	defer unsubscribe()

	record, err := orchestrator.Start(ctx, driving.StartRequest{
		ID:    id,
		Query: args[0],
		Scope: domain.SearchScope{
			Roots:      searchRoots,
			Follow:     searchFollow,
			MaxResults: searchMax,
		},
	})
	if err != nil {
		return fmt.Errorf("start search: %w", err)
	}

	cmd.Printf("search %s started\n", record.ID)

	final := followSearch(cmd, events, record.ID)
	if final == nil {
		// Hub closed before the terminal update arrived; read the store.
		final, err = orchestrator.Find(context.Background(), record.ID, false)
		if err != nil {
			return fmt.Errorf("fetch final record: %w", err)
		}
	}

	if searchJSON {
		full, err := orchestrator.Find(context.Background(), record.ID, true)
		if err != nil {
			return fmt.Errorf("fetch final record: %w", err)
		}
		return printJSON(cmd, full)
	}

	cmd.Printf("search %s %s: %d responses, %d files (%d locked)\n",
		final.ID, final.State, final.ResponseCount, final.FileCount, final.LockedFileCount)
	return nil
}

// followPollInterval is how often followSearch falls back to the store
// while waiting for the terminal broadcast. Shortened in tests.
var followPollInterval = time.Second

// followSearch prints progress updates for one search until it settles.
// The terminal broadcast can be dropped if this subscriber falls behind,
// so the store is polled as a fallback; waiting on the stream alone could
// hang forever. Returns nil only if the stream closes before the search
// is found settled.
func followSearch(cmd *cobra.Command, events <-chan broadcast.Event, id string) *domain.SearchRecord {
	poll := time.NewTicker(followPollInterval)
	defer poll.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Record.ID != id || ev.Kind != broadcast.EventUpdated {
				continue
			}
			if ev.Record.State.IsTerminal() {
				record := ev.Record
				return &record
			}
			cmd.Printf("  %s: %d responses, %d files (%d locked)\n",
				ev.Record.State, ev.Record.ResponseCount, ev.Record.FileCount, ev.Record.LockedFileCount)
		case <-poll.C:
			record, err := orchestrator.Find(context.Background(), id, false)
			if err == nil && record.State.IsTerminal() {
				return record
			}
		}
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
