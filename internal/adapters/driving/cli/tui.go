package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/scour/internal/adapters/driving/tui"
	"github.com/custodia-labs/scour/internal/core/domain"
	"github.com/custodia-labs/scour/internal/core/ports/driving"
)

var (
	tuiRoots  []string
	tuiFollow bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui [query]",
	Short: "Start a search with a live progress view",
	Args:  cobra.ExactArgs(1),
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringSliceVarP(&tuiRoots, "root", "r", []string{"."}, "directories to search")
	tuiCmd.Flags().BoolVarP(&tuiFollow, "follow", "f", false, "keep searching as files change until cancelled")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, args []string) error {
	events, unsubscribe := hub.Subscribe(0)
	defer unsubscribe()

	ctx := context.Background()
	record, err := orchestrator.Start(ctx, driving.StartRequest{
		ID:    uuid.New().String(),
		Query: args[0],
		Scope: domain.SearchScope{
			Roots:  tuiRoots,
			Follow: tuiFollow,
		},
	})
	if err != nil {
		return fmt.Errorf("start search: %w", err)
	}

	model := tui.NewModel(*record, events, func() {
		orchestrator.Cancel(record.ID)
	})

	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	// Make sure nothing keeps running once the view is gone.
	orchestrator.Cancel(record.ID)
	return nil
}
