package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scour/internal/core/domain"
)

var (
	listStates   []string
	listTerminal bool
	listJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List search records",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringSliceVar(&listStates, "state", nil, "filter by state (requested, in_progress, completed, cancelled, errored)")
	listCmd.Flags().BoolVar(&listTerminal, "terminal", false, "only finished searches")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	filter := domain.RecordFilter{OnlyTerminal: listTerminal}
	for _, s := range listStates {
		filter.States = append(filter.States, domain.SearchState(s))
	}

	records, err := orchestrator.List(context.Background(), filter, false)
	if err != nil {
		return fmt.Errorf("list searches: %w", err)
	}

	if listJSON {
		return printJSON(cmd, records)
	}

	if len(records) == 0 {
		cmd.Println("No searches found.")
		return nil
	}

	for i := range records {
		r := &records[i]
		ended := "-"
		if r.Ended() {
			ended = r.EndedAt.Local().Format("2006-01-02 15:04:05")
		}
		cmd.Printf("%s  %-11s  %6d responses  %q  ended %s\n",
			r.ID, r.State, r.ResponseCount, r.Query, ended)
	}
	return nil
}
