package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pruneAge time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished searches older than a given age",
	Long: `Deletes every finished search whose end time is older than --age,
announcing each deletion. Searches still running are never touched.`,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneAge, "age", 24*time.Hour, "minimum age since the search ended")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, _ []string) error {
	deleted, err := orchestrator.Prune(context.Background(), pruneAge)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	cmd.Printf("pruned %d searches older than %s\n", deleted, pruneAge)
	return nil
}
