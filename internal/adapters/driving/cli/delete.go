package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a search record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := orchestrator.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete search: %w", err)
	}
	cmd.Printf("deleted %s\n", args[0])
	return nil
}
