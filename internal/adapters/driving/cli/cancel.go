package cli

import (
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Request cancellation of an in-flight search",
	Long: `Requests cooperative cancellation. The engine stops producing new
responses and the record is finalized by the completion watcher.
Only searches running in this process can be cancelled.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	if orchestrator.Cancel(args[0]) {
		cmd.Printf("cancellation requested for %s\n", args[0])
	} else {
		cmd.Printf("search %s is not in flight\n", args[0])
	}
	return nil
}
