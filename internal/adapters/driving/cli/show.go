package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	showResponses bool
	showJSON      bool
)

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one search record",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showResponses, "responses", false, "include the full response list")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	record, err := orchestrator.Find(context.Background(), args[0], showResponses)
	if err != nil {
		return fmt.Errorf("find search: %w", err)
	}

	if showJSON {
		return printJSON(cmd, record)
	}

	cmd.Printf("ID:        %s\n", record.ID)
	cmd.Printf("Query:     %q\n", record.Query)
	cmd.Printf("State:     %s\n", record.State)
	cmd.Printf("Started:   %s\n", record.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if record.Ended() {
		cmd.Printf("Ended:     %s\n", record.EndedAt.Local().Format("2006-01-02 15:04:05"))
	}
	cmd.Printf("Counters:  %d responses, %d files, %d locked\n",
		record.ResponseCount, record.FileCount, record.LockedFileCount)

	if showResponses {
		cmd.Println("Responses:")
		for i := range record.Responses {
			r := &record.Responses[i]
			if r.Line > 0 {
				cmd.Printf("  %s:%d  %s\n", r.Path, r.Line, r.Snippet)
			} else {
				cmd.Printf("  %s  %s\n", r.Path, r.Snippet)
			}
		}
	}
	return nil
}
