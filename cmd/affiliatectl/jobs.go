package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuelReschke/AffiliateFox/internal/pkg/jobqueue"
)

// runTask runs one of the background tasks a single time.
func runTask(name string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ok, err := jobqueue.NewManager(jobqueue.DefaultTasks(db)...).RunOnce(cmd.Context(), name)
		if !ok {
			return fmt.Errorf("task %s is not enabled", name)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s done\n", name)
		return nil
	}
}

func newProcessEmailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process-emails",
		Short: "Send queued emails that are due",
		Args:  cobra.NoArgs,
		RunE:  runTask("email-queue"),
	}
}

func newFlushCountersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-counters",
		Short: "Write buffered Redis click counters to the database",
		Args:  cobra.NoArgs,
		RunE:  runTask("counter-flush"),
	}
}
