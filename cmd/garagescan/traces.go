package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// tracesCmd represents the traces command
var tracesCmd = &cobra.Command{
	Use:   "traces [call-id]",
	Short: "Inspect recorded extraction calls",
	Long: `List the most recent extraction calls recorded in the trace database, or
print every debug event of one call when a call id is given.

Examples:
  garagescan traces --trace-db ~/.garagescan-trace.db
  garagescan traces 3f2a9c1e-... --trace-db ~/.garagescan-trace.db`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTraces,
}

func init() {
	rootCmd.AddCommand(tracesCmd)
	tracesCmd.Flags().Int("limit", 20, "number of calls to list")
}

func runTraces(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.traces == nil {
		return fmt.Errorf("trace-db is not configured")
	}

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		events, err := a.traces.Events(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return fmt.Errorf("no events recorded for call %s", args[0])
		}
		show := printDebugEvent(out)
		for _, ev := range events {
			show(ev)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	calls, err := a.traces.Calls(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(calls) == 0 {
		fmt.Fprintln(os.Stderr, "No calls recorded")
		return nil
	}
	for _, c := range calls {
		fmt.Fprintf(out, "%s  %s  providers=%d errors=%d events=%d\n",
			c.Started.Local().Format("2006-01-02 15:04:05"), c.CallID, c.Providers, c.Errors, c.Events)
	}
	return nil
}
