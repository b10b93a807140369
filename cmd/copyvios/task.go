package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/copyvios/internal/ledger"
)

func newTaskCmd(c *cli) *cobra.Command {
	var disabled bool
	cmd := &cobra.Command{
		Use:   "task <title>...",
		Short: "Run the AfC copyvio task on submissions",
		Long: `Task checks each submission once. Pages on the ignore list or already in
the ledger are skipped; a suspected violation is tagged with the notice
template. Every completed check is recorded in the ledger.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp()
			if err != nil {
				return err
			}
			runner, closeLedger, err := a.TaskRunner(cmd.Context())
			if err != nil {
				return err
			}
			defer closeLedger()
			if disabled {
				runner.Config.Enabled = false
			}
			var failed []error
			for _, out := range runner.RunBatch(cmd.Context(), args) {
				switch {
				case out.Err != nil:
					fmt.Fprintf(c.stdout, "%s: error: %v\n", out.Title, out.Err)
					failed = append(failed, out.Err)
				case out.Skipped != "":
					fmt.Fprintf(c.stdout, "%s: skipped (%s)\n", out.Title, out.Skipped)
				case out.Tagged:
					fmt.Fprintf(c.stdout, "%s: tagged, %s\n", out.Title, out.Result)
				default:
					fmt.Fprintf(c.stdout, "%s: %s\n", out.Title, out.Result)
				}
			}
			if l, ok := runner.Ledger.(*ledger.SQLite); ok {
				if n, err := l.Count(cmd.Context()); err == nil {
					fmt.Fprintf(c.stdout, "ledger: %d pages processed\n", n)
				}
			}
			return errors.Join(failed...)
		},
	}
	cmd.Flags().BoolVar(&disabled, "disabled", false, "treat the task as switched off (no checks, no edits)")
	return cmd
}
