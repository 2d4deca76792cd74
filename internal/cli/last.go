package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nholik/stackpilot/internal/config"
	"github.com/nholik/stackpilot/internal/state"
)

// newLastCommand creates the "last" subcommand that prints the most recent
// journal record for a stack.
func newLastCommand(opts *Options, streams IO) *cobra.Command {
	return &cobra.Command{
		Use:   "last <stack>",
		Short: "Show the last recorded operation for a stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StateFile == "" {
				return errors.New("SP_STATE_FILE is not set; no operations are recorded")
			}
			logger := newLogger(opts, cfg, streams.Err)
			store := state.NewFileStore(cfg.StateFile, logger)
			journal := state.NewJournal(store)

			rec, ok, err := journal.Last(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no operations recorded for stack %q in %s", args[0], store.Path())
			}

			if opts.Format == formatJSON {
				enc := json.NewEncoder(streams.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			printRecord(streams.Out, args[0], rec)
			return nil
		},
	}
}

func printRecord(out io.Writer, stackName string, rec state.Record) {
	rows := []struct {
		label string
		value string
	}{
		{"Stack", stackName},
		{"Stack ID", rec.StackID},
		{"Operation", rec.Operation},
		{"Outcome", rec.Outcome},
		{"Status", rec.Status},
		{"Changeset", rec.ChangeSetID},
		{"Completed", rec.CompletedAt.Format(time.RFC3339)},
		{"Error", rec.Error},
	}
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		fmt.Fprintf(out, "%-10s %s\n", row.label+":", row.value)
	}
}
