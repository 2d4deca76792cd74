// Package cli defines the command-line interface for stackpilot.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	formatConsole = "console"
	formatJSON    = "json"
)

// Options stores global CLI options shared between commands.
type Options struct {
	StackFile     string
	LogLevel      string
	Format        string
	Yes           bool
	ChangesetOnly bool
	Follow        bool
}

// IO bundles the streams commands read from and write to.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Execute builds the root command, runs it with the provided args and returns any error.
func Execute(args []string, streams IO) error {
	if streams.In == nil {
		streams.In = os.Stdin
	}
	if streams.Out == nil {
		streams.Out = os.Stdout
	}
	if streams.Err == nil {
		streams.Err = os.Stderr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &Options{Format: formatConsole}
	rootCmd := newRootCommand(opts, streams)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(streams.In)
	rootCmd.SetOut(streams.Out)
	rootCmd.SetErr(streams.Err)

	return rootCmd.ExecuteContext(ctx)
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, streams IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stackpilot",
		Short:         "stackpilot drives a CloudFormation stack through its lifecycle",
		Long:          "stackpilot creates, updates (through changesets), deletes and resets a single CloudFormation stack described by a stack.yaml file, following stack events until each operation settles.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.Format {
			case formatConsole, formatJSON:
				return nil
			default:
				return fmt.Errorf("unknown format %q (want %s or %s)", opts.Format, formatConsole, formatJSON)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides SP_LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", formatConsole, "Output format (console, json)")

	cmd.AddCommand(
		newCreateCommand(opts, streams),
		newUpdateCommand(opts, streams),
		newDeleteCommand(opts, streams),
		newResetCommand(opts, streams),
		newLastCommand(opts, streams),
	)

	return cmd
}

// addStackFlags registers the flags shared by the lifecycle commands.
func addStackFlags(cmd *cobra.Command, opts *Options) {
	cmd.Flags().StringVarP(&opts.StackFile, "file", "f", "stack.yaml", "Path to the stack definition")
	cmd.Flags().BoolVar(&opts.Follow, "follow", true, "Wait for the operation to finish; overrides the stack file")
}
