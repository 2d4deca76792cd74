package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nholik/stackpilot/internal/stack"
)

// newCreateCommand creates the "create" subcommand.
func newCreateCommand(opts *Options, streams IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the stack described by the stack file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLifecycle(cmd, opts, streams, "create", func(ctx context.Context, s *session, _ *prompter) (stack.Result, error) {
				return s.orchestrator.Create(ctx)
			})
		},
	}
	addStackFlags(cmd, opts)
	return cmd
}

// newUpdateCommand creates the "update" subcommand.
func newUpdateCommand(opts *Options, streams IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the stack through a changeset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLifecycle(cmd, opts, streams, "update", func(ctx context.Context, s *session, p *prompter) (stack.Result, error) {
				return s.orchestrator.Update(ctx, p.confirmChangeSet)
			})
		},
	}
	addStackFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "Apply the changeset without prompting")
	cmd.Flags().BoolVar(&opts.ChangesetOnly, "changeset-only", false, "Create and display the changeset without applying it")
	return cmd
}

// newDeleteCommand creates the "delete" subcommand.
func newDeleteCommand(opts *Options, streams IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the stack",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLifecycle(cmd, opts, streams, "delete", func(ctx context.Context, s *session, p *prompter) (stack.Result, error) {
				return s.orchestrator.Delete(ctx, p.deleteHooks(s.stackName))
			})
		},
	}
	addStackFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "Do not prompt for confirmation")
	return cmd
}

// newResetCommand creates the "reset" subcommand.
func newResetCommand(opts *Options, streams IO) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete an existing stack and create it again",
		Long:  "Delete an existing stack, wait for the delete to finish and create it again from the template.\nA stack that does not exist is reported as not found.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLifecycle(cmd, opts, streams, "reset", func(ctx context.Context, s *session, p *prompter) (stack.Result, error) {
				if !p.confirm(fmt.Sprintf("Reset stack %s? Every resource will be deleted and created again.", s.stackName)) {
					return stack.Result{Outcome: stack.NoChange}, nil
				}
				return s.orchestrator.Reset(ctx)
			})
		},
	}
	addStackFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "Do not prompt for confirmation")
	return cmd
}

type lifecycleFunc func(ctx context.Context, s *session, p *prompter) (stack.Result, error)

func runLifecycle(cmd *cobra.Command, opts *Options, streams IO, operation string, fn lifecycleFunc) error {
	ctx := cmd.Context()
	s, err := loadSession(ctx, cmd, opts, streams)
	if err != nil {
		return err
	}
	p := newPrompter(streams, opts.Yes)

	stop, err := s.startStatusServer(ctx, operation)
	if err != nil {
		return err
	}
	defer stop()

	res, err := s.runner.Run(ctx, s.stackName, operation, func(ctx context.Context) (stack.Result, error) {
		return fn(ctx, s, p)
	})
	if err != nil {
		return err
	}

	if opts.Format == formatJSON {
		event := s.logger.Info().
			Str("stack", s.stackName).
			Str("operation", operation).
			Str("outcome", string(res.Outcome)).
			Str("stack_id", res.StackID)
		if res.Stack != nil && len(res.Stack.Outputs) > 0 {
			event = event.Interface("outputs", res.Stack.Outputs)
		}
		event.Msg("operation complete")
		return nil
	}
	printResult(streams.Out, s.stackName, res)
	return nil
}

func printResult(out io.Writer, stackName string, res stack.Result) {
	fmt.Fprintf(out, "Stack %s: %s\n", stackName, res.Outcome)
	if res.Stack == nil || len(res.Stack.Outputs) == 0 {
		return
	}
	keys := make([]string, 0, len(res.Stack.Outputs))
	width := 0
	for k := range res.Stack.Outputs {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)
	fmt.Fprintln(out, "Outputs:")
	for _, k := range keys {
		fmt.Fprintf(out, "  %-*s  %s\n", width, k, res.Stack.Outputs[k])
	}
}
