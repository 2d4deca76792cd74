package stack

import (
	"context"
	"errors"
	"strings"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/readiness"
)

// Delete deletes the stack. The stack must be Ready, DeleteFailed or Broken.
func (o *Orchestrator) Delete(ctx context.Context, hooks DeleteHooks) (Result, error) {
	started := o.now()
	res, err := o.delete(ctx, hooks, o.cfg.Follow)
	o.record("delete", started, res, err)
	return res, err
}

func (o *Orchestrator) delete(ctx context.Context, hooks DeleteHooks, follow bool) (Result, error) {
	state, current, err := readiness.Check(ctx, o.client, o.cfg.StackName)
	if err != nil {
		return Result{}, err
	}
	switch state {
	case readiness.Ready, readiness.DeleteFailed, readiness.Broken:
	case readiness.NotFound:
		return Result{}, &NotFoundError{StackName: o.cfg.StackName}
	default:
		return Result{}, &StateConflictError{StackName: o.cfg.StackName, State: state, Stack: current}
	}

	if hooks.ConfirmDelete != nil && !hooks.ConfirmDelete() {
		return Result{StackID: current.ID, Outcome: NoChange}, nil
	}

	retain := append([]string(nil), o.cfg.RetainResources...)
	if state != readiness.DeleteFailed && len(retain) > 0 && hooks.ConfirmDiscardRetain != nil {
		if !hooks.ConfirmDiscardRetain() {
			return Result{StackID: current.ID, Outcome: NoChange}, nil
		}
		retain = nil
	}

	if state == readiness.Broken {
		o.observer.Warn("Stack is in a failed state from previous operation. Delete may fail.")
	}

	// The deployed template only labels the output.
	var description string
	if prev, err := o.templateResolver().ResolvePrevious(ctx); err != nil {
		o.logger.Warn().Err(err).Msg("unable to read deployed template")
	} else if doc := o.inspect(prev.Content); doc != nil {
		description = o.describeStack(doc)
	}
	if description == "" {
		description = o.describeStack(nil)
	}

	o.observer.Info("Deleting " + description)
	if len(retain) > 0 {
		o.observer.Info("Retaining resources: " + strings.Join(retain, ", "))
	}

	since := o.tracker.Now()
	err = o.client.DeleteStack(ctx, cfn.DeleteStackInput{
		StackName:          current.ID,
		ClientRequestToken: o.cfg.ClientToken,
		RoleARN:            o.cfg.RoleARN,
		RetainResources:    retain,
	})
	if err != nil {
		return Result{}, err
	}

	if !follow {
		return Result{StackID: current.ID, Outcome: DeleteInProgress}, nil
	}
	final, err := o.wait(ctx, current.ID, since)
	if err != nil {
		return Result{}, err
	}
	return Result{StackID: current.ID, Outcome: Deleted, Stack: final}, nil
}

// Reset deletes the stack, always waiting for the delete, and creates it
// again. A followed create is reported as Replaced.
func (o *Orchestrator) Reset(ctx context.Context) (Result, error) {
	started := o.now()
	res, err := o.reset(ctx)
	o.record("reset", started, res, err)
	return res, err
}

func (o *Orchestrator) reset(ctx context.Context) (Result, error) {
	if o.cfg.UsePreviousTemplate || o.cfg.TemplateLocation == "" {
		return Result{}, errors.New("reset requires a template location")
	}

	deleted, err := o.delete(ctx, DeleteHooks{}, true)
	if err != nil {
		return Result{}, err
	}
	if deleted.Outcome != Deleted {
		return deleted, nil
	}

	res, err := o.create(ctx, o.cfg.Follow)
	if err != nil {
		return Result{}, err
	}
	if res.Outcome == Created {
		res.Outcome = Replaced
	}
	return res, nil
}
