package stack

import (
	"context"
	"fmt"

	"github.com/nholik/stackpilot/internal/artifact"
	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/changeset"
	"github.com/nholik/stackpilot/internal/readiness"
)

// Update previews the change through a changeset and applies it once
// confirm approves. A nil confirm approves every changeset.
func (o *Orchestrator) Update(ctx context.Context, confirm ConfirmFunc) (Result, error) {
	started := o.now()
	res, err := o.update(ctx, confirm)
	o.record("update", started, res, err)
	return res, err
}

func (o *Orchestrator) update(ctx context.Context, confirm ConfirmFunc) (Result, error) {
	current, gate, err := o.readyForUpdate(ctx)
	if err != nil {
		return Result{}, err
	}

	tmpl, err := o.resolveTemplate(ctx)
	if err != nil {
		return Result{}, err
	}
	var policy, duringUpdate artifact.Resolved
	if len(o.cfg.ResourcesToImport) == 0 {
		if policy, err = o.resolvePolicy(ctx, o.cfg.StackPolicyLocation); err != nil {
			return Result{}, err
		}
		if duringUpdate, err = o.resolvePolicy(ctx, o.cfg.StackPolicyDuringUpdateLocation); err != nil {
			return Result{}, err
		}
	}

	doc := o.inspect(tmpl.Content)
	params := o.updateParameters(doc, current)
	noEcho := tmpl.NoEchoParameters
	if doc != nil {
		noEcho = append(noEcho, doc.NoEchoParameters()...)
	}
	o.logParameters(params, noEcho)

	request := o.changeSetRequest(current.ID, tmpl, params)
	o.observer.Info(fmt.Sprintf("Creating changeset %s for %s", request.ChangeSetName, o.describeStack(doc)))
	if o.cfg.IncludeNestedStacks {
		o.observer.Info("Nested stack changesets are enabled. This may take some time...")
	}
	changeSetID, err := o.client.CreateChangeSet(ctx, request)
	if err != nil {
		return Result{}, err
	}
	o.logger.Debug().Str("changeset", changeSetID).Str("mode", request.ChangeSetType).Msg("changeset created")

	cs, err := o.poller.Poll(ctx, changeSetID, current.ID)
	if err != nil {
		return Result{}, err
	}
	noChange, err := changeset.Classify(cs, o.cfg.UsePreviousTemplate, o.cfg.NoChangeMessages)
	if err != nil {
		return Result{}, err
	}
	if noChange {
		return o.discardNoop(ctx, current.ID, changeSetID, request.ChangeSetName, cs)
	}

	if err := o.render(ctx, cs); err != nil {
		return Result{}, err
	}

	if o.cfg.ChangesetOnly {
		o.observer.Info(fmt.Sprintf("Changeset %s created for stack %s", request.ChangeSetName, o.cfg.StackName))
		o.observer.Info("Not updating stack since changeset only is set")
		return Result{StackID: current.ID, Outcome: NoChange, ChangeSet: cs}, nil
	}
	if confirm != nil && !confirm(cs) {
		if err := o.discardUnapplied(ctx, current.ID, changeSetID, request.ChangeSetName); err != nil {
			return Result{}, err
		}
		return Result{StackID: current.ID, Outcome: NoChange, ChangeSet: cs}, nil
	}

	// Another actor may have started an operation while we waited for confirmation.
	state, latest, err := readiness.Check(ctx, o.client, current.ID)
	if err != nil {
		return Result{}, err
	}
	if !stillUpdatable(gate, state) {
		if latest == nil {
			latest = current
		}
		if err := o.discardUnapplied(ctx, current.ID, changeSetID, request.ChangeSetName); err != nil {
			o.logger.Warn().Err(err).Str("changeset", changeSetID).Msg("failed to delete unapplied changeset")
		}
		return Result{}, &StateConflictError{StackName: o.cfg.StackName, State: state, Stack: latest}
	}

	o.observer.Info("Updating " + o.describeStack(doc))
	since := o.tracker.Now()
	if len(o.cfg.ResourcesToImport) > 0 {
		err = o.client.ExecuteChangeSet(ctx, cfn.ExecuteChangeSetInput{
			ChangeSetName:      changeSetID,
			StackName:          current.ID,
			ClientRequestToken: o.cfg.ClientToken,
		})
	} else {
		_, err = o.client.UpdateStack(ctx, o.updateRequest(request, policy, duringUpdate))
	}
	if err != nil {
		return Result{}, err
	}

	if !o.cfg.Follow {
		return Result{StackID: current.ID, Outcome: UpdateInProgress, ChangeSet: cs}, nil
	}
	final, err := o.wait(ctx, current.ID, since)
	if err != nil {
		return Result{}, err
	}
	return Result{StackID: current.ID, Outcome: Updated, ChangeSet: cs, Stack: final}, nil
}

// stillUpdatable reports whether the state seen before applying matches the
// one the update was gated on. A Broken stack stays updatable while it
// remains Broken.
func stillUpdatable(gate, current readiness.State) bool {
	return current == readiness.Ready || (current == readiness.Broken && gate == readiness.Broken)
}

// readyForUpdate gates the update on the stack's state, following an
// in-flight operation when WaitForInProgress is set. It returns the state the
// update was admitted in.
func (o *Orchestrator) readyForUpdate(ctx context.Context) (*cfn.Stack, readiness.State, error) {
	state, current, err := readiness.Check(ctx, o.client, o.cfg.StackName)
	if err != nil {
		return nil, state, err
	}

	switch state {
	case readiness.Ready:
		return current, state, nil
	case readiness.NotFound:
		return nil, state, &NotFoundError{StackName: o.cfg.StackName}
	case readiness.Deleting, readiness.DeleteFailed:
		return nil, state, &StateConflictError{StackName: o.cfg.StackName, State: state, Stack: current}
	case readiness.Broken:
		o.observer.Warn("Stack is in a failed state from previous operation. Update may fail.")
		return current, state, nil
	case readiness.Busy:
		if !o.cfg.WaitForInProgress {
			return nil, state, &StateConflictError{StackName: o.cfg.StackName, State: state, Stack: current}
		}
	default:
		return nil, state, &StateConflictError{StackName: o.cfg.StackName, State: state, Stack: current}
	}

	o.observer.Info(fmt.Sprintf("Stack %s is currently being updated by another process", o.cfg.StackName))
	o.observer.Info("Following its progress while waiting...")
	if _, err := o.tracker.Wait(ctx, current.ID, o.tracker.Now()); err != nil {
		return nil, state, err
	}

	state, settled, err := readiness.Check(ctx, o.client, current.ID)
	if err != nil {
		return nil, state, err
	}
	if state != readiness.Ready {
		return nil, state, &StateConflictError{StackName: o.cfg.StackName, State: state, Stack: settled}
	}
	return settled, state, nil
}

func (o *Orchestrator) changeSetRequest(stackID string, tmpl artifact.Resolved, params []cfn.Parameter) cfn.CreateChangeSetInput {
	mode := cfn.ChangeSetTypeUpdate
	if len(o.cfg.ResourcesToImport) > 0 {
		mode = cfn.ChangeSetTypeImport
	}
	in := cfn.CreateChangeSetInput{
		ChangeSetName:         changeset.NewName(o.cfg.ChangeSetPrefix),
		ChangeSetType:         mode,
		StackName:             stackID,
		TemplateBody:          tmpl.Inline(),
		UsePreviousTemplate:   o.cfg.UsePreviousTemplate,
		Parameters:            params,
		Capabilities:          o.cfg.Capabilities,
		ClientToken:           o.cfg.ClientToken,
		NotificationARNs:      o.cfg.NotificationARNs,
		ResourceTypes:         o.cfg.ResourceTypes,
		RoleARN:               o.cfg.RoleARN,
		RollbackConfiguration: o.cfg.RollbackConfiguration,
		Tags:                  o.cfg.Tags,
		ResourcesToImport:     o.cfg.ResourcesToImport,
		IncludeNestedStacks:   o.cfg.IncludeNestedStacks,
	}
	if !o.cfg.UsePreviousTemplate {
		in.TemplateURL = tmpl.URL
	}
	return in
}

func (o *Orchestrator) updateRequest(cs cfn.CreateChangeSetInput, policy, duringUpdate artifact.Resolved) cfn.UpdateStackInput {
	return cfn.UpdateStackInput{
		StackName:                   cs.StackName,
		TemplateBody:                cs.TemplateBody,
		TemplateURL:                 cs.TemplateURL,
		UsePreviousTemplate:         cs.UsePreviousTemplate,
		Parameters:                  cs.Parameters,
		Capabilities:                cs.Capabilities,
		ClientRequestToken:          o.cfg.ClientToken,
		NotificationARNs:            cs.NotificationARNs,
		ResourceTypes:               cs.ResourceTypes,
		RoleARN:                     cs.RoleARN,
		RollbackConfiguration:       cs.RollbackConfiguration,
		StackPolicyBody:             policy.Inline(),
		StackPolicyURL:              policy.URL,
		StackPolicyDuringUpdateBody: duringUpdate.Inline(),
		StackPolicyDuringUpdateURL:  duringUpdate.URL,
		Tags:                        cs.Tags,
	}
}

func (o *Orchestrator) discardNoop(ctx context.Context, stackID, changeSetID, name string, cs *cfn.ChangeSet) (Result, error) {
	o.observer.Info("No changes to stack were detected.")
	if o.cfg.KeepNoopChangeset {
		return Result{StackID: stackID, Outcome: NoChange, ChangeSet: cs}, nil
	}
	if err := o.discardUnapplied(ctx, stackID, changeSetID, name); err != nil {
		return Result{}, err
	}
	return Result{StackID: stackID, Outcome: NoChange}, nil
}

// discardUnapplied removes a changeset that was previewed but not applied,
// unless changesets are kept.
func (o *Orchestrator) discardUnapplied(ctx context.Context, stackID, changeSetID, name string) error {
	if o.cfg.KeepNoopChangeset {
		return nil
	}
	if err := o.client.DeleteChangeSet(ctx, changeSetID, stackID); err != nil {
		return err
	}
	o.observer.Info("Deleted changeset " + name)
	return nil
}

// render shows the changeset and, when enabled, every nested changeset.
func (o *Orchestrator) render(ctx context.Context, cs *cfn.ChangeSet) error {
	if !o.cfg.IncludeNestedStacks {
		o.observer.ChangeSet("Stack: "+o.cfg.StackName, cs)
		return nil
	}
	return o.walker.Walk(ctx, o.cfg.StackName, cs, o.observer.ChangeSet)
}
