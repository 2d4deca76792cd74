package stack

import (
	"context"
	"errors"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/readiness"
)

// Create creates the stack. It fails with a StateConflictError carrying
// Exists when a stack with the name is already present.
func (o *Orchestrator) Create(ctx context.Context) (Result, error) {
	started := o.now()
	res, err := o.create(ctx, o.cfg.Follow)
	o.record("create", started, res, err)
	return res, err
}

func (o *Orchestrator) create(ctx context.Context, follow bool) (Result, error) {
	if o.cfg.UsePreviousTemplate {
		return Result{}, errors.New("a previous template cannot be used to create a stack")
	}

	state, existing, err := readiness.Check(ctx, o.client, o.cfg.StackName)
	if err != nil {
		return Result{}, err
	}
	if state != readiness.NotFound {
		return Result{}, &StateConflictError{StackName: o.cfg.StackName, State: readiness.Exists, Stack: existing}
	}

	tmpl, err := o.resolveTemplate(ctx)
	if err != nil {
		return Result{}, err
	}
	policy, err := o.resolvePolicy(ctx, o.cfg.StackPolicyLocation)
	if err != nil {
		return Result{}, err
	}
	doc := o.inspect(tmpl.Content)

	params := o.explicitParameters()
	if doc != nil {
		o.logParameters(params, doc.NoEchoParameters())
	}

	in := cfn.CreateStackInput{
		StackName:                   o.cfg.StackName,
		TemplateBody:                tmpl.Inline(),
		TemplateURL:                 tmpl.URL,
		Parameters:                  params,
		Capabilities:                o.cfg.Capabilities,
		ClientRequestToken:          o.cfg.ClientToken,
		DisableRollback:             o.cfg.DisableRollback,
		EnableTerminationProtection: o.cfg.TerminationProtection,
		NotificationARNs:            o.cfg.NotificationARNs,
		OnFailure:                   o.cfg.OnFailure,
		ResourceTypes:               o.cfg.ResourceTypes,
		RoleARN:                     o.cfg.RoleARN,
		RollbackConfiguration:       o.cfg.RollbackConfiguration,
		StackPolicyBody:             policy.Inline(),
		StackPolicyURL:              policy.URL,
		Tags:                        o.cfg.Tags,
		TimeoutInMinutes:            o.cfg.TimeoutInMinutes,
	}

	o.observer.Info("Creating " + o.describeStack(doc))
	since := o.tracker.Now()
	stackID, err := o.client.CreateStack(ctx, in)
	if err != nil {
		return Result{}, err
	}

	if !follow {
		return Result{StackID: stackID, Outcome: CreateInProgress}, nil
	}
	final, err := o.wait(ctx, stackID, since)
	if err != nil {
		return Result{}, err
	}
	return Result{StackID: stackID, Outcome: Created, Stack: final}, nil
}
