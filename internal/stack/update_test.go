package stack

import (
	"context"
	"errors"
	"testing"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/cfn/cfntest"
	"github.com/nholik/stackpilot/internal/changeset"
	"github.com/nholik/stackpilot/internal/readiness"
)

type updateCalls struct {
	changeSet *cfn.CreateChangeSetInput
	update    *cfn.UpdateStackInput
	execute   *cfn.ExecuteChangeSetInput
	deletedCS []string
}

// updateClient simulates a stack whose changeset settles to cs.
func updateClient(sim *stackSim, cs *cfn.ChangeSet, calls *updateCalls) *cfntest.Client {
	return &cfntest.Client{
		DescribeStackFn: sim.describe,
		CreateChangeSetFn: func(_ context.Context, in cfn.CreateChangeSetInput) (string, error) {
			calls.changeSet = &in
			return "arn:changeset/" + in.ChangeSetName, nil
		},
		DescribeChangeSetFn: func(_ context.Context, id, stack string) (*cfn.ChangeSet, error) {
			settled := *cs
			settled.ID = id
			settled.StackID = stack
			return &settled, nil
		},
		UpdateStackFn: func(_ context.Context, in cfn.UpdateStackInput) (string, error) {
			calls.update = &in
			return in.StackName, nil
		},
		ExecuteChangeSetFn: func(_ context.Context, in cfn.ExecuteChangeSetInput) error {
			calls.execute = &in
			return nil
		},
		DeleteChangeSetFn: func(_ context.Context, id, _ string) error {
			calls.deletedCS = append(calls.deletedCS, id)
			return nil
		},
	}
}

func modifyChangeSet() *cfn.ChangeSet {
	return &cfn.ChangeSet{
		Status: cfn.ChangeSetCreateComplete,
		Changes: []cfn.Change{
			{Action: "Modify", LogicalID: "Bucket", ResourceType: "AWS::S3::Bucket", Replacement: "False"},
		},
	}
}

func TestUpdateAppliesConfirmedChangeset(t *testing.T) {
	sim := &stackSim{
		statuses: []string{"CREATE_COMPLETE", "CREATE_COMPLETE", "UPDATE_COMPLETE"},
		parameters: []cfn.Parameter{
			{Key: "Env", Value: "dev"},
			{Key: "Size", Value: "large"},
			{Key: "Removed", Value: "x"},
		},
	}
	calls := &updateCalls{}
	client := updateClient(sim, modifyChangeSet(), calls)
	observer := &recordingObserver{}
	o := newTestOrchestrator(t, testConfig(t), client, WithObserver(observer))

	var confirmed *cfn.ChangeSet
	res, err := o.Update(context.Background(), func(cs *cfn.ChangeSet) bool {
		confirmed = cs
		return true
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != Updated || res.StackID != testStackID {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ChangeSet == nil || len(res.ChangeSet.Changes) != 1 || res.ChangeSet != confirmed {
		t.Fatalf("expected confirmed changeset attached, got %+v", res.ChangeSet)
	}
	if calls.changeSet.ChangeSetType != cfn.ChangeSetTypeUpdate || calls.changeSet.StackName != testStackID {
		t.Fatalf("unexpected changeset request %+v", calls.changeSet)
	}
	if calls.execute != nil || calls.update == nil {
		t.Fatalf("expected a direct update, got execute=%v update=%v", calls.execute, calls.update)
	}

	params := map[string]cfn.Parameter{}
	for _, p := range calls.update.Parameters {
		params[p.Key] = p
	}
	if len(params) != 3 {
		t.Fatalf("expected Env, DbPassword and reused Size, got %+v", calls.update.Parameters)
	}
	if params["Env"].Value != "prod" || params["Env"].UsePreviousValue {
		t.Fatalf("explicit Env not sent: %+v", params["Env"])
	}
	if !params["Size"].UsePreviousValue {
		t.Fatalf("expected Size to reuse its deployed value: %+v", params["Size"])
	}
	if _, ok := params["Removed"]; ok {
		t.Fatalf("parameters no longer declared must not be sent")
	}
	if len(observer.changeSets) != 1 || observer.changeSets[0] != "Stack: web" {
		t.Fatalf("unexpected rendered changesets %v", observer.changeSets)
	}
}

func TestUpdateNoChangeDeletesChangeset(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE"}}
	calls := &updateCalls{}
	cs := &cfn.ChangeSet{Status: cfn.ChangeSetFailed, StatusReason: "No updates are to be performed."}
	o := newTestOrchestrator(t, testConfig(t), updateClient(sim, cs, calls))

	res, err := o.Update(context.Background(), nil)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != NoChange || res.ChangeSet != nil {
		t.Fatalf("expected NoChange without changeset, got %+v", res)
	}
	if len(calls.deletedCS) != 1 {
		t.Fatalf("expected the empty changeset to be deleted, got %v", calls.deletedCS)
	}
	if calls.update != nil {
		t.Fatalf("stack must not be updated")
	}
}

func TestUpdateNoChangeKeepsChangeset(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE"}}
	calls := &updateCalls{}
	cs := &cfn.ChangeSet{Status: cfn.ChangeSetFailed, StatusReason: "The submitted information didn't contain changes."}
	cfg := testConfig(t)
	cfg.KeepNoopChangeset = true
	o := newTestOrchestrator(t, cfg, updateClient(sim, cs, calls))

	res, err := o.Update(context.Background(), nil)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != NoChange || res.ChangeSet == nil {
		t.Fatalf("expected NoChange with changeset, got %+v", res)
	}
	if len(calls.deletedCS) != 0 {
		t.Fatalf("changeset should be kept")
	}
}

func TestUpdateFailedChangeset(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE"}}
	cs := &cfn.ChangeSet{Status: cfn.ChangeSetFailed, StatusReason: "Template error: unresolved reference"}
	o := newTestOrchestrator(t, testConfig(t), updateClient(sim, cs, &updateCalls{}))

	_, err := o.Update(context.Background(), nil)
	var failed *changeset.FailedError
	if !errors.As(err, &failed) || failed.Reason != cs.StatusReason {
		t.Fatalf("expected FailedError, got %v", err)
	}
}

func TestUpdateGatesOnState(t *testing.T) {
	tests := []struct {
		status string
		state  readiness.State
	}{
		{status: cfn.StatusDeleteInProgress, state: readiness.Deleting},
		{status: cfn.StatusDeleteFailed, state: readiness.DeleteFailed},
		{status: "UPDATE_IN_PROGRESS", state: readiness.Busy},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.status, func(t *testing.T) {
			t.Parallel()
			sim := &stackSim{statuses: []string{tt.status}}
			calls := &updateCalls{}
			o := newTestOrchestrator(t, testConfig(t), updateClient(sim, modifyChangeSet(), calls))

			_, err := o.Update(context.Background(), nil)
			var conflict *StateConflictError
			if !errors.As(err, &conflict) || conflict.State != tt.state {
				t.Fatalf("expected %s conflict, got %v", tt.state, err)
			}
			if calls.changeSet != nil {
				t.Fatalf("no changeset should be created")
			}
		})
	}
}

func TestUpdateMissingStack(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(t), &cfntest.Client{})
	_, err := o.Update(context.Background(), nil)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdateBrokenWarnsAndProceeds(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_ROLLBACK_FAILED"}}
	calls := &updateCalls{}
	observer := &recordingObserver{}
	cfg := testConfig(t)
	cfg.Follow = false
	o := newTestOrchestrator(t, cfg, updateClient(sim, modifyChangeSet(), calls), WithObserver(observer))

	res, err := o.Update(context.Background(), func(*cfn.ChangeSet) bool { return true })
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != UpdateInProgress {
		t.Fatalf("expected UpdateInProgress, got %s", res.Outcome)
	}
	if calls.update == nil {
		t.Fatalf("expected the broken stack to be updated")
	}
	if len(calls.deletedCS) != 0 {
		t.Fatalf("applied changeset must not be deleted, got %v", calls.deletedCS)
	}
	if len(observer.warnings) != 1 {
		t.Fatalf("expected a warning, got %v", observer.warnings)
	}
}

func TestUpdateRechecksStateBeforeApplying(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     readiness.State
	}{
		{"broken stack became busy", []string{"UPDATE_ROLLBACK_FAILED", "UPDATE_IN_PROGRESS"}, readiness.Busy},
		{"broken stack is being deleted", []string{"UPDATE_ROLLBACK_FAILED", "DELETE_IN_PROGRESS"}, readiness.Deleting},
		{"ready stack became broken", []string{"UPDATE_COMPLETE", "UPDATE_ROLLBACK_FAILED"}, readiness.Broken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sim := &stackSim{statuses: tt.statuses}
			calls := &updateCalls{}
			o := newTestOrchestrator(t, testConfig(t), updateClient(sim, modifyChangeSet(), calls))

			_, err := o.Update(context.Background(), func(*cfn.ChangeSet) bool { return true })
			var conflict *StateConflictError
			if !errors.As(err, &conflict) || conflict.State != tt.want {
				t.Fatalf("expected %s conflict, got %v", tt.want, err)
			}
			if calls.update != nil || calls.execute != nil {
				t.Fatalf("stack must not be mutated")
			}
			if len(calls.deletedCS) != 1 {
				t.Fatalf("expected the unapplied changeset to be deleted, got %v", calls.deletedCS)
			}
		})
	}
}

func TestUpdateWaitsForInProgressOperation(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_IN_PROGRESS", "UPDATE_COMPLETE", "UPDATE_COMPLETE", "UPDATE_COMPLETE"}}
	calls := &updateCalls{}
	cfg := testConfig(t)
	cfg.WaitForInProgress = true
	cfg.Follow = false
	o := newTestOrchestrator(t, cfg, updateClient(sim, modifyChangeSet(), calls))

	res, err := o.Update(context.Background(), nil)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != UpdateInProgress || calls.update == nil {
		t.Fatalf("expected update after waiting, got %+v", res)
	}
}

func TestUpdateDeclinedConfirmation(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE"}}
	calls := &updateCalls{}
	o := newTestOrchestrator(t, testConfig(t), updateClient(sim, modifyChangeSet(), calls))

	res, err := o.Update(context.Background(), func(*cfn.ChangeSet) bool { return false })
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != NoChange || res.ChangeSet == nil {
		t.Fatalf("expected NoChange with changeset, got %+v", res)
	}
	if calls.update != nil || calls.execute != nil {
		t.Fatalf("stack must not be mutated")
	}
	if len(calls.deletedCS) != 1 || calls.deletedCS[0] != "arn:changeset/"+calls.changeSet.ChangeSetName {
		t.Fatalf("expected declined changeset to be deleted, got %v", calls.deletedCS)
	}
}

func TestUpdateDeclinedConfirmationKeepsChangeset(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE"}}
	calls := &updateCalls{}
	cfg := testConfig(t)
	cfg.KeepNoopChangeset = true
	o := newTestOrchestrator(t, cfg, updateClient(sim, modifyChangeSet(), calls))

	res, err := o.Update(context.Background(), func(*cfn.ChangeSet) bool { return false })
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != NoChange || len(calls.deletedCS) != 0 {
		t.Fatalf("expected kept changeset, got %+v deleted=%v", res, calls.deletedCS)
	}
}

func TestUpdateChangesetOnly(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE"}}
	calls := &updateCalls{}
	cfg := testConfig(t)
	cfg.ChangesetOnly = true
	confirmCalled := false
	o := newTestOrchestrator(t, cfg, updateClient(sim, modifyChangeSet(), calls))

	res, err := o.Update(context.Background(), func(*cfn.ChangeSet) bool {
		confirmCalled = true
		return true
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != NoChange || res.ChangeSet == nil || confirmCalled {
		t.Fatalf("expected preview only, got %+v confirm=%v", res, confirmCalled)
	}
}

func TestUpdateDetectsConcurrentOperation(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE", "UPDATE_IN_PROGRESS"}}
	calls := &updateCalls{}
	o := newTestOrchestrator(t, testConfig(t), updateClient(sim, modifyChangeSet(), calls))

	_, err := o.Update(context.Background(), nil)
	var conflict *StateConflictError
	if !errors.As(err, &conflict) || conflict.State != readiness.Busy {
		t.Fatalf("expected Busy conflict, got %v", err)
	}
	if calls.update != nil {
		t.Fatalf("stack must not be updated")
	}
	if len(calls.deletedCS) != 1 {
		t.Fatalf("expected the unapplied changeset to be deleted, got %v", calls.deletedCS)
	}
}

func TestUpdateImportExecutesChangeset(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE", "UPDATE_COMPLETE", "IMPORT_COMPLETE"}}
	calls := &updateCalls{}
	cfg := testConfig(t)
	cfg.ResourcesToImport = []cfn.ResourceToImport{{
		ResourceType:       "AWS::S3::Bucket",
		LogicalResourceID:  "Bucket",
		ResourceIdentifier: map[string]string{"BucketName": "existing"},
	}}
	o := newTestOrchestrator(t, cfg, updateClient(sim, modifyChangeSet(), calls))

	res, err := o.Update(context.Background(), nil)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if res.Outcome != Updated {
		t.Fatalf("expected Updated, got %s", res.Outcome)
	}
	if calls.changeSet.ChangeSetType != cfn.ChangeSetTypeImport || len(calls.changeSet.ResourcesToImport) != 1 {
		t.Fatalf("expected import changeset, got %+v", calls.changeSet)
	}
	if calls.execute == nil || calls.update != nil {
		t.Fatalf("expected changeset execution, got execute=%v update=%v", calls.execute, calls.update)
	}
}

func TestUpdateUsePreviousTemplate(t *testing.T) {
	sim := &stackSim{
		statuses:   []string{"UPDATE_COMPLETE"},
		parameters: []cfn.Parameter{{Key: "Env", Value: "dev"}, {Key: "DbPassword", Value: "****"}},
	}
	calls := &updateCalls{}
	client := updateClient(sim, &cfn.ChangeSet{Status: cfn.ChangeSetFailed, StatusReason: "Access Denied"}, calls)
	client.GetTemplateFn = func(context.Context, string) (string, error) { return testTemplate, nil }
	cfg := testConfig(t)
	cfg.TemplateLocation = ""
	cfg.UsePreviousTemplate = true
	cfg.Parameters = nil
	o := newTestOrchestrator(t, cfg, client)

	_, err := o.Update(context.Background(), nil)
	var failed *changeset.FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected FailedError, got %v", err)
	}
	if !calls.changeSet.UsePreviousTemplate || calls.changeSet.TemplateBody != "" || calls.changeSet.TemplateURL != "" {
		t.Fatalf("unexpected changeset request %+v", calls.changeSet)
	}
	for _, p := range calls.changeSet.Parameters {
		if !p.UsePreviousValue {
			t.Fatalf("expected every parameter reused, got %+v", calls.changeSet.Parameters)
		}
	}
	if len(calls.changeSet.Parameters) != 2 {
		t.Fatalf("expected 2 reused parameters, got %+v", calls.changeSet.Parameters)
	}
}

func TestUpdateRendersNestedChangesets(t *testing.T) {
	sim := &stackSim{statuses: []string{"UPDATE_COMPLETE"}}
	calls := &updateCalls{}
	root := &cfn.ChangeSet{Status: cfn.ChangeSetCreateComplete, Changes: []cfn.Change{
		{Action: "Modify", LogicalID: "Child", PhysicalID: "arn:child", ResourceType: cfn.NestedStackType},
	}}
	client := updateClient(sim, root, calls)
	client.ListChangeSetsFn = func(context.Context, string) ([]cfn.ChangeSetSummary, error) {
		return []cfn.ChangeSetSummary{{ID: "child-cs", ParentID: "arn:changeset/" + calls.changeSet.ChangeSetName}}, nil
	}
	describeRoot := client.DescribeChangeSetFn
	client.DescribeChangeSetFn = func(ctx context.Context, id, stack string) (*cfn.ChangeSet, error) {
		if id == "child-cs" {
			return &cfn.ChangeSet{ID: id, Status: cfn.ChangeSetCreateComplete}, nil
		}
		return describeRoot(ctx, id, stack)
	}
	cfg := testConfig(t)
	cfg.IncludeNestedStacks = true
	cfg.ChangesetOnly = true
	observer := &recordingObserver{}
	o := newTestOrchestrator(t, cfg, client, WithObserver(observer))

	if _, err := o.Update(context.Background(), nil); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !calls.changeSet.IncludeNestedStacks {
		t.Fatalf("expected nested stacks requested")
	}
	if len(observer.changeSets) != 2 || observer.changeSets[0] != "Root stack: web" || observer.changeSets[1] != "Nested stack: Child" {
		t.Fatalf("unexpected rendered changesets %v", observer.changeSets)
	}
}
