package stack

import (
	"errors"
	"fmt"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/changeset"
)

// DefaultPollInterval is the fixed delay between stack status polls.
const DefaultPollInterval = 5 * time.Second

// Config is the immutable description of the stack an Orchestrator manages.
// Only StackName is always required; create, update and reset also need a
// template unless UsePreviousTemplate is set for an update.
type Config struct {
	StackName string

	// TemplateLocation is a file path, an S3 URL or inline template text.
	TemplateLocation string
	// UsePreviousTemplate updates with the template already deployed.
	UsePreviousTemplate bool

	// Parameters are explicit values. On update, template parameters not
	// listed here keep their deployed values.
	Parameters map[string]string

	Capabilities          []string
	Tags                  []cfn.Tag
	RoleARN               string
	ClientToken           string
	NotificationARNs      []string
	RollbackConfiguration *cfn.RollbackConfiguration
	ResourceTypes         []string

	// StackPolicyLocation and StackPolicyDuringUpdateLocation resolve like
	// TemplateLocation.
	StackPolicyLocation             string
	StackPolicyDuringUpdateLocation string

	// Create only.
	TerminationProtection bool
	TimeoutInMinutes      int32
	OnFailure             string
	DisableRollback       bool

	// RetainResources is passed to delete. The control plane only accepts it
	// for stacks in DELETE_FAILED.
	RetainResources []string

	// ResourcesToImport switches updates to an IMPORT changeset.
	ResourcesToImport []cfn.ResourceToImport

	// ForceS3 uploads the template even when it fits inline.
	ForceS3 bool

	IncludeNestedStacks bool
	// ChangesetOnly stops an update after the changeset is displayed.
	ChangesetOnly bool
	// KeepNoopChangeset leaves changesets that are not applied in place:
	// those with no changes, declined ones and ones aborted before applying.
	// By default they are deleted.
	KeepNoopChangeset bool
	// WaitForInProgress follows an operation already running on the stack
	// before updating instead of failing.
	WaitForInProgress bool
	// Follow waits for operations to finish. Reset always waits for its delete.
	Follow bool

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// NoChangeMessages defaults to changeset.DefaultNoChangeMessages.
	NoChangeMessages []string
	// ChangeSetPrefix defaults to changeset.DefaultNamePrefix.
	ChangeSetPrefix string
}

// Validate reports configuration the control plane would reject.
func (c Config) Validate() error {
	var errs []error
	if c.StackName == "" {
		errs = append(errs, errors.New("stack name is required"))
	}
	if c.DisableRollback && c.OnFailure != "" {
		errs = append(errs, errors.New("disable rollback and on failure cannot be set together"))
	}
	switch c.OnFailure {
	case "", cfn.OnFailureDoNothing, cfn.OnFailureRollback, cfn.OnFailureDelete:
	default:
		errs = append(errs, fmt.Errorf("unknown on failure action %q", c.OnFailure))
	}
	if c.TimeoutInMinutes < 0 {
		errs = append(errs, errors.New("timeout in minutes must not be negative"))
	}
	if c.PollInterval < 0 {
		errs = append(errs, errors.New("poll interval must not be negative"))
	}
	return errors.Join(errs...)
}

func (c Config) withDefaults() Config {
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if len(c.NoChangeMessages) == 0 {
		c.NoChangeMessages = changeset.DefaultNoChangeMessages
	}
	if c.ChangeSetPrefix == "" {
		c.ChangeSetPrefix = changeset.DefaultNamePrefix
	}
	return c
}

// Outcome classifies the result of an operation.
type Outcome string

const (
	NoChange         Outcome = "NoChange"
	Created          Outcome = "Created"
	Updated          Outcome = "Updated"
	Replaced         Outcome = "Replaced"
	Deleted          Outcome = "Deleted"
	CreateInProgress Outcome = "CreateInProgress"
	UpdateInProgress Outcome = "UpdateInProgress"
	DeleteInProgress Outcome = "DeleteInProgress"
)

// Result is returned by every successful operation.
type Result struct {
	StackID string
	Outcome Outcome
	// ChangeSet is the changeset produced by an update, if any.
	ChangeSet *cfn.ChangeSet
	// Stack is the final snapshot when the operation was followed.
	Stack *cfn.Stack
}
