package cfn

import "time"

// NestedStackType is the resource type of a nested stack.
const NestedStackType = "AWS::CloudFormation::Stack"

// Stack is a snapshot of a stack as reported by the control plane.
type Stack struct {
	Name         string
	ID           string
	Status       string
	StatusReason string
	Description  string
	Parameters   []Parameter
	Outputs      map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StackEvent is a single entry in a stack's event log.
type StackEvent struct {
	ID           string
	StackName    string
	StackID      string
	LogicalID    string
	PhysicalID   string
	ResourceType string
	Status       string
	StatusReason string
	Timestamp    time.Time
}

// ChangeSet is a proposed set of resource modifications.
type ChangeSet struct {
	ID              string
	Name            string
	StackID         string
	StackName       string
	Status          string
	ExecutionStatus string
	StatusReason    string
	ParentID        string
	RootID          string
	Changes         []Change
}

// Change is one resource entry within a changeset.
type Change struct {
	Action       string
	LogicalID    string
	PhysicalID   string
	ResourceType string
	Replacement  string
	// ChangeSetID is set for nested stack changes when nested changesets were requested.
	ChangeSetID string
}

// ChangeSetSummary is the list form of a changeset.
type ChangeSetSummary struct {
	ID       string
	Name     string
	StackID  string
	ParentID string
	Status   string
}

// Parameter is a stack parameter value.
type Parameter struct {
	Key              string `json:"ParameterKey" yaml:"ParameterKey"`
	Value            string `json:"ParameterValue" yaml:"ParameterValue"`
	UsePreviousValue bool   `json:"UsePreviousValue,omitempty" yaml:"UsePreviousValue,omitempty"`
}

// ParameterDeclaration is a parameter as declared by a deployed template.
type ParameterDeclaration struct {
	Key     string
	Default string
	NoEcho  bool
}

// TemplateSummary describes a deployed template.
type TemplateSummary struct {
	Description string
	Parameters  []ParameterDeclaration
}

// NoEchoKeys returns the names of parameters declared NoEcho.
func (s *TemplateSummary) NoEchoKeys() []string {
	if s == nil {
		return nil
	}
	var keys []string
	for _, p := range s.Parameters {
		if p.NoEcho {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Tag is a stack tag.
type Tag struct {
	Key   string
	Value string
}

// ResourceToImport identifies an existing resource to bring under stack management.
type ResourceToImport struct {
	ResourceType       string            `json:"ResourceType" yaml:"ResourceType"`
	LogicalResourceID  string            `json:"LogicalResourceId" yaml:"LogicalResourceId"`
	ResourceIdentifier map[string]string `json:"ResourceIdentifier" yaml:"ResourceIdentifier"`
}

// RollbackTrigger is an alarm monitored during stack operations.
type RollbackTrigger struct {
	ARN  string `yaml:"arn"`
	Type string `yaml:"type"`
}

// RollbackConfiguration controls alarm-driven rollback.
type RollbackConfiguration struct {
	MonitoringTimeInMinutes int32             `yaml:"monitoring_time_in_minutes"`
	Triggers                []RollbackTrigger `yaml:"triggers"`
}

// OnFailure actions for stack creation.
const (
	OnFailureDoNothing = "DO_NOTHING"
	OnFailureRollback  = "ROLLBACK"
	OnFailureDelete    = "DELETE"
)

// ChangeSetType values used by this module.
const (
	ChangeSetTypeUpdate = "UPDATE"
	ChangeSetTypeImport = "IMPORT"
)

// CreateStackInput is the request to create a new stack.
type CreateStackInput struct {
	StackName                   string
	TemplateBody                string
	TemplateURL                 string
	Parameters                  []Parameter
	Capabilities                []string
	ClientRequestToken          string
	DisableRollback             bool
	EnableTerminationProtection bool
	NotificationARNs            []string
	OnFailure                   string
	ResourceTypes               []string
	RoleARN                     string
	RollbackConfiguration       *RollbackConfiguration
	StackPolicyBody             string
	StackPolicyURL              string
	Tags                        []Tag
	TimeoutInMinutes            int32
}

// UpdateStackInput is the request to update a stack directly.
type UpdateStackInput struct {
	StackName                   string
	TemplateBody                string
	TemplateURL                 string
	UsePreviousTemplate         bool
	Parameters                  []Parameter
	Capabilities                []string
	ClientRequestToken          string
	NotificationARNs            []string
	ResourceTypes               []string
	RoleARN                     string
	RollbackConfiguration       *RollbackConfiguration
	StackPolicyBody             string
	StackPolicyURL              string
	StackPolicyDuringUpdateBody string
	StackPolicyDuringUpdateURL  string
	Tags                        []Tag
}

// DeleteStackInput is the request to delete a stack.
type DeleteStackInput struct {
	StackName          string
	ClientRequestToken string
	RoleARN            string
	RetainResources    []string
}

// CreateChangeSetInput is the request to create a changeset.
type CreateChangeSetInput struct {
	ChangeSetName         string
	ChangeSetType         string
	StackName             string
	TemplateBody          string
	TemplateURL           string
	UsePreviousTemplate   bool
	Parameters            []Parameter
	Capabilities          []string
	ClientToken           string
	NotificationARNs      []string
	ResourceTypes         []string
	RoleARN               string
	RollbackConfiguration *RollbackConfiguration
	Tags                  []Tag
	ResourcesToImport     []ResourceToImport
	IncludeNestedStacks   bool
}

// ExecuteChangeSetInput is the request to apply a changeset.
type ExecuteChangeSetInput struct {
	ChangeSetName      string
	StackName          string
	ClientRequestToken string
}
