package cfn

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

const defaultAPITimeout = 30 * time.Second

// SDKClient implements Client using the AWS SDK for Go v2.
type SDKClient struct {
	api     cloudFormationAPI
	timeout time.Duration
}

// LoadAWSConfig resolves credentials and region from the usual AWS sources.
// Empty region or profile leave the SDK defaults in place.
func LoadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// NewSDKClient builds a client from an AWS config. endpoint overrides the
// service endpoint when set (local emulators).
func NewSDKClient(cfg aws.Config, endpoint string, timeout time.Duration) *SDKClient {
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}
	api := cloudformation.NewFromConfig(cfg, func(o *cloudformation.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &SDKClient{api: api, timeout: timeout}
}

func (c *SDKClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// DescribeStack implements Client.
func (c *SDKClient) DescribeStack(ctx context.Context, stack string) (*Stack, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(stack)})
	if err != nil {
		return nil, wrapCall("describe stack", stack, err)
	}
	if len(out.Stacks) == 0 {
		return nil, fmt.Errorf("describe stack %q: %w", stack, ErrStackNotFound)
	}
	return fromSDKStack(out.Stacks[0]), nil
}

// DescribeStackEvents implements Client. Paging stops at the first event not
// newer than since.
func (c *SDKClient) DescribeStackEvents(ctx context.Context, stack string, since time.Time) ([]StackEvent, error) {
	var (
		events []StackEvent
		token  *string
	)
	for {
		out, err := c.describeEventsPage(ctx, stack, token)
		if err != nil {
			return nil, err
		}
		for _, e := range out.StackEvents {
			event := fromSDKEvent(e)
			if !event.Timestamp.After(since) {
				return events, nil
			}
			events = append(events, event)
		}
		if out.NextToken == nil || aws.ToString(out.NextToken) == "" {
			return events, nil
		}
		token = out.NextToken
	}
}

func (c *SDKClient) describeEventsPage(ctx context.Context, stack string, token *string) (*cloudformation.DescribeStackEventsOutput, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(stack),
		NextToken: token,
	})
	if err != nil {
		return nil, wrapCall("describe stack events", stack, err)
	}
	return out, nil
}

// CreateStack implements Client.
func (c *SDKClient) CreateStack(ctx context.Context, in CreateStackInput) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &cloudformation.CreateStackInput{
		StackName:                   aws.String(in.StackName),
		TemplateBody:                optional(in.TemplateBody),
		TemplateURL:                 optional(in.TemplateURL),
		Parameters:                  toSDKParameters(in.Parameters),
		Capabilities:                toSDKCapabilities(in.Capabilities),
		ClientRequestToken:          optional(in.ClientRequestToken),
		DisableRollback:             optionalBool(in.DisableRollback),
		EnableTerminationProtection: optionalBool(in.EnableTerminationProtection),
		NotificationARNs:            in.NotificationARNs,
		RoleARN:                     optional(in.RoleARN),
		RollbackConfiguration:       toSDKRollback(in.RollbackConfiguration),
		StackPolicyBody:             optional(in.StackPolicyBody),
		StackPolicyURL:              optional(in.StackPolicyURL),
		Tags:                        toSDKTags(in.Tags),
	}
	if in.OnFailure != "" {
		params.OnFailure = types.OnFailure(in.OnFailure)
	}
	if len(in.ResourceTypes) > 0 {
		params.ResourceTypes = in.ResourceTypes
	}
	if in.TimeoutInMinutes > 0 {
		params.TimeoutInMinutes = aws.Int32(in.TimeoutInMinutes)
	}

	out, err := c.api.CreateStack(ctx, params)
	if err != nil {
		return "", wrapCall("create stack", in.StackName, err)
	}
	return aws.ToString(out.StackId), nil
}

// UpdateStack implements Client.
func (c *SDKClient) UpdateStack(ctx context.Context, in UpdateStackInput) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &cloudformation.UpdateStackInput{
		StackName:                   aws.String(in.StackName),
		TemplateBody:                optional(in.TemplateBody),
		TemplateURL:                 optional(in.TemplateURL),
		UsePreviousTemplate:         optionalBool(in.UsePreviousTemplate),
		Parameters:                  toSDKParameters(in.Parameters),
		Capabilities:                toSDKCapabilities(in.Capabilities),
		ClientRequestToken:          optional(in.ClientRequestToken),
		NotificationARNs:            in.NotificationARNs,
		RoleARN:                     optional(in.RoleARN),
		RollbackConfiguration:       toSDKRollback(in.RollbackConfiguration),
		StackPolicyBody:             optional(in.StackPolicyBody),
		StackPolicyURL:              optional(in.StackPolicyURL),
		StackPolicyDuringUpdateBody: optional(in.StackPolicyDuringUpdateBody),
		StackPolicyDuringUpdateURL:  optional(in.StackPolicyDuringUpdateURL),
		Tags:                        toSDKTags(in.Tags),
	}
	if len(in.ResourceTypes) > 0 {
		params.ResourceTypes = in.ResourceTypes
	}

	out, err := c.api.UpdateStack(ctx, params)
	if err != nil {
		return "", wrapCall("update stack", in.StackName, err)
	}
	return aws.ToString(out.StackId), nil
}

// DeleteStack implements Client.
func (c *SDKClient) DeleteStack(ctx context.Context, in DeleteStackInput) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.api.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName:          aws.String(in.StackName),
		ClientRequestToken: optional(in.ClientRequestToken),
		RoleARN:            optional(in.RoleARN),
		RetainResources:    in.RetainResources,
	})
	return wrapCall("delete stack", in.StackName, err)
}

// CreateChangeSet implements Client.
func (c *SDKClient) CreateChangeSet(ctx context.Context, in CreateChangeSetInput) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	params := &cloudformation.CreateChangeSetInput{
		ChangeSetName:         aws.String(in.ChangeSetName),
		ChangeSetType:         types.ChangeSetType(in.ChangeSetType),
		StackName:             aws.String(in.StackName),
		TemplateBody:          optional(in.TemplateBody),
		TemplateURL:           optional(in.TemplateURL),
		UsePreviousTemplate:   optionalBool(in.UsePreviousTemplate),
		Parameters:            toSDKParameters(in.Parameters),
		Capabilities:          toSDKCapabilities(in.Capabilities),
		ClientToken:           optional(in.ClientToken),
		NotificationARNs:      in.NotificationARNs,
		RoleARN:               optional(in.RoleARN),
		RollbackConfiguration: toSDKRollback(in.RollbackConfiguration),
		Tags:                  toSDKTags(in.Tags),
		ResourcesToImport:     toSDKResourcesToImport(in.ResourcesToImport),
		IncludeNestedStacks:   optionalBool(in.IncludeNestedStacks),
	}
	if len(in.ResourceTypes) > 0 {
		params.ResourceTypes = in.ResourceTypes
	}

	out, err := c.api.CreateChangeSet(ctx, params)
	if err != nil {
		return "", wrapCall("create changeset", in.StackName, err)
	}
	return aws.ToString(out.Id), nil
}

// DescribeChangeSet implements Client. All pages of changes are collected.
func (c *SDKClient) DescribeChangeSet(ctx context.Context, changeSet, stack string) (*ChangeSet, error) {
	var (
		result *ChangeSet
		token  *string
	)
	for {
		out, err := c.describeChangeSetPage(ctx, changeSet, stack, token)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = &ChangeSet{
				ID:              aws.ToString(out.ChangeSetId),
				Name:            aws.ToString(out.ChangeSetName),
				StackID:         aws.ToString(out.StackId),
				StackName:       aws.ToString(out.StackName),
				Status:          string(out.Status),
				ExecutionStatus: string(out.ExecutionStatus),
				StatusReason:    aws.ToString(out.StatusReason),
				ParentID:        aws.ToString(out.ParentChangeSetId),
				RootID:          aws.ToString(out.RootChangeSetId),
			}
		}
		result.Changes = append(result.Changes, fromSDKChanges(out.Changes)...)
		if out.NextToken == nil || aws.ToString(out.NextToken) == "" {
			return result, nil
		}
		token = out.NextToken
	}
}

func (c *SDKClient) describeChangeSetPage(ctx context.Context, changeSet, stack string, token *string) (*cloudformation.DescribeChangeSetOutput, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.DescribeChangeSet(ctx, &cloudformation.DescribeChangeSetInput{
		ChangeSetName: aws.String(changeSet),
		StackName:     optional(stack),
		NextToken:     token,
	})
	if err != nil {
		return nil, wrapCall("describe changeset", stack, err)
	}
	return out, nil
}

// ExecuteChangeSet implements Client.
func (c *SDKClient) ExecuteChangeSet(ctx context.Context, in ExecuteChangeSetInput) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.api.ExecuteChangeSet(ctx, &cloudformation.ExecuteChangeSetInput{
		ChangeSetName:      aws.String(in.ChangeSetName),
		StackName:          optional(in.StackName),
		ClientRequestToken: optional(in.ClientRequestToken),
	})
	return wrapCall("execute changeset", in.StackName, err)
}

// DeleteChangeSet implements Client.
func (c *SDKClient) DeleteChangeSet(ctx context.Context, changeSet, stack string) error {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.api.DeleteChangeSet(ctx, &cloudformation.DeleteChangeSetInput{
		ChangeSetName: aws.String(changeSet),
		StackName:     optional(stack),
	})
	return wrapCall("delete changeset", stack, err)
}

// ListChangeSets implements Client.
func (c *SDKClient) ListChangeSets(ctx context.Context, stack string) ([]ChangeSetSummary, error) {
	var (
		summaries []ChangeSetSummary
		token     *string
	)
	for {
		out, err := c.listChangeSetsPage(ctx, stack, token)
		if err != nil {
			return nil, err
		}
		for _, s := range out.Summaries {
			summaries = append(summaries, ChangeSetSummary{
				ID:       aws.ToString(s.ChangeSetId),
				Name:     aws.ToString(s.ChangeSetName),
				StackID:  aws.ToString(s.StackId),
				ParentID: aws.ToString(s.ParentChangeSetId),
				Status:   string(s.Status),
			})
		}
		if out.NextToken == nil || aws.ToString(out.NextToken) == "" {
			return summaries, nil
		}
		token = out.NextToken
	}
}

func (c *SDKClient) listChangeSetsPage(ctx context.Context, stack string, token *string) (*cloudformation.ListChangeSetsOutput, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.ListChangeSets(ctx, &cloudformation.ListChangeSetsInput{
		StackName: aws.String(stack),
		NextToken: token,
	})
	if err != nil {
		return nil, wrapCall("list changesets", stack, err)
	}
	return out, nil
}

// GetTemplate implements Client.
func (c *SDKClient) GetTemplate(ctx context.Context, stack string) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName:     aws.String(stack),
		TemplateStage: types.TemplateStageOriginal,
	})
	if err != nil {
		return "", wrapCall("get template", stack, err)
	}
	return aws.ToString(out.TemplateBody), nil
}

// GetTemplateSummary implements Client.
func (c *SDKClient) GetTemplateSummary(ctx context.Context, stack string) (*TemplateSummary, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.GetTemplateSummary(ctx, &cloudformation.GetTemplateSummaryInput{
		StackName: aws.String(stack),
	})
	if err != nil {
		return nil, wrapCall("get template summary", stack, err)
	}
	summary := &TemplateSummary{Description: aws.ToString(out.Description)}
	for _, p := range out.Parameters {
		summary.Parameters = append(summary.Parameters, ParameterDeclaration{
			Key:     aws.ToString(p.ParameterKey),
			Default: aws.ToString(p.DefaultValue),
			NoEcho:  aws.ToBool(p.NoEcho),
		})
	}
	return summary, nil
}
