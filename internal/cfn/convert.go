package cfn

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return aws.String(value)
}

func optionalBool(value bool) *bool {
	if !value {
		return nil
	}
	return aws.Bool(true)
}

func toSDKParameters(params []Parameter) []types.Parameter {
	if len(params) == 0 {
		return nil
	}
	out := make([]types.Parameter, 0, len(params))
	for _, p := range params {
		param := types.Parameter{ParameterKey: aws.String(p.Key)}
		if p.UsePreviousValue {
			param.UsePreviousValue = aws.Bool(true)
		} else {
			param.ParameterValue = aws.String(p.Value)
		}
		out = append(out, param)
	}
	return out
}

func toSDKCapabilities(capabilities []string) []types.Capability {
	if len(capabilities) == 0 {
		return nil
	}
	out := make([]types.Capability, 0, len(capabilities))
	for _, c := range capabilities {
		out = append(out, types.Capability(c))
	}
	return out
}

func toSDKTags(tags []Tag) []types.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]types.Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)})
	}
	return out
}

func toSDKRollback(cfg *RollbackConfiguration) *types.RollbackConfiguration {
	if cfg == nil {
		return nil
	}
	out := &types.RollbackConfiguration{}
	if cfg.MonitoringTimeInMinutes > 0 {
		out.MonitoringTimeInMinutes = aws.Int32(cfg.MonitoringTimeInMinutes)
	}
	for _, trigger := range cfg.Triggers {
		out.RollbackTriggers = append(out.RollbackTriggers, types.RollbackTrigger{
			Arn:  aws.String(trigger.ARN),
			Type: aws.String(trigger.Type),
		})
	}
	return out
}

func toSDKResourcesToImport(resources []ResourceToImport) []types.ResourceToImport {
	if len(resources) == 0 {
		return nil
	}
	out := make([]types.ResourceToImport, 0, len(resources))
	for _, r := range resources {
		out = append(out, types.ResourceToImport{
			ResourceType:       aws.String(r.ResourceType),
			LogicalResourceId:  aws.String(r.LogicalResourceID),
			ResourceIdentifier: r.ResourceIdentifier,
		})
	}
	return out
}

func fromSDKStack(s types.Stack) *Stack {
	stack := &Stack{
		Name:         aws.ToString(s.StackName),
		ID:           aws.ToString(s.StackId),
		Status:       string(s.StackStatus),
		StatusReason: aws.ToString(s.StackStatusReason),
		Description:  aws.ToString(s.Description),
		CreatedAt:    aws.ToTime(s.CreationTime),
		UpdatedAt:    aws.ToTime(s.LastUpdatedTime),
	}
	for _, p := range s.Parameters {
		stack.Parameters = append(stack.Parameters, Parameter{
			Key:   aws.ToString(p.ParameterKey),
			Value: aws.ToString(p.ParameterValue),
		})
	}
	if len(s.Outputs) > 0 {
		stack.Outputs = make(map[string]string, len(s.Outputs))
		for _, o := range s.Outputs {
			stack.Outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
		}
	}
	return stack
}

func fromSDKEvent(e types.StackEvent) StackEvent {
	return StackEvent{
		ID:           aws.ToString(e.EventId),
		StackName:    aws.ToString(e.StackName),
		StackID:      aws.ToString(e.StackId),
		LogicalID:    aws.ToString(e.LogicalResourceId),
		PhysicalID:   aws.ToString(e.PhysicalResourceId),
		ResourceType: aws.ToString(e.ResourceType),
		Status:       string(e.ResourceStatus),
		StatusReason: aws.ToString(e.ResourceStatusReason),
		Timestamp:    aws.ToTime(e.Timestamp),
	}
}

func fromSDKChanges(changes []types.Change) []Change {
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		rc := c.ResourceChange
		if rc == nil {
			continue
		}
		out = append(out, Change{
			Action:       string(rc.Action),
			LogicalID:    aws.ToString(rc.LogicalResourceId),
			PhysicalID:   aws.ToString(rc.PhysicalResourceId),
			ResourceType: aws.ToString(rc.ResourceType),
			Replacement:  string(rc.Replacement),
			ChangeSetID:  aws.ToString(rc.ChangeSetId),
		})
	}
	return out
}
