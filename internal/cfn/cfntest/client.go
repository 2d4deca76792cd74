// Package cfntest provides a function-field fake of cfn.Client for tests.
package cfntest

import (
	"context"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
)

// Client implements cfn.Client. Unset functions return zero values.
type Client struct {
	DescribeStackFn       func(ctx context.Context, stack string) (*cfn.Stack, error)
	DescribeStackEventsFn func(ctx context.Context, stack string, since time.Time) ([]cfn.StackEvent, error)
	CreateStackFn         func(ctx context.Context, in cfn.CreateStackInput) (string, error)
	UpdateStackFn         func(ctx context.Context, in cfn.UpdateStackInput) (string, error)
	DeleteStackFn         func(ctx context.Context, in cfn.DeleteStackInput) error
	CreateChangeSetFn     func(ctx context.Context, in cfn.CreateChangeSetInput) (string, error)
	DescribeChangeSetFn   func(ctx context.Context, changeSet, stack string) (*cfn.ChangeSet, error)
	ExecuteChangeSetFn    func(ctx context.Context, in cfn.ExecuteChangeSetInput) error
	DeleteChangeSetFn     func(ctx context.Context, changeSet, stack string) error
	ListChangeSetsFn      func(ctx context.Context, stack string) ([]cfn.ChangeSetSummary, error)
	GetTemplateFn         func(ctx context.Context, stack string) (string, error)
	GetTemplateSummaryFn  func(ctx context.Context, stack string) (*cfn.TemplateSummary, error)
}

var _ cfn.Client = (*Client)(nil)

func (c *Client) DescribeStack(ctx context.Context, stack string) (*cfn.Stack, error) {
	if c.DescribeStackFn != nil {
		return c.DescribeStackFn(ctx, stack)
	}
	return nil, cfn.ErrStackNotFound
}

func (c *Client) DescribeStackEvents(ctx context.Context, stack string, since time.Time) ([]cfn.StackEvent, error) {
	if c.DescribeStackEventsFn != nil {
		return c.DescribeStackEventsFn(ctx, stack, since)
	}
	return nil, nil
}

func (c *Client) CreateStack(ctx context.Context, in cfn.CreateStackInput) (string, error) {
	if c.CreateStackFn != nil {
		return c.CreateStackFn(ctx, in)
	}
	return "", nil
}

func (c *Client) UpdateStack(ctx context.Context, in cfn.UpdateStackInput) (string, error) {
	if c.UpdateStackFn != nil {
		return c.UpdateStackFn(ctx, in)
	}
	return "", nil
}

func (c *Client) DeleteStack(ctx context.Context, in cfn.DeleteStackInput) error {
	if c.DeleteStackFn != nil {
		return c.DeleteStackFn(ctx, in)
	}
	return nil
}

func (c *Client) CreateChangeSet(ctx context.Context, in cfn.CreateChangeSetInput) (string, error) {
	if c.CreateChangeSetFn != nil {
		return c.CreateChangeSetFn(ctx, in)
	}
	return "", nil
}

func (c *Client) DescribeChangeSet(ctx context.Context, changeSet, stack string) (*cfn.ChangeSet, error) {
	if c.DescribeChangeSetFn != nil {
		return c.DescribeChangeSetFn(ctx, changeSet, stack)
	}
	return &cfn.ChangeSet{ID: changeSet, Status: cfn.ChangeSetCreateComplete}, nil
}

func (c *Client) ExecuteChangeSet(ctx context.Context, in cfn.ExecuteChangeSetInput) error {
	if c.ExecuteChangeSetFn != nil {
		return c.ExecuteChangeSetFn(ctx, in)
	}
	return nil
}

func (c *Client) DeleteChangeSet(ctx context.Context, changeSet, stack string) error {
	if c.DeleteChangeSetFn != nil {
		return c.DeleteChangeSetFn(ctx, changeSet, stack)
	}
	return nil
}

func (c *Client) ListChangeSets(ctx context.Context, stack string) ([]cfn.ChangeSetSummary, error) {
	if c.ListChangeSetsFn != nil {
		return c.ListChangeSetsFn(ctx, stack)
	}
	return nil, nil
}

func (c *Client) GetTemplate(ctx context.Context, stack string) (string, error) {
	if c.GetTemplateFn != nil {
		return c.GetTemplateFn(ctx, stack)
	}
	return "", nil
}

func (c *Client) GetTemplateSummary(ctx context.Context, stack string) (*cfn.TemplateSummary, error) {
	if c.GetTemplateSummaryFn != nil {
		return c.GetTemplateSummaryFn(ctx, stack)
	}
	return &cfn.TemplateSummary{}, nil
}
