package cfn

import (
	"context"
	"time"
)

// Client defines the control-plane operations the orchestrator relies on.
// Describe calls are idempotent. A missing stack is reported as an error
// matching ErrStackNotFound.
type Client interface {
	// DescribeStack returns the current snapshot of a stack by name or ID.
	DescribeStack(ctx context.Context, stack string) (*Stack, error)

	// DescribeStackEvents returns events strictly newer than since, newest first.
	DescribeStackEvents(ctx context.Context, stack string, since time.Time) ([]StackEvent, error)

	CreateStack(ctx context.Context, in CreateStackInput) (string, error)
	UpdateStack(ctx context.Context, in UpdateStackInput) (string, error)
	DeleteStack(ctx context.Context, in DeleteStackInput) error

	// CreateChangeSet returns the ID of the new changeset.
	CreateChangeSet(ctx context.Context, in CreateChangeSetInput) (string, error)
	DescribeChangeSet(ctx context.Context, changeSet, stack string) (*ChangeSet, error)
	ExecuteChangeSet(ctx context.Context, in ExecuteChangeSetInput) error
	DeleteChangeSet(ctx context.Context, changeSet, stack string) error
	ListChangeSets(ctx context.Context, stack string) ([]ChangeSetSummary, error)

	// GetTemplate returns the original template body of a deployed stack.
	GetTemplate(ctx context.Context, stack string) (string, error)
	GetTemplateSummary(ctx context.Context, stack string) (*TemplateSummary, error)
}
