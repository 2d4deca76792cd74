package changeset

import (
	"context"
	"fmt"

	"github.com/nholik/stackpilot/internal/cfn"
)

// DefaultMaxDepth bounds nested stack recursion.
const DefaultMaxDepth = 10

// VisitFunc receives each changeset in depth-first order with a display title.
type VisitFunc func(title string, cs *cfn.ChangeSet)

// Walker discovers the changesets the control plane created for nested stacks.
type Walker struct {
	client   cfn.Client
	maxDepth int
}

// NewWalker returns a Walker limited to DefaultMaxDepth levels.
func NewWalker(client cfn.Client) *Walker {
	return &Walker{client: client, maxDepth: DefaultMaxDepth}
}

// Walk visits root and then, depth first, every nested stack changeset linked
// to it by parent changeset ID.
func (w *Walker) Walk(ctx context.Context, stackName string, root *cfn.ChangeSet, visit VisitFunc) error {
	visit("Root stack: "+stackName, root)
	return w.walk(ctx, root, visit, 1)
}

func (w *Walker) walk(ctx context.Context, parent *cfn.ChangeSet, visit VisitFunc, depth int) error {
	for _, change := range parent.Changes {
		if change.ResourceType != cfn.NestedStackType || change.PhysicalID == "" {
			continue
		}
		if depth >= w.maxDepth {
			return fmt.Errorf("nested stack %s exceeds maximum depth %d", change.LogicalID, w.maxDepth)
		}

		child, err := w.child(ctx, parent.ID, change)
		if err != nil {
			return err
		}
		visit("Nested stack: "+change.LogicalID, child)
		if err := w.walk(ctx, child, visit, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) child(ctx context.Context, parentID string, change cfn.Change) (*cfn.ChangeSet, error) {
	summaries, err := w.client.ListChangeSets(ctx, change.PhysicalID)
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		if summary.ParentID != parentID {
			continue
		}
		name := summary.ID
		if name == "" {
			name = summary.Name
		}
		return w.client.DescribeChangeSet(ctx, name, change.PhysicalID)
	}
	return nil, fmt.Errorf("no changeset found for nested stack %s with parent %s", change.LogicalID, parentID)
}
