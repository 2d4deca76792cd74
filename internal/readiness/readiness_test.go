package readiness

import (
	"context"
	"errors"
	"testing"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/cfn/cfntest"
)

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status string
		want   State
	}{
		{"DELETE_COMPLETE", NotFound},
		{"DELETE_IN_PROGRESS", Deleting},
		{"CREATE_COMPLETE", Ready},
		{"UPDATE_COMPLETE", Ready},
		{"UPDATE_ROLLBACK_COMPLETE", Ready},
		{"ROLLBACK_COMPLETE", Ready},
		{"IMPORT_COMPLETE", Ready},
		{"DELETE_FAILED", DeleteFailed},
		{"CREATE_FAILED", Broken},
		{"UPDATE_ROLLBACK_FAILED", Broken},
		{"ROLLBACK_FAILED", Broken},
		{"CREATE_IN_PROGRESS", Busy},
		{"UPDATE_COMPLETE_CLEANUP_IN_PROGRESS", Busy},
		{"REVIEW_IN_PROGRESS", Busy},
		{"SOMETHING_NEW", Busy},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			if got := FromStatus(tc.status); got != tc.want {
				t.Fatalf("FromStatus(%q) = %s, want %s", tc.status, got, tc.want)
			}
		})
	}
}

func TestClassify_NotFound(t *testing.T) {
	t.Parallel()

	client := &cfntest.Client{
		DescribeStackFn: func(context.Context, string) (*cfn.Stack, error) {
			return nil, cfn.ErrStackNotFound
		},
	}

	state, err := Classify(context.Background(), client, "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != NotFound {
		t.Fatalf("expected NotFound, got %s", state)
	}
}

func TestCheck_ReturnsSnapshot(t *testing.T) {
	t.Parallel()

	client := &cfntest.Client{
		DescribeStackFn: func(context.Context, string) (*cfn.Stack, error) {
			return &cfn.Stack{Name: "web", ID: "arn:web", Status: "UPDATE_IN_PROGRESS"}, nil
		},
	}

	state, stack, err := Check(context.Background(), client, "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != Busy {
		t.Fatalf("expected Busy, got %s", state)
	}
	if stack == nil || stack.ID != "arn:web" {
		t.Fatalf("unexpected snapshot: %+v", stack)
	}
}

func TestCheck_DeleteCompleteHasNoSnapshot(t *testing.T) {
	t.Parallel()

	client := &cfntest.Client{
		DescribeStackFn: func(context.Context, string) (*cfn.Stack, error) {
			return &cfn.Stack{Name: "web", Status: "DELETE_COMPLETE"}, nil
		},
	}

	state, stack, err := Check(context.Background(), client, "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != NotFound || stack != nil {
		t.Fatalf("expected NotFound without snapshot, got %s %+v", state, stack)
	}
}

func TestClassify_PropagatesTransportErrors(t *testing.T) {
	t.Parallel()

	boom := &cfn.TransportError{Op: "describe stack", Err: errors.New("connection reset")}
	client := &cfntest.Client{
		DescribeStackFn: func(context.Context, string) (*cfn.Stack, error) {
			return nil, boom
		},
	}

	_, err := Classify(context.Background(), client, "web")
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestStateMessages(t *testing.T) {
	if Busy.Message() != "Stack is being modified by another process." {
		t.Fatalf("unexpected Busy message: %q", Busy.Message())
	}
	if Exists.String() != "Exists" {
		t.Fatalf("unexpected name: %s", Exists)
	}
	if State(99).String() != "Unknown" {
		t.Fatalf("unexpected name for out of range state")
	}
}
