package changeset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/cfn/cfntest"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestNewName(t *testing.T) {
	a := NewName("")
	b := NewName("")
	if !strings.HasPrefix(a, DefaultNamePrefix+"-") {
		t.Fatalf("expected default prefix, got %q", a)
	}
	if a == b {
		t.Fatalf("expected unique names")
	}
	if got := NewName("deploy"); !strings.HasPrefix(got, "deploy-") {
		t.Fatalf("expected custom prefix, got %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		cs           *cfn.ChangeSet
		usedPrevious bool
		wantNoChange bool
		wantReason   string
	}{
		{
			name: "complete",
			cs:   &cfn.ChangeSet{Status: cfn.ChangeSetCreateComplete},
		},
		{
			name:         "no updates",
			cs:           &cfn.ChangeSet{Status: cfn.ChangeSetFailed, StatusReason: "No updates are to be performed."},
			wantNoChange: true,
		},
		{
			name:         "no changes",
			cs:           &cfn.ChangeSet{Status: cfn.ChangeSetFailed, StatusReason: "The submitted information didn't contain changes. Submit different information to create a change set."},
			wantNoChange: true,
		},
		{
			name:       "other failure",
			cs:         &cfn.ChangeSet{ID: "cs-1", Status: cfn.ChangeSetFailed, StatusReason: "Template format error"},
			wantReason: "Template format error",
		},
		{
			name:         "access denied with previous template",
			cs:           &cfn.ChangeSet{ID: "cs-1", Status: cfn.ChangeSetFailed, StatusReason: "S3 error: Access Denied"},
			usedPrevious: true,
			wantReason:   previousTemplateMissing,
		},
		{
			name:       "access denied with new template",
			cs:         &cfn.ChangeSet{ID: "cs-1", Status: cfn.ChangeSetFailed, StatusReason: "S3 error: Access Denied"},
			wantReason: "S3 error: Access Denied",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			noChange, err := Classify(tt.cs, tt.usedPrevious, DefaultNoChangeMessages)
			if noChange != tt.wantNoChange {
				t.Fatalf("noChange: expected %v, got %v", tt.wantNoChange, noChange)
			}
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var failed *FailedError
			if !errors.As(err, &failed) {
				t.Fatalf("expected FailedError, got %v", err)
			}
			if failed.Reason != tt.wantReason || failed.ChangeSetID != "cs-1" {
				t.Fatalf("unexpected failure %+v", failed)
			}
			if !strings.HasPrefix(err.Error(), "unable to create changeset: ") {
				t.Fatalf("unexpected message %q", err.Error())
			}
		})
	}
}

func TestIsNoChangeUsesInjectedMessages(t *testing.T) {
	if IsNoChange("No updates are to be performed.", []string{"Nothing to do"}) {
		t.Fatalf("default message should not match a custom list")
	}
	if !IsNoChange("Stack says: Nothing to do", []string{"", "Nothing to do"}) {
		t.Fatalf("expected custom message to match")
	}
	if IsNoChange("anything", []string{""}) {
		t.Fatalf("empty message must not match everything")
	}
}

func TestPollUntilSettled(t *testing.T) {
	statuses := []string{cfn.ChangeSetCreatePending, cfn.ChangeSetCreateInProgress, cfn.ChangeSetCreateComplete}
	calls := 0
	client := &cfntest.Client{
		DescribeChangeSetFn: func(_ context.Context, id, stack string) (*cfn.ChangeSet, error) {
			if id != "cs-1" || stack != "web" {
				t.Fatalf("unexpected describe %s %s", id, stack)
			}
			status := statuses[calls]
			calls++
			return &cfn.ChangeSet{ID: id, Status: status}, nil
		},
	}
	var slept []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	cs, err := NewPoller(client, 4*time.Second, WithSleeper(sleeper)).Poll(context.Background(), "cs-1", "web")
	if err != nil {
		t.Fatalf("Poll error: %v", err)
	}
	if cs.Status != cfn.ChangeSetCreateComplete || calls != 3 {
		t.Fatalf("expected complete after 3 polls, got %s after %d", cs.Status, calls)
	}
	if len(slept) != 3 || slept[0] != 2*time.Second {
		t.Fatalf("expected half-interval sleeps, got %v", slept)
	}
}

func TestPollStopsOnFailed(t *testing.T) {
	client := &cfntest.Client{
		DescribeChangeSetFn: func(_ context.Context, id, _ string) (*cfn.ChangeSet, error) {
			return &cfn.ChangeSet{ID: id, Status: cfn.ChangeSetFailed, StatusReason: "boom"}, nil
		},
	}
	cs, err := NewPoller(client, time.Millisecond, WithSleeper(noSleep)).Poll(context.Background(), "cs-1", "web")
	if err != nil {
		t.Fatalf("Poll error: %v", err)
	}
	if cs.Status != cfn.ChangeSetFailed {
		t.Fatalf("expected FAILED, got %s", cs.Status)
	}
}

func TestPollPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	client := &cfntest.Client{
		DescribeChangeSetFn: func(context.Context, string, string) (*cfn.ChangeSet, error) {
			return nil, boom
		},
	}
	if _, err := NewPoller(client, time.Millisecond, WithSleeper(noSleep)).Poll(context.Background(), "cs", "web"); !errors.Is(err, boom) {
		t.Fatalf("expected describe error, got %v", err)
	}
}
