package notify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/rs/zerolog"
)

func TestConsoleObserverAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleObserver(&buf)
	console.SetColumnWidths(20, 25)

	console.StackEvent(cfn.StackEvent{
		StackName: "web",
		LogicalID: "Bucket",
		Status:    "CREATE_IN_PROGRESS",
		Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	})
	console.StackEvent(cfn.StackEvent{
		StackName:    "web",
		LogicalID:    "Queue",
		Status:       "CREATE_FAILED",
		StatusReason: "limit\nexceeded",
		Timestamp:    time.Date(2024, 1, 1, 10, 0, 1, 0, time.UTC),
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], "web                  Bucket") {
		t.Fatalf("expected padded stack column, got %q", lines[2])
	}
	if !strings.HasSuffix(lines[3], "limit exceeded") {
		t.Fatalf("expected flattened reason, got %q", lines[3])
	}
}

func TestConsoleObserverChangeSet(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleObserver(&buf)

	console.ChangeSet("Root stack: web", &cfn.ChangeSet{Changes: []cfn.Change{
		{Action: "Add", LogicalID: "Bucket", ResourceType: "AWS::S3::Bucket"},
	}})
	console.ChangeSet("Nested stack: Child", &cfn.ChangeSet{})

	out := buf.String()
	if !strings.Contains(out, "Root stack: web") || !strings.Contains(out, "AWS::S3::Bucket") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "(no changes)") {
		t.Fatalf("expected empty changeset marker:\n%s", out)
	}
}

func TestMultiObserverForwardsColumnWidths(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleObserver(&buf)
	multi := NewMultiObserver(console, NewLogObserver(zerolog.Nop()), nil)

	multi.SetColumnWidths(30, 40)
	if console.stackWidth != 30 || console.resourceWidth != 40 {
		t.Fatalf("widths not forwarded: %d %d", console.stackWidth, console.resourceWidth)
	}

	multi.Warn("careful")
	if !strings.Contains(buf.String(), "WARNING: careful") {
		t.Fatalf("expected warning forwarded, got %q", buf.String())
	}
}
