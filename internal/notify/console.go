package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nholik/stackpilot/internal/cfn"
)

const (
	minStackWidth    = 10
	minResourceWidth = 12
	statusWidth      = 44
	timeLayout       = "15:04:05"
)

// ConsoleObserver prints events and changesets as aligned text columns.
type ConsoleObserver struct {
	mu            sync.Mutex
	out           io.Writer
	stackWidth    int
	resourceWidth int
	headerDone    bool
}

// NewConsoleObserver writes to out.
func NewConsoleObserver(out io.Writer) *ConsoleObserver {
	return &ConsoleObserver{out: out, stackWidth: minStackWidth, resourceWidth: minResourceWidth}
}

// SetColumnWidths implements ColumnSizer.
func (c *ConsoleObserver) SetColumnWidths(stackWidth, resourceWidth int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stackWidth = max(stackWidth, minStackWidth)
	c.resourceWidth = max(resourceWidth, minResourceWidth)
}

func (c *ConsoleObserver) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, msg)
}

func (c *ConsoleObserver) Warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, "WARNING: "+msg)
}

func (c *ConsoleObserver) ChangeSet(title string, cs *cfn.ChangeSet) {
	if cs == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.out, title)
	if len(cs.Changes) == 0 {
		fmt.Fprintln(c.out, "  (no changes)")
		return
	}
	width := c.resourceWidth
	for _, change := range cs.Changes {
		width = max(width, len(change.LogicalID))
	}
	fmt.Fprintf(c.out, "  %-8s %-*s %-40s %s\n", "Action", width, "LogicalId", "ResourceType", "Replacement")
	fmt.Fprintf(c.out, "  %-8s %-*s %-40s %s\n", "------", width, "---------", "------------", "-----------")
	for _, change := range cs.Changes {
		fmt.Fprintf(c.out, "  %-8s %-*s %-40s %s\n", change.Action, width, change.LogicalID, change.ResourceType, change.Replacement)
	}
}

func (c *ConsoleObserver) StackEvent(e cfn.StackEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.headerDone {
		c.headerDone = true
		fmt.Fprintf(c.out, "%-8s %-*s %-*s %-*s %s\n", "Time", c.stackWidth, "StackName", c.resourceWidth, "Logical Resource Id", statusWidth, "Status", "Status Reason")
		fmt.Fprintf(c.out, "%-8s %-*s %-*s %-*s %s\n", "----", c.stackWidth, "---------", c.resourceWidth, "-------------------", statusWidth, "------", "-------------")
	}
	reason := strings.ReplaceAll(e.StatusReason, "\n", " ")
	if reason == "" {
		reason = "-"
	}
	fmt.Fprintf(c.out, "%-8s %-*s %-*s %-*s %s\n",
		e.Timestamp.Local().Format(timeLayout),
		c.stackWidth, e.StackName,
		c.resourceWidth, e.LogicalID,
		statusWidth, e.Status,
		reason)
}

func isFailureStatus(status string) bool {
	return strings.HasSuffix(status, "FAILED") || strings.Contains(status, "ROLLBACK")
}
