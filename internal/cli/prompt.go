package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/notify"
	"github.com/nholik/stackpilot/internal/stack"
)

// prompter asks yes/no questions on the command's streams. With assumeYes
// every question is answered yes without reading input.
type prompter struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newPrompter(streams IO, assumeYes bool) *prompter {
	return &prompter{in: bufio.NewReader(streams.In), out: streams.Err, assumeYes: assumeYes}
}

// confirm returns true only for an explicit y or yes. EOF answers no.
func (p *prompter) confirm(question string) bool {
	if p.assumeYes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (p *prompter) confirmChangeSet(cs *cfn.ChangeSet) bool {
	if cs == nil {
		return false
	}
	name := cs.Name
	if name == "" {
		name = cs.ID
	}
	summary := notify.SummarizeChanges(cs.Changes)
	return p.confirm(fmt.Sprintf("Apply changeset %s (%s)?", name, summary))
}

func (p *prompter) deleteHooks(stackName string) stack.DeleteHooks {
	return stack.DeleteHooks{
		ConfirmDelete: func() bool {
			return p.confirm(fmt.Sprintf("Delete stack %s?", stackName))
		},
		ConfirmDiscardRetain: func() bool {
			return p.confirm("Resources to retain can only be kept when the stack is DELETE_FAILED. Delete all resources instead?")
		},
	}
}
