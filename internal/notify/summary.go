package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nholik/stackpilot/internal/cfn"
)

// ChangeSummary counts changes per action.
type ChangeSummary struct {
	Total        int
	ByAction     map[string]int
	Replacements int
}

// SummarizeChanges tallies a changeset's changes. Conditional replacements
// count as replacements.
func SummarizeChanges(changes []cfn.Change) ChangeSummary {
	summary := ChangeSummary{ByAction: map[string]int{}}
	for _, c := range changes {
		summary.Total++
		summary.ByAction[c.Action]++
		if c.Replacement == "True" || c.Replacement == "Conditional" {
			summary.Replacements++
		}
	}
	return summary
}

func (s ChangeSummary) String() string {
	if s.Total == 0 {
		return "no changes"
	}
	actions := make([]string, 0, len(s.ByAction))
	for action := range s.ByAction {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	parts := make([]string, 0, len(actions))
	for _, action := range actions {
		parts = append(parts, fmt.Sprintf("%d %s", s.ByAction[action], action))
	}
	text := fmt.Sprintf("%d change(s): %s", s.Total, strings.Join(parts, ", "))
	if s.Replacements > 0 {
		text += fmt.Sprintf(" (%d replacement)", s.Replacements)
	}
	return text
}

// sortedChanges orders changes by logical ID for deterministic output.
func sortedChanges(changes []cfn.Change) []cfn.Change {
	out := append([]cfn.Change(nil), changes...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LogicalID < out[j].LogicalID
	})
	return out
}
