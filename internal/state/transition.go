package state

// Transition compares a stack's previous journal record with the current one.
type Transition struct {
	Stack           string
	PreviousOutcome string
	CurrentOutcome  string
	PreviousStatus  string
	CurrentStatus   string
	// Recovered is set when the previous operation failed and this one did not.
	Recovered bool
	// Regressed is set when this operation failed after a successful one.
	Regressed bool
	FirstRun  bool
}

// Changed reports whether the outcome or the stack status moved.
func (t Transition) Changed() bool {
	return t.FirstRun || t.PreviousOutcome != t.CurrentOutcome || t.PreviousStatus != t.CurrentStatus
}

// DetectTransition builds the transition from prev to current. A nil prev
// marks the first recorded operation.
func DetectTransition(stack string, prev *Record, current Record) Transition {
	t := Transition{
		Stack:          stack,
		CurrentOutcome: current.Outcome,
		CurrentStatus:  current.Status,
	}
	if prev == nil {
		t.FirstRun = true
		return t
	}
	t.PreviousOutcome = prev.Outcome
	t.PreviousStatus = prev.Status
	t.Recovered = prev.Failed() && !current.Failed()
	t.Regressed = !prev.Failed() && current.Failed()
	return t
}
