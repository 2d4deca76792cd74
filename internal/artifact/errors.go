package artifact

import "fmt"

// InvalidLocationError reports a malformed or unsupported artifact location.
type InvalidLocationError struct {
	Location string
	Reason   string
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("invalid artifact location %q: %s", e.Location, e.Reason)
}

// MissingCollaboratorError reports that an artifact needs a collaborator
// that was not configured, such as a blob store for oversize uploads.
type MissingCollaboratorError struct {
	Kind   Kind
	Need   string
	Reason string
}

func (e *MissingCollaboratorError) Error() string {
	return fmt.Sprintf("%s requires a %s: %s", e.Kind, e.Need, e.Reason)
}
