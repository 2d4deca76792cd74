package cfn

import "strings"

// Stack statuses with special meaning.
const (
	StatusDeleteComplete   = "DELETE_COMPLETE"
	StatusDeleteInProgress = "DELETE_IN_PROGRESS"
	StatusDeleteFailed     = "DELETE_FAILED"
	StatusRollbackComplete = "ROLLBACK_COMPLETE"
)

// Changeset statuses.
const (
	ChangeSetCreatePending    = "CREATE_PENDING"
	ChangeSetCreateInProgress = "CREATE_IN_PROGRESS"
	ChangeSetCreateComplete   = "CREATE_COMPLETE"
	ChangeSetFailed           = "FAILED"
)

// IsTerminal reports whether a stack status is final (ends with COMPLETE or FAILED).
func IsTerminal(status string) bool {
	return strings.HasSuffix(status, "COMPLETE") || strings.HasSuffix(status, "FAILED")
}

// Succeeded reports whether a terminal status represents success. A rollback
// that completed is a failure of the requested operation.
func Succeeded(status string) bool {
	if !IsTerminal(status) {
		return false
	}
	if strings.HasSuffix(status, "FAILED") {
		return false
	}
	return !strings.HasSuffix(status, StatusRollbackComplete)
}
