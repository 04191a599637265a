package dependency

import "errors"

// Domain errors for the dependency package.
var (
	// ErrAutomationNotFound is returned when an analysis targets an
	// automation ID absent from the definition snapshot.
	ErrAutomationNotFound = errors.New("dependency: automation not found")
)
