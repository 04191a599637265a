package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when an automation ID does not exist.
	ErrNotFound = errors.New("automation: not found")

	// ErrExists is returned when creating an automation with an ID that already exists.
	ErrExists = errors.New("automation: already exists")

	// ErrInvalid is returned when automation validation fails.
	ErrInvalid = errors.New("automation: invalid")

	// ErrInvalidAlias is returned when an alias is empty or too long.
	ErrInvalidAlias = errors.New("automation: invalid alias")

	// ErrInvalidDefinition is returned when a definition is missing or not a mapping.
	ErrInvalidDefinition = errors.New("automation: invalid definition")
)
