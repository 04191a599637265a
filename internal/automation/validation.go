package automation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxAliasLength    = 100
	maxDescriptionLen = 500
)

// sectionKeys are the definition sections an automation may carry.
// Anything else (mode, variables, vendor extensions) passes through
// unvalidated.
var sectionKeys = []string{
	"trigger", "triggers",
	"condition", "conditions",
	"action", "actions",
}

// Validate performs validation on an automation.
// Returns an error describing the first validation failure found.
func Validate(a *Automation) error {
	if a == nil {
		return ErrInvalid
	}

	if err := ValidateAlias(a.Alias); err != nil {
		return err
	}

	if a.Description != nil && len(*a.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalid, maxDescriptionLen)
	}

	if a.Definition == nil {
		return fmt.Errorf("%w: definition is required", ErrInvalidDefinition)
	}

	// Sections must be mappings or lists when present. Scalars are only
	// meaningful inside action lists, never at section level.
	for _, key := range sectionKeys {
		value, ok := a.Definition[key]
		if !ok || value == nil {
			continue
		}
		switch value.(type) {
		case map[string]any, []any:
		default:
			return fmt.Errorf("%w: section %q must be a mapping or list", ErrInvalidDefinition, key)
		}
	}

	return nil
}

// ValidateAlias checks if an automation alias is valid.
func ValidateAlias(alias string) error {
	trimmed := strings.TrimSpace(alias)
	if trimmed == "" {
		return fmt.Errorf("%w: alias cannot be empty", ErrInvalidAlias)
	}
	if len(alias) > maxAliasLength {
		return fmt.Errorf("%w: alias exceeds %d characters", ErrInvalidAlias, maxAliasLength)
	}
	return nil
}

// GenerateID creates a new UUID for an automation.
func GenerateID() string {
	return uuid.New().String()
}
