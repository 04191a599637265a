package automation

import "time"

// Automation is a stored automation definition: an alias plus the raw
// trigger/condition/action mapping as authored, kept loosely typed so
// the full configuration vocabulary round-trips without loss.
type Automation struct {
	// Identity
	ID    string `json:"id"`
	Alias string `json:"alias"`

	// Description (optional)
	Description *string `json:"description,omitempty"`

	// When false the automation is excluded from dependency analysis
	// snapshots but remains stored and parseable.
	Enabled bool `json:"enabled"`

	// Definition holds the trigger/condition/action mapping. Singular
	// and plural section keys (trigger/triggers etc.) are both accepted
	// downstream, so the mapping is stored exactly as received.
	Definition map[string]any `json:"definition"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Automation.
// The Definition map is cloned recursively so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}

	cpy := *a // Shallow copy of value fields

	cpy.Description = cloneStringPtr(a.Description)
	if a.Definition != nil {
		cpy.Definition = deepCopyMap(a.Definition)
	}

	return &cpy
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
