package graph

// Entity extraction shared with the dependency engine. Both the parser
// and the engine must agree on which entity IDs a definition references,
// so the rules live here.

// TriggerEntities returns the set of entity IDs referenced by the
// definition's triggers. Both singular and plural key spellings and
// scalar-or-list entity_id values are accepted.
func TriggerEntities(cfg map[string]any) map[string]struct{} {
	entities := make(map[string]struct{})
	for _, item := range section(cfg, "triggers", "trigger") {
		trigger := asMapping(item)
		if trigger == nil {
			continue
		}
		collectEntityIDs(trigger["entity_id"], entities)
	}
	return entities
}

// ActionEntities returns the set of entity IDs referenced directly by
// the definition's action items. Only entity_id keys on the items
// themselves count; entities buried inside nested control constructs
// name what a branch might touch, not what the automation as a whole is
// known to drive.
func ActionEntities(cfg map[string]any) map[string]struct{} {
	entities := make(map[string]struct{})
	for _, item := range section(cfg, "actions", "action") {
		action := asMapping(item)
		if action == nil {
			continue
		}
		collectEntityIDs(action["entity_id"], entities)
	}
	return entities
}

// collectEntityIDs adds a scalar or list entity_id value to the set.
func collectEntityIDs(v any, into map[string]struct{}) {
	switch val := v.(type) {
	case string:
		into[val] = struct{}{}
	case []any:
		for _, e := range val {
			if s, ok := e.(string); ok {
				into[s] = struct{}{}
			}
		}
	}
}
