package graph

// Definitions accept both singular and plural key spellings
// ("trigger"/"triggers") and allow a bare mapping wherever a sequence is
// expected. All acceptance happens here, once, so the extraction logic
// only ever sees canonical ordered sequences.

// asSequence converts a value to an ordered sequence.
// A nil value becomes an empty sequence; a non-list value becomes a
// one-element sequence.
func asSequence(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{v}
	}
}

// asMapping returns v as a key-value mapping, or nil if it is not one.
func asMapping(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// section extracts a definition section, preferring the plural spelling.
// An empty plural section falls through to the singular one, matching
// the precedence the automation integrations themselves apply.
func section(cfg map[string]any, plural, singular string) []any {
	if seq := asSequence(cfg[plural]); len(seq) > 0 {
		return seq
	}
	return asSequence(cfg[singular])
}

// stringOr returns cfg[key] as a string, or fallback when the key is
// absent or not a string.
func stringOr(cfg map[string]any, key, fallback string) string {
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return fallback
}

// actionKind is the tagged classification of an action item. Exactly one
// kind applies to every item; dispatching on the kind (rather than ad-hoc
// key checks at each site) keeps the "which key wins" rule in one place.
type actionKind int

const (
	kindChoose actionKind = iota
	kindIf
	kindParallel
	kindRepeat
	kindLeaf
)

// classifyAction determines which control construct an action item is.
// When multiple control keys coexist the priority is
// choose > if > parallel > repeat; anything else is a leaf action.
func classifyAction(item map[string]any) actionKind {
	switch {
	case hasKey(item, "choose"):
		return kindChoose
	case hasKey(item, "if"):
		return kindIf
	case hasKey(item, "parallel"):
		return kindParallel
	case hasKey(item, "repeat"):
		return kindRepeat
	default:
		return kindLeaf
	}
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
