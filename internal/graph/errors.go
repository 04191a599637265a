package graph

import "errors"

// Domain errors for the graph package.
//
// Callers should check these with errors.Is():
//
//	if errors.Is(err, graph.ErrInvalidDefinition) {
//	    // skip this automation, continue with the rest
//	}
var (
	// ErrInvalidDefinition is returned when an automation definition is
	// not a key-value mapping at the top level. Anything less broken than
	// that degrades to defaults instead of failing.
	ErrInvalidDefinition = errors.New("graph: definition is not a mapping")
)
