// Package graph converts automation definitions into node/edge graphs.
//
// An automation definition arrives as a generic key-value structure
// (decoded YAML or JSON) with trigger, condition, and action sections.
// Parse walks that structure and produces a canonical Graph suitable for
// visualisation or further analysis.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│                 Parse (parser.go)                     │
//	│  1. Metadata node (alias, description, id)            │
//	│  2. Trigger nodes  (one per trigger item)             │
//	│  3. Condition nodes (one per condition item)          │
//	│  4. Action nodes   (recursive control expansion)      │
//	│  5. Edge wiring    (metadata→triggers→conds→actions)  │
//	│                                                       │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────┐ │
//	│  │ normalize.go │   │  labels.go   │   │entities.go│ │
//	│  │ key spelling │   │ human-readable│  │ entity_id │ │
//	│  │ scalar→list  │   │ node labels  │   │ extraction│ │
//	│  └──────────────┘   └──────────────┘   └──────────┘ │
//	└──────────────────────────────────────────────────────┘
//
// # Control Constructs
//
// Action items may nest five recognised control shapes: choose/default,
// if/then/else, parallel, repeat, and leaf actions (service calls, delays,
// waits, events, scenes, device actions, stop, variables). Each shape is
// classified once into an actionKind and expanded exhaustively; when more
// than one control key is present the priority is
// choose > if > parallel > repeat.
//
// # Graph Shape
//
// The produced graph is a control-flow DAG. The repeat construct is
// represented by a forward edge labelled "loop" into its body rather than
// a literal back-edge, so the data structure itself never contains cycles.
//
// # Failure Policy
//
// Missing or wrongly-typed fields degrade to documented defaults and never
// abort the parse. Unrecognised trigger, condition, or action shapes still
// yield exactly one node with a fallback label. Only a definition that is
// not a mapping at the top level returns ErrInvalidDefinition.
//
// # Thread Safety
//
// Parse holds no shared state: node identifiers come from a counter owned
// by the single call, so concurrent parses of different definitions are
// independent.
package graph
