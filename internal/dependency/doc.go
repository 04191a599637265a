// Package dependency builds and analyses the cross-automation
// dependency graph.
//
// An automation depends on another when an entity its actions drive is
// an entity the other's triggers watch: switching light.hall on can fire
// any automation triggered by light.hall. The engine derives these
// entity_trigger relations for every ordered pair of automations and
// reasons about the resulting graph.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│                Engine (engine.go)                     │
//	│                                                       │
//	│  Build ──────────────▶ relations + chains + cycles    │
//	│  FindChains ─────────▶ linear dependency chains       │
//	│  DetectCircular ─────▶ trigger-loop candidates        │
//	│  AnalyzeImpact ──────▶ cascade reach of one automation│
//	│  SimulateExecutionOrder ▶ naive firing sequence       │
//	│  ChainRisk / Opportunities ▶ advisory scoring         │
//	│                                                       │
//	│  Entity usage comes from graph.ActionEntities and     │
//	│  graph.TriggerEntities, the same rules the parser     │
//	│  applies.                                             │
//	└──────────────────────────────────────────────────────┘
//
// Unlike a single automation's control-flow graph, the dependency graph
// may legitimately contain true cycles; DetectCircular finds them with
// an iterative DFS over explicit (node, edge-index) frames.
//
// # State
//
// The engine holds no cross-call state. Every method recomputes from
// the definition snapshot it is handed, so results are idempotent for
// the same input collection. Callers that want caching own that layer
// and its invalidation policy.
//
// # Thread Safety
//
// All methods are safe for concurrent use: the only mutable state is
// local to each call.
package dependency
