package dependency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nerrad567/autoview-core/internal/graph"
)

// Analysis constants.
const (
	// entityTriggerLikelihood is the fixed heuristic weight assigned to
	// entity_trigger relations. State changes usually fire matching
	// triggers but conditions can still gate them, so the weight stays
	// below certainty. Documented heuristic, not a learned score.
	entityTriggerLikelihood = 0.9

	// maxChainDepth bounds chain tracing on pathological inputs.
	maxChainDepth = 20

	// maxCascadeDepth bounds transitive impact and execution-order walks.
	maxCascadeDepth = 10

	// stepDurationMS is the naive per-automation execution estimate.
	stepDurationMS = 100

	// Impact risk thresholds: more than highImpactThreshold affected
	// automations is high risk, more than mediumImpactThreshold is medium.
	highImpactThreshold   = 5
	mediumImpactThreshold = 2
)

// Chain risk scoring weights.
const (
	longChainLength     = 5
	mediumChainLength   = 3
	longChainWeight     = 0.3
	mediumChainWeight   = 0.15
	circularWeight      = 0.5
	longDurationMS      = 5000
	longDurationWeight  = 0.2
	mediumRiskThreshold = 0.3
	highRiskThreshold   = 0.6
)

// Logger is the logging interface used by the Engine, pluggable so the
// package stays free of infrastructure imports.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Engine performs dependency analysis over automation definitions.
// It is stateless between calls; construct once and share freely.
type Engine struct {
	logger Logger
}

// NewEngine creates a dependency analysis engine.
func NewEngine() *Engine {
	return &Engine{logger: noopLogger{}}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Build constructs the complete dependency graph for a definition
// snapshot: entity_trigger relations for every ordered pair whose
// action entities intersect the other's trigger entities, plus derived
// chains, circular dependencies, and aggregate counters.
//
// Iteration is over sorted automation IDs, so identical snapshots yield
// identical graphs.
func (e *Engine) Build(defs Definitions) *Graph {
	g := &Graph{
		Nodes:            sortedIDs(defs),
		TotalAutomations: len(defs),
	}
	if len(defs) == 0 {
		return g
	}

	g.Edges = e.buildRelations(defs, g.Nodes)
	g.TotalDependencies = len(g.Edges)

	// Average out-degree across the collection.
	if g.TotalAutomations > 0 {
		g.AvgChainLength = float64(g.TotalDependencies) / float64(g.TotalAutomations)
	}

	adj := adjacency(g.Edges)
	aliases := aliasIndex(defs)
	g.Chains = e.traceChains(g.Nodes, adj, aliases)
	g.CircularDependencies = e.findCycles(g.Nodes, adj, aliases)
	g.HasCircularDeps = len(g.CircularDependencies) > 0

	e.logger.Debug("dependency graph built",
		"automations", g.TotalAutomations,
		"dependencies", g.TotalDependencies,
		"circular", len(g.CircularDependencies),
	)
	return g
}

// buildRelations derives entity_trigger relations. An automation with
// no actions or no triggers simply contributes zero edges.
func (e *Engine) buildRelations(defs Definitions, ids []string) []Relation {
	actionEntities := make(map[string]map[string]struct{}, len(defs))
	triggerEntities := make(map[string]map[string]struct{}, len(defs))
	for id, def := range defs {
		actionEntities[id] = graph.ActionEntities(def)
		triggerEntities[id] = graph.TriggerEntities(def)
	}

	var edges []Relation
	for _, sourceID := range ids {
		source := actionEntities[sourceID]
		if len(source) == 0 {
			continue
		}
		for _, targetID := range ids {
			if sourceID == targetID {
				continue
			}
			if !intersects(source, triggerEntities[targetID]) {
				continue
			}
			edges = append(edges, Relation{
				SourceAutomationID: sourceID,
				TargetAutomationID: targetID,
				SourceAlias:        aliasOf(defs[sourceID], sourceID),
				TargetAlias:        aliasOf(defs[targetID], targetID),
				DependencyType:     TypeEntityTrigger,
				IsRequired:         true,
				Likelihood:         entityTriggerLikelihood,
			})
		}
	}
	return edges
}

// FindChains discovers linear dependency chains: from every automation
// not yet visited it follows outgoing edges depth-first, recording a
// chain each time a branch runs out of outgoing edges.
func (e *Engine) FindChains(defs Definitions) []Chain {
	g := e.graphSkeleton(defs)
	return e.traceChains(g.nodes, g.adj, g.aliases)
}

// DetectCircular finds dependency cycles: ordered automation sequences
// that return to an automation already on the walk, signalling a
// possible infinite trigger loop.
func (e *Engine) DetectCircular(defs Definitions) []Chain {
	g := e.graphSkeleton(defs)
	return e.findCycles(g.nodes, g.adj, g.aliases)
}

// AnalyzeImpact reports the cascade reach of one automation: its direct
// dependents plus the depth-bounded transitive closure beyond them.
func (e *Engine) AnalyzeImpact(defs Definitions, automationID string) (*Impact, error) {
	if _, ok := defs[automationID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAutomationNotFound, automationID)
	}

	g := e.graphSkeleton(defs)

	impact := &Impact{
		AutomationID:     automationID,
		DirectDependents: []Dependent{},
	}

	affected := make(map[string]struct{})
	for _, edge := range g.edges {
		if edge.SourceAutomationID != automationID {
			continue
		}
		impact.DirectDependents = append(impact.DirectDependents, Dependent{
			AutomationID:   edge.TargetAutomationID,
			Alias:          edge.TargetAlias,
			DependencyType: edge.DependencyType,
		})
		affected[edge.TargetAutomationID] = struct{}{}
	}

	// Transitive closure beyond the direct dependents, depth-bounded.
	var cascade func(id string, depth int)
	cascade = func(id string, depth int) {
		if depth > maxCascadeDepth {
			return
		}
		for _, next := range g.adj[id] {
			if _, seen := affected[next]; seen {
				continue
			}
			affected[next] = struct{}{}
			cascade(next, depth+1)
		}
	}
	for _, dep := range impact.DirectDependents {
		cascade(dep.AutomationID, 1)
	}

	impact.TotalAffected = len(affected)
	impact.CascadeCount = len(affected) - len(impact.DirectDependents)
	impact.AffectedAutomations = sortedKeys(affected)
	impact.RiskLevel = impactRisk(len(affected))

	return impact, nil
}

// SimulateExecutionOrder walks the dependency graph depth-first from
// startID, assigning a monotonically increasing execution index and a
// naive duration estimate to every reachable automation.
func (e *Engine) SimulateExecutionOrder(defs Definitions, startID string) []ExecutionStep {
	g := e.graphSkeleton(defs)

	var steps []ExecutionStep
	visited := make(map[string]struct{})

	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if depth > maxCascadeDepth {
			return
		}
		if _, seen := visited[id]; seen {
			return
		}
		visited[id] = struct{}{}

		steps = append(steps, ExecutionStep{
			Order:               len(steps) + 1,
			AutomationID:        id,
			Alias:               aliasOf(defs[id], id),
			Depth:               depth,
			EstimatedDurationMS: stepDurationMS * (depth + 1),
			ExpectedStartMS:     stepDurationMS * len(steps),
		})

		for _, next := range g.adj[id] {
			walk(next, depth+1)
		}
	}
	walk(startID, 0)

	return steps
}

// ChainRisk scores a single chain: length, circularity, and estimated
// duration each contribute a fixed weight.
func (e *Engine) ChainRisk(chain Chain) RiskAssessment {
	score := 0.0
	issues := append([]string(nil), chain.PotentialIssues...)

	switch {
	case len(chain.Automations) > longChainLength:
		score += longChainWeight
		issues = append(issues, fmt.Sprintf("Long chain with %d automations", len(chain.Automations)))
	case len(chain.Automations) > mediumChainLength:
		score += mediumChainWeight
	}

	if chain.IsCircular {
		score += circularWeight
		if !containsIssue(issues, "Circular dependency") {
			issues = append(issues, "Potential infinite execution loop")
		}
	}

	if chain.EstimatedDurationMS > longDurationMS {
		score += longDurationWeight
		issues = append(issues, fmt.Sprintf("Long execution duration: %dms", chain.EstimatedDurationMS))
	}

	if score > 1.0 {
		score = 1.0
	}

	level := RiskLow
	switch {
	case score >= highRiskThreshold:
		level = RiskHigh
	case score >= mediumRiskThreshold:
		level = RiskMedium
	}

	return RiskAssessment{
		RiskScore:           score,
		RiskLevel:           level,
		Issues:              issues,
		ChainLength:         len(chain.Automations),
		EstimatedDurationMS: chain.EstimatedDurationMS,
	}
}

// Opportunities lists advisory simplifications: long chains worth
// consolidating and cycles that must be broken.
func (e *Engine) Opportunities(defs Definitions) []Opportunity {
	var out []Opportunity

	for _, chain := range e.FindChains(defs) {
		if len(chain.Automations) <= mediumChainLength {
			continue
		}
		out = append(out, Opportunity{
			Type:        "consolidate_chain",
			Automations: chain.Automations,
			Reason:      fmt.Sprintf("Long automation chain with %d automations", len(chain.Automations)),
			Suggestion:  "Consider consolidating into fewer automations",
			Benefit:     "Reduced complexity and execution time",
			Priority:    "medium",
		})
	}

	for _, circ := range e.DetectCircular(defs) {
		out = append(out, Opportunity{
			Type:        "remove_circular",
			Automations: circ.Automations,
			Reason:      "Circular dependency detected",
			Suggestion:  "Redesign automation logic to break the cycle",
			Benefit:     "Prevent infinite loops",
			Priority:    "high",
		})
	}

	return out
}

// skeleton is the shared intermediate form the traversals operate on.
type skeleton struct {
	nodes   []string
	edges   []Relation
	adj     map[string][]string
	aliases map[string]string
}

func (e *Engine) graphSkeleton(defs Definitions) skeleton {
	nodes := sortedIDs(defs)
	edges := e.buildRelations(defs, nodes)
	return skeleton{
		nodes:   nodes,
		edges:   edges,
		adj:     adjacency(edges),
		aliases: aliasIndex(defs),
	}
}

// traceChains performs the depth-first chain discovery. A chain is
// recorded when a branch of length >1 exhausts its outgoing edges; the
// shared visited set keeps the walk linear in the graph size.
func (e *Engine) traceChains(nodes []string, adj map[string][]string, aliases map[string]string) []Chain {
	chains := []Chain{}
	visited := make(map[string]struct{})

	var trace func(id string, current []string)
	trace = func(id string, current []string) {
		if _, seen := visited[id]; seen {
			return
		}
		if len(current) >= maxChainDepth {
			return
		}
		visited[id] = struct{}{}
		current = append(current, id)

		next := adj[id]
		if len(next) == 0 && len(current) > 1 {
			chains = append(chains, newChain(current, aliases, false))
			return
		}
		for _, target := range next {
			trace(target, append([]string(nil), current...))
		}
	}

	for _, node := range nodes {
		if _, seen := visited[node]; !seen {
			trace(node, nil)
		}
	}
	return chains
}

// findCycles runs an iterative DFS with explicit (node, edge-index)
// frames and a recursion-stack set. When an edge reaches a node
// currently on the stack, the cyclic suffix of the walk becomes a
// circular chain and the walk from that root stops.
func (e *Engine) findCycles(nodes []string, adj map[string][]string, aliases map[string]string) []Chain {
	cycles := []Chain{}
	visited := make(map[string]struct{})

	type frame struct {
		node string
		next int // index of the next outgoing edge to examine
	}

	for _, root := range nodes {
		if _, seen := visited[root]; seen {
			continue
		}

		stack := []frame{{node: root}}
		path := []string{root}
		onStack := map[string]struct{}{root: {}}
		visited[root] = struct{}{}

	walk:
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			targets := adj[top.node]

			if top.next >= len(targets) {
				// All edges examined: pop the frame.
				delete(onStack, top.node)
				path = path[:len(path)-1]
				stack = stack[:len(stack)-1]
				continue
			}

			neighbour := targets[top.next]
			top.next++

			if _, cycling := onStack[neighbour]; cycling {
				cycles = append(cycles, cycleChain(path, neighbour, aliases))
				break walk
			}
			if _, seen := visited[neighbour]; seen {
				continue
			}

			visited[neighbour] = struct{}{}
			onStack[neighbour] = struct{}{}
			path = append(path, neighbour)
			stack = append(stack, frame{node: neighbour})
		}
	}
	return cycles
}

// cycleChain extracts the cyclic suffix of path starting at entry.
func cycleChain(path []string, entry string, aliases map[string]string) Chain {
	start := 0
	for i, id := range path {
		if id == entry {
			start = i
			break
		}
	}
	chain := newChain(path[start:], aliases, true)
	chain.RiskLevel = RiskHigh
	chain.PotentialIssues = []string{
		"Circular dependency detected",
		"Could cause infinite execution loops",
	}
	return chain
}

func newChain(ids []string, aliases map[string]string, circular bool) Chain {
	aliasSeq := make([]string, len(ids))
	for i, id := range ids {
		aliasSeq[i] = aliases[id]
	}
	return Chain{
		Automations:         append([]string(nil), ids...),
		Aliases:             aliasSeq,
		EstimatedDurationMS: len(ids) * stepDurationMS,
		IsCircular:          circular,
		RiskLevel:           RiskLow,
	}
}

// containsIssue reports whether any recorded issue mentions substr.
func containsIssue(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return true
		}
	}
	return false
}

func impactRisk(affected int) RiskLevel {
	switch {
	case affected > highImpactThreshold:
		return RiskHigh
	case affected > mediumImpactThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// aliasOf returns the definition's alias, falling back to its ID.
func aliasOf(def map[string]any, id string) string {
	if def != nil {
		if alias, ok := def["alias"].(string); ok && alias != "" {
			return alias
		}
	}
	return id
}

func aliasIndex(defs Definitions) map[string]string {
	idx := make(map[string]string, len(defs))
	for id, def := range defs {
		idx[id] = aliasOf(def, id)
	}
	return idx
}

// adjacency groups edge targets by source, preserving edge order.
func adjacency(edges []Relation) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.SourceAutomationID] = append(adj[e.SourceAutomationID], e.TargetAutomationID)
	}
	return adj
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func sortedIDs(defs Definitions) []string {
	ids := make([]string, 0, len(defs))
	for id := range defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
