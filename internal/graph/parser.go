package graph

import "fmt"

// maxNestingDepth bounds recursive expansion of nested control
// constructs. Definitions deeper than this are almost certainly
// adversarial; expansion degrades to a single leaf node at the cap so
// the parse still terminates with a best-effort graph.
const maxNestingDepth = 50

// Parse converts an automation definition into a Graph.
//
// The definition is the generic key-value structure produced by decoding
// an automation's YAML or JSON: alias/description/id metadata, triggers,
// conditions, and actions, where each section accepts singular or plural
// key spelling and a bare mapping in place of a sequence.
//
// Parse is deterministic: the same definition always yields the same
// node count, edge endpoints, and labels. The node-ID counter is owned
// by this call, so concurrent parses never interfere.
//
// Returns ErrInvalidDefinition when the definition is not a mapping at
// the top level; every lesser shape problem degrades to defaults or a
// fallback node instead of failing.
func Parse(definition any) (*Graph, error) {
	cfg := asMapping(definition)
	if cfg == nil {
		return nil, ErrInvalidDefinition
	}

	b := &builder{
		graph: &Graph{Metadata: make(map[string]string)},
	}

	metadataID := b.addMetadata(cfg)
	triggerIDs := b.addTriggers(cfg)
	conditionIDs := b.addConditions(cfg)
	actionIDs := b.addActions(cfg)
	b.wireTopLevel(metadataID, triggerIDs, conditionIDs, actionIDs)

	return b.graph, nil
}

// builder accumulates nodes and edges during a single Parse call.
// The counter lives here, not on any long-lived object, which is what
// makes Parse reentrant.
type builder struct {
	graph   *Graph
	counter int
}

// nextID generates a unique node ID with a type-derived prefix,
// e.g. "trigger_1", "action_4".
func (b *builder) nextID(prefix string) string {
	b.counter++
	return fmt.Sprintf("%s_%d", prefix, b.counter)
}

// addNode appends a node, filling in its colour from the type palette.
func (b *builder) addNode(id, label string, t NodeType, data map[string]any) {
	b.graph.Nodes = append(b.graph.Nodes, Node{
		ID:    id,
		Label: label,
		Type:  t,
		Data:  data,
		Color: nodeColours[t],
	})
}

func (b *builder) addEdge(from, to, label string) {
	b.graph.Edges = append(b.graph.Edges, Edge{From: from, To: to, Label: label})
}

// addMetadata creates the metadata node. It is always the first node of
// the graph, even for an otherwise empty definition.
func (b *builder) addMetadata(cfg map[string]any) string {
	id := b.nextID("metadata")

	alias := stringOr(cfg, "alias", "Automation")
	description := stringOr(cfg, "description", "")
	automationID := stringOr(cfg, "id", "unknown")

	b.addNode(id, alias, NodeMetadata, map[string]any{
		"automation_id": automationID,
		"alias":         alias,
		"description":   description,
	})

	b.graph.Metadata["automation_id"] = automationID
	b.graph.Metadata["alias"] = alias

	return id
}

// addTriggers creates one trigger node per trigger item.
func (b *builder) addTriggers(cfg map[string]any) []string {
	var ids []string
	for idx, item := range section(cfg, "triggers", "trigger") {
		id := b.nextID("trigger")

		m := asMapping(item)
		if m == nil {
			// Structurally unexpected item: still one node.
			b.addNode(id, fmt.Sprintf("Trigger #%d", idx+1), NodeTrigger,
				map[string]any{"trigger": item})
			ids = append(ids, id)
			continue
		}

		b.addNode(id, triggerLabel(m, idx), NodeTrigger, m)
		ids = append(ids, id)
	}
	return ids
}

// addConditions creates one condition node per condition item.
// An empty condition section is allowed and yields no nodes.
func (b *builder) addConditions(cfg map[string]any) []string {
	var ids []string
	for idx, item := range section(cfg, "conditions", "condition") {
		id := b.nextID("condition")

		m := asMapping(item)
		if m == nil {
			b.addNode(id, fmt.Sprintf("Condition #%d", idx+1), NodeCondition,
				map[string]any{"condition": item})
			ids = append(ids, id)
			continue
		}

		b.addNode(id, conditionLabel(m, idx), NodeCondition, m)
		ids = append(ids, id)
	}
	return ids
}

// addActions expands every top-level action item, recursively handling
// nested control constructs. The returned IDs are the top-level chain:
// one entry per item (a control construct contributes its junction node).
func (b *builder) addActions(cfg map[string]any) []string {
	var ids []string
	for idx, item := range section(cfg, "actions", "action") {
		ids = append(ids, b.expandAction(item, idx, 0)...)
	}
	return ids
}

// expandAction processes a single action item, dispatching on its
// classified kind. It returns the IDs that represent this item in its
// parent sequence (always one node; nested sequences hang off it via
// labelled edges rather than extending the parent chain).
func (b *builder) expandAction(item any, index, depth int) []string {
	m := asMapping(item)

	// Depth cap reached or not a mapping: best-effort leaf node.
	if m == nil || depth >= maxNestingDepth {
		return []string{b.addLeafAction(item, index)}
	}

	switch classifyAction(m) {
	case kindChoose:
		return []string{b.expandChoose(m, depth)}
	case kindIf:
		return []string{b.expandIf(m, depth)}
	case kindParallel:
		return []string{b.expandParallel(m, depth)}
	case kindRepeat:
		return []string{b.expandRepeat(m, depth)}
	default:
		return []string{b.addLeafAction(item, index)}
	}
}

// expandSequence expands a nested action sequence and chains it onto
// the graph. The first edge out of the origin node carries firstLabel;
// every subsequent sequential edge is unlabelled.
func (b *builder) expandSequence(origin, firstLabel string, seq []any, depth int) {
	prev := origin
	for idx, item := range seq {
		ids := b.expandAction(item, idx, depth)
		if len(ids) == 0 {
			continue
		}

		if prev == origin {
			b.addEdge(prev, ids[0], firstLabel)
		} else {
			b.addEdge(prev, ids[0], "")
		}
		for i := 0; i+1 < len(ids); i++ {
			b.addEdge(ids[i], ids[i+1], "")
		}
		prev = ids[len(ids)-1]
	}
}

// expandChoose handles the choose construct: one junction node, one
// branch node per choice (reached via "option N"), and an optional
// default branch reached via "else".
func (b *builder) expandChoose(m map[string]any, depth int) string {
	chooseID := b.nextID("action")
	b.addNode(chooseID, "Choose/If-Then", NodeAction, map[string]any{"type": "choose"})

	for idx, choiceItem := range asSequence(m["choose"]) {
		choice := asMapping(choiceItem)

		branchID := b.nextID("action")
		branchLabel := fmt.Sprintf("Branch %d", idx+1)

		var conds []any
		if choice != nil {
			conds = section(choice, "conditions", "condition")
			if len(conds) > 0 {
				branchLabel = "If: " + summarizeConditions(conds)
			}
		}

		b.addNode(branchID, branchLabel, NodeCondition, map[string]any{"conditions": conds})
		b.addEdge(chooseID, branchID, fmt.Sprintf("option %d", idx+1))

		if choice != nil {
			b.expandSequence(branchID, "", asSequence(choice["sequence"]), depth+1)
		}
	}

	if def, ok := m["default"]; ok {
		defaultID := b.nextID("action")
		b.addNode(defaultID, "Default/Else", NodeCondition, map[string]any{"type": "default"})
		b.addEdge(chooseID, defaultID, "else")
		b.expandSequence(defaultID, "", asSequence(def), depth+1)
	}

	return chooseID
}

// expandIf handles if/then/else: one condition-summary node with a
// "then"-labelled edge into the then sequence and, when present, an
// "else"-labelled edge into the else sequence.
func (b *builder) expandIf(m map[string]any, depth int) string {
	ifID := b.nextID("action")

	conds := asSequence(m["if"])
	b.addNode(ifID, "If: "+summarizeConditions(conds), NodeCondition,
		map[string]any{"conditions": conds})

	if _, ok := m["then"]; ok {
		b.expandSequence(ifID, "then", asSequence(m["then"]), depth+1)
	}
	if _, ok := m["else"]; ok {
		b.expandSequence(ifID, "else", asSequence(m["else"]), depth+1)
	}

	return ifID
}

// expandParallel handles parallel: one junction node with a "thread N"
// labelled edge into each concurrent sub-sequence.
func (b *builder) expandParallel(m map[string]any, depth int) string {
	parallelID := b.nextID("action")
	b.addNode(parallelID, "Parallel Actions", NodeAction, map[string]any{"type": "parallel"})

	for idx, sub := range asSequence(m["parallel"]) {
		label := fmt.Sprintf("thread %d", idx+1)
		b.expandSequence(parallelID, label, asSequence(sub), depth+1)
	}

	return parallelID
}

// expandRepeat handles repeat loops. Iteration is represented by a
// forward edge labelled "loop" into the body, not a literal back-edge,
// which keeps the graph acyclic at the data-structure level.
func (b *builder) expandRepeat(m map[string]any, depth int) string {
	repeatID := b.nextID("action")
	rcfg := asMapping(m["repeat"])

	label := "Repeat"
	switch {
	case rcfg == nil:
	case hasKey(rcfg, "count"):
		label = fmt.Sprintf("Repeat %sx", formatValue(rcfg["count"]))
	case hasKey(rcfg, "while"):
		label = "Repeat while..."
	case hasKey(rcfg, "until"):
		label = "Repeat until..."
	}

	b.addNode(repeatID, label, NodeAction, map[string]any{"type": "repeat", "config": rcfg})

	if rcfg != nil {
		b.expandSequence(repeatID, "loop", asSequence(rcfg["sequence"]), depth+1)
	}

	return repeatID
}

// addLeafAction creates exactly one node for a non-control action item:
// service call, delay, wait, event, scene, device action, stop,
// set-variables, or anything unrecognised.
func (b *builder) addLeafAction(item any, index int) string {
	id := b.nextID("action")

	data := asMapping(item)
	if data == nil {
		data = map[string]any{"action": item}
	}

	b.addNode(id, actionLabel(item, index), NodeAction, data)
	return id
}

// wireTopLevel connects the extracted components:
//
//	metadata → every trigger            (unlabelled)
//	trigger  → first condition          ("if", when conditions exist)
//	condition[i] → condition[i+1]       ("AND")
//	last condition → first action       ("then")
//	trigger  → first action             (unlabelled, when no conditions)
//	action[i] → action[i+1]             (unlabelled)
func (b *builder) wireTopLevel(metadataID string, triggerIDs, conditionIDs, actionIDs []string) {
	for _, tid := range triggerIDs {
		b.addEdge(metadataID, tid, "")
	}

	if len(conditionIDs) > 0 {
		for _, tid := range triggerIDs {
			b.addEdge(tid, conditionIDs[0], "if")
		}
		for i := 0; i+1 < len(conditionIDs); i++ {
			b.addEdge(conditionIDs[i], conditionIDs[i+1], "AND")
		}
		if len(actionIDs) > 0 {
			b.addEdge(conditionIDs[len(conditionIDs)-1], actionIDs[0], "then")
		}
	} else if len(actionIDs) > 0 {
		for _, tid := range triggerIDs {
			b.addEdge(tid, actionIDs[0], "")
		}
	}

	for i := 0; i+1 < len(actionIDs); i++ {
		b.addEdge(actionIDs[i], actionIDs[i+1], "")
	}
}
