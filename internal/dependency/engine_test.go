package dependency

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// autoDef builds a definition whose triggers watch watchEntities and
// whose actions drive driveEntities.
func autoDef(alias string, watchEntities, driveEntities []string) map[string]any {
	def := map[string]any{"alias": alias}

	var triggers []any
	for _, e := range watchEntities {
		triggers = append(triggers, map[string]any{"platform": "state", "entity_id": e})
	}
	if triggers != nil {
		def["trigger"] = triggers
	}

	var actions []any
	for _, e := range driveEntities {
		actions = append(actions, map[string]any{"service": "homeassistant.toggle", "entity_id": e})
	}
	if actions != nil {
		def["action"] = actions
	}
	return def
}

// linearDefs builds a→b→c→... by chaining entities.
func linearDefs(ids ...string) Definitions {
	defs := make(Definitions, len(ids))
	for i, id := range ids {
		var watch, drive []string
		if i > 0 {
			watch = []string{"entity." + id}
		}
		if i+1 < len(ids) {
			drive = []string{"entity." + ids[i+1]}
		}
		defs[id] = autoDef("alias "+id, watch, drive)
	}
	return defs
}

// ringDefs builds a cycle: each automation drives the next's trigger
// entity, and the last drives the first's.
func ringDefs(ids ...string) Definitions {
	defs := make(Definitions, len(ids))
	for i, id := range ids {
		next := ids[(i+1)%len(ids)]
		defs[id] = autoDef("alias "+id,
			[]string{"entity." + id},
			[]string{"entity." + next},
		)
	}
	return defs
}

func TestEngine_Build(t *testing.T) {
	defs := Definitions{
		"motion": autoDef("Motion lights", nil, []string{"light.hall"}),
		"notify": autoDef("Hall notifier", []string{"light.hall"}, nil),
	}

	g := NewEngine().Build(defs)

	if g.TotalAutomations != 2 {
		t.Errorf("TotalAutomations = %d, want 2", g.TotalAutomations)
	}
	if g.TotalDependencies != 1 {
		t.Fatalf("TotalDependencies = %d, want 1", g.TotalDependencies)
	}

	edge := g.Edges[0]
	want := Relation{
		SourceAutomationID: "motion",
		TargetAutomationID: "notify",
		SourceAlias:        "Motion lights",
		TargetAlias:        "Hall notifier",
		DependencyType:     TypeEntityTrigger,
		IsRequired:         true,
		Likelihood:         0.9,
	}
	if edge != want {
		t.Errorf("edge = %+v, want %+v", edge, want)
	}

	if g.AvgChainLength != 0.5 {
		t.Errorf("AvgChainLength = %v, want 0.5", g.AvgChainLength)
	}
	if g.HasCircularDeps {
		t.Error("HasCircularDeps = true, want false")
	}
}

func TestEngine_Build_Empty(t *testing.T) {
	g := NewEngine().Build(Definitions{})

	if g.TotalAutomations != 0 || g.TotalDependencies != 0 {
		t.Errorf("empty snapshot produced totals %d/%d", g.TotalAutomations, g.TotalDependencies)
	}
	if len(g.Edges) != 0 || len(g.Chains) != 0 {
		t.Errorf("empty snapshot produced %d edges, %d chains", len(g.Edges), len(g.Chains))
	}
}

func TestEngine_Build_SparseDefinitions(t *testing.T) {
	// Automations with no actions or no triggers contribute zero edges,
	// never an error.
	defs := Definitions{
		"trigger_only": autoDef("t", []string{"sensor.x"}, nil),
		"action_only":  autoDef("a", nil, []string{"light.unrelated"}),
		"empty":        {"alias": "e"},
	}

	g := NewEngine().Build(defs)
	if len(g.Edges) != 0 {
		t.Errorf("edge count = %d, want 0", len(g.Edges))
	}
}

func TestEngine_Build_Deterministic(t *testing.T) {
	defs := ringDefs("a", "b", "c")
	defs["d"] = autoDef("d", []string{"entity.b"}, []string{"entity.a", "entity.c"})

	first := NewEngine().Build(defs)
	second := NewEngine().Build(defs)

	if !reflect.DeepEqual(first.Edges, second.Edges) {
		t.Errorf("edge order differs between builds:\n%+v\n%+v", first.Edges, second.Edges)
	}
	if !reflect.DeepEqual(first.Nodes, second.Nodes) {
		t.Errorf("node order differs between builds")
	}
}

func TestEngine_DetectCircular(t *testing.T) {
	t.Run("three-node ring", func(t *testing.T) {
		cycles := NewEngine().DetectCircular(ringDefs("a", "b", "c"))

		if len(cycles) != 1 {
			t.Fatalf("cycle count = %d, want 1", len(cycles))
		}
		cycle := cycles[0]
		if !cycle.IsCircular {
			t.Error("IsCircular = false")
		}
		if cycle.RiskLevel != RiskHigh {
			t.Errorf("RiskLevel = %s, want high", cycle.RiskLevel)
		}

		members := make(map[string]bool)
		for _, id := range cycle.Automations {
			members[id] = true
		}
		for _, id := range []string{"a", "b", "c"} {
			if !members[id] {
				t.Errorf("cycle missing %q: %v", id, cycle.Automations)
			}
		}
	})

	t.Run("acyclic chain", func(t *testing.T) {
		cycles := NewEngine().DetectCircular(linearDefs("a", "b", "c"))
		if len(cycles) != 0 {
			t.Errorf("cycle count = %d, want 0: %+v", len(cycles), cycles)
		}
	})

	t.Run("self-dependency terminates without a cycle", func(t *testing.T) {
		// An automation whose action matches its own trigger never gets a
		// self-edge: relation building skips source == target pairs. The
		// detector must still terminate cleanly over such input.
		defs := Definitions{
			"a": autoDef("a", []string{"entity.a"}, []string{"entity.a"}),
		}
		cycles := NewEngine().DetectCircular(defs)
		if len(cycles) != 0 {
			t.Errorf("cycle count = %d, want 0: %+v", len(cycles), cycles)
		}
	})
}

func TestEngine_FindChains(t *testing.T) {
	chains := NewEngine().FindChains(linearDefs("a", "b", "c"))

	if len(chains) != 1 {
		t.Fatalf("chain count = %d, want 1: %+v", len(chains), chains)
	}
	chain := chains[0]
	if !reflect.DeepEqual(chain.Automations, []string{"a", "b", "c"}) {
		t.Errorf("chain = %v, want [a b c]", chain.Automations)
	}
	if !reflect.DeepEqual(chain.Aliases, []string{"alias a", "alias b", "alias c"}) {
		t.Errorf("aliases = %v", chain.Aliases)
	}
	if chain.EstimatedDurationMS != 300 {
		t.Errorf("EstimatedDurationMS = %d, want 300", chain.EstimatedDurationMS)
	}
	if chain.IsCircular {
		t.Error("IsCircular = true for linear chain")
	}
}

func TestEngine_FindChains_NoEdges(t *testing.T) {
	defs := Definitions{
		"a": autoDef("a", nil, nil),
		"b": autoDef("b", nil, nil),
	}
	if chains := NewEngine().FindChains(defs); len(chains) != 0 {
		t.Errorf("chain count = %d, want 0", len(chains))
	}
}

func TestEngine_AnalyzeImpact(t *testing.T) {
	t.Run("no outgoing edges", func(t *testing.T) {
		defs := linearDefs("a", "b", "c")

		impact, err := NewEngine().AnalyzeImpact(defs, "c")
		if err != nil {
			t.Fatalf("AnalyzeImpact() error = %v", err)
		}
		if len(impact.DirectDependents) != 0 {
			t.Errorf("DirectDependents = %v, want empty", impact.DirectDependents)
		}
		if impact.TotalAffected != 0 {
			t.Errorf("TotalAffected = %d, want 0", impact.TotalAffected)
		}
		if impact.RiskLevel != RiskLow {
			t.Errorf("RiskLevel = %s, want low", impact.RiskLevel)
		}
	})

	t.Run("cascade counts transitive reach", func(t *testing.T) {
		defs := linearDefs("a", "b", "c", "d")

		impact, err := NewEngine().AnalyzeImpact(defs, "a")
		if err != nil {
			t.Fatalf("AnalyzeImpact() error = %v", err)
		}
		if len(impact.DirectDependents) != 1 || impact.DirectDependents[0].AutomationID != "b" {
			t.Fatalf("DirectDependents = %+v, want [b]", impact.DirectDependents)
		}
		if impact.TotalAffected != 3 {
			t.Errorf("TotalAffected = %d, want 3", impact.TotalAffected)
		}
		if impact.CascadeCount != 2 {
			t.Errorf("CascadeCount = %d, want 2", impact.CascadeCount)
		}
		if !reflect.DeepEqual(impact.AffectedAutomations, []string{"b", "c", "d"}) {
			t.Errorf("AffectedAutomations = %v", impact.AffectedAutomations)
		}
		if impact.RiskLevel != RiskMedium {
			t.Errorf("RiskLevel = %s, want medium", impact.RiskLevel)
		}
	})

	t.Run("wide impact is high risk", func(t *testing.T) {
		// One automation fanning out to six dependents.
		defs := Definitions{
			"hub": autoDef("hub", nil, []string{"e.1", "e.2", "e.3", "e.4", "e.5", "e.6"}),
		}
		for i := 1; i <= 6; i++ {
			id := fmt.Sprintf("spoke%d", i)
			defs[id] = autoDef(id, []string{fmt.Sprintf("e.%d", i)}, nil)
		}

		impact, err := NewEngine().AnalyzeImpact(defs, "hub")
		if err != nil {
			t.Fatalf("AnalyzeImpact() error = %v", err)
		}
		if impact.TotalAffected != 6 {
			t.Errorf("TotalAffected = %d, want 6", impact.TotalAffected)
		}
		if impact.RiskLevel != RiskHigh {
			t.Errorf("RiskLevel = %s, want high", impact.RiskLevel)
		}
	})

	t.Run("unknown automation", func(t *testing.T) {
		_, err := NewEngine().AnalyzeImpact(Definitions{}, "ghost")
		if !errors.Is(err, ErrAutomationNotFound) {
			t.Errorf("error = %v, want ErrAutomationNotFound", err)
		}
	})
}

func TestEngine_SimulateExecutionOrder(t *testing.T) {
	steps := NewEngine().SimulateExecutionOrder(linearDefs("a", "b", "c"), "a")

	if len(steps) != 3 {
		t.Fatalf("step count = %d, want 3", len(steps))
	}

	wantIDs := []string{"a", "b", "c"}
	for i, step := range steps {
		if step.Order != i+1 {
			t.Errorf("step[%d].Order = %d, want %d", i, step.Order, i+1)
		}
		if step.AutomationID != wantIDs[i] {
			t.Errorf("step[%d].AutomationID = %s, want %s", i, step.AutomationID, wantIDs[i])
		}
		if step.Depth != i {
			t.Errorf("step[%d].Depth = %d, want %d", i, step.Depth, i)
		}
		if step.EstimatedDurationMS != 100*(i+1) {
			t.Errorf("step[%d].EstimatedDurationMS = %d, want %d", i, step.EstimatedDurationMS, 100*(i+1))
		}
		if step.ExpectedStartMS != 100*i {
			t.Errorf("step[%d].ExpectedStartMS = %d, want %d", i, step.ExpectedStartMS, 100*i)
		}
	}
}

func TestEngine_SimulateExecutionOrder_CycleTerminates(t *testing.T) {
	steps := NewEngine().SimulateExecutionOrder(ringDefs("a", "b", "c"), "a")
	if len(steps) != 3 {
		t.Errorf("step count = %d, want 3 (each automation once)", len(steps))
	}
}

func TestEngine_ChainRisk(t *testing.T) {
	tests := []struct {
		name      string
		chain     Chain
		wantLevel RiskLevel
	}{
		{
			name:      "short linear chain",
			chain:     Chain{Automations: []string{"a", "b"}, EstimatedDurationMS: 200},
			wantLevel: RiskLow,
		},
		{
			name:      "circular chain",
			chain:     Chain{Automations: []string{"a", "b", "c"}, IsCircular: true},
			wantLevel: RiskMedium,
		},
		{
			name: "long circular chain",
			chain: Chain{
				Automations: []string{"a", "b", "c", "d", "e", "f"},
				IsCircular:  true,
			},
			wantLevel: RiskHigh,
		},
		{
			name: "slow chain",
			chain: Chain{
				Automations:         []string{"a", "b", "c", "d"},
				EstimatedDurationMS: 6000,
			},
			wantLevel: RiskMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewEngine().ChainRisk(tt.chain)
			if got.RiskLevel != tt.wantLevel {
				t.Errorf("RiskLevel = %s, want %s (score %v, issues %v)",
					got.RiskLevel, tt.wantLevel, got.RiskScore, got.Issues)
			}
			if got.ChainLength != len(tt.chain.Automations) {
				t.Errorf("ChainLength = %d, want %d", got.ChainLength, len(tt.chain.Automations))
			}
		})
	}
}

func TestEngine_Opportunities(t *testing.T) {
	// A four-automation chain plus a separate two-automation ring.
	defs := linearDefs("a", "b", "c", "d")
	for id, def := range ringDefs("x", "y") {
		defs[id] = def
	}

	opps := NewEngine().Opportunities(defs)

	var haveConsolidate, haveCircular bool
	for _, o := range opps {
		switch o.Type {
		case "consolidate_chain":
			haveConsolidate = true
		case "remove_circular":
			haveCircular = true
		}
	}
	if !haveConsolidate {
		t.Error("missing consolidate_chain opportunity")
	}
	if !haveCircular {
		t.Error("missing remove_circular opportunity")
	}
}
