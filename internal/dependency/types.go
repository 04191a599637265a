package dependency

// Definitions is the snapshot the engine operates over: automation ID
// to raw definition mapping, as supplied by the registry.
type Definitions map[string]map[string]any

// Type categorises how one automation depends on another.
type Type string

const (
	// TypeEntityTrigger is the relation the engine currently derives:
	// an entity the source's actions drive appears in the target's
	// triggers.
	TypeEntityTrigger Type = "entity_trigger"

	// Remaining categories are part of the wire contract for frontends
	// but are not yet derived from definitions.
	TypeDirectTrigger     Type = "direct_trigger"
	TypeSharedEntity      Type = "shared_entity"
	TypeSharedCondition   Type = "shared_condition"
	TypeServiceDependency Type = "service_dependency"
	TypePotential         Type = "potential"
)

// RiskLevel grades how concerning a chain or impact footprint is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Relation is one detected source→target dependency edge.
type Relation struct {
	SourceAutomationID string  `json:"source_automation_id"`
	TargetAutomationID string  `json:"target_automation_id"`
	SourceAlias        string  `json:"source_alias"`
	TargetAlias        string  `json:"target_alias"`
	DependencyType     Type    `json:"dependency_type"`
	IsRequired         bool    `json:"is_required"`
	Likelihood         float64 `json:"likelihood"`
}

// Chain is an ordered sequence of automations connected by dependency
// edges. A circular chain returns to an automation it already contains,
// signalling a possible infinite trigger loop.
type Chain struct {
	Automations         []string  `json:"automations"`
	Aliases             []string  `json:"aliases"`
	EstimatedDurationMS int       `json:"total_estimated_duration"`
	IsCircular          bool      `json:"is_circular"`
	RiskLevel           RiskLevel `json:"risk_level"`
	PotentialIssues     []string  `json:"potential_issues,omitempty"`
}

// Graph is the complete dependency picture of an automation collection.
type Graph struct {
	Nodes                []string   `json:"nodes"`
	Edges                []Relation `json:"edges"`
	Chains               []Chain    `json:"chains"`
	CircularDependencies []Chain    `json:"circular_dependencies"`
	TotalAutomations     int        `json:"total_automations"`
	TotalDependencies    int        `json:"total_dependencies"`
	AvgChainLength       float64    `json:"avg_chain_length"`
	HasCircularDeps      bool       `json:"has_circular_deps"`
}

// Dependent describes one automation directly downstream of another.
type Dependent struct {
	AutomationID   string `json:"automation_id"`
	Alias          string `json:"alias"`
	DependencyType Type   `json:"dependency_type"`
}

// Impact is the cascade analysis for a single automation.
type Impact struct {
	AutomationID        string      `json:"automation_id"`
	DirectDependents    []Dependent `json:"direct_dependents"`
	CascadeCount        int         `json:"cascade_count"`
	TotalAffected       int         `json:"total_affected"`
	AffectedAutomations []string    `json:"affected_automations"`
	RiskLevel           RiskLevel   `json:"risk_level"`
}

// ExecutionStep is one entry of a simulated execution order.
type ExecutionStep struct {
	Order               int    `json:"order"`
	AutomationID        string `json:"automation_id"`
	Alias               string `json:"alias"`
	Depth               int    `json:"depth"`
	EstimatedDurationMS int    `json:"estimated_duration_ms"`
	ExpectedStartMS     int    `json:"expected_start_ms"`
}

// RiskAssessment is the advisory scoring of one chain.
type RiskAssessment struct {
	RiskScore           float64   `json:"risk_score"`
	RiskLevel           RiskLevel `json:"risk_level"`
	Issues              []string  `json:"issues"`
	ChainLength         int       `json:"chain_length"`
	EstimatedDurationMS int       `json:"estimated_duration_ms"`
}

// Opportunity is a suggested simplification of the automation set.
type Opportunity struct {
	Type        string   `json:"type"`
	Automations []string `json:"automations"`
	Reason      string   `json:"reason"`
	Suggestion  string   `json:"suggestion"`
	Benefit     string   `json:"benefit"`
	Priority    string   `json:"priority"`
}
