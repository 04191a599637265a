package mqtt

import "fmt"

// Topic prefixes for the AutoView MQTT hierarchy.
//
// Automation topics use the flat scheme: autoview/automation/{id}/{suffix}
// so external producers (Home Assistant exporters, config syncers) can
// publish definitions without knowing internal IDs ahead of time.
const (
	// TopicPrefix is the base for all AutoView topics.
	TopicPrefix = "autoview"

	// TopicPrefixAutomation is the base for automation definition topics.
	TopicPrefixAutomation = "autoview/automation"

	// TopicPrefixAnalysis is the base for analysis result topics.
	TopicPrefixAnalysis = "autoview/analysis"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "autoview/system"
)

// Topics provides builders for AutoView MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	configTopic := topics.AutomationConfig("auto-hall-lights")
//	// Returns: "autoview/automation/auto-hall-lights/config"
type Topics struct{}

// =============================================================================
// Automation Topics
// =============================================================================

// AutomationConfig returns the topic external systems publish definitions to.
//
// Example: autoview/automation/auto-hall-lights/config
func (Topics) AutomationConfig(automationID string) string {
	return fmt.Sprintf("%s/%s/config", TopicPrefixAutomation, automationID)
}

// AutomationGraph returns the topic parsed graphs are published on.
//
// Example: autoview/automation/auto-hall-lights/graph
func (Topics) AutomationGraph(automationID string) string {
	return fmt.Sprintf("%s/%s/graph", TopicPrefixAutomation, automationID)
}

// AutomationRemoved returns the topic announcing a deleted automation.
//
// Example: autoview/automation/auto-hall-lights/removed
func (Topics) AutomationRemoved(automationID string) string {
	return fmt.Sprintf("%s/%s/removed", TopicPrefixAutomation, automationID)
}

// =============================================================================
// Analysis Topics
// =============================================================================

// AnalysisDependencies returns the topic the full dependency graph is
// published on after each rebuild.
//
// Example: autoview/analysis/dependencies
func (Topics) AnalysisDependencies() string {
	return fmt.Sprintf("%s/dependencies", TopicPrefixAnalysis)
}

// AnalysisCircular returns the topic circular dependency alerts are
// published on. Only published when cycles exist.
//
// Example: autoview/analysis/circular
func (Topics) AnalysisCircular() string {
	return fmt.Sprintf("%s/circular", TopicPrefixAnalysis)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: autoview/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: autoview/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllAutomationConfigs returns a pattern matching all inbound definitions.
//
// Pattern: autoview/automation/+/config
func (Topics) AllAutomationConfigs() string {
	return fmt.Sprintf("%s/+/config", TopicPrefixAutomation)
}

// AllAutomationTopics returns a pattern matching all automation traffic.
//
// Pattern: autoview/automation/#
func (Topics) AllAutomationTopics() string {
	return fmt.Sprintf("%s/#", TopicPrefixAutomation)
}

// AllTopics returns a pattern matching all AutoView topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: autoview/#
func (Topics) AllTopics() string {
	return "autoview/#"
}

// AutomationIDFromTopic extracts the automation ID segment from an
// automation topic. Returns "" when the topic is not under the
// automation prefix or has no ID segment.
//
// Example: "autoview/automation/auto-01/config" -> "auto-01"
func AutomationIDFromTopic(topic string) string {
	prefix := TopicPrefixAutomation + "/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	rest := topic[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i]
		}
	}
	return rest
}
