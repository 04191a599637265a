package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteParseMetric writes a single graph-parse measurement to InfluxDB.
//
// This is the primary method for recording parser performance data.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - automationID: Unique identifier for the automation (e.g., "auto-hall-lights")
//   - nodeCount: Number of nodes in the generated graph
//   - durationMS: Parse duration in milliseconds
//
// Example:
//
//	client.WriteParseMetric("auto-hall-lights", 14, 2.3)
func (c *Client) WriteParseMetric(automationID string, nodeCount int, durationMS float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"graph_parse",
		map[string]string{
			"automation_id": automationID,
		},
		map[string]interface{}{
			"node_count":  nodeCount,
			"duration_ms": durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAnalysisMetric writes a dependency-analysis run measurement.
//
// Used for tracking how the dependency map evolves over time: total
// relations found, chains and cycles detected, and rebuild duration.
//
// Parameters:
//   - automationCount: Number of automations analysed
//   - relationCount: Number of dependency relations found
//   - circularCount: Number of circular chains detected
//   - durationMS: Analysis duration in milliseconds
func (c *Client) WriteAnalysisMetric(automationCount, relationCount, circularCount int, durationMS float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"dependency_analysis",
		map[string]string{},
		map[string]interface{}{
			"automation_count": automationCount,
			"relation_count":   relationCount,
			"circular_count":   circularCount,
			"duration_ms":      durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRiskMetric writes an impact-risk measurement for one automation.
//
// Parameters:
//   - automationID: Automation identifier
//   - riskScore: Computed risk score for the automation's dependency chains
//   - affectedCount: Number of downstream automations affected
func (c *Client) WriteRiskMetric(automationID string, riskScore float64, affectedCount int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"impact_risk",
		map[string]string{
			"automation_id": automationID,
		},
		map[string]interface{}{
			"risk_score":     riskScore,
			"affected_count": affectedCount,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
