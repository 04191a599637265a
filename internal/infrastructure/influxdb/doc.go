// Package influxdb provides InfluxDB connectivity for AutoView Core.
//
// It wraps the official influxdb-client-go v2 library with AutoView-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Graph parse performance (node counts, parse durations)
//   - Dependency analysis runs (relation counts, circular chains, rebuild time)
//   - Impact risk scores per automation
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "autoview",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write parse metrics
//	client.WriteParseMetric("auto-hall-lights", 14, 2.3)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for frequent analysis rebuilds.
package influxdb
