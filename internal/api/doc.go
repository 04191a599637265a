// Package api implements the HTTP REST API and WebSocket server for AutoView Core.
//
// This package provides:
//   - REST endpoints for automation CRUD and per-automation graph rendering
//   - Dependency analysis endpoints (full graph, chains, cycles, impact,
//     simulated execution order, optimisation opportunities)
//   - WebSocket hub for real-time graph and dependency update broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between user interfaces (dashboards, editor frontends)
// and the automation registry + analysis engines. Definition changes arrive
// either through the REST API or via MQTT from the automation platform; both
// paths upsert the registry, publish the refreshed graph, and arm a debounced
// full re-analysis whose result fans out to WebSocket clients and MQTT.
//
// # Graceful Degradation
//
// The server operates without MQTT and InfluxDB. Definition sync and
// telemetry are disabled when those clients are absent, but the REST API and
// WebSocket broadcasts for API-driven changes keep working.
package api
