// Package mqtt provides MQTT client connectivity for AutoView Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// AutoView uses MQTT for automation definition sync: external systems
// (Home Assistant exporters, config syncers) publish definitions to
// automation config topics, and AutoView publishes parsed graphs and
// dependency analysis results back. The broker (Mosquitto) decouples
// AutoView from the systems feeding it.
//
//	Definition producers ↔ MQTT Broker ↔ AutoView Core
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all inbound automation definitions
//	err = client.Subscribe(mqtt.Topics{}.AllAutomationConfigs(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a parsed graph
//	topic := mqtt.Topics{}.AutomationGraph("auto-hall-lights")
//	client.Publish(topic, graphJSON, 1, false)
package mqtt
