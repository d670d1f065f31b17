// Package mqtt provides MQTT client connectivity for hculink.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// hculink uses MQTT as its outbound export surface: the state mirror is
// re-published as retained state topics and button-press occurrences are
// published as transient event topics. Other home-automation consumers
// subscribe to the broker rather than talking to the hub directly.
//
//	Home Control Unit ↔ hculink ↔ MQTT Broker ↔ consumers
//
// # Security Considerations
//
//   - TLS is recommended for non-local brokers (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish a retained device state
//	topic := mqtt.Topics{}.DeviceState("3014F711A000001")
//	client.PublishRetained(topic, stateJSON)
//
//	// Subscribe to all button-press events
//	err = client.Subscribe(mqtt.Topics{}.AllChannelEvents(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
