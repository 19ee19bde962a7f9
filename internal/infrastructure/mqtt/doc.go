// Package mqtt publishes auth service events to the Gray Logic MQTT bus.
//
// This package manages:
//   - Connection to the Mosquitto broker with auto-reconnect
//   - A retained status topic with Last Will and Testament
//   - Auth events on <prefix>/events/<action>
//   - A bounded, non-blocking event queue drained by one goroutine
//
// Other Gray Logic services subscribe to <prefix>/events/# to react to
// registrations, logins and role changes without polling the auth API.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Event payloads never carry passwords, hashes or tokens
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	events := mqtt.NewEventPublisher(client, mqtt.DefaultEventQueueSize, log)
//	go events.Run(ctx)
//	events.Enqueue("login", event)
package mqtt
