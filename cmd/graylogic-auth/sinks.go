package main

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-auth/internal/auth"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/logging"
)

// eventEnqueuer is satisfied by *mqtt.EventPublisher.
type eventEnqueuer interface {
	Enqueue(action string, v any) error
}

// mqttSink forwards auth events to the MQTT event queue. A full queue is
// logged and the event dropped; the workflow is never blocked.
func mqttSink(pub eventEnqueuer, log *logging.Logger) auth.EventSink {
	return auth.EventSinkFunc(func(_ context.Context, event auth.Event) {
		if err := pub.Enqueue(event.Action, event); err != nil {
			log.Warn("auth event not queued for MQTT",
				"action", event.Action,
				"error", err,
			)
		}
	})
}

// authEventWriter is satisfied by *influxdb.Client.
type authEventWriter interface {
	WriteAuthEvent(ev influxdb.AuthEventPoint)
}

// influxSink records every auth event as an auth_events point.
func influxSink(w authEventWriter, serviceID string) auth.EventSink {
	return auth.EventSinkFunc(func(_ context.Context, event auth.Event) {
		at := event.OccurredAt
		if at.IsZero() {
			at = time.Now()
		}
		w.WriteAuthEvent(influxdb.AuthEventPoint{
			Action:   event.Action,
			Outcome:  event.Outcome,
			Service:  serviceID,
			Duration: event.Duration,
			At:       at,
		})
	})
}
