package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementAuthEvents is the measurement every auth workflow step is
// recorded under.
const MeasurementAuthEvents = "auth_events"

// AuthEventPoint is one auth workflow step as a metric. Action and
// Outcome become tags; user identifiers are deliberately absent to keep
// series cardinality bounded.
type AuthEventPoint struct {
	Action   string
	Outcome  string
	Service  string
	Duration time.Duration
	At       time.Time
}

// WriteAuthEvent records an auth event. The write is non-blocking; data is
// batched and sent asynchronously. Writes on a closed client are dropped.
//
// Example:
//
//	client.WriteAuthEvent(influxdb.AuthEventPoint{Action: "login", Outcome: "failure"})
func (c *Client) WriteAuthEvent(ev AuthEventPoint) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(authEventPoint(ev))
}

// authEventPoint builds the line-protocol point for ev.
func authEventPoint(ev AuthEventPoint) *write.Point {
	tags := map[string]string{
		"action":  ev.Action,
		"outcome": ev.Outcome,
	}
	if ev.Service != "" {
		tags["service"] = ev.Service
	}

	fields := map[string]interface{}{
		"count": int64(1),
	}
	if ev.Duration > 0 {
		fields["duration_ms"] = float64(ev.Duration) / float64(time.Millisecond)
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	return write.NewPoint(MeasurementAuthEvents, tags, fields, at)
}
