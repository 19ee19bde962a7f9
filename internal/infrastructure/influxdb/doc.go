// Package influxdb records auth service metrics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring.
//
// # Purpose
//
// Every register, login and role assignment becomes one point in the
// auth_events measurement, tagged with action and outcome, so dashboards
// can chart login failure rates and registration volume.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAuthEvent(influxdb.AuthEventPoint{Action: "login", Outcome: "success"})
//
// # Error Handling
//
// Writes are batched according to batch_size and flush_interval. Batch
// errors are delivered to the SetOnError callback; connection and health
// check errors are returned directly.
package influxdb
