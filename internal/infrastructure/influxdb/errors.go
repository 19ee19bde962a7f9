package influxdb

import "errors"

// Errors returned by Connect and HealthCheck. Write failures surface
// through the async error channel and are logged, not returned.
var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")
)
