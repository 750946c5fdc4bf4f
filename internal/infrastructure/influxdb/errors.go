package influxdb

import "errors"

var (
	// ErrDisabled indicates the influxdb config section is disabled.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed indicates the server could not be reached.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected indicates an operation on a closed client.
	ErrNotConnected = errors.New("influxdb: not connected")
)
