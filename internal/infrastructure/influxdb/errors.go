package influxdb

import "errors"

var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed surfaces rarely: the async write API reports most
	// failures through the error callback instead.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled marks the metrics export as switched off in config,
	// so callers can treat it as a soft condition.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
