// Package influxdb stores environmental telemetry in InfluxDB v2.
//
// The telemetry aggregator writes debounced AGV sensor snapshots and
// air quality samples here. InfluxDB is optional: when disabled in
// config the core runs without it and telemetry is broadcast-only.
package influxdb
