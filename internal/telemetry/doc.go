// Package telemetry filters raw sensor traffic before it reaches
// observers.
//
// AGV sensor boards publish aggressively: every poll cycle, bounce and
// all. The Aggregator debounces each station's frames and delivers
// only settled, changed snapshots. Air quality samples are parsed
// (JSON, with a legacy delimited-text fallback) and handed on for
// history writes and broadcast. Nothing in this package feeds the flow
// machines; telemetry is for humans and dashboards.
package telemetry
