// Package api implements the HTTP REST API and WebSocket server for
// Greenrack Core.
//
// This package provides:
//   - REST endpoints for station flow control, task and tray inventory
//   - WebSocket hub for real-time flow state and telemetry broadcasts
//   - Lighting and irrigation point-command endpoints
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between operator interfaces and the flow
// supervisor + MQTT bus. Start requests enter the supervisor here;
// hardware commands leave via the dispatcher, and state changes flow
// back through the supervisor's broadcaster, which is this package's
// Hub. The server never talks to station hardware directly.
package api
