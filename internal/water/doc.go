// Package water issues point commands to the per-station irrigation
// hardware: valves, pumps and nutrient dosing. Unlike tray transfers
// there is no state machine; each command is an independent request
// rate-limited through the dispatcher's water class.
package water
