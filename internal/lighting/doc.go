// Package lighting encodes the binary wire protocol for the
// addressable lighting and fan modules.
//
// The modules hang off a serial bus behind an MQTT bridging device.
// Commands are 8-byte frames: slave address, operation code, a 16-bit
// register address, a 16-bit value, and a CRC16 appended low byte
// first. Frames travel hex-encoded inside a JSON envelope on a fixed
// command topic; the bridge replays the raw bytes on the bus.
//
// Which slave and register a given floor's light or fan answers to is
// installation wiring, loaded from a YAML calibration file. It is
// data, never arithmetic.
package lighting
