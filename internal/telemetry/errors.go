package telemetry

import "errors"

// ErrUnparseable indicates a payload that does not decode. Such frames
// are surfaced to observers raw but never drive control decisions.
var ErrUnparseable = errors.New("telemetry: unparseable payload")
