package lighting

import "errors"

var (
	// ErrAddressUnknown indicates no calibration entry for the target.
	ErrAddressUnknown = errors.New("lighting: address unknown")

	// ErrMalformedFrame indicates a frame that does not decode.
	ErrMalformedFrame = errors.New("lighting: malformed frame")

	// ErrChecksumMismatch indicates a frame whose CRC does not verify.
	ErrChecksumMismatch = errors.New("lighting: checksum mismatch")

	// ErrInvalidCommand indicates a command with bad parameters.
	ErrInvalidCommand = errors.New("lighting: invalid command")
)
