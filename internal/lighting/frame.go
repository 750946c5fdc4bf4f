package lighting

import (
	"encoding/hex"
	"fmt"
)

// Operation codes for the addressable lighting/fan bus.
const (
	// OpReadHolding reads a holding register.
	OpReadHolding byte = 0x03

	// OpReadInput reads an input register.
	OpReadInput byte = 0x04

	// OpWriteCoil writes a single coil.
	OpWriteCoil byte = 0x05

	// OpWriteRegister writes a single register.
	OpWriteRegister byte = 0x06
)

// frameLength is the full frame size: 6 payload bytes plus 2 CRC bytes.
const frameLength = 8

// Frame is one addressed, checksummed command for the lighting bus:
//
//	[slaveAddr, opCode, addrHi, addrLo, valHi, valLo, crcLo, crcHi]
//
// The bridging device retransmits the bytes verbatim on the physical
// serial bus; nothing here touches the wire directly.
type Frame [frameLength]byte

// BuildFrame assembles a frame for the given slave, operation and
// 16-bit register address and value. The CRC is appended low byte
// first.
func BuildFrame(slaveAddr, opCode byte, register, value uint16) Frame {
	var f Frame
	f[0] = slaveAddr
	f[1] = opCode
	f[2] = byte(register >> 8)
	f[3] = byte(register)
	f[4] = byte(value >> 8)
	f[5] = byte(value)

	crc := crc16(f[:6])
	f[6] = byte(crc)      // low
	f[7] = byte(crc >> 8) // high
	return f
}

// ReadHolding builds a holding-register read frame.
// value carries the register count.
func ReadHolding(slaveAddr byte, register, count uint16) Frame {
	return BuildFrame(slaveAddr, OpReadHolding, register, count)
}

// ReadInput builds an input-register read frame.
func ReadInput(slaveAddr byte, register, count uint16) Frame {
	return BuildFrame(slaveAddr, OpReadInput, register, count)
}

// WriteCoil builds a single-coil write frame. on maps to 0xFF00, off
// to 0x0000 per the bus convention.
func WriteCoil(slaveAddr byte, register uint16, on bool) Frame {
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	return BuildFrame(slaveAddr, OpWriteCoil, register, value)
}

// WriteRegister builds a single-register write frame.
func WriteRegister(slaveAddr byte, register, value uint16) Frame {
	return BuildFrame(slaveAddr, OpWriteRegister, register, value)
}

// Hex returns the frame as an uppercase hex string, the form embedded
// in the command envelope.
func (f Frame) Hex() string {
	return fmt.Sprintf("%X", f[:])
}

// ParseFrame decodes a hex-encoded frame and verifies its CRC.
func ParseFrame(s string) (Frame, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if len(raw) != frameLength {
		return Frame{}, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedFrame, len(raw), frameLength)
	}

	var f Frame
	copy(f[:], raw)

	crc := crc16(f[:6])
	if f[6] != byte(crc) || f[7] != byte(crc>>8) {
		return Frame{}, ErrChecksumMismatch
	}
	return f, nil
}

// crc16 computes the bus checksum: seed 0xFFFF, polynomial 0xA001,
// processed bit by bit per byte.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
