package lighting

import (
	"errors"
	"testing"
)

// ─── Checksum ────────────────────────────────────────────────────────────────

func TestChecksumReferenceValue(t *testing.T) {
	// Standard CRC16 (seed 0xFFFF, poly 0xA001) of 01 06 00 01 00 64
	// is 0xE1D9, appended low byte first.
	f := WriteRegister(0x01, 0x0001, 0x0064)

	want := Frame{0x01, 0x06, 0x00, 0x01, 0x00, 0x64, 0xD9, 0xE1}
	if f != want {
		t.Errorf("frame = % X, want % X", f[:], want[:])
	}
}

func TestChecksumCoilFrame(t *testing.T) {
	f := WriteCoil(0x02, 0x0003, true)

	want := Frame{0x02, 0x05, 0x00, 0x03, 0xFF, 0x00, 0x7C, 0x09}
	if f != want {
		t.Errorf("frame = % X, want % X", f[:], want[:])
	}
}

// ─── Frame Building ──────────────────────────────────────────────────────────

func TestBuildFrameLayout(t *testing.T) {
	f := BuildFrame(0x11, OpReadHolding, 0xABCD, 0x1234)

	if f[0] != 0x11 {
		t.Errorf("slave addr: got %#02x", f[0])
	}
	if f[1] != 0x03 {
		t.Errorf("op code: got %#02x", f[1])
	}
	if f[2] != 0xAB || f[3] != 0xCD {
		t.Errorf("register bytes: got %#02x %#02x, want big-endian 0xABCD", f[2], f[3])
	}
	if f[4] != 0x12 || f[5] != 0x34 {
		t.Errorf("value bytes: got %#02x %#02x, want big-endian 0x1234", f[4], f[5])
	}
}

func TestReadHelpers(t *testing.T) {
	if f := ReadHolding(0x01, 0x0000, 0x0002); f[1] != OpReadHolding {
		t.Errorf("ReadHolding op: got %#02x", f[1])
	}
	if f := ReadInput(0x01, 0x0000, 0x0002); f[1] != OpReadInput {
		t.Errorf("ReadInput op: got %#02x", f[1])
	}
	if f := WriteCoil(0x01, 0x0000, false); f[4] != 0x00 || f[5] != 0x00 {
		t.Errorf("coil off value: got %#02x %#02x", f[4], f[5])
	}
}

// ─── Hex Round Trip ──────────────────────────────────────────────────────────

func TestHexEncoding(t *testing.T) {
	f := WriteRegister(0x01, 0x0001, 0x0064)

	if got, want := f.Hex(), "010600010064D9E1"; got != want {
		t.Errorf("Hex() = %q, want %q", got, want)
	}
}

func TestParseFrame(t *testing.T) {
	original := ReadHolding(0x01, 0x0000, 0x0002)

	parsed, err := ParseFrame(original.Hex())
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if parsed != original {
		t.Errorf("round trip: got % X, want % X", parsed[:], original[:])
	}
}

func TestParseFrameRejectsBadChecksum(t *testing.T) {
	// Valid layout, corrupted CRC.
	_, err := ParseFrame("010600010064D9E2")
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("got %v, want ErrChecksumMismatch", err)
	}
}

func TestParseFrameRejectsMalformed(t *testing.T) {
	cases := []string{
		"zz0600010064D9E1",   // not hex
		"0106",               // too short
		"010600010064D9E1FF", // too long
		"",
	}
	for _, s := range cases {
		if _, err := ParseFrame(s); !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("ParseFrame(%q): got %v, want ErrMalformedFrame", s, err)
		}
	}
}
