package lighting

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/greenrack/greenrack-core/internal/dispatch"
)

const testAddressYAML = `
devices:
  - floor: 1
    type: light
    slave_addr: 1
    layer: 2
    register: 1
  - floor: 1
    type: fan
    slave_addr: 1
    layer: 3
    register: 16
  - floor: 2
    type: light
    slave_addr: 2
    layer: 2
    register: 1
`

// mockSubmitter captures dispatched commands.
type mockSubmitter struct {
	commands []dispatch.Command
	classes  []dispatch.Class
}

func (m *mockSubmitter) Submit(class dispatch.Class, cmd dispatch.Command) error {
	m.classes = append(m.classes, class)
	m.commands = append(m.commands, cmd)
	return nil
}

func testController(t *testing.T) (*Controller, *mockSubmitter) {
	t.Helper()

	table, err := ParseAddressTable([]byte(testAddressYAML))
	if err != nil {
		t.Fatalf("ParseAddressTable: %v", err)
	}
	sub := &mockSubmitter{}
	return NewController(table, sub, "greenrack/lighting/command", "grow-bus-01"), sub
}

// ─── Address Table ───────────────────────────────────────────────────────────

func TestAddressTableLookup(t *testing.T) {
	table, err := ParseAddressTable([]byte(testAddressYAML))
	if err != nil {
		t.Fatalf("ParseAddressTable: %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("Len() = %d, want 3", table.Len())
	}

	addr, err := table.Lookup(1, DeviceFan)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if addr.SlaveAddr != 1 || addr.Layer != 3 || addr.Register != 16 {
		t.Errorf("fan address: %+v", addr)
	}

	if _, err := table.Lookup(7, DeviceLight); !errors.Is(err, ErrAddressUnknown) {
		t.Errorf("unwired floor: got %v, want ErrAddressUnknown", err)
	}
}

func TestAddressTableRejectsDuplicates(t *testing.T) {
	_, err := ParseAddressTable([]byte(`
devices:
  - {floor: 1, type: light, slave_addr: 1, layer: 1, register: 1}
  - {floor: 1, type: light, slave_addr: 2, layer: 2, register: 2}
`))
	if err == nil {
		t.Error("duplicate entry should fail")
	}
}

func TestAddressTableRejectsUnknownType(t *testing.T) {
	_, err := ParseAddressTable([]byte(`
devices:
  - {floor: 1, type: heater, slave_addr: 1, layer: 1, register: 1}
`))
	if err == nil {
		t.Error("unknown device type should fail")
	}
}

// ─── Dim Commands ────────────────────────────────────────────────────────────

func TestDimBuildsEnvelope(t *testing.T) {
	ctrl, sub := testController(t)

	if err := ctrl.Dim(1, DeviceLight, DirUp, 0x0064); err != nil {
		t.Fatalf("Dim: %v", err)
	}

	if len(sub.commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(sub.commands))
	}
	if sub.classes[0] != dispatch.ClassLighting {
		t.Errorf("class: got %s", sub.classes[0])
	}
	if sub.commands[0].Topic != "greenrack/lighting/command" {
		t.Errorf("topic: got %q", sub.commands[0].Topic)
	}

	var env struct {
		Key      string `json:"key"`
		Command  string `json:"command"`
		Layer    int    `json:"layer"`
		Dir      string `json:"dir"`
		Distance string `json:"distance"`
	}
	if err := json.Unmarshal(sub.commands[0].Payload, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Key != "grow-bus-01" || env.Command != "DIM" || env.Layer != 2 || env.Dir != "up" {
		t.Errorf("envelope: %+v", env)
	}

	// Distance is the register write frame for slave 1, register 1,
	// value 0x64 with its CRC.
	if env.Distance != "010600010064D9E1" {
		t.Errorf("distance: got %q", env.Distance)
	}

	// And it must parse back as a valid frame.
	if _, err := ParseFrame(env.Distance); err != nil {
		t.Errorf("embedded frame invalid: %v", err)
	}
}

func TestDimUnknownTarget(t *testing.T) {
	ctrl, sub := testController(t)

	if err := ctrl.Dim(5, DeviceFan, DirDown, 10); !errors.Is(err, ErrAddressUnknown) {
		t.Errorf("got %v, want ErrAddressUnknown", err)
	}
	if len(sub.commands) != 0 {
		t.Error("no command should be dispatched for an unknown target")
	}
}

func TestDimInvalidDirection(t *testing.T) {
	ctrl, _ := testController(t)

	if err := ctrl.Dim(1, DeviceLight, Direction("sideways"), 10); !errors.Is(err, ErrInvalidCommand) {
		t.Errorf("got %v, want ErrInvalidCommand", err)
	}
}
