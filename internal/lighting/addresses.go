package lighting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeviceType distinguishes the two actuator kinds on the bus.
type DeviceType string

const (
	DeviceLight DeviceType = "light"
	DeviceFan   DeviceType = "fan"
)

// Address is the wiring calibration for one device: which bus slave it
// hangs off, which dimmer layer it sits on, and its register.
//
// These values come from physical installation and cannot be derived;
// they load from a YAML file and stay literal.
type Address struct {
	SlaveAddr byte   `yaml:"slave_addr"`
	Layer     int    `yaml:"layer"`
	Register  uint16 `yaml:"register"`
}

// addressKey indexes the table by floor and device type.
type addressKey struct {
	floor      int
	deviceType DeviceType
}

// AddressTable resolves (floor, device type) to a bus address.
type AddressTable struct {
	entries map[addressKey]Address
}

// addressFile is the YAML shape of the calibration file:
//
//	devices:
//	  - floor: 1
//	    type: light
//	    slave_addr: 1
//	    layer: 2
//	    register: 1
type addressFile struct {
	Devices []struct {
		Floor   int        `yaml:"floor"`
		Type    DeviceType `yaml:"type"`
		Address `yaml:",inline"`
	} `yaml:"devices"`
}

// LoadAddressTable reads the calibration file.
func LoadAddressTable(path string) (*AddressTable, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from config
	if err != nil {
		return nil, fmt.Errorf("reading address table: %w", err)
	}
	return ParseAddressTable(data)
}

// ParseAddressTable parses calibration YAML.
func ParseAddressTable(data []byte) (*AddressTable, error) {
	var file addressFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing address table: %w", err)
	}

	table := &AddressTable{entries: make(map[addressKey]Address, len(file.Devices))}
	for _, d := range file.Devices {
		if d.Type != DeviceLight && d.Type != DeviceFan {
			return nil, fmt.Errorf("address table: unknown device type %q on floor %d", d.Type, d.Floor)
		}
		key := addressKey{floor: d.Floor, deviceType: d.Type}
		if _, exists := table.entries[key]; exists {
			return nil, fmt.Errorf("address table: duplicate entry for floor %d %s", d.Floor, d.Type)
		}
		table.entries[key] = d.Address
	}
	return table, nil
}

// Lookup resolves a floor and device type to its bus address.
// Returns ErrAddressUnknown for unwired combinations.
func (t *AddressTable) Lookup(floor int, deviceType DeviceType) (Address, error) {
	addr, ok := t.entries[addressKey{floor: floor, deviceType: deviceType}]
	if !ok {
		return Address{}, fmt.Errorf("%w: floor %d %s", ErrAddressUnknown, floor, deviceType)
	}
	return addr, nil
}

// Len returns the number of wired devices.
func (t *AddressTable) Len() int {
	return len(t.entries)
}
