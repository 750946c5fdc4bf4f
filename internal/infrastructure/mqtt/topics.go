package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes for the Greenrack MQTT scheme.
//
// Station topics follow: greenrack/station/{id}/{device}/{kind}
// where device is lift, agv, tray, air or water. The lighting bus bridge
// listens on a single fixed command topic (configurable, see config.Lighting).
const (
	// TopicPrefix is the base for all Greenrack topics.
	TopicPrefix = "greenrack"

	// TopicPrefixStation is the base for per-station device topics.
	TopicPrefixStation = "greenrack/station"

	// TopicPrefixCore is the base for core-originated event topics.
	TopicPrefixCore = "greenrack/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "greenrack/system"
)

// Topics provides builders for Greenrack MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.LiftCommand(2)
//	// Returns: "greenrack/station/2/lift/command"
type Topics struct{}

// =============================================================================
// Station Device Topics
// =============================================================================

// LiftCommand returns the command topic for a station's lift.
//
// Example: greenrack/station/1/lift/command
func (Topics) LiftCommand(station int) string {
	return fmt.Sprintf("%s/%d/lift/command", TopicPrefixStation, station)
}

// LiftStatus returns the status topic for a station's lift.
//
// Example: greenrack/station/1/lift/status
func (Topics) LiftStatus(station int) string {
	return fmt.Sprintf("%s/%d/lift/status", TopicPrefixStation, station)
}

// TrayActionDone returns the tray mechanism acknowledgment topic.
// The payload is a bare signal; content is ignored.
//
// Example: greenrack/station/1/lift/tray_action_done
func (Topics) TrayActionDone(station int) string {
	return fmt.Sprintf("%s/%d/lift/tray_action_done", TopicPrefixStation, station)
}

// AGVCommand returns the command topic for a station's shuttle vehicle.
//
// Example: greenrack/station/1/agv/command
func (Topics) AGVCommand(station int) string {
	return fmt.Sprintf("%s/%d/agv/command", TopicPrefixStation, station)
}

// AGVStatus returns the status topic for a station's shuttle vehicle.
//
// Example: greenrack/station/1/agv/status
func (Topics) AGVStatus(station int) string {
	return fmt.Sprintf("%s/%d/agv/status", TopicPrefixStation, station)
}

// AGVSensors returns the raw sensor telemetry topic for a station's shuttle.
//
// Example: greenrack/station/1/agv/sensors
func (Topics) AGVSensors(station int) string {
	return fmt.Sprintf("%s/%d/agv/sensors", TopicPrefixStation, station)
}

// TrayCommand returns the command topic for a station's tray gripper.
//
// Example: greenrack/station/1/tray/command
func (Topics) TrayCommand(station int) string {
	return fmt.Sprintf("%s/%d/tray/command", TopicPrefixStation, station)
}

// AirQuality returns the air quality telemetry topic for a station.
//
// Example: greenrack/station/1/air/quality
func (Topics) AirQuality(station int) string {
	return fmt.Sprintf("%s/%d/air/quality", TopicPrefixStation, station)
}

// WaterCommand returns the point-command topic for a station's water system.
//
// Example: greenrack/station/1/water/command
func (Topics) WaterCommand(station int) string {
	return fmt.Sprintf("%s/%d/water/command", TopicPrefixStation, station)
}

// =============================================================================
// Core Topics
// =============================================================================

// CoreEvent returns the topic for core events.
//
// Example: greenrack/core/event/flow_state_changed
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// SystemStatus returns the system status topic.
//
// Example: greenrack/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllLiftStatuses returns a pattern matching every station's lift status.
//
// Pattern: greenrack/station/+/lift/status
func (Topics) AllLiftStatuses() string {
	return TopicPrefixStation + "/+/lift/status"
}

// AllAGVStatuses returns a pattern matching every station's AGV status.
//
// Pattern: greenrack/station/+/agv/status
func (Topics) AllAGVStatuses() string {
	return TopicPrefixStation + "/+/agv/status"
}

// AllAGVSensors returns a pattern matching every station's raw sensor frames.
//
// Pattern: greenrack/station/+/agv/sensors
func (Topics) AllAGVSensors() string {
	return TopicPrefixStation + "/+/agv/sensors"
}

// AllTrayActionDone returns a pattern matching every station's tray acks.
//
// Pattern: greenrack/station/+/lift/tray_action_done
func (Topics) AllTrayActionDone() string {
	return TopicPrefixStation + "/+/lift/tray_action_done"
}

// AllAirQuality returns a pattern matching every station's air telemetry.
//
// Pattern: greenrack/station/+/air/quality
func (Topics) AllAirQuality() string {
	return TopicPrefixStation + "/+/air/quality"
}

// AllTopics returns a pattern matching all Greenrack topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: greenrack/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// =============================================================================
// Topic Parsing
// =============================================================================

// StationTopic is the parsed form of a per-station topic.
type StationTopic struct {
	// Station is the numeric station id from the topic.
	Station int

	// Device is the device segment: lift, agv, tray, air or water.
	Device string

	// Kind is the final segment: command, status, sensors, quality
	// or tray_action_done.
	Kind string
}

// stationTopicParts is the segment count of a station topic:
// greenrack/station/{id}/{device}/{kind}
const stationTopicParts = 5

// ParseStationTopic parses a per-station topic into its components.
// Returns false for topics outside the station scheme or with a
// non-numeric station id.
func ParseStationTopic(topic string) (StationTopic, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != stationTopicParts {
		return StationTopic{}, false
	}
	if parts[0] != TopicPrefix || parts[1] != "station" {
		return StationTopic{}, false
	}

	id, err := strconv.Atoi(parts[2])
	if err != nil || id < 1 {
		return StationTopic{}, false
	}

	return StationTopic{
		Station: id,
		Device:  parts[3],
		Kind:    parts[4],
	}, true
}
