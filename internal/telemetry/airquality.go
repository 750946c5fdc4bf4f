package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AirQuality is one environmental sample from a station's air sensor.
type AirQuality struct {
	CO2         float64 `json:"co2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// legacyAirQualityFields is the field count of the delimited format.
const legacyAirQualityFields = 3

// ParseAirQuality decodes an air quality payload.
//
// The current sensors publish JSON: {"co2": 612, "temperature": 21.4,
// "humidity": 58.2}. Older firmware publishes a comma-delimited line
// in the same order: "612,21.4,58.2". Both are accepted.
func ParseAirQuality(payload []byte) (AirQuality, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return AirQuality{}, fmt.Errorf("%w: empty payload", ErrUnparseable)
	}

	if strings.HasPrefix(trimmed, "{") {
		var aq AirQuality
		if err := json.Unmarshal(payload, &aq); err != nil {
			return AirQuality{}, fmt.Errorf("%w: %w", ErrUnparseable, err)
		}
		return aq, nil
	}

	return parseLegacyAirQuality(trimmed)
}

// parseLegacyAirQuality decodes the delimited-text fallback.
func parseLegacyAirQuality(s string) (AirQuality, error) {
	parts := strings.Split(s, ",")
	if len(parts) != legacyAirQualityFields {
		return AirQuality{}, fmt.Errorf("%w: %d fields, want %d", ErrUnparseable, len(parts), legacyAirQualityFields)
	}

	values := make([]float64, legacyAirQualityFields)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return AirQuality{}, fmt.Errorf("%w: field %d: %w", ErrUnparseable, i, err)
		}
		values[i] = v
	}

	return AirQuality{
		CO2:         values[0],
		Temperature: values[1],
		Humidity:    values[2],
	}, nil
}
