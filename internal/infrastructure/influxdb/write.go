package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteAirQuality records an air quality sample for a station.
//
// The write is non-blocking; points are batched and flushed on the
// configured interval.
func (c *Client) WriteAirQuality(stationID int, co2, temperature, humidity float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"air_quality",
		map[string]string{
			"station": strconv.Itoa(stationID),
		},
		map[string]interface{}{
			"co2_ppm":       co2,
			"temperature_c": temperature,
			"humidity_pct":  humidity,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSensorSnapshot records a debounced AGV sensor snapshot.
//
// Tags keep cardinality low: one series per station. The raw snapshot
// fields land as numeric values.
func (c *Client) WriteSensorSnapshot(stationID int, fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"agv_sensors",
		map[string]string{
			"station": strconv.Itoa(stationID),
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteFlowEvent records a flow state change for later analysis of
// cycle times per station.
func (c *Client) WriteFlowEvent(stationID int, fromState, toState string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"flow_events",
		map[string]string{
			"station": strconv.Itoa(stationID),
			"to":      toState,
		},
		map[string]interface{}{
			"from": fromState,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements the helpers don't
// cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
