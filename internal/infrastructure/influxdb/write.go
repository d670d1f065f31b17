package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteChannelMetric writes a numeric reading from a device channel.
//
// This is the primary method for recording sensor telemetry mirrored from
// the hub (temperatures, dim levels, shutter positions, valve positions).
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Hub device identifier (e.g., "3014F711A000001")
//   - channelIndex: Functional channel index within the device
//   - measurement: The metric name (e.g., "actual_temperature", "dim_level")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteChannelMetric("3014F711A000001", 1, "actual_temperature", 21.5)
func (c *Client) WriteChannelMetric(deviceID string, channelIndex int, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"channel_metrics",
		map[string]string{
			"device_id":   deviceID,
			"channel":     strconv.Itoa(channelIndex),
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteOccurrence writes a button-press occurrence.
//
// Occurrences are recorded with a count field of 1 so dashboards can
// aggregate press frequency per device and channel.
//
// Parameters:
//   - deviceID: Hub device identifier
//   - channelIndex: Channel the press occurred on
//   - eventType: Press classification (e.g., "PRESS_SHORT", "PRESS_LONG")
func (c *Client) WriteOccurrence(deviceID string, channelIndex int, eventType string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"occurrences",
		map[string]string{
			"device_id":  deviceID,
			"channel":    strconv.Itoa(channelIndex),
			"event_type": eventType,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLinkMetric writes a hub connection statistic.
//
// Used for tracking session health: frames received, requests issued,
// dropped notifications, reconnect counts.
//
// Parameters:
//   - metricName: Link metric (e.g., "frames_received", "reconnects")
//   - value: The metric value
func (c *Client) WriteLinkMetric(metricName string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"link",
		map[string]string{
			"metric": metricName,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "hculink-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., the hub's lastStatusUpdate).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
